package service

import (
	"context"

	"app/internal/inventory"
	"app/internal/model"
	"app/internal/pricing"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// StatsService aggregates per-user and system-wide statistics across the
// collection inventory. Every sub-query failure degrades to a partial
// result; only an unauthorized caller gets an error.
type StatsService interface {
	SystemStats(ctx context.Context, claims model.IdentityClaims) (*model.SystemStats, error)
	UserStats(ctx context.Context, claims model.IdentityClaims, userID string) (*model.UserRecord, error)
}

type statsService struct {
	store       repository.RecordStore
	identity    IdentityService
	entries     []inventory.Entry
	gate        AuthorizationGate
	priceTable  pricing.Table
	maxInFlight int
	logger      zerolog.Logger
}

// NewStatsService creates a StatsService sharing the deletion path's
// inventory, so the two paths can never disagree on which collections hold
// user data.
func NewStatsService(store repository.RecordStore, identity IdentityService, entries []inventory.Entry, gate AuthorizationGate, priceTable pricing.Table, maxInFlight int, logger zerolog.Logger) StatsService {
	return &statsService{
		store:       store,
		identity:    identity,
		entries:     entries,
		gate:        gate,
		priceTable:  priceTable,
		maxInFlight: maxInFlight,
		logger:      logger.With().Str("service", "StatsService").Logger(),
	}
}

func (s *statsService) SystemStats(ctx context.Context, claims model.IdentityClaims) (*model.SystemStats, error) {
	if !s.gate.IsAuthorized(claims) {
		return nil, ErrUnauthorized
	}

	stats := &model.SystemStats{
		CollectionCounts: make(map[string]int, len(s.entries)),
		ScanFailures:     make(map[string]string),
	}

	type countOutcome struct {
		count int
		err   error
	}
	outcomes := make([]countOutcome, len(s.entries))
	runBounded(len(s.entries), s.maxInFlight, func(i int) {
		n, err := s.store.Count(ctx, s.entries[i].Name, nil)
		outcomes[i] = countOutcome{count: n, err: err}
	})
	for i, entry := range s.entries {
		if outcomes[i].err != nil {
			s.logger.Error().Err(outcomes[i].err).Str("collection", entry.Name).Msg("Collection count failed")
			stats.ScanFailures[entry.Name] = outcomes[i].err.Error()
			continue
		}
		stats.CollectionCounts[entry.Name] = outcomes[i].count
	}

	// TotalUsers is the cardinality of the merged identity set: a user with
	// records in three collections counts once. No identity hint here; the
	// count reflects only what the collections actually contain.
	reconciled, err := s.identity.Reconcile(ctx, nil)
	if err != nil {
		return nil, err
	}
	stats.TotalUsers = len(reconciled.Users)
	for collection, msg := range reconciled.Failures {
		if _, seen := stats.ScanFailures[collection]; !seen {
			stats.ScanFailures[collection] = msg
		}
	}

	if len(stats.ScanFailures) == 0 {
		stats.ScanFailures = nil
	}
	return stats, nil
}

func (s *statsService) UserStats(ctx context.Context, claims model.IdentityClaims, userID string) (*model.UserRecord, error) {
	if !s.gate.IsAuthorized(claims) {
		return nil, ErrUnauthorized
	}

	record := &model.UserRecord{
		ID:     userID,
		Counts: make(map[string]int),
	}

	// One filtered count per field-referencing collection, plus the usage
	// scan, all fanned out together.
	var fieldEntries []inventory.Entry
	for _, entry := range s.entries {
		if entry.Relation == inventory.FieldReference {
			fieldEntries = append(fieldEntries, entry)
		}
	}

	counts := make([]int, len(fieldEntries))
	errs := make([]error, len(fieldEntries))
	var usageRecords []repository.Record
	var usageErr error
	runBounded(len(fieldEntries)+1, s.maxInFlight, func(i int) {
		if i == len(fieldEntries) {
			usageRecords, usageErr = s.store.Scan(ctx, inventory.UsageLogs,
				&repository.Predicate{Field: inventory.UserIDField, Value: userID})
			return
		}
		pred := &repository.Predicate{Field: inventory.UserIDField, Value: userID}
		counts[i], errs[i] = s.store.Count(ctx, fieldEntries[i].Name, pred)
	})

	for i, entry := range fieldEntries {
		if errs[i] != nil {
			// Zero here means "unavailable", not "confirmed zero".
			s.logger.Error().Err(errs[i]).Str("collection", entry.Name).Str("user_id", userID).Msg("Per-user count failed")
			record.Counts[entry.Name] = 0
			record.Unavailable = append(record.Unavailable, entry.Name)
			continue
		}
		record.Counts[entry.Name] = counts[i]
	}

	if usageErr != nil {
		s.logger.Error().Err(usageErr).Str("user_id", userID).Msg("Usage lookup failed")
		record.Unavailable = append(record.Unavailable, "usage")
	} else if len(usageRecords) > 0 {
		usage := make([]model.UsageRecord, 0, len(usageRecords))
		for _, rec := range usageRecords {
			usage = append(usage, model.UsageRecord{
				UserID:           rec.Field(inventory.UserIDField),
				ModelID:          rec.Field("modelId"),
				PromptTokens:     rec.IntField("promptTokens"),
				CompletionTokens: rec.IntField("completionTokens"),
			})
		}
		record.Usage = pricing.Summarize(usage, s.priceTable)
	}

	// Display attributes come from the settings record when present; a
	// lookup failure only leaves them blank.
	if settings, err := s.store.GetByKey(ctx, inventory.Settings, userID); err == nil && settings != nil {
		record.DisplayName = settings.Field("displayName")
		record.Email = settings.Field("email")
	}

	return record, nil
}
