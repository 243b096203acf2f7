package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"app/internal/inventory"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// IdentityService reconciles user identity across every collection in the
// inventory. The collections share no referential integrity, so the merged
// set is built by fanning out scans and unioning every userId sighting.
type IdentityService interface {
	// Reconcile merges user identifiers and display attributes from all
	// collections. hint, when non-nil, is the currently authenticated
	// identity; it fills gaps but never overrides observed values.
	Reconcile(ctx context.Context, hint *model.IdentityClaims) (*model.ReconcileResult, error)
	// PopulateMissingAttributes writes reconciled display attributes back
	// to the settings records that lack them. Returns a per-user outcome
	// map ("ok", "skipped", or an error message), never a bare boolean.
	PopulateMissingAttributes(ctx context.Context, claims model.IdentityClaims, userIDs []string) (map[string]string, error)
}

type identityService struct {
	store       repository.RecordStore
	entries     []inventory.Entry
	gate        AuthorizationGate
	maxInFlight int
	logger      zerolog.Logger
}

// NewIdentityService creates an IdentityService over the shared inventory.
func NewIdentityService(store repository.RecordStore, entries []inventory.Entry, gate AuthorizationGate, maxInFlight int, logger zerolog.Logger) IdentityService {
	return &identityService{
		store:       store,
		entries:     entries,
		gate:        gate,
		maxInFlight: maxInFlight,
		logger:      logger.With().Str("service", "IdentityService").Logger(),
	}
}

// scanOutcome holds one collection's scan result, slotted by inventory index
// so the merge below runs in fixed inventory order regardless of which scan
// finished first.
type scanOutcome struct {
	records []repository.Record
	err     error
}

func (s *identityService) Reconcile(ctx context.Context, hint *model.IdentityClaims) (*model.ReconcileResult, error) {
	outcomes := make([]scanOutcome, len(s.entries))
	runBounded(len(s.entries), s.maxInFlight, func(i int) {
		recs, err := s.store.Scan(ctx, s.entries[i].Name, nil)
		outcomes[i] = scanOutcome{records: recs, err: err}
	})

	result := &model.ReconcileResult{
		Users:    make(map[string]model.UserAttributes),
		Failures: make(map[string]string),
	}

	// Keyed collections first: their attributes always win. Then field
	// collections in inventory order, first value observed wins. Never
	// completion order, so reconciliation is reproducible.
	for _, keyed := range []bool{true, false} {
		for i, entry := range s.entries {
			if (entry.Relation == inventory.KeyedByUser) != keyed {
				continue
			}
			out := outcomes[i]
			if out.err != nil {
				s.logger.Error().Err(out.err).Str("collection", entry.Name).Msg("Collection scan failed during reconciliation")
				result.Failures[entry.Name] = out.err.Error()
				continue
			}
			for _, rec := range out.records {
				var userID string
				if entry.Relation == inventory.KeyedByUser {
					userID = rec.Key
				} else {
					userID = rec.Field(inventory.UserIDField)
				}
				if userID == "" {
					continue
				}
				attrs := result.Users[userID]
				if name := rec.Field("displayName"); name != "" && attrs.DisplayName == "" {
					attrs.DisplayName = name
				}
				if email := rec.Field("email"); email != "" && attrs.Email == "" {
					attrs.Email = email
				}
				result.Users[userID] = attrs
			}
		}
	}

	// The authenticated identity is a fallback only; it never overrides an
	// attribute some collection supplied.
	if hint != nil && hint.UserID != "" {
		attrs := result.Users[hint.UserID]
		if attrs.Email == "" {
			attrs.Email = hint.Email
		}
		result.Users[hint.UserID] = attrs
	}

	// Heuristic fallback: derive a display name from the email local part
	// when no collection supplied one. No uniqueness guarantee.
	for userID, attrs := range result.Users {
		if attrs.DisplayName == "" && attrs.Email != "" {
			attrs.DisplayName = emailLocalPart(attrs.Email)
			result.Users[userID] = attrs
		}
	}

	if len(result.Failures) == 0 {
		result.Failures = nil
	}
	return result, nil
}

func (s *identityService) PopulateMissingAttributes(ctx context.Context, claims model.IdentityClaims, userIDs []string) (map[string]string, error) {
	if !s.gate.IsAuthorized(claims) {
		return nil, ErrUnauthorized
	}

	reconciled, err := s.Reconcile(ctx, &claims)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		for id := range reconciled.Users {
			userIDs = append(userIDs, id)
		}
	}

	results := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		attrs, ok := reconciled.Users[id]
		if !ok {
			results[id] = "unknown user"
			continue
		}
		updated, err := s.populateOne(ctx, id, attrs)
		switch {
		case err != nil:
			s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to populate identity attributes")
			results[id] = err.Error()
		case updated:
			results[id] = "ok"
		default:
			results[id] = "skipped"
		}
	}
	return results, nil
}

// populateOne fills missing displayName/email on the user's settings record.
// Reports whether anything was written.
func (s *identityService) populateOne(ctx context.Context, userID string, attrs model.UserAttributes) (bool, error) {
	rec, err := s.store.GetByKey(ctx, inventory.Settings, userID)
	if err != nil {
		return false, err
	}

	doc := make(map[string]any)
	if rec != nil {
		if err := json.Unmarshal(rec.Doc, &doc); err != nil {
			return false, fmt.Errorf("decoding settings record for %s: %w", userID, err)
		}
	}

	changed := false
	if str, _ := doc["displayName"].(string); str == "" && attrs.DisplayName != "" {
		doc["displayName"] = attrs.DisplayName
		changed = true
	}
	if str, _ := doc["email"].(string); str == "" && attrs.Email != "" {
		doc["email"] = attrs.Email
		changed = true
	}
	if !changed {
		return false, nil
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("encoding settings record for %s: %w", userID, err)
	}
	if err := s.store.Put(ctx, inventory.Settings, userID, payload); err != nil {
		return false, err
	}
	return true, nil
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
