package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"app/internal/inventory"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DeletionService permanently removes every record referencing a user across
// the collection inventory. The operation tolerates partial failure, reports
// it per collection, and is safe to re-invoke in full: scans converge and
// deletes are idempotent. It performs no automatic retry; retrying is the
// caller's call.
type DeletionService interface {
	DeleteAllUserData(ctx context.Context, claims model.IdentityClaims, userID string) (*model.DeletionResult, error)
}

type deletionService struct {
	store       repository.RecordStore
	entries     []inventory.Entry
	gate        AuthorizationGate
	publisher   pubsub.Publisher
	auditTopic  string
	s3Client    *s3.Client
	s3Bucket    string
	maxInFlight int
	logger      zerolog.Logger
}

// NewDeletionService creates a DeletionService over the shared inventory.
// publisher and s3Client are optional; nil disables audit events and the
// object-storage purge respectively.
func NewDeletionService(store repository.RecordStore, entries []inventory.Entry, gate AuthorizationGate, publisher pubsub.Publisher, auditTopic string, s3Client *s3.Client, s3Bucket string, maxInFlight int, logger zerolog.Logger) DeletionService {
	return &deletionService{
		store:       store,
		entries:     entries,
		gate:        gate,
		publisher:   publisher,
		auditTopic:  auditTopic,
		s3Client:    s3Client,
		s3Bucket:    s3Bucket,
		maxInFlight: maxInFlight,
		logger:      logger.With().Str("service", "DeletionService").Logger(),
	}
}

func (s *deletionService) DeleteAllUserData(ctx context.Context, claims model.IdentityClaims, userID string) (*model.DeletionResult, error) {
	if !s.gate.IsAuthorized(claims) {
		return nil, ErrUnauthorized
	}

	result := &model.DeletionResult{
		UserID:        userID,
		PerCollection: make(map[string]model.CollectionOutcome, len(s.entries)),
	}

	// The plan is always computed fresh: membership may have changed since
	// any prior aggregation, and a stale plan would miss new records.
	plan := s.buildPlan(ctx, userID, result)

	s.deletePlanned(ctx, plan, result)

	if s.s3Client != nil {
		result.StorageObjects = s.purgeStorage(ctx, userID)
	}

	result.OverallSucceeded = true
	for _, outcome := range result.PerCollection {
		if outcome.Failed > 0 {
			result.OverallSucceeded = false
		}
	}
	if result.StorageObjects != nil && result.StorageObjects.Failed > 0 {
		result.OverallSucceeded = false
	}

	s.publishAudit(ctx, claims, result)

	s.logger.Info().
		Str("user_id", userID).
		Int("planned", plan.TotalRecords()).
		Bool("succeeded", result.OverallSucceeded).
		Msg("User data deletion pass finished")
	return result, nil
}

// buildPlan enumerates the record keys currently matching the user in every
// inventory collection. A collection whose lookup fails gets a failed
// outcome immediately and is excluded from the plan; the others proceed.
func (s *deletionService) buildPlan(ctx context.Context, userID string, result *model.DeletionResult) *model.DeletionPlan {
	plan := &model.DeletionPlan{UserID: userID}

	targets := make([]model.DeletionTarget, len(s.entries))
	errs := make([]error, len(s.entries))
	runBounded(len(s.entries), s.maxInFlight, func(i int) {
		entry := s.entries[i]
		target := model.DeletionTarget{Collection: entry.Name}
		switch entry.Relation {
		case inventory.KeyedByUser:
			rec, err := s.store.GetByKey(ctx, entry.Name, userID)
			if err != nil {
				errs[i] = err
				break
			}
			if rec != nil {
				target.RecordKeys = []string{rec.Key}
			}
		default:
			recs, err := s.store.Scan(ctx, entry.Name,
				&repository.Predicate{Field: inventory.UserIDField, Value: userID})
			if err != nil {
				errs[i] = err
				break
			}
			for _, rec := range recs {
				target.RecordKeys = append(target.RecordKeys, rec.Key)
			}
		}
		targets[i] = target
	})

	for i, entry := range s.entries {
		if errs[i] != nil {
			s.logger.Error().Err(errs[i]).Str("collection", entry.Name).Msg("Deletion planning scan failed")
			result.PerCollection[entry.Name] = model.CollectionOutcome{
				Failed: 1,
				Errors: []string{"planning scan failed: " + errs[i].Error()},
			}
			continue
		}
		plan.Targets = append(plan.Targets, targets[i])
	}
	return plan
}

// deletePlanned fires every record delete concurrently under the global
// in-flight cap. A failure in one collection never cancels deletes in
// flight anywhere else; outcomes are tallied per collection.
func (s *deletionService) deletePlanned(ctx context.Context, plan *model.DeletionPlan, result *model.DeletionResult) {
	type job struct {
		collection string
		key        string
	}
	var jobs []job
	for _, target := range plan.Targets {
		// Collections with nothing to delete still get an explicit
		// zero outcome so callers can see they were covered.
		result.PerCollection[target.Collection] = model.CollectionOutcome{}
		for _, key := range target.RecordKeys {
			jobs = append(jobs, job{collection: target.Collection, key: key})
		}
	}

	var mu sync.Mutex
	runBounded(len(jobs), s.maxInFlight, func(i int) {
		j := jobs[i]
		err := s.store.DeleteByKey(ctx, j.collection, j.key)

		mu.Lock()
		defer mu.Unlock()
		outcome := result.PerCollection[j.collection]
		outcome.Attempted++
		if err != nil {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, j.key+": "+err.Error())
		} else {
			outcome.Succeeded++
		}
		result.PerCollection[j.collection] = outcome
	})
}

// purgeStorage removes every object under the user's prefix in the uploads
// bucket. Listed objects that fail to delete are tallied like failed record
// deletes.
func (s *deletionService) purgeStorage(ctx context.Context, userID string) *model.CollectionOutcome {
	outcome := &model.CollectionOutcome{}
	prefix := userID + "/"

	var continuation *string
	for {
		page, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.s3Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Listing user storage objects failed")
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, "list objects: "+err.Error())
			return outcome
		}
		for _, obj := range page.Contents {
			outcome.Attempted++
			_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.s3Bucket),
				Key:    obj.Key,
			})
			if err != nil {
				outcome.Failed++
				outcome.Errors = append(outcome.Errors, aws.ToString(obj.Key)+": "+err.Error())
				continue
			}
			outcome.Succeeded++
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			return outcome
		}
		continuation = page.NextContinuationToken
	}
}

// publishAudit emits the deletion audit event to the notification pipeline.
// Publish failures are logged and never alter the deletion result.
func (s *deletionService) publishAudit(ctx context.Context, claims model.IdentityClaims, result *model.DeletionResult) {
	if s.publisher == nil || s.auditTopic == "" {
		return
	}
	event := model.DeletionAuditEvent{
		EventID:       uuid.NewString(),
		UserID:        result.UserID,
		RequestedBy:   claims.Email,
		PerCollection: result.PerCollection,
		Succeeded:     result.OverallSucceeded,
		OccurredAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode deletion audit event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.auditTopic, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", s.auditTopic).Msg("Failed to publish deletion audit event")
	}
}
