package model

import "time"

// DeletionTarget lists the record keys currently matching a user in one
// collection.
type DeletionTarget struct {
	Collection string   `json:"collection"`
	RecordKeys []string `json:"record_keys"`
}

// DeletionPlan is computed immediately before deletion by re-scanning the
// inventory. It is never reused from a prior aggregation, since collection
// membership may have changed since the last read.
type DeletionPlan struct {
	UserID  string           `json:"user_id"`
	Targets []DeletionTarget `json:"targets"`
}

// TotalRecords returns the number of records the plan targets.
func (p *DeletionPlan) TotalRecords() int {
	n := 0
	for _, t := range p.Targets {
		n += len(t.RecordKeys)
	}
	return n
}

// CollectionOutcome is the per-collection (or per-storage-prefix) tally of a
// deletion pass.
type CollectionOutcome struct {
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// DeletionResult reports what a deletion pass did, per collection. Partial
// failure is representable and never collapses to a bare boolean.
type DeletionResult struct {
	UserID        string                       `json:"user_id"`
	PerCollection map[string]CollectionOutcome `json:"per_collection"`
	// StorageObjects reports the object-storage purge when configured.
	StorageObjects *CollectionOutcome `json:"storage_objects,omitempty"`
	// OverallSucceeded is true only if every targeted record (and storage
	// object) was deleted.
	OverallSucceeded bool `json:"overall_succeeded"`
}

// DeletionAuditEvent is published to the notification pipeline after every
// deletion pass, successful or not.
type DeletionAuditEvent struct {
	EventID       string                       `json:"event_id"`
	UserID        string                       `json:"user_id"`
	RequestedBy   string                       `json:"requested_by"`
	PerCollection map[string]CollectionOutcome `json:"per_collection"`
	Succeeded     bool                         `json:"succeeded"`
	OccurredAt    time.Time                    `json:"occurred_at"`
}
