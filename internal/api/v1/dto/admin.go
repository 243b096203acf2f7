package dto

// SystemStatsResponseDTO is returned by GET /admin/stats.
type SystemStatsResponseDTO struct {
	TotalUsers       int               `json:"total_users"`
	CollectionCounts map[string]int    `json:"collection_counts"`
	ScanFailures     map[string]string `json:"scan_failures,omitempty"`
}

// UsageSummaryDTO is the usage slice of a user stats response.
type UsageSummaryDTO struct {
	TotalTokens      int64                     `json:"total_tokens"`
	PromptTokens     int64                     `json:"prompt_tokens"`
	CompletionTokens int64                     `json:"completion_tokens"`
	RequestCount     int                       `json:"request_count"`
	ByModel          map[string]ModelTokensDTO `json:"by_model,omitempty"`
	EstimatedCost    float64                   `json:"estimated_cost"`
	Approximate      bool                      `json:"approximate,omitempty"`
}

type ModelTokensDTO struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// UserStatsResponseDTO is returned by GET /admin/users/{id}/stats.
// Unavailable lists collections whose counts failed to load, so the UI can
// present partial data instead of a false zero.
type UserStatsResponseDTO struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name,omitempty"`
	Email       string           `json:"email,omitempty"`
	Counts      map[string]int   `json:"counts"`
	Unavailable []string         `json:"unavailable,omitempty"`
	Usage       *UsageSummaryDTO `json:"usage,omitempty"`
}

// CollectionOutcomeDTO tallies one collection's deletes.
type CollectionOutcomeDTO struct {
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// DeletionResultDTO is returned by DELETE /admin/users/{id}. Always
// structured per collection, never a bare success boolean.
type DeletionResultDTO struct {
	UserID           string                          `json:"user_id"`
	PerCollection    map[string]CollectionOutcomeDTO `json:"per_collection"`
	StorageObjects   *CollectionOutcomeDTO           `json:"storage_objects,omitempty"`
	OverallSucceeded bool                            `json:"overall_succeeded"`
}

// PopulateAttributesRequestDTO is the body of POST /admin/users/attributes.
// An empty user_ids list means every reconciled user.
type PopulateAttributesRequestDTO struct {
	UserIDs []string `json:"user_ids" validate:"omitempty,dive,required"`
}

// PopulateAttributesResponseDTO maps each user id to "ok", "skipped", or an
// error message.
type PopulateAttributesResponseDTO struct {
	Results map[string]string `json:"results"`
}
