package model

// UsageRecord is a single model invocation logged for a user. ModelID may be
// empty or reference a model absent from the price table.
type UsageRecord struct {
	UserID           string `json:"userId"`
	ModelID          string `json:"modelId,omitempty"`
	PromptTokens     int64  `json:"promptTokens"`
	CompletionTokens int64  `json:"completionTokens"`
}

// ModelTokens is the per-model slice of a usage summary.
type ModelTokens struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// UsageSummary aggregates a user's usage records. EstimatedCost is derived
// from the current price table on every read, never stored. Approximate is
// set when pricing had to fall back to the default model because records
// carried no model attribution.
type UsageSummary struct {
	TotalTokens      int64                  `json:"total_tokens"`
	PromptTokens     int64                  `json:"prompt_tokens"`
	CompletionTokens int64                  `json:"completion_tokens"`
	RequestCount     int                    `json:"request_count"`
	ByModel          map[string]ModelTokens `json:"by_model,omitempty"`
	EstimatedCost    float64                `json:"estimated_cost"`
	Approximate      bool                   `json:"approximate,omitempty"`
}
