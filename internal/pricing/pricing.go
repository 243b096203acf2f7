// Package pricing maps usage records to estimated monetary cost from a
// static per-model price table. Estimates always reflect the current table,
// not the pricing in effect when the usage happened.
package pricing

import (
	"fmt"
	"os"

	"app/internal/model"

	"gopkg.in/yaml.v3"
)

// ModelPrice is the USD price per thousand tokens for one model.
type ModelPrice struct {
	PromptPerK     float64 `yaml:"prompt_per_1k"`
	CompletionPerK float64 `yaml:"completion_per_1k"`
}

// Table is the full price table plus the model used when a usage record
// carries no (or an unknown) model attribution.
type Table struct {
	DefaultModel string                `yaml:"default_model"`
	Models       map[string]ModelPrice `yaml:"models"`
}

// DefaultTable is the compiled-in table used when no price file is
// configured.
func DefaultTable(defaultModel string) Table {
	t := Table{
		DefaultModel: defaultModel,
		Models: map[string]ModelPrice{
			"gpt-4o":           {PromptPerK: 0.0025, CompletionPerK: 0.01},
			"gpt-4o-mini":      {PromptPerK: 0.00015, CompletionPerK: 0.0006},
			"o3-mini":          {PromptPerK: 0.0011, CompletionPerK: 0.0044},
			"gemini-2.0-flash": {PromptPerK: 0.0001, CompletionPerK: 0.0004},
		},
	}
	if _, ok := t.Models[defaultModel]; !ok {
		t.Models[defaultModel] = ModelPrice{PromptPerK: 0.0005, CompletionPerK: 0.0015}
	}
	return t
}

// LoadTable reads a price table from a YAML file.
func LoadTable(path string) (Table, error) {
	var t Table
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading price table %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parsing price table %s: %w", path, err)
	}
	if t.DefaultModel == "" {
		return t, fmt.Errorf("price table %s has no default_model", path)
	}
	if _, ok := t.Models[t.DefaultModel]; !ok {
		return t, fmt.Errorf("price table %s is missing its default model %q", path, t.DefaultModel)
	}
	return t, nil
}

// Known reports whether the model has its own price table entry.
func (t Table) Known(modelID string) bool {
	_, ok := t.Models[modelID]
	return ok
}

// Estimate returns the estimated USD cost for the given token counts. An
// unknown or empty model falls back to the default model's prices. Pure:
// identical inputs always produce identical outputs.
func (t Table) Estimate(modelID string, promptTokens, completionTokens int64) float64 {
	price, ok := t.Models[modelID]
	if !ok {
		price = t.Models[t.DefaultModel]
	}
	return price.PromptPerK*float64(promptTokens)/1000 +
		price.CompletionPerK*float64(completionTokens)/1000
}

// Summarize folds a user's usage records into a UsageSummary, pricing each
// model's slice through the table. Records with no model attribution are
// included in the aggregate counts, priced at the default model, and mark
// the estimate approximate; so does any model absent from the table.
func Summarize(records []model.UsageRecord, table Table) *model.UsageSummary {
	summary := &model.UsageSummary{ByModel: make(map[string]model.ModelTokens)}
	var unattributedPrompt, unattributedCompletion int64
	for _, rec := range records {
		summary.RequestCount++
		summary.PromptTokens += rec.PromptTokens
		summary.CompletionTokens += rec.CompletionTokens
		if rec.ModelID == "" {
			unattributedPrompt += rec.PromptTokens
			unattributedCompletion += rec.CompletionTokens
			continue
		}
		mt := summary.ByModel[rec.ModelID]
		mt.PromptTokens += rec.PromptTokens
		mt.CompletionTokens += rec.CompletionTokens
		summary.ByModel[rec.ModelID] = mt
	}
	summary.TotalTokens = summary.PromptTokens + summary.CompletionTokens

	for modelID, mt := range summary.ByModel {
		summary.EstimatedCost += table.Estimate(modelID, mt.PromptTokens, mt.CompletionTokens)
		if !table.Known(modelID) {
			summary.Approximate = true
		}
	}
	if unattributedPrompt > 0 || unattributedCompletion > 0 {
		// Never silently assume a model: price the unattributed slice at
		// the default model and flag the whole estimate approximate.
		summary.EstimatedCost += table.Estimate(table.DefaultModel, unattributedPrompt, unattributedCompletion)
		summary.Approximate = true
	}
	if len(summary.ByModel) == 0 {
		summary.ByModel = nil
	}
	return summary
}
