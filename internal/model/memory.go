// Package model defines the core memory data types.
package model

import "time"

// MemoryItem is a single stored record.
type MemoryItem struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Context        Context    `json:"context,omitempty"`
	ReasoningValue float64    `json:"reasoning_value"`
	CreatedAt      time.Time  `json:"created_at"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// Clone returns a copy that shares no mutable state with m.
func (m MemoryItem) Clone() MemoryItem {
	c := m
	c.Context = m.Context.Clone()
	if m.LastAccessedAt != nil {
		t := *m.LastAccessedAt
		c.LastAccessedAt = &t
	}
	return c
}

// ScoredItem pairs an item snapshot with its relevance to a query.
type ScoredItem struct {
	MemoryItem
	Relevance float64 `json:"relevance"`
}

// RetrievalResult is the outcome of a ranked retrieval.
type RetrievalResult struct {
	Items            []ScoredItem `json:"items"`
	AverageRelevance float64      `json:"average_relevance"`
	Efficiency       float64      `json:"retrieval_efficiency"`
}

// ConsolidationReport summarizes one consolidation pass.
type ConsolidationReport struct {
	PassID              string   `json:"pass_id"`
	Insights            []string `json:"insights"`
	MergedCount         int      `json:"merged_count"`
	MergedSources       int      `json:"merged_sources"`
	PrunedCount         int      `json:"pruned_count"`
	ResultingEfficiency float64  `json:"resulting_efficiency"`
	ReductionEfficiency float64  `json:"reduction_efficiency"`
	Before              int      `json:"before"`
	After               int      `json:"after"`
}

// State is a read-only snapshot of a store's counters.
type State struct {
	NS                 string   `json:"ns"`
	Count              int      `json:"count"`
	Capacity           int      `json:"capacity"`
	BudgetUtilization  float64  `json:"budget_utilization"`
	MeanReasoningValue float64  `json:"mean_reasoning_value"`
	ConsolidationCount int      `json:"consolidation_count"`
	InteractionCount   int      `json:"interaction_count"`
	InsightCount       int      `json:"insight_count"`
	TopItems           []string `json:"top_items,omitempty"`
}
