// Package consolidator groups related memory items, merges each group into a
// synthesized item, and prunes the result toward an efficiency target.
package consolidator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/scorer"
	"github.com/rcliao/reasoning-memory/internal/tokenize"
)

const (
	// MinClusterSize is the number of unclaimed members a topic cluster needs to merge.
	MinClusterSize = 3
	// MinChainSize is the number of unclaimed members a reasoning chain needs to merge.
	MinChainSize = 2
	// SynthesisBonus multiplies the mean source value of a merged item.
	SynthesisBonus = 1.2
	// MaxKeyFindings caps the numbered findings in synthesized content.
	MaxKeyFindings = 5
	// HighValueThreshold is the value above which an item yields an insight.
	HighValueThreshold = 0.8

	insightPreviewRunes = 100
)

// Options configures a Consolidator.
type Options struct {
	// NewID returns a fresh unique id for each merged item.
	NewID func() string
}

// Consolidator is stateless apart from its id source.
type Consolidator struct {
	newID func() string
}

// New creates a Consolidator. NewID is required.
func New(opts Options) *Consolidator {
	return &Consolidator{newID: opts.NewID}
}

// Result is the outcome of one pass.
type Result struct {
	Items         []model.MemoryItem
	Insights      []string
	Groups        int
	MergedSources int
	PrunedCount   int
}

// Efficiency is the mean reasoning value of items, or 1 when there are none.
func Efficiency(items []model.MemoryItem) float64 {
	if len(items) == 0 {
		return 1
	}
	sum := 0.0
	for _, it := range items {
		sum += it.ReasoningValue
	}
	return sum / float64(len(items))
}

// ReductionEfficiency rewards shrinking the set: 0.5 plus the fraction removed, capped at 1.
func ReductionEfficiency(before, after int) float64 {
	if before == 0 {
		return 1
	}
	r := float64(before-after) / float64(before)
	if v := 0.5 + r; v < 1 {
		return v
	}
	return 1
}

// Consolidate runs grouping, merging, insight extraction and pruning over
// items. The input slice is not modified. It never fails.
func (c *Consolidator) Consolidate(items []model.MemoryItem, target float64) Result {
	if len(items) == 0 {
		return Result{}
	}

	sorted := make([]model.MemoryItem, len(items))
	for i, it := range items {
		sorted[i] = it.Clone()
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	clusters := topicClusters(sorted)
	chains := reasoningChains(sorted)
	groups := selectGroups(clusters, chains)

	merged := c.merge(sorted, groups)
	insights := extractInsights(clusters, chains, merged)

	mergedSources := 0
	for _, g := range groups {
		mergedSources += len(g)
	}

	kept, pruned := prune(merged, target)
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })

	return Result{
		Items:         kept,
		Insights:      insights,
		Groups:        len(groups),
		MergedSources: mergedSources,
		PrunedCount:   pruned,
	}
}

// merge replaces each group's sources with one synthesized item.
func (c *Consolidator) merge(items []model.MemoryItem, groups [][]int) []model.MemoryItem {
	claimed := make(map[int]bool)
	out := make([]model.MemoryItem, 0, len(items))
	for _, g := range groups {
		sources := make([]model.MemoryItem, len(g))
		for i, idx := range g {
			sources[i] = items[idx]
			claimed[idx] = true
		}
		out = append(out, c.mergeGroup(sources))
	}
	for i, it := range items {
		if !claimed[i] {
			out = append(out, it)
		}
	}
	return out
}

func (c *Consolidator) mergeGroup(sources []model.MemoryItem) model.MemoryItem {
	sum := 0.0
	accesses := 0
	m := model.MemoryItem{ID: c.newID()}
	for _, s := range sources {
		sum += s.ReasoningValue
		accesses += s.AccessCount
		if s.CreatedAt.After(m.CreatedAt) {
			m.CreatedAt = s.CreatedAt
		}
		if s.LastAccessedAt != nil && (m.LastAccessedAt == nil || s.LastAccessedAt.After(*m.LastAccessedAt)) {
			t := *s.LastAccessedAt
			m.LastAccessedAt = &t
		}
	}
	m.Content = synthesize(sources)
	m.ReasoningValue = scorer.Clamp01(sum / float64(len(sources)) * SynthesisBonus)
	m.AccessCount = accesses
	m.Context = commonContext(sources)
	return m
}

// commonContext keeps the entries every source carries with an equal value.
func commonContext(sources []model.MemoryItem) model.Context {
	out := model.Context{}
	for k, v := range sources[0].Context {
		shared := true
		for _, s := range sources[1:] {
			if sv, ok := s.Context[k]; !ok || !sv.Equal(v) {
				shared = false
				break
			}
		}
		if shared {
			out[k] = v
		}
	}
	return out
}

var keySentenceMarkers = []string{"analysis", "conclusion", "insight", "therefore", "because"}

func synthesize(sources []model.MemoryItem) string {
	var points []string
	for _, s := range sources {
		for _, sentence := range tokenize.Sentences(s.Content) {
			lower := strings.ToLower(sentence)
			for _, marker := range keySentenceMarkers {
				if strings.Contains(lower, marker) {
					points = append(points, sentence)
					break
				}
			}
		}
	}
	if len(points) == 0 {
		for _, s := range sources {
			if sentences := tokenize.Sentences(s.Content); len(sentences) > 0 {
				points = append(points, sentences[0])
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("CONSOLIDATED INSIGHT:\n\nKey findings:\n")
	for i, p := range points {
		if i == MaxKeyFindings {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
	}
	fmt.Fprintf(&sb, "\nBased on %d related memory items.", len(sources))
	return sb.String()
}

func extractInsights(clusters []cluster, chains []chain, items []model.MemoryItem) []string {
	var insights []string
	for _, cl := range clusters {
		if len(cl.members) >= 2 {
			insights = append(insights, fmt.Sprintf(
				"Pattern identified in %s: %d related memories suggest recurring themes in this domain.",
				cl.term, len(cl.members)))
		}
	}
	n := 0
	for _, ch := range chains {
		if len(ch.members) >= 2 {
			n++
			insights = append(insights, fmt.Sprintf(
				"Reasoning chain %d (%s): %d memories show connected logical progression.",
				n, ch.kind, len(ch.members)))
		}
	}
	for _, it := range items {
		if it.ReasoningValue > HighValueThreshold {
			insights = append(insights, fmt.Sprintf("High-value insight from %s: %s...", it.ID, preview(it.Content)))
		}
	}
	return insights
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > insightPreviewRunes {
		r = r[:insightPreviewRunes]
	}
	return string(r)
}

// prune keeps the floor(len(items)*target) highest-value items when the mean
// value is below target. Ties drop older items first, then lower ids.
func prune(items []model.MemoryItem, target float64) ([]model.MemoryItem, int) {
	if Efficiency(items) >= target {
		return items, 0
	}
	sort.Slice(items, func(i, j int) bool { return lessValue(items[i], items[j]) })
	keep := int(float64(len(items)) * target)
	if keep <= 0 {
		return []model.MemoryItem{}, len(items)
	}
	dropped := len(items) - keep
	return items[dropped:], dropped
}

func lessValue(a, b model.MemoryItem) bool {
	if a.ReasoningValue != b.ReasoningValue {
		return a.ReasoningValue < b.ReasoningValue
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
