// Package store owns a bounded set of memory items: it scores and admits new
// items, evicts the lowest-value ones over capacity, serves ranked retrieval
// and runs consolidation passes. SQLiteStore persists stores by namespace.
package store

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/rcliao/reasoning-memory/internal/consolidator"
	"github.com/rcliao/reasoning-memory/internal/efficiency"
	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/retriever"
	"github.com/rcliao/reasoning-memory/internal/scorer"
)

// Defaults applied by New for zero-valued options.
const (
	DefaultCapacity         = 1000
	DefaultEfficiencyTarget = 0.8
	DefaultMaxResultsCap    = 50
	DefaultMinRelevance     = retriever.DefaultMinRelevance
	DefaultNamespace        = "default"

	topItemCount = 5
)

// Recorder receives store events, typically for metrics export.
type Recorder interface {
	RecordPut(ns string, evicted int)
	RecordRetrieval(ns string, efficiency float64)
	RecordConsolidation(ns string, groups, pruned int)
	RecordState(ns string, count int, utilization, meanValue float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordPut(string, int)                     {}
func (nopRecorder) RecordRetrieval(string, float64)           {}
func (nopRecorder) RecordConsolidation(string, int, int)      {}
func (nopRecorder) RecordState(string, int, float64, float64) {}

// Options configures a Store. Zero values select the package defaults.
type Options struct {
	NS       string
	Capacity int
	// EfficiencyTarget is the default target reported by EfficiencyTarget.
	// Values outside (0, 1], including 0, select DefaultEfficiencyTarget;
	// a zero target can still be passed to Consolidate and Recommend directly.
	EfficiencyTarget float64
	MaxResultsCap    int
	HistorySize      int
	Parallelism      int
	Scorer           scorer.Scorer
	Logger           *slog.Logger
	Recorder         Recorder
	Clock            func() time.Time
}

// Store is a bounded, value-scored memory set. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	ns            string
	capacity      int
	target        float64
	maxResultsCap int

	items              map[string]model.MemoryItem
	consolidationCount int
	interactionCount   int
	evictionCount      int
	mergedGroupCount   int
	prunedCount        int
	insights           []string

	scorer       scorer.Scorer
	retriever    *retriever.Retriever
	consolidator *consolidator.Consolidator
	tracker      *efficiency.Tracker
	logger       *slog.Logger
	rec          Recorder
	clock        func() time.Time
	entropy      *ulid.MonotonicEntropy
}

// New creates an empty Store.
func New(opts Options) *Store {
	if opts.NS == "" {
		opts.NS = DefaultNamespace
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.EfficiencyTarget <= 0 || opts.EfficiencyTarget > 1 {
		opts.EfficiencyTarget = DefaultEfficiencyTarget
	}
	if opts.MaxResultsCap <= 0 {
		opts.MaxResultsCap = DefaultMaxResultsCap
	}
	if opts.Scorer == nil {
		opts.Scorer = scorer.Lexical{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Store{
		ns:            opts.NS,
		capacity:      opts.Capacity,
		target:        opts.EfficiencyTarget,
		maxResultsCap: opts.MaxResultsCap,
		items:         make(map[string]model.MemoryItem),
		scorer:        opts.Scorer,
		retriever:     retriever.New(retriever.Options{Clock: opts.Clock, Parallelism: opts.Parallelism}),
		tracker:       efficiency.NewTracker(opts.HistorySize, opts.Capacity, opts.Clock),
		logger:        opts.Logger.With("component", "store", "ns", opts.NS),
		rec:           opts.Recorder,
		clock:         opts.Clock,
		entropy:       ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	s.consolidator = consolidator.New(consolidator.Options{NewID: s.newID})
	return s
}

// NS returns the store's namespace.
func (s *Store) NS() string { return s.ns }

// Capacity returns the maximum number of live items.
func (s *Store) Capacity() int { return s.capacity }

// EfficiencyTarget returns the configured default consolidation target.
func (s *Store) EfficiencyTarget() float64 { return s.target }

// newID must be called with the write lock held.
func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.clock()), s.entropy).String()
}

// Put scores content and admits it, evicting the lowest-value items while
// over capacity. The returned id is valid even if the new item itself was
// evicted.
func (s *Store) Put(ctx context.Context, content string, c model.Context, priority float64) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	if math.IsNaN(priority) || priority < 0 || priority > 1 {
		return "", errors.Wrapf(ErrInvalidPriority, "got %v", priority)
	}
	if err := c.Validate(); err != nil {
		return "", invalidInput(err)
	}

	value := scorer.Clamp01(s.scorer.Score(ctx, content, priority))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	item := model.MemoryItem{
		ID:             s.newID(),
		Content:        content,
		Context:        c.Clone(),
		ReasoningValue: value,
		CreatedAt:      now,
	}
	s.items[item.ID] = item
	s.interactionCount++

	evicted := s.evictLocked()
	s.evictionCount += evicted
	s.logger.Debug("put", "id", item.ID, "reasoning_value", value, "evicted", evicted)
	s.rec.RecordPut(s.ns, evicted)
	s.recordStateLocked()
	return item.ID, nil
}

// evictLocked removes items over capacity and returns how many it removed.
func (s *Store) evictLocked() int {
	ids := selectEvictions(s.items, len(s.items)-s.capacity)
	for _, id := range ids {
		delete(s.items, id)
	}
	if len(ids) > 0 {
		s.logger.Debug("evicted", "count", len(ids), "ids", ids)
	}
	return len(ids)
}

// Get ranks the live set against query and context and returns at most
// maxResults items. Every returned item has its access count incremented;
// the snapshots reflect the increment.
func (s *Store) Get(ctx context.Context, query string, c model.Context, maxResults int, minRelevance float64) (*model.RetrievalResult, error) {
	if maxResults <= 0 || maxResults > s.maxResultsCap {
		return nil, errors.Wrapf(ErrInvalidMaxResults, "got %d, want 1..%d", maxResults, s.maxResultsCap)
	}
	if math.IsNaN(minRelevance) || minRelevance < 0 || minRelevance > 1 {
		return nil, errors.Wrapf(ErrInvalidRelevance, "got %v", minRelevance)
	}
	if err := c.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.sortedLocked()
	scored, err := s.retriever.Retrieve(ctx, query, c, live, maxResults, minRelevance)
	if err != nil {
		return nil, errors.Wrap(err, "retrieve")
	}

	now := s.clock().UTC()
	res := &model.RetrievalResult{Items: make([]model.ScoredItem, 0, len(scored))}
	sum := 0.0
	for _, si := range scored {
		it := s.items[si.ID]
		it.AccessCount++
		if it.LastAccessedAt == nil || now.After(*it.LastAccessedAt) {
			t := now
			it.LastAccessedAt = &t
		}
		s.items[si.ID] = it
		res.Items = append(res.Items, model.ScoredItem{MemoryItem: it.Clone(), Relevance: si.Relevance})
		sum += si.Relevance
	}
	if len(scored) > 0 {
		res.AverageRelevance = sum / float64(len(scored))
	}
	res.Efficiency = s.tracker.RecordRetrieval(len(scored), len(live))
	s.rec.RecordRetrieval(s.ns, res.Efficiency)
	return res, nil
}

// Consolidate merges related items and prunes toward target, replacing the
// live set in one step. An empty store yields a no-op report.
func (s *Store) Consolidate(ctx context.Context, target float64) (*model.ConsolidationReport, error) {
	if math.IsNaN(target) || target < 0 || target > 1 {
		return nil, errors.Wrapf(ErrInvalidTarget, "got %v", target)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &model.ConsolidationReport{
		PassID:   uuid.NewString(),
		Insights: []string{},
		Before:   len(s.items),
	}
	s.consolidationCount++

	if len(s.items) == 0 {
		report.ResultingEfficiency = 1
		report.ReductionEfficiency = 1
		s.logger.Info("consolidation skipped, store empty", "pass_id", report.PassID)
		s.rec.RecordConsolidation(s.ns, 0, 0)
		return report, nil
	}

	res := s.consolidator.Consolidate(s.sortedLocked(), target)

	next := make(map[string]model.MemoryItem, len(res.Items))
	for _, it := range res.Items {
		next[it.ID] = it
	}
	s.items = next
	s.evictionCount += s.evictLocked()
	s.mergedGroupCount += res.Groups
	s.prunedCount += res.PrunedCount
	s.insights = append(s.insights, res.Insights...)

	report.Insights = append(report.Insights, res.Insights...)
	report.MergedCount = res.Groups
	report.MergedSources = res.MergedSources
	report.PrunedCount = res.PrunedCount
	report.After = len(s.items)
	report.ResultingEfficiency = consolidator.Efficiency(res.Items)
	report.ReductionEfficiency = consolidator.ReductionEfficiency(report.Before, report.After)

	s.logger.Info("consolidation pass",
		"pass_id", report.PassID,
		"before", report.Before,
		"after", report.After,
		"merged_groups", report.MergedCount,
		"pruned", report.PrunedCount,
		"insights", len(res.Insights),
	)
	s.rec.RecordConsolidation(s.ns, report.MergedCount, report.PrunedCount)
	s.recordStateLocked()
	return report, nil
}

// Reset clears items, counters, insights and efficiency history.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]model.MemoryItem)
	s.consolidationCount = 0
	s.interactionCount = 0
	s.evictionCount = 0
	s.mergedGroupCount = 0
	s.prunedCount = 0
	s.insights = nil
	s.tracker.Reset()
	s.recordStateLocked()
}

// State returns a read-only summary of the store.
func (s *Store) State() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := model.State{
		NS:                 s.ns,
		Count:              len(s.items),
		Capacity:           s.capacity,
		BudgetUtilization:  float64(len(s.items)) / float64(s.capacity),
		MeanReasoningValue: s.meanValueLocked(),
		ConsolidationCount: s.consolidationCount,
		InteractionCount:   s.interactionCount,
		InsightCount:       len(s.insights),
	}

	top := s.sortedLocked()
	sort.SliceStable(top, func(i, j int) bool { return top[i].ReasoningValue > top[j].ReasoningValue })
	for i := 0; i < len(top) && i < topItemCount; i++ {
		st.TopItems = append(st.TopItems, top[i].ID)
	}
	return st
}

// Items returns copies of the live items in id order.
func (s *Store) Items() []model.MemoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.sortedLocked()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

// Insights returns every insight accumulated by consolidation passes.
func (s *Store) Insights() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.insights...)
}

// Recommend analyzes the live set against target.
func (s *Store) Recommend(target float64) (efficiency.Recommendations, error) {
	if math.IsNaN(target) || target < 0 || target > 1 {
		return efficiency.Recommendations{}, errors.Wrapf(ErrInvalidTarget, "got %v", target)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Recommend(s.sortedLocked(), target), nil
}

// EfficiencyMetrics summarizes recent retrieval efficiency.
func (s *Store) EfficiencyMetrics() efficiency.Metrics {
	return s.tracker.Metrics()
}

// Totals are cumulative event counts since the last reset.
type Totals struct {
	Puts           int `json:"puts"`
	Evictions      int `json:"evictions"`
	Retrievals     int `json:"retrievals"`
	Consolidations int `json:"consolidations"`
	MergedGroups   int `json:"merged_groups"`
	Pruned         int `json:"pruned"`
}

// Totals returns the cumulative counters. They survive Snapshot and Restore.
func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Totals{
		Puts:           s.interactionCount,
		Evictions:      s.evictionCount,
		Retrievals:     s.tracker.Total(),
		Consolidations: s.consolidationCount,
		MergedGroups:   s.mergedGroupCount,
		Pruned:         s.prunedCount,
	}
}

// InteractionCount returns the number of successful puts since the last reset.
func (s *Store) InteractionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interactionCount
}

// sortedLocked returns shallow copies of the live items in id order.
func (s *Store) sortedLocked() []model.MemoryItem {
	out := make([]model.MemoryItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) meanValueLocked() float64 {
	if len(s.items) == 0 {
		return 0
	}
	sum := 0.0
	for _, it := range s.items {
		sum += it.ReasoningValue
	}
	return sum / float64(len(s.items))
}

func (s *Store) recordStateLocked() {
	s.rec.RecordState(s.ns, len(s.items), float64(len(s.items))/float64(s.capacity), s.meanValueLocked())
}
