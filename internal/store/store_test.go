package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/retriever"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
}

// Now advances by one millisecond per call so creation times are distinct.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

// stubScorer returns fixed values per content, or 0.5 for unknown content.
type stubScorer map[string]float64

func (s stubScorer) Score(_ context.Context, content string, _ float64) float64 {
	if v, ok := s[content]; ok {
		return v
	}
	return 0.5
}

func newMemStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = newFakeClock().Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(opts)
}

func contents(items []model.MemoryItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Content
	}
	sort.Strings(out)
	return out
}

func TestPutAssignsScoredItem(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{})

	c := model.Context{"domain": model.String("ml")}
	id, err := s.Put(ctx, "Gradients flow because of the chain rule", c, 1)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Greater(t, items[0].ReasoningValue, 0.0)
	assert.LessOrEqual(t, items[0].ReasoningValue, 1.0)
	assert.Equal(t, 0, items[0].AccessCount)
	assert.Nil(t, items[0].LastAccessedAt)
	assert.True(t, items[0].Context["domain"].Equal(model.String("ml")))
	assert.Equal(t, 1, s.InteractionCount())
}

func TestPutValidation(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{})

	tests := []struct {
		name     string
		content  string
		c        model.Context
		priority float64
		want     error
	}{
		{"empty content", "", nil, 0.5, ErrEmptyContent},
		{"whitespace content", "  \n\t", nil, 0.5, ErrEmptyContent},
		{"negative priority", "x", nil, -0.1, ErrInvalidPriority},
		{"priority above one", "x", nil, 1.1, ErrInvalidPriority},
		{"nan priority", "x", nil, math.NaN(), ErrInvalidPriority},
		{"invalid context", "x", model.Context{"k": model.Value{}}, 0.5, ErrInvalidContext},
		{"nan context number", "x", model.Context{"k": model.Number(math.NaN())}, 0.5, ErrInvalidContext},
		{"infinite nested number", "x", model.Context{"k": model.List(model.Number(math.Inf(1)))}, 0.5, ErrInvalidContext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Put(ctx, tt.content, tt.c, tt.priority)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.InteractionCount())
}

func TestCapacityInvariant(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{Capacity: 5})
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		_, err := s.Put(ctx, fmt.Sprintf("record %d value %d", i, rng.Intn(1000)), nil, rng.Float64())
		require.NoError(t, err)
		assert.LessOrEqual(t, len(s.Items()), 5)
	}
	for _, it := range s.Items() {
		assert.GreaterOrEqual(t, it.ReasoningValue, 0.0)
		assert.LessOrEqual(t, it.ReasoningValue, 1.0)
	}
}

func TestBudgetScenario(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{
		Capacity: 2,
		Scorer:   stubScorer{"A": 0.9, "B": 0.5, "C": 0.7},
	})

	for _, c := range []string{"A", "B", "C"} {
		_, err := s.Put(ctx, c, nil, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"A", "C"}, contents(s.Items()))
}

func TestEvictionKeepsHighestScored(t *testing.T) {
	ctx := context.Background()
	sc := stubScorer{}
	for i := 0; i < 8; i++ {
		sc[fmt.Sprintf("item-%d", i)] = float64((i*5)%8) / 10
	}
	s := newMemStore(t, Options{Capacity: 3, Scorer: sc})

	for i := 0; i < 8; i++ {
		_, err := s.Put(ctx, fmt.Sprintf("item-%d", i), nil, 1)
		require.NoError(t, err)
	}

	type kv struct {
		k string
		v float64
	}
	var all []kv
	for k, v := range sc {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].v > all[j].v })
	want := []string{all[0].k, all[1].k, all[2].k}
	sort.Strings(want)

	assert.Equal(t, want, contents(s.Items()))
}

func TestEvictionTieEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{
		Capacity: 2,
		Scorer:   stubScorer{"first": 0.5, "second": 0.5, "third": 0.5},
	})

	for _, c := range []string{"first", "second", "third"} {
		_, err := s.Put(ctx, c, nil, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"second", "third"}, contents(s.Items()))
}

func TestPutReturnsIDOfEvictedItem(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{
		Capacity: 1,
		Scorer:   stubScorer{"keep": 0.9, "drop": 0.1},
	})

	_, err := s.Put(ctx, "keep", nil, 1)
	require.NoError(t, err)
	id, err := s.Put(ctx, "drop", nil, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	items := s.Items()
	require.Len(t, items, 1)
	assert.NotEqual(t, id, items[0].ID)
	assert.Equal(t, 2, s.InteractionCount())
}

func TestRoundTripScenario(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{})

	id, err := s.Put(ctx, "Neural networks learn from data because gradients guide weight updates.", nil, 0.9)
	require.NoError(t, err)

	res, err := s.Get(ctx, "How do neural networks learn?", nil, 5, DefaultMinRelevance)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, id, res.Items[0].ID)
	assert.Greater(t, res.Items[0].Relevance, 0.1)
	assert.Equal(t, 1, res.Items[0].AccessCount)
	require.NotNil(t, res.Items[0].LastAccessedAt)

	items := s.Items()
	assert.Equal(t, 1, items[0].AccessCount)
	assert.Equal(t, 1, s.EfficiencyMetrics().TotalMeasurements)
}

func TestGetValidation(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{MaxResultsCap: 10})

	tests := []struct {
		name       string
		maxResults int
		minRel     float64
		want       error
	}{
		{"zero results", 0, 0.1, ErrInvalidMaxResults},
		{"negative results", -1, 0.1, ErrInvalidMaxResults},
		{"above cap", 11, 0.1, ErrInvalidMaxResults},
		{"relevance above one", 5, 1.5, ErrInvalidRelevance},
		{"negative relevance", 5, -0.1, ErrInvalidRelevance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Get(ctx, "q", nil, tt.maxResults, tt.minRel)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestGetEmptyStore(t *testing.T) {
	s := newMemStore(t, Options{})
	res, err := s.Get(context.Background(), "anything", nil, 5, DefaultMinRelevance)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1.0, res.Efficiency)
	assert.Equal(t, 1, s.EfficiencyMetrics().TotalMeasurements)
}

func TestGetAccessCountsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{})
	_, err := s.Put(ctx, "solar panels convert sunlight", nil, 1)
	require.NoError(t, err)

	var last time.Time
	for i := 1; i <= 3; i++ {
		res, err := s.Get(ctx, "solar panels", nil, 5, 0)
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, i, res.Items[0].AccessCount)
		assert.True(t, res.Items[0].LastAccessedAt.After(last))
		last = *res.Items[0].LastAccessedAt
	}
}

func TestGetDeterministic(t *testing.T) {
	ctx := context.Background()
	src := newMemStore(t, Options{})
	for i := 0; i < 30; i++ {
		_, err := src.Put(ctx, fmt.Sprintf("observation %d about climate pattern %d", i, i%4), nil, 0.8)
		require.NoError(t, err)
	}
	snap := src.Snapshot()

	clock := func() time.Time { return time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) }
	a := newMemStore(t, Options{Clock: clock})
	b := newMemStore(t, Options{Clock: clock})
	require.NoError(t, a.Restore(snap))
	require.NoError(t, b.Restore(snap))

	ra, err := a.Get(ctx, "climate pattern 2", nil, 10, 0.1)
	require.NoError(t, err)
	rb, err := b.Get(ctx, "climate pattern 2", nil, 10, 0.1)
	require.NoError(t, err)

	require.Equal(t, len(ra.Items), len(rb.Items))
	for i := range ra.Items {
		assert.Equal(t, ra.Items[i].ID, rb.Items[i].ID)
		assert.Equal(t, ra.Items[i].Relevance, rb.Items[i].Relevance)
	}
}

func TestGetDiversity(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{})
	for i := 0; i < 4; i++ {
		_, err := s.Put(ctx, "entropy of a closed system never decreases", nil, 1)
		require.NoError(t, err)
	}
	_, err := s.Put(ctx, "closed loops in control systems", nil, 1)
	require.NoError(t, err)

	res, err := s.Get(ctx, "closed system entropy", nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	for i := range res.Items {
		for j := i + 1; j < len(res.Items); j++ {
			sim := retriever.Similarity(res.Items[j].Content, res.Items[i].Content)
			assert.LessOrEqual(t, sim, retriever.DiversityThreshold)
		}
	}
}

func TestConsolidateEmpty(t *testing.T) {
	s := newMemStore(t, Options{})
	report, err := s.Consolidate(context.Background(), 0.8)
	require.NoError(t, err)
	assert.Zero(t, report.MergedCount)
	assert.Zero(t, report.PrunedCount)
	assert.Equal(t, 1.0, report.ResultingEfficiency)
	assert.NotEmpty(t, report.PassID)
	assert.Equal(t, 1, s.State().ConsolidationCount)
}

func TestConsolidateInvalidTarget(t *testing.T) {
	s := newMemStore(t, Options{})
	for _, target := range []float64{-0.1, 1.1, math.NaN()} {
		_, err := s.Consolidate(context.Background(), target)
		assert.True(t, errors.Is(err, ErrInvalidTarget))
		assert.True(t, errors.Is(err, ErrInvalidInput))
	}
}

func TestConsolidateNoOpOnMinimalSet(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{})
	_, err := s.Put(ctx, "Rain falls because clouds condense", nil, 1)
	require.NoError(t, err)
	_, err = s.Put(ctx, "Market analysis shows growth", nil, 1)
	require.NoError(t, err)
	before := s.Items()

	report, err := s.Consolidate(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, report.MergedCount)
	assert.Equal(t, before, s.Items())
}

func TestConsolidateMergesAndBoundsValue(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{Capacity: 10})
	docs := []string{
		"Photosynthesis converts light into chemical energy because chlorophyll absorbs photons.",
		"Photosynthesis analysis shows oxygen release.",
		"Photosynthesis happens in leaves.",
	}
	var maxSource float64
	for _, d := range docs {
		_, err := s.Put(ctx, d, nil, 1)
		require.NoError(t, err)
	}
	for _, it := range s.Items() {
		maxSource = math.Max(maxSource, it.ReasoningValue)
	}

	report, err := s.Consolidate(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MergedCount)
	assert.Equal(t, 3, report.MergedSources)
	assert.Equal(t, 3, report.Before)
	assert.Equal(t, 1, report.After)
	assert.NotEmpty(t, report.Insights)

	items := s.Items()
	require.Len(t, items, 1)
	assert.LessOrEqual(t, items[0].ReasoningValue, math.Min(1, 1.2*maxSource)+1e-12)
	assert.Contains(t, items[0].Content, "CONSOLIDATED INSIGHT:")

	st := s.State()
	assert.Equal(t, 1, st.ConsolidationCount)
	assert.Equal(t, len(report.Insights), st.InsightCount)
}

func TestRepeatedConsolidationStaysBounded(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{Capacity: 20})
	for i := 0; i < 15; i++ {
		_, err := s.Put(ctx, fmt.Sprintf("finding %d therefore shared conclusion %d", i, i%3), nil, 1)
		require.NoError(t, err)
	}
	for pass := 0; pass < 5; pass++ {
		_, err := s.Consolidate(ctx, 0.5)
		require.NoError(t, err)
		for _, it := range s.Items() {
			assert.LessOrEqual(t, it.ReasoningValue, 1.0)
			assert.GreaterOrEqual(t, it.ReasoningValue, 0.0)
		}
		assert.LessOrEqual(t, len(s.Items()), 20)
	}
}

func TestResetIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{})
	_, err := s.Put(ctx, "something worth keeping", nil, 1)
	require.NoError(t, err)
	_, err = s.Get(ctx, "something", nil, 5, 0)
	require.NoError(t, err)
	_, err = s.Consolidate(ctx, 0.1)
	require.NoError(t, err)

	s.Reset()
	s.Reset()

	st := s.State()
	assert.Zero(t, st.Count)
	assert.Zero(t, st.ConsolidationCount)
	assert.Zero(t, st.InteractionCount)
	assert.Zero(t, st.InsightCount)
	assert.True(t, s.EfficiencyMetrics().NoData)
}

func TestState(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{
		Capacity: 10,
		Scorer:   stubScorer{"a": 0.2, "b": 0.4, "c": 0.6},
	})
	for _, c := range []string{"a", "b", "c"} {
		_, err := s.Put(ctx, c, nil, 1)
		require.NoError(t, err)
	}

	st := s.State()
	assert.Equal(t, DefaultNamespace, st.NS)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 10, st.Capacity)
	assert.InDelta(t, 0.3, st.BudgetUtilization, 1e-9)
	assert.InDelta(t, 0.4, st.MeanReasoningValue, 1e-9)
	assert.Equal(t, 3, st.InteractionCount)
	require.Len(t, st.TopItems, 3)

	items := s.Items()
	byID := make(map[string]string)
	for _, it := range items {
		byID[it.ID] = it.Content
	}
	assert.Equal(t, "c", byID[st.TopItems[0]])
	assert.Equal(t, "a", byID[st.TopItems[2]])
}

func TestRecommend(t *testing.T) {
	s := newMemStore(t, Options{Capacity: 4})
	_, err := s.Recommend(2)
	assert.True(t, errors.Is(err, ErrInvalidTarget))

	rec, err := s.Recommend(0.8)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.CurrentEfficiency)
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	src := newMemStore(t, Options{})
	_, err := src.Put(ctx, "alpha record", model.Context{"k": model.Number(1)}, 1)
	require.NoError(t, err)
	_, err = src.Get(ctx, "alpha", nil, 5, 0)
	require.NoError(t, err)

	snap := src.Snapshot()
	dst := newMemStore(t, Options{})
	require.NoError(t, dst.Restore(snap))

	assert.Equal(t, src.Items(), dst.Items())
	assert.Equal(t, src.State().InteractionCount, dst.State().InteractionCount)
	assert.Equal(t, 1, dst.EfficiencyMetrics().TotalMeasurements)
}

func TestRestoreRejectsInvalid(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"duplicate ids", Snapshot{Items: []model.MemoryItem{
			{ID: "1", Content: "a", ReasoningValue: 0.5, CreatedAt: now},
			{ID: "1", Content: "b", ReasoningValue: 0.5, CreatedAt: now},
		}}},
		{"value out of range", Snapshot{Items: []model.MemoryItem{{ID: "1", Content: "a", ReasoningValue: 1.5}}}},
		{"empty content", Snapshot{Items: []model.MemoryItem{{ID: "1", Content: " ", ReasoningValue: 0.5}}}},
		{"missing id", Snapshot{Items: []model.MemoryItem{{Content: "a", ReasoningValue: 0.5}}}},
		{"negative counter", Snapshot{InteractionCount: -1}},
		{"negative eviction count", Snapshot{EvictionCount: -1}},
		{"negative measurements", Snapshot{TotalMeasurements: -1}},
		{"non-finite context", Snapshot{Items: []model.MemoryItem{
			{ID: "1", Content: "a", ReasoningValue: 0.5, CreatedAt: now, Context: model.Context{"x": model.Number(math.NaN())}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore(t, Options{})
			err := s.Restore(tt.snap)
			assert.True(t, errors.Is(err, ErrInvalidSnapshot), "got %v", err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestTotalsSurviveSnapshot(t *testing.T) {
	ctx := context.Background()
	src := newMemStore(t, Options{Capacity: 3, HistorySize: 2})
	for _, c := range []string{
		"Photosynthesis analysis shows oxygen release.",
		"Photosynthesis happens in leaves.",
		"Photosynthesis converts light because chlorophyll absorbs photons.",
		"Unrelated grocery note",
	} {
		_, err := src.Put(ctx, c, nil, 1)
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := src.Get(ctx, "photosynthesis", nil, 5, 0)
		require.NoError(t, err)
	}
	_, err := src.Consolidate(ctx, 0)
	require.NoError(t, err)

	want := src.Totals()
	assert.Equal(t, 4, want.Puts)
	assert.Equal(t, 1, want.Evictions)
	assert.Equal(t, 5, want.Retrievals)
	assert.Equal(t, 1, want.Consolidations)
	assert.Equal(t, 1, want.MergedGroups)

	snap := src.Snapshot()
	assert.Len(t, snap.Samples, 2)
	assert.Equal(t, 5, snap.TotalMeasurements)

	dst := newMemStore(t, Options{Capacity: 3, HistorySize: 2})
	require.NoError(t, dst.Restore(snap))
	assert.Equal(t, want, dst.Totals())
	assert.Equal(t, 5, dst.EfficiencyMetrics().TotalMeasurements)

	_, err = dst.Get(ctx, "photosynthesis", nil, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, dst.EfficiencyMetrics().TotalMeasurements)

	dst.Reset()
	assert.Equal(t, Totals{}, dst.Totals())
}

func TestEfficiencyTargetOption(t *testing.T) {
	tests := []struct {
		name   string
		target float64
		want   float64
	}{
		{"unset selects default", 0, DefaultEfficiencyTarget},
		{"out of range selects default", 1.5, DefaultEfficiencyTarget},
		{"explicit", 0.3, 0.3},
		{"one", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore(t, Options{EfficiencyTarget: tt.target})
			assert.Equal(t, tt.want, s.EfficiencyTarget())
		})
	}

	// A zero target is still accepted per call.
	s := newMemStore(t, Options{})
	_, err := s.Consolidate(context.Background(), 0)
	assert.NoError(t, err)
	_, err = s.Recommend(0)
	assert.NoError(t, err)
}

func TestRestoreEnforcesCapacity(t *testing.T) {
	now := time.Now()
	snap := Snapshot{Items: []model.MemoryItem{
		{ID: "1", Content: "low", ReasoningValue: 0.1, CreatedAt: now},
		{ID: "2", Content: "high", ReasoningValue: 0.9, CreatedAt: now},
		{ID: "3", Content: "mid", ReasoningValue: 0.5, CreatedAt: now},
	}}
	s := newMemStore(t, Options{Capacity: 2})
	require.NoError(t, s.Restore(snap))
	assert.Equal(t, []string{"high", "mid"}, contents(s.Items()))
}

func TestStoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	a := newMemStore(t, Options{NS: "a"})
	b := newMemStore(t, Options{NS: "b"})
	_, err := a.Put(ctx, "only in a", nil, 1)
	require.NoError(t, err)

	assert.Len(t, a.Items(), 1)
	assert.Empty(t, b.Items())
	assert.Equal(t, 0, b.InteractionCount())
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t, Options{Capacity: 20})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := s.Put(ctx, fmt.Sprintf("worker %d note %d", w, i), nil, 0.7)
				assert.NoError(t, err)
				_, err = s.Get(ctx, "worker note", nil, 5, 0)
				assert.NoError(t, err)
				if i%10 == 0 {
					_, err = s.Consolidate(ctx, 0.3)
					assert.NoError(t, err)
				}
				_ = s.State()
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, len(s.Items()), 20)
	assert.Equal(t, 200, s.InteractionCount())
}

type countingRecorder struct {
	mu             sync.Mutex
	puts, evicted  int
	retrievals     int
	consolidations int
	lastCount      int
}

func (r *countingRecorder) RecordPut(_ string, evicted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	r.evicted += evicted
}

func (r *countingRecorder) RecordRetrieval(string, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrievals++
}

func (r *countingRecorder) RecordConsolidation(string, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consolidations++
}

func (r *countingRecorder) RecordState(_ string, count int, _, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastCount = count
}

func TestRecorderReceivesEvents(t *testing.T) {
	ctx := context.Background()
	rec := &countingRecorder{}
	s := newMemStore(t, Options{Capacity: 1, Recorder: rec})

	_, err := s.Put(ctx, "one", nil, 1)
	require.NoError(t, err)
	_, err = s.Put(ctx, "two", nil, 1)
	require.NoError(t, err)
	_, err = s.Get(ctx, "one", nil, 1, 0)
	require.NoError(t, err)
	_, err = s.Consolidate(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.puts)
	assert.Equal(t, 1, rec.evicted)
	assert.Equal(t, 1, rec.retrievals)
	assert.Equal(t, 1, rec.consolidations)
	assert.Equal(t, 1, rec.lastCount)
}
