// Package efficiency tracks retrieval efficiency over time and recommends
// capacity and quality adjustments for a memory store.
package efficiency

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultHistorySize bounds the sliding window of retained samples.
	DefaultHistorySize = 100

	optimalLow   = 0.05
	optimalHigh  = 0.2
	targetBonus  = 0.2
	maxPenalty   = 0.1
	ratioCeiling = 0.9

	metricsWindow  = 10
	trendWindow    = 5
	trendThreshold = 0.05
	lowEfficiency  = 0.7
)

// Trend labels.
const (
	TrendInsufficientData = "insufficient_data"
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
)

// Optimization opportunity flags.
const (
	OpportunityLow      = "retrieval_efficiency_low"
	OpportunityStagnant = "efficiency_stagnant"
)

// Sample is one recorded retrieval.
type Sample struct {
	RecordedAt time.Time `json:"recorded_at"`
	Efficiency float64   `json:"efficiency"`
	Retrieved  int       `json:"retrieved"`
	Total      int       `json:"total"`
}

// Metrics summarizes recent retrieval efficiency.
type Metrics struct {
	NoData            bool     `json:"no_data,omitempty"`
	RecentAverage     float64  `json:"recent_average_efficiency"`
	TotalMeasurements int      `json:"total_measurements"`
	Trend             string   `json:"trend"`
	Opportunities     []string `json:"optimization_opportunities"`
}

// Tracker records retrieval efficiency samples in a bounded history.
type Tracker struct {
	mu          sync.Mutex
	history     []Sample
	total       int
	historySize int
	capacity    int
	clock       func() time.Time
}

// NewTracker creates a Tracker keeping at most historySize samples.
// capacity is the store budget used for utilization in Recommend.
func NewTracker(historySize, capacity int, clock func() time.Time) *Tracker {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{historySize: historySize, capacity: capacity, clock: clock}
}

// RetrievalEfficiency scores how well a retrieval targeted the store:
// fewer results relative to the store are better, and a ratio inside
// [0.05, 0.2] earns a bonus. An empty store scores 1.
func RetrievalEfficiency(retrieved, total int) float64 {
	if total <= 0 {
		return 1
	}
	r := float64(retrieved) / float64(total)
	eff := 1 - math.Min(ratioCeiling, r)

	switch {
	case r >= optimalLow && r <= optimalHigh:
		eff += targetBonus
	case r < optimalLow:
		eff -= maxPenalty * (optimalLow - r) / optimalLow
	default:
		eff -= maxPenalty * (r - optimalHigh) / (1 - optimalHigh)
	}
	return math.Max(0, math.Min(1, eff))
}

// RecordRetrieval scores a retrieval, appends the sample and returns its efficiency.
func (t *Tracker) RecordRetrieval(retrieved, total int) float64 {
	eff := RetrievalEfficiency(retrieved, total)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, Sample{
		RecordedAt: t.clock().UTC(),
		Efficiency: eff,
		Retrieved:  retrieved,
		Total:      total,
	})
	t.total++
	if over := len(t.history) - t.historySize; over > 0 {
		t.history = append([]Sample(nil), t.history[over:]...)
	}
	return eff
}

// Metrics reports the recent average, trend and opportunity flags.
func (t *Tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		return Metrics{NoData: true, Trend: TrendInsufficientData, Opportunities: []string{}}
	}

	recent := tail(t.history, metricsWindow)
	avg := mean(recent)

	opps := []string{}
	if avg < lowEfficiency {
		opps = append(opps, OpportunityLow)
	}
	if uniform(recent) {
		opps = append(opps, OpportunityStagnant)
	}

	return Metrics{
		RecentAverage:     avg,
		TotalMeasurements: t.total,
		Trend:             trend(t.history),
		Opportunities:     opps,
	}
}

// Samples returns a copy of the retained history, oldest first.
func (t *Tracker) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sample(nil), t.history...)
}

// Restore replaces the history with samples, keeping the newest historySize.
// total is the number of measurements ever recorded; it is raised to
// len(samples) when smaller.
func (t *Tracker) Restore(samples []Sample, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append([]Sample(nil), tail(samples, t.historySize)...)
	t.total = max(total, len(samples))
}

// Total returns the number of measurements recorded since the last reset.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Reset discards all samples.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = nil
	t.total = 0
}

func trend(history []Sample) string {
	if len(history) < 2 {
		return TrendInsufficientData
	}
	recent := tail(history, trendWindow)
	var older []Sample
	if len(history) >= 2*trendWindow {
		older = history[len(history)-2*trendWindow : len(history)-trendWindow]
	} else if len(history) > trendWindow {
		older = history[:len(history)-trendWindow]
	}
	if len(older) == 0 {
		return TrendInsufficientData
	}

	r, o := mean(recent), mean(older)
	switch {
	case r > o+trendThreshold:
		return TrendImproving
	case r < o-trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func tail(s []Sample, n int) []Sample {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func mean(s []Sample) float64 {
	sum := 0.0
	for _, x := range s {
		sum += x.Efficiency
	}
	return sum / float64(len(s))
}

func uniform(s []Sample) bool {
	for _, x := range s[1:] {
		if x.Efficiency != s[0].Efficiency {
			return false
		}
	}
	return true
}
