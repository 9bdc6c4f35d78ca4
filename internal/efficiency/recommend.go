package efficiency

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/rcliao/reasoning-memory/internal/model"
)

const (
	optimalUtilization = 0.75
	qualityWeight      = 0.6
	utilizationWeight  = 0.4
	maxGain            = 0.3

	lowQuality      = 0.3
	highQuality     = 0.8
	spreadThreshold = 0.7
	shortContent    = 50
	longContent     = 500
	unusedShare     = 0.3
	frequentShare   = 0.1
	frequentMin     = 2
)

// Recommendations is the outcome of Recommend.
type Recommendations struct {
	CurrentEfficiency float64               `json:"current_efficiency"`
	TargetEfficiency  float64               `json:"target_efficiency"`
	Quality           float64               `json:"quality"`
	Utilization       float64               `json:"utilization"`
	Count             *CountRecommendation  `json:"count,omitempty"`
	QualityReport     QualityRecommendation `json:"quality_report"`
	Access            AccessRecommendation  `json:"access"`
}

// CountRecommendation suggests a smaller live set that would meet the target.
type CountRecommendation struct {
	CurrentCount    int     `json:"current_count"`
	OptimalCount    int     `json:"optimal_count"`
	ReductionNeeded int     `json:"reduction_needed"`
	EfficiencyGain  float64 `json:"efficiency_gain"`
}

// QualityRecommendation reports the value distribution.
type QualityRecommendation struct {
	LowQualityCount  int      `json:"low_quality_count"`
	HighQualityCount int      `json:"high_quality_count"`
	Recommendations  []string `json:"recommendations"`
}

// AccessRecommendation reports how often items are retrieved.
type AccessRecommendation struct {
	Never      int      `json:"never_accessed"`
	Rarely     int      `json:"rarely_accessed"`
	Frequently int      `json:"frequently_accessed"`
	Insights   []string `json:"insights"`
}

// OverallEfficiency combines mean quality with closeness of utilization to 75%.
func OverallEfficiency(quality, utilization float64) float64 {
	u := 1 - math.Abs(utilization-optimalUtilization)
	return math.Max(0, math.Min(1, qualityWeight*quality+utilizationWeight*u))
}

// Recommend analyzes items against the tracker's capacity and target.
func (t *Tracker) Recommend(items []model.MemoryItem, target float64) Recommendations {
	rec := Recommendations{
		TargetEfficiency: target,
		QualityReport:    QualityRecommendation{Recommendations: []string{}},
		Access:           AccessRecommendation{Insights: []string{}},
	}
	if len(items) == 0 {
		rec.CurrentEfficiency = 1
		rec.Quality = 1
		return rec
	}

	values := make([]float64, len(items))
	sum := 0.0
	for i, it := range items {
		values[i] = it.ReasoningValue
		sum += it.ReasoningValue
	}
	rec.Quality = sum / float64(len(items))
	rec.Utilization = t.utilization(len(items))
	rec.CurrentEfficiency = OverallEfficiency(rec.Quality, rec.Utilization)

	if rec.CurrentEfficiency < target {
		c := t.optimalCount(values, target)
		rec.Count = &c
	}
	rec.QualityReport = qualityReport(items, values, rec.Quality)
	rec.Access = accessReport(items)
	return rec
}

func (t *Tracker) utilization(n int) float64 {
	if t.capacity <= 0 {
		return 0
	}
	return float64(n) / float64(t.capacity)
}

// optimalCount finds the smallest count from half the set upward whose top
// items would meet target.
func (t *Tracker) optimalCount(values []float64, target float64) CountRecommendation {
	n := len(values)
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	optimal := n
	sum := 0.0
	start := n / 2
	for i := 0; i < start; i++ {
		sum += sorted[i]
	}
	for count := start; count < n; count++ {
		if count > 0 {
			if OverallEfficiency(sum/float64(count), t.utilization(count)) >= target {
				optimal = count
				break
			}
		}
		sum += sorted[count]
	}

	gain := 0.0
	if n > 0 {
		gain = math.Min(maxGain, float64(n-optimal)/float64(n)*0.5)
	}
	return CountRecommendation{
		CurrentCount:    n,
		OptimalCount:    optimal,
		ReductionNeeded: n - optimal,
		EfficiencyGain:  gain,
	}
}

func qualityReport(items []model.MemoryItem, values []float64, avg float64) QualityRecommendation {
	q := QualityRecommendation{Recommendations: []string{}}
	lo, hi := values[0], values[0]
	runes := 0
	for i, v := range values {
		if v < lowQuality {
			q.LowQualityCount++
		}
		if v > highQuality {
			q.HighQualityCount++
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		runes += utf8.RuneCountInString(items[i].Content)
	}

	if q.LowQualityCount > 0 {
		q.Recommendations = append(q.Recommendations,
			fmt.Sprintf("Consider consolidating or removing %d low-quality memories", q.LowQualityCount))
	}
	if q.HighQualityCount > 0 {
		q.Recommendations = append(q.Recommendations,
			fmt.Sprintf("Preserve and potentially expand %d high-quality memories", q.HighQualityCount))
	}
	if avg < 0.5 {
		q.Recommendations = append(q.Recommendations, "Overall memory quality is low - increase consolidation frequency")
	}
	if hi-lo > spreadThreshold {
		q.Recommendations = append(q.Recommendations, "High quality variance - consider selective retention strategies")
	}
	avgLen := float64(runes) / float64(len(items))
	switch {
	case avgLen < shortContent:
		q.Recommendations = append(q.Recommendations, "Memories are very short - consider content enrichment")
	case avgLen > longContent:
		q.Recommendations = append(q.Recommendations, "Memories are very long - consider content summarization")
	}
	return q
}

func accessReport(items []model.MemoryItem) AccessRecommendation {
	a := AccessRecommendation{Insights: []string{}}
	for _, it := range items {
		switch {
		case it.AccessCount == 0:
			a.Never++
		case it.AccessCount < frequentMin:
			a.Rarely++
		default:
			a.Frequently++
		}
	}

	if a.Never > 0 {
		a.Insights = append(a.Insights, fmt.Sprintf("%d memories never accessed - candidates for removal", a.Never))
	}
	if a.Frequently > 0 {
		a.Insights = append(a.Insights, fmt.Sprintf("%d memories frequently accessed - ensure retention", a.Frequently))
	}
	total := float64(len(items))
	if float64(a.Never) > total*unusedShare {
		a.Insights = append(a.Insights, "High proportion of unused memories - review retention criteria")
	}
	if float64(a.Frequently) < total*frequentShare {
		a.Insights = append(a.Insights, "Few frequently accessed memories - improve retrieval targeting")
	}
	return a
}
