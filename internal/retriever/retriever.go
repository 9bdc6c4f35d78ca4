// Package retriever ranks memory items against a query and context.
package retriever

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/scorer"
	"github.com/rcliao/reasoning-memory/internal/tokenize"
)

// Relevance weights.
const (
	SemanticWeight  = 0.4
	ContextWeight   = 0.25
	ReasoningBoost  = 0.2
	RecencyWeight   = 0.15
	FrequencyWeight = 0.10

	// ImportantTermBonus is the maximum bonus for matching long query terms.
	ImportantTermBonus = 0.3
	// DiversityThreshold is the similarity above which a candidate is rejected.
	DiversityThreshold = 0.8
	// DefaultMinRelevance is the relevance floor applied when callers have no preference.
	DefaultMinRelevance = 0.1

	recencyWindow    = 24 * time.Hour
	recencyDecay     = 0.1
	recencyFloor     = 0.1
	frequencySatur   = 10
	importantMinRune = 4
	parallelMin      = 64
)

// Options configures a Retriever.
type Options struct {
	Clock       func() time.Time
	Parallelism int
}

// Retriever scores and filters candidate items. It holds no item state.
type Retriever struct {
	clock       func() time.Time
	parallelism int
}

// New creates a Retriever.
func New(opts Options) *Retriever {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &Retriever{clock: opts.Clock, parallelism: opts.Parallelism}
}

// query is the pre-tokenized form of a retrieval query.
type query struct {
	tokens    map[string]struct{}
	important []string
	ctx       model.Context
}

func newQuery(text string, qctx model.Context) query {
	tokens := tokenize.Set(text)
	var important []string
	for t := range tokens {
		if utf8.RuneCountInString(t) > importantMinRune {
			important = append(important, t)
		}
	}
	return query{tokens: tokens, important: important, ctx: qctx}
}

// Retrieve returns up to maxResults items ordered by descending relevance.
// Items scoring below minRelevance are dropped, and near-duplicates of a
// higher-ranked result are skipped. The only error is ctx cancellation.
func (r *Retriever) Retrieve(ctx context.Context, text string, qctx model.Context, items []model.MemoryItem, maxResults int, minRelevance float64) ([]model.ScoredItem, error) {
	if len(items) == 0 || maxResults <= 0 {
		return nil, nil
	}

	q := newQuery(text, qctx)
	now := r.clock()
	scores := make([]float64, len(items))

	if len(items) < parallelMin {
		for i := range items {
			scores[i] = q.relevance(&items[i], now)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.parallelism)
		for i := range items {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				scores[i] = q.relevance(&items[i], now)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := make([]int, 0, len(items))
	for i := range items {
		if scores[i] >= minRelevance {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return items[ia].ID < items[ib].ID
	})

	var results []model.ScoredItem
	for _, i := range order {
		if len(results) >= maxResults {
			break
		}
		if !diverse(items[i].Content, results) {
			continue
		}
		results = append(results, model.ScoredItem{MemoryItem: items[i].Clone(), Relevance: scores[i]})
	}
	return results, nil
}

func diverse(content string, accepted []model.ScoredItem) bool {
	for _, a := range accepted {
		if Similarity(content, a.Content) > DiversityThreshold {
			return false
		}
	}
	return true
}

func (q query) relevance(item *model.MemoryItem, now time.Time) float64 {
	sem := q.semantic(tokenize.Set(item.Content))
	ctxScore := ContextAlignment(q.ctx, item.Context)
	boost := item.ReasoningValue * ReasoningBoost
	rec := Recency(now.Sub(item.CreatedAt))
	freq := Frequency(item.AccessCount)

	return scorer.Clamp01(SemanticWeight*sem + ContextWeight*ctxScore + boost + RecencyWeight*rec + FrequencyWeight*freq)
}

func (q query) semantic(content map[string]struct{}) float64 {
	if len(q.tokens) == 0 || len(content) == 0 {
		return 0
	}
	sim := tokenize.Jaccard(q.tokens, content)
	if len(q.important) > 0 {
		matched := 0
		for _, t := range q.important {
			if _, ok := content[t]; ok {
				matched++
			}
		}
		sim += float64(matched) / float64(len(q.important)) * ImportantTermBonus
	}
	return math.Min(1, sim)
}

// Similarity is the semantic similarity of content to query: token-set
// Jaccard plus a bonus for query terms longer than four runes, capped at 1.
func Similarity(query, content string) float64 {
	return newQuery(query, nil).semantic(tokenize.Set(content))
}

// ContextAlignment averages per-key matches of qctx against the item context:
// 1 for an equal value, 0.5 when the query value's rendering is a
// case-insensitive substring of the item's. Empty qctx aligns to 0.
func ContextAlignment(qctx, itemCtx model.Context) float64 {
	if len(qctx) == 0 {
		return 0
	}
	total := 0.0
	for k, qv := range qctx {
		iv, ok := itemCtx[k]
		if !ok {
			continue
		}
		switch {
		case iv.Equal(qv):
			total += 1
		case strings.Contains(strings.ToLower(iv.String()), strings.ToLower(qv.String())):
			total += 0.5
		}
	}
	return total / float64(len(qctx))
}

// Recency is 1 for items younger than a day, then decays exponentially per hour to a floor of 0.1.
func Recency(age time.Duration) float64 {
	if age < recencyWindow {
		return 1
	}
	hours := (age - recencyWindow).Hours()
	return math.Max(recencyFloor, math.Exp(-recencyDecay*hours))
}

// Frequency compresses an access count logarithmically; ten or more accesses saturate at 1.
func Frequency(accessCount int) float64 {
	if accessCount <= 0 {
		return 0
	}
	norm := math.Min(1, float64(accessCount)/frequencySatur)
	return math.Log(1+norm*math.E) / math.Log(1+math.E)
}
