// Package scorer estimates the reasoning value of a memory item from its text.
package scorer

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"
)

// Component weights.
const (
	DensityWeight        = 0.4
	SubstantialityWeight = 0.3
	RecencyWeight        = 0.3

	// SubstantialRunes is the content length at which substantiality saturates.
	SubstantialRunes = 500
)

var indicators = []string{
	"analysis", "conclusion", "insight", "pattern", "relationship",
	"because", "therefore", "thus", "consequently", "implies",
}

// Scorer assigns a reasoning value in [0,1] to new content.
type Scorer interface {
	Score(ctx context.Context, content string, basePriority float64) float64
}

// Lexical is the indicator-based Scorer. It ignores ctx.
type Lexical struct{}

func (Lexical) Score(_ context.Context, content string, basePriority float64) float64 {
	return Score(content, basePriority)
}

// Score computes the lexical reasoning value of content. Empty content scores 0.
func Score(content string, basePriority float64) float64 {
	if content == "" {
		return 0
	}
	lower := strings.ToLower(content)

	present := 0
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			present++
		}
	}
	density := float64(present) / float64(len(indicators))
	substantiality := math.Min(1, float64(utf8.RuneCountInString(content))/SubstantialRunes)
	recency := 1.0

	raw := DensityWeight*density + SubstantialityWeight*substantiality + RecencyWeight*recency
	return Clamp01(basePriority * raw)
}

// HasIndicator reports whether lower-cased text contains any indicator term.
func HasIndicator(text string) bool {
	lower := strings.ToLower(text)
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// Indicators returns a copy of the indicator vocabulary.
func Indicators() []string {
	return append([]string(nil), indicators...)
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
