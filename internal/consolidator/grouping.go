package consolidator

import (
	"sort"
	"strings"

	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/tokenize"
)

// ReasoningType is a coarse keyword classification of item content.
type ReasoningType string

const (
	Analytical         ReasoningType = "analytical"
	Deductive          ReasoningType = "deductive"
	Causal             ReasoningType = "causal"
	PatternRecognition ReasoningType = "pattern_recognition"
	General            ReasoningType = "general"
)

// reasoningTypes is both the classification precedence and the chain visit order.
var reasoningTypes = []struct {
	kind     ReasoningType
	keywords []string
}{
	{Analytical, []string{"analysis", "analyze"}},
	{Deductive, []string{"conclusion", "therefore", "thus"}},
	{Causal, []string{"because", "since", "cause"}},
	{PatternRecognition, []string{"pattern", "trend", "relationship"}},
}

// Classify returns the first reasoning type whose keywords appear in content.
func Classify(content string) ReasoningType {
	lower := strings.ToLower(content)
	for _, rt := range reasoningTypes {
		for _, kw := range rt.keywords {
			if strings.Contains(lower, kw) {
				return rt.kind
			}
		}
	}
	return General
}

type cluster struct {
	term    string
	members []int
}

type chain struct {
	kind    ReasoningType
	members []int
}

// topicClusters maps each key term to the items containing it, ordered by
// descending member count then term.
func topicClusters(items []model.MemoryItem) []cluster {
	byTerm := make(map[string][]int)
	for i, it := range items {
		for _, term := range tokenize.KeyTerms(it.Content, tokenize.DefaultOptions()) {
			byTerm[term] = append(byTerm[term], i)
		}
	}
	clusters := make([]cluster, 0, len(byTerm))
	for term, members := range byTerm {
		clusters = append(clusters, cluster{term: term, members: members})
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].members) != len(clusters[j].members) {
			return len(clusters[i].members) > len(clusters[j].members)
		}
		return clusters[i].term < clusters[j].term
	})
	return clusters
}

// reasoningChains buckets items by reasoning type in fixed type order.
func reasoningChains(items []model.MemoryItem) []chain {
	byKind := make(map[ReasoningType][]int)
	for i, it := range items {
		k := Classify(it.Content)
		byKind[k] = append(byKind[k], i)
	}
	var chains []chain
	for _, rt := range reasoningTypes {
		if m := byKind[rt.kind]; len(m) > 0 {
			chains = append(chains, chain{kind: rt.kind, members: m})
		}
	}
	if m := byKind[General]; len(m) > 0 {
		chains = append(chains, chain{kind: General, members: m})
	}
	return chains
}

// selectGroups claims items for merging: qualifying clusters first, then chains.
// Each item joins at most one group.
func selectGroups(clusters []cluster, chains []chain) [][]int {
	claimed := make(map[int]bool)
	var groups [][]int

	take := func(members []int, need int) {
		var avail []int
		for _, m := range members {
			if !claimed[m] {
				avail = append(avail, m)
			}
		}
		if len(avail) < need {
			return
		}
		for _, m := range avail {
			claimed[m] = true
		}
		groups = append(groups, avail)
	}

	for _, cl := range clusters {
		take(cl.members, MinClusterSize)
	}
	for _, ch := range chains {
		take(ch.members, MinChainSize)
	}
	return groups
}
