package store

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/rcliao/reasoning-memory/internal/efficiency"
	"github.com/rcliao/reasoning-memory/internal/model"
)

// Snapshot is the complete persistent state of a Store.
type Snapshot struct {
	Items              []model.MemoryItem  `json:"items"`
	ConsolidationCount int                 `json:"consolidation_count"`
	InteractionCount   int                 `json:"interaction_count"`
	EvictionCount      int                 `json:"eviction_count,omitempty"`
	MergedGroupCount   int                 `json:"merged_group_count,omitempty"`
	PrunedCount        int                 `json:"pruned_count,omitempty"`
	TotalMeasurements  int                 `json:"total_measurements,omitempty"`
	Insights           []string            `json:"insights,omitempty"`
	Samples            []efficiency.Sample `json:"efficiency_samples,omitempty"`
}

// Snapshot copies the store's state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.sortedLocked()
	for i := range items {
		items[i] = items[i].Clone()
	}
	return Snapshot{
		Items:              items,
		ConsolidationCount: s.consolidationCount,
		InteractionCount:   s.interactionCount,
		EvictionCount:      s.evictionCount,
		MergedGroupCount:   s.mergedGroupCount,
		PrunedCount:        s.prunedCount,
		TotalMeasurements:  s.tracker.Total(),
		Insights:           append([]string(nil), s.insights...),
		Samples:            s.tracker.Samples(),
	}
}

// Restore validates snap and replaces the store's state with it. Items over
// capacity are evicted as if they had just been put.
func (s *Store) Restore(snap Snapshot) error {
	items := make(map[string]model.MemoryItem, len(snap.Items))
	for _, it := range snap.Items {
		if err := validateItem(it); err != nil {
			return err
		}
		if _, dup := items[it.ID]; dup {
			return errors.Wrapf(ErrInvalidSnapshot, "duplicate id %s", it.ID)
		}
		items[it.ID] = it.Clone()
	}
	if snap.ConsolidationCount < 0 || snap.InteractionCount < 0 || snap.EvictionCount < 0 ||
		snap.MergedGroupCount < 0 || snap.PrunedCount < 0 || snap.TotalMeasurements < 0 {
		return errors.Wrap(ErrInvalidSnapshot, "negative counter")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
	s.consolidationCount = snap.ConsolidationCount
	s.interactionCount = snap.InteractionCount
	s.evictionCount = snap.EvictionCount
	s.mergedGroupCount = snap.MergedGroupCount
	s.prunedCount = snap.PrunedCount
	s.insights = append([]string(nil), snap.Insights...)
	s.tracker.Restore(snap.Samples, snap.TotalMeasurements)
	if n := s.evictLocked(); n > 0 {
		s.evictionCount += n
		s.logger.Warn("restored snapshot exceeded capacity", "evicted", n, "capacity", s.capacity)
	}
	s.recordStateLocked()
	return nil
}

func validateItem(it model.MemoryItem) error {
	switch {
	case it.ID == "":
		return errors.Wrap(ErrInvalidSnapshot, "item without id")
	case strings.TrimSpace(it.Content) == "":
		return errors.Wrapf(ErrInvalidSnapshot, "item %s: empty content", it.ID)
	case math.IsNaN(it.ReasoningValue) || it.ReasoningValue < 0 || it.ReasoningValue > 1:
		return errors.Wrapf(ErrInvalidSnapshot, "item %s: reasoning value %v", it.ID, it.ReasoningValue)
	case it.AccessCount < 0:
		return errors.Wrapf(ErrInvalidSnapshot, "item %s: negative access count", it.ID)
	}
	if err := it.Context.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidSnapshot, "item %s: %v", it.ID, err)
	}
	return nil
}
