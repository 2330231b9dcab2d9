// Package fuse merges per-source candidate lists into one ranked list.
//
// Each source first narrows its candidates with SelectTop; Combine then
// concatenates the sources in priority order, drops repeated IDs and orders
// by (priority, match percentage) so a higher-priority source always leads.
package fuse

import (
	"math"
	"sort"
)

// Item is a scored candidate from a single source.
type Item struct {
	ID string
	// Index is the candidate's position in the catalog; it breaks score ties.
	Index    int
	Score    float64
	Priority int
	Payload  any
}

// Percent is the item's score as a whole percentage.
func (it Item) Percent() int {
	return MatchPercentage(it.Score)
}

// MatchPercentage rounds score*100 half to even.
func MatchPercentage(score float64) int {
	return int(math.RoundToEven(score * 100))
}

// Config controls the final merge.
type Config struct {
	MaxResults int
}

// DefaultConfig returns the production merge settings.
func DefaultConfig() Config {
	return Config{MaxResults: 6}
}

// SelectTop keeps items scoring strictly above floor, orders them by
// descending score (catalog order on ties) and returns at most limit.
func SelectTop(items []Item, limit int, floor float64) []Item {
	if limit <= 0 {
		return nil
	}
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Score > floor {
			kept = append(kept, it)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score == kept[j].Score {
			return kept[i].Index < kept[j].Index
		}
		return kept[i].Score > kept[j].Score
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// Combine concatenates groups in order, keeps the first occurrence of each
// ID, sorts by priority then descending match percentage and truncates.
func Combine(groups [][]Item, cfg Config) []Item {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}

	seen := make(map[string]struct{})
	merged := make([]Item, 0, cfg.MaxResults)
	for _, g := range groups {
		for _, it := range g {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			merged = append(merged, it)
		}
	}

	sortMerged(merged)

	if len(merged) > cfg.MaxResults {
		merged = merged[:cfg.MaxResults]
	}
	return merged
}

// Exclusions returns the set of IDs in items.
func Exclusions(items []Item) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it.ID] = struct{}{}
	}
	return out
}

func sortMerged(items []Item) {
	if len(items) <= 1 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].Percent() > items[j].Percent()
	})
}
