// Package filter derives the tag-filtered ordering of the processed
// collection. It is a pure function of (entries, selected tags) and never
// touches store state.
package filter

import "github.com/matsen/shelf/internal/paper"

// Entry pairs a processed record with its dimmed flag: true iff a selection
// is active and the record matches none of the selected tags. Dimming is
// consumed by the renderer, not by this package.
type Entry struct {
	paper.Processed
	Dimmed bool
}

// Apply partitions entries into tag-matching followed by non-matching,
// preserving original relative order inside each partition (a stable
// partition, not a re-sort). An empty selection means no filtering: every
// entry comes back in original order, none dimmed.
func Apply(entries []paper.Processed, selected map[string]bool) []Entry {
	out := make([]Entry, 0, len(entries))

	if len(selected) == 0 {
		for _, e := range entries {
			out = append(out, Entry{Processed: e})
		}
		return out
	}

	var rest []Entry
	for _, e := range entries {
		if e.Paper.HasAnyTag(selected) {
			out = append(out, Entry{Processed: e})
		} else {
			rest = append(rest, Entry{Processed: e, Dimmed: true})
		}
	}
	return append(out, rest...)
}
