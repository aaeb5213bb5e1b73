package collection

import (
	"sort"

	"github.com/matsen/shelf/internal/paper"
)

// Enrichment is what the pipeline produced for one citation key.
type Enrichment struct {
	BibInfo  paper.BibInfo `json:"bibInfo"`
	Abstract *string       `json:"abstract"`
}

// State is one immutable snapshot of the collection. Mutations never touch
// a published snapshot; the store builds a fresh one for every change.
//
// The raw map is the single source of truth. The processed view is derived
// from it on demand and memoized per snapshot, so the raw and processed
// representations cannot disagree on the key set.
type State struct {
	keys     []string
	papers   map[string]paper.Paper
	meta     map[string]Enrichment
	selected map[string]bool

	processed []paper.Processed
	derived   bool
}

// emptyState returns a snapshot with no papers and no selection.
func emptyState() *State {
	return &State{
		papers:   make(map[string]paper.Paper),
		meta:     make(map[string]Enrichment),
		selected: make(map[string]bool),
	}
}

// clone copies the snapshot's maps and key order so the next state can be
// edited without touching this one. The memoized processed view is not
// carried over.
func (st *State) clone() *State {
	next := &State{
		keys:     append([]string(nil), st.keys...),
		papers:   make(map[string]paper.Paper, len(st.papers)),
		meta:     make(map[string]Enrichment, len(st.meta)),
		selected: make(map[string]bool, len(st.selected)),
	}
	for k, p := range st.papers {
		next.papers[k] = p
	}
	for k, m := range st.meta {
		next.meta[k] = m
	}
	for t := range st.selected {
		next.selected[t] = true
	}
	return next
}

// Len returns the number of papers.
func (st *State) Len() int {
	return len(st.keys)
}

// Keys returns the citation keys in collection order.
func (st *State) Keys() []string {
	return append([]string(nil), st.keys...)
}

// Get returns the raw record for a citation key.
func (st *State) Get(key string) (paper.Paper, bool) {
	p, ok := st.papers[key]
	return p, ok
}

// Papers returns a copy of the raw map.
func (st *State) Papers() map[string]paper.Paper {
	out := make(map[string]paper.Paper, len(st.papers))
	for k, p := range st.papers {
		out[k] = p
	}
	return out
}

// Meta returns the enrichment recorded for a key, if any.
func (st *State) Meta(key string) (Enrichment, bool) {
	m, ok := st.meta[key]
	return m, ok
}

// SelectedTags returns the tag selection as a sorted sequence.
func (st *State) SelectedTags() []string {
	tags := make([]string, 0, len(st.selected))
	for t := range st.selected {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// SelectedTagSet returns the tag selection as a set.
func (st *State) SelectedTagSet() map[string]bool {
	out := make(map[string]bool, len(st.selected))
	for t := range st.selected {
		out[t] = true
	}
	return out
}

// Processed returns the derived per-record view in collection order. A key
// with no recorded enrichment falls back to {title: key} with no abstract.
func (st *State) Processed() []paper.Processed {
	if !st.derived {
		st.processed = make([]paper.Processed, 0, len(st.keys))
		for _, key := range st.keys {
			entry := paper.Processed{
				Key:     key,
				Paper:   st.papers[key],
				BibInfo: paper.FallbackBibInfo(key),
			}
			if m, ok := st.meta[key]; ok {
				if m.BibInfo != (paper.BibInfo{}) {
					entry.BibInfo = m.BibInfo
				}
				entry.Abstract = m.Abstract
			}
			st.processed = append(st.processed, entry)
		}
		st.derived = true
	}
	return st.processed
}
