// Package collection owns the in-memory paper collection: a reactive store
// over citation-keyed records whose every mutation keeps the raw map, the
// derived processed view, the bibliographic cache, and all cross-references
// consistent in one logical step.
package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/matsen/shelf/internal/bibcache"
	"github.com/matsen/shelf/internal/paper"
	"github.com/matsen/shelf/internal/storage"
)

// BlobName is the name of the persisted session snapshot.
const BlobName = "collection"

// Mutation errors.
var (
	// ErrKeyExists indicates the citation key is already taken.
	ErrKeyExists = errors.New("citation key already exists")

	// ErrKeyNotFound indicates the citation key is not in the collection.
	ErrKeyNotFound = errors.New("citation key not found")
)

// Op identifies the kind of change a notification describes.
type Op string

// Store operations.
const (
	OpAdd      Op = "add"
	OpRename   Op = "rename"
	OpDelete   Op = "delete"
	OpTags     Op = "tags"
	OpAlsoRead Op = "alsoread"
	OpComment  Op = "comment"
	OpEnriched Op = "enriched"
	OpReplace  Op = "replace"
	OpClear    Op = "clear"
	OpSelect   Op = "select"
)

// Change describes one applied mutation. Emptied is set when the mutation
// removed the last record, a signal the surrounding UI reacts to.
type Change struct {
	Op      Op
	Key     string
	Emptied bool
}

// Subscriber receives every new snapshot together with the change that
// produced it.
type Subscriber func(st *State, ch Change)

// Store is the reactive collection core. It is single-context: mutations
// are synchronous and atomic with respect to one execution context, so no
// partial state is ever observable between two operations.
type Store struct {
	kv    storage.KV
	cache *bibcache.Cache
	logf  func(format string, args ...any)

	state  *State
	subs   map[int]Subscriber
	nextID int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogf sets the logger used when session persistence errors are
// swallowed.
func WithLogf(logf func(format string, args ...any)) StoreOption {
	return func(s *Store) { s.logf = logf }
}

// New creates a store bound to a session persistence collaborator and the
// bibliographic cache (which rename/delete must keep in step). A previously
// persisted snapshot, including the tag selection, is restored; a missing
// or corrupt one yields an empty collection.
func New(kv storage.KV, cache *bibcache.Cache, opts ...StoreOption) *Store {
	s := &Store{
		kv:    kv,
		cache: cache,
		logf:  func(string, ...any) {},
		state: emptyState(),
		subs:  make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore()
	return s
}

// State returns the current snapshot.
func (s *Store) State() *State {
	return s.state
}

// Subscribe registers a subscriber and returns its unsubscribe function.
func (s *Store) Subscribe(fn Subscriber) func() {
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

// set is the single mutation primitive: it publishes a freshly built
// snapshot, synchronously persists it, then notifies all subscribers.
// Persistence failures are logged and swallowed so a full session store
// never blocks the in-memory collection.
func (s *Store) set(next *State, ch Change) {
	s.state = next
	if err := s.persist(next); err != nil {
		s.logf("collection: persisting snapshot: %v", err)
	}
	for _, fn := range s.subs {
		fn(next, ch)
	}
}

// Add inserts a new record. A duplicate key is a recoverable, user-reported
// condition unless override is set, in which case the existing record is
// replaced in place.
func (s *Store) Add(key string, p paper.Paper, override bool) error {
	_, exists := s.state.papers[key]
	if exists && !override {
		return fmt.Errorf("%w: %s", ErrKeyExists, key)
	}

	next := s.state.clone()
	next.papers[key] = p.Clone()
	if !exists {
		next.keys = append(next.keys, key)
	}
	s.set(next, Change{Op: OpAdd, Key: key})
	return nil
}

// Rename moves a record to a new citation key. In one logical step it moves
// the raw entry and its enrichment, migrates the cache entry, and rewrites
// every other record's also-read list that referenced the old key.
func (s *Store) Rename(oldKey, newKey string) error {
	if _, ok := s.state.papers[oldKey]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, oldKey)
	}
	if _, ok := s.state.papers[newKey]; ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, newKey)
	}

	next := s.state.clone()
	next.papers[newKey] = next.papers[oldKey]
	delete(next.papers, oldKey)
	for i, k := range next.keys {
		if k == oldKey {
			next.keys[i] = newKey
		}
	}
	if m, ok := next.meta[oldKey]; ok {
		delete(next.meta, oldKey)
		next.meta[newKey] = m
	}
	rewriteAlsoRead(next, func(ref string) (string, bool) {
		if ref == oldKey {
			return newKey, true
		}
		return ref, true
	})
	if s.cache != nil {
		s.cache.Rekey(oldKey, newKey)
	}
	s.set(next, Change{Op: OpRename, Key: newKey})
	return nil
}

// Delete removes a record, cascading over the raw map, the enrichment, the
// cache, and every other record's also-read list.
func (s *Store) Delete(key string) error {
	if _, ok := s.state.papers[key]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	next := s.state.clone()
	delete(next.papers, key)
	delete(next.meta, key)
	keys := next.keys[:0]
	for _, k := range next.keys {
		if k != key {
			keys = append(keys, k)
		}
	}
	next.keys = keys
	rewriteAlsoRead(next, func(ref string) (string, bool) {
		return ref, ref != key
	})
	if s.cache != nil {
		s.cache.Remove(key)
	}
	s.set(next, Change{Op: OpDelete, Key: key, Emptied: len(next.keys) == 0})
	return nil
}

// SetTags replaces a record's tags. Duplicates are dropped, first
// occurrence wins.
func (s *Store) SetTags(key string, tags []string) error {
	p, ok := s.state.papers[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	seen := make(map[string]bool, len(tags))
	var deduped []string
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		deduped = append(deduped, t)
	}

	next := s.state.clone()
	p = p.Clone()
	p.Tags = deduped
	next.papers[key] = p
	s.set(next, Change{Op: OpTags, Key: key})
	return nil
}

// SetComment replaces a record's free-text comment.
func (s *Store) SetComment(key, text string) error {
	p, ok := s.state.papers[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	next := s.state.clone()
	p = p.Clone()
	p.Comments = text
	next.papers[key] = p
	s.set(next, Change{Op: OpComment, Key: key})
	return nil
}

// SetAlsoRead replaces a record's also-read list. Every reference must name
// a key currently in the collection; duplicates are dropped.
func (s *Store) SetAlsoRead(key string, refs []string) error {
	p, ok := s.state.papers[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	seen := make(map[string]bool, len(refs))
	var deduped []string
	for _, ref := range refs {
		if ref == "" || seen[ref] {
			continue
		}
		if _, ok := s.state.papers[ref]; !ok {
			return fmt.Errorf("%w: also-read reference %s", ErrKeyNotFound, ref)
		}
		seen[ref] = true
		deduped = append(deduped, ref)
	}

	next := s.state.clone()
	p = p.Clone()
	p.AlsoRead = deduped
	next.papers[key] = p
	s.set(next, Change{Op: OpAlsoRead, Key: key})
	return nil
}

// SetEnriched records what the pipeline produced for a key so the processed
// view picks it up.
func (s *Store) SetEnriched(key string, info paper.BibInfo, abstract *string) error {
	if _, ok := s.state.papers[key]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	next := s.state.clone()
	next.meta[key] = Enrichment{BibInfo: info, Abstract: abstract}
	s.set(next, Change{Op: OpEnriched, Key: key})
	return nil
}

// BulkReplace swaps in an entire raw map, last write wins on any key the
// previous collection also had. Keys are ordered lexicographically since a
// JSON document carries no member order. Enrichment is dropped; the caller
// re-derives it through the pipeline's bulk form.
func (s *Store) BulkReplace(papers map[string]paper.Paper) {
	next := emptyState()
	next.selected = s.state.SelectedTagSet()
	for k, p := range papers {
		next.keys = append(next.keys, k)
		next.papers[k] = p.Clone()
	}
	sort.Strings(next.keys)
	s.set(next, Change{Op: OpReplace, Emptied: len(next.keys) == 0})
}

// Clear empties the raw map, the derived view, and the tag selection
// together.
func (s *Store) Clear() {
	s.set(emptyState(), Change{Op: OpClear, Emptied: true})
}

// SetSelectedTags replaces the tag selection. The selection is held as a
// set and converted to a sorted sequence for persistence.
func (s *Store) SetSelectedTags(tags []string) {
	next := s.state.clone()
	next.selected = make(map[string]bool, len(tags))
	for _, t := range tags {
		if t != "" {
			next.selected[t] = true
		}
	}
	s.set(next, Change{Op: OpSelect})
}

// rewriteAlsoRead maps every also-read reference in the snapshot through fn;
// fn returns the replacement reference and whether to keep it.
func rewriteAlsoRead(st *State, fn func(ref string) (string, bool)) {
	for key, p := range st.papers {
		if len(p.AlsoRead) == 0 {
			continue
		}
		changed := false
		rewritten := make([]string, 0, len(p.AlsoRead))
		for _, ref := range p.AlsoRead {
			out, keep := fn(ref)
			if !keep {
				changed = true
				continue
			}
			if out != ref {
				changed = true
			}
			rewritten = append(rewritten, out)
		}
		if changed {
			p = p.Clone()
			if len(rewritten) == 0 {
				p.AlsoRead = nil
			} else {
				p.AlsoRead = rewritten
			}
			st.papers[key] = p
		}
	}
}

// snapshotDoc is the persisted session snapshot shape.
type snapshotDoc struct {
	Keys         []string               `json:"keys"`
	Papers       map[string]paper.Paper `json:"papers"`
	Meta         map[string]Enrichment  `json:"meta,omitempty"`
	SelectedTags []string               `json:"selectedTags,omitempty"`
}

// persist writes the snapshot to the session store.
func (s *Store) persist(st *State) error {
	doc := snapshotDoc{
		Keys:         st.keys,
		Papers:       st.papers,
		Meta:         st.meta,
		SelectedTags: st.SelectedTags(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.kv.Set(BlobName, data)
}

// restore loads the persisted snapshot, if any. Failures degrade to an
// empty collection.
func (s *Store) restore() {
	data, err := s.kv.Get(BlobName)
	if err != nil {
		if err != storage.ErrNotFound {
			s.logf("collection: loading snapshot: %v (starting empty)", err)
		}
		return
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logf("collection: corrupt snapshot: %v (starting empty)", err)
		return
	}

	st := emptyState()
	for _, k := range doc.Keys {
		if p, ok := doc.Papers[k]; ok {
			st.keys = append(st.keys, k)
			st.papers[k] = p
		}
	}
	for k, m := range doc.Meta {
		if _, ok := st.papers[k]; ok {
			st.meta[k] = m
		}
	}
	for _, t := range doc.SelectedTags {
		st.selected[t] = true
	}
	s.state = st
}
