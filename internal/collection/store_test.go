package collection

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matsen/shelf/internal/bibcache"
	"github.com/matsen/shelf/internal/paper"
	"github.com/matsen/shelf/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *bibcache.Cache) {
	t.Helper()
	cache := bibcache.New(storage.NewMemKV())
	return New(storage.NewMemKV(), cache), cache
}

func TestAdd(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Add("Doe2022", paper.Paper{DOI: "10.1/a"}, false); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("Doe2022", paper.Paper{}, false); !errors.Is(err, ErrKeyExists) {
		t.Errorf("duplicate Add() error = %v, want ErrKeyExists", err)
	}
	if err := s.Add("Doe2022", paper.Paper{DOI: "10.1/b"}, true); err != nil {
		t.Errorf("override Add() error = %v", err)
	}

	st := s.State()
	if st.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", st.Len())
	}
	if p, _ := st.Get("Doe2022"); p.DOI != "10.1/b" {
		t.Errorf("override did not replace record: %+v", p)
	}
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)
	for _, key := range []string{"Zed2020", "Abel2021", "Mid2019"} {
		if err := s.Add(key, paper.Paper{}, false); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"Zed2020", "Abel2021", "Mid2019"}
	if got := s.State().Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want insertion order %v", got, want)
	}
}

func TestRenameCascades(t *testing.T) {
	s, cache := newTestStore(t)
	s.Add("Old2022", paper.Paper{DOI: "10.1/a"}, false)
	s.Add("Other2021", paper.Paper{AlsoRead: []string{"Old2022", "Third2020"}}, false)
	s.Add("Third2020", paper.Paper{}, false)
	s.SetEnriched("Old2022", paper.BibInfo{Title: "T"}, nil)
	cache.Put("Old2022", "@article{x}", paper.BibInfo{Title: "T"}, nil)

	if err := s.Rename("Old2022", "New2022"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	st := s.State()
	if _, ok := st.Get("Old2022"); ok {
		t.Error("old key still present")
	}
	if p, ok := st.Get("New2022"); !ok || p.DOI != "10.1/a" {
		t.Errorf("record not moved: %+v, %v", p, ok)
	}
	if got := st.Keys(); !reflect.DeepEqual(got, []string{"New2022", "Other2021", "Third2020"}) {
		t.Errorf("Keys() = %v, rename must keep position", got)
	}
	if m, ok := st.Meta("New2022"); !ok || m.BibInfo.Title != "T" {
		t.Error("enrichment not moved with the record")
	}
	if p, _ := st.Get("Other2021"); !reflect.DeepEqual(p.AlsoRead, []string{"New2022", "Third2020"}) {
		t.Errorf("AlsoRead = %v, reference not rewritten", p.AlsoRead)
	}
	if cache.Has("Old2022") || !cache.Has("New2022") {
		t.Error("cache entry not rekeyed")
	}
}

func TestRenamePreconditions(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("A2022", paper.Paper{}, false)
	s.Add("B2022", paper.Paper{}, false)

	if err := s.Rename("missing", "X"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("rename missing error = %v, want ErrKeyNotFound", err)
	}
	if err := s.Rename("A2022", "B2022"); !errors.Is(err, ErrKeyExists) {
		t.Errorf("rename onto taken key error = %v, want ErrKeyExists", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	s, cache := newTestStore(t)
	s.Add("Gone2022", paper.Paper{}, false)
	s.Add("Ref2021", paper.Paper{AlsoRead: []string{"Gone2022", "Keep2020"}}, false)
	s.Add("Keep2020", paper.Paper{}, false)
	s.SetEnriched("Gone2022", paper.BibInfo{Title: "T"}, nil)
	cache.Put("Gone2022", "@article{x}", paper.BibInfo{}, nil)

	if err := s.Delete("Gone2022"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	st := s.State()
	if _, ok := st.Get("Gone2022"); ok {
		t.Error("record survived delete")
	}
	if _, ok := st.Meta("Gone2022"); ok {
		t.Error("enrichment survived delete")
	}
	if cache.Has("Gone2022") {
		t.Error("cache entry survived delete")
	}
	if p, _ := st.Get("Ref2021"); !reflect.DeepEqual(p.AlsoRead, []string{"Keep2020"}) {
		t.Errorf("AlsoRead = %v, stale reference kept", p.AlsoRead)
	}

	if err := s.Delete("Gone2022"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("second delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestDeleteEmitsEmptied(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("Only2022", paper.Paper{}, false)

	var changes []Change
	unsub := s.Subscribe(func(st *State, ch Change) {
		changes = append(changes, ch)
	})
	defer unsub()

	if err := s.Delete("Only2022"); err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d notifications, want 1", len(changes))
	}
	ch := changes[0]
	if ch.Op != OpDelete || ch.Key != "Only2022" || !ch.Emptied {
		t.Errorf("change = %+v, want emptied delete", ch)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s, _ := newTestStore(t)

	count := 0
	unsub := s.Subscribe(func(st *State, ch Change) { count++ })

	s.Add("A2022", paper.Paper{}, false)
	if count != 1 {
		t.Fatalf("count = %d after one mutation", count)
	}

	unsub()
	s.Add("B2022", paper.Paper{}, false)
	if count != 1 {
		t.Errorf("count = %d, notified after unsubscribe", count)
	}
}

func TestSetTagsDedupes(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("Doe2022", paper.Paper{}, false)

	if err := s.SetTags("Doe2022", []string{"b", "a", "b", "", "a"}); err != nil {
		t.Fatal(err)
	}
	p, _ := s.State().Get("Doe2022")
	if !reflect.DeepEqual(p.Tags, []string{"b", "a"}) {
		t.Errorf("Tags = %v, want first-occurrence dedupe", p.Tags)
	}

	if err := s.SetTags("missing", nil); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("error = %v, want ErrKeyNotFound", err)
	}
}

func TestSetAlsoReadValidatesReferences(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("A2022", paper.Paper{}, false)
	s.Add("B2021", paper.Paper{}, false)

	if err := s.SetAlsoRead("A2022", []string{"B2021", "B2021"}); err != nil {
		t.Fatal(err)
	}
	p, _ := s.State().Get("A2022")
	if !reflect.DeepEqual(p.AlsoRead, []string{"B2021"}) {
		t.Errorf("AlsoRead = %v", p.AlsoRead)
	}

	if err := s.SetAlsoRead("A2022", []string{"Ghost2020"}); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("dangling reference error = %v, want ErrKeyNotFound", err)
	}
	// The failed call must not have touched the record.
	p, _ = s.State().Get("A2022")
	if !reflect.DeepEqual(p.AlsoRead, []string{"B2021"}) {
		t.Errorf("AlsoRead = %v after failed call", p.AlsoRead)
	}
}

func TestProcessedDerivedFromRaw(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("Rich2022", paper.Paper{DOI: "10.1/a"}, false)
	s.Add("Bare2021", paper.Paper{}, false)
	abstract := "An abstract."
	s.SetEnriched("Rich2022", paper.BibInfo{Title: "Real Title", Year: "2022"}, &abstract)

	processed := s.State().Processed()
	if len(processed) != 2 {
		t.Fatalf("len = %d, want key set to match raw map", len(processed))
	}
	if processed[0].BibInfo.Title != "Real Title" {
		t.Errorf("enriched BibInfo = %+v", processed[0].BibInfo)
	}
	if processed[0].Abstract == nil || *processed[0].Abstract != abstract {
		t.Errorf("Abstract = %v", processed[0].Abstract)
	}
	if processed[1].BibInfo != paper.FallbackBibInfo("Bare2021") {
		t.Errorf("unenriched BibInfo = %+v, want key-as-title fallback", processed[1].BibInfo)
	}

	// Memoized per snapshot; a mutation yields a fresh derivation.
	s.Delete("Bare2021")
	if got := len(s.State().Processed()); got != 1 {
		t.Errorf("processed len after delete = %d, want 1", got)
	}
}

func TestBulkReplace(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("Old2022", paper.Paper{}, false)
	s.SetEnriched("Old2022", paper.BibInfo{Title: "T"}, nil)
	s.SetSelectedTags([]string{"keep"})

	s.BulkReplace(map[string]paper.Paper{
		"Zed2020":  {DOI: "10.1/z"},
		"Abel2021": {DOI: "10.1/a"},
	})

	st := s.State()
	if got := st.Keys(); !reflect.DeepEqual(got, []string{"Abel2021", "Zed2020"}) {
		t.Errorf("Keys() = %v, want lexicographic order", got)
	}
	if _, ok := st.Get("Old2022"); ok {
		t.Error("previous record survived bulk replace")
	}
	if _, ok := st.Meta("Old2022"); ok {
		t.Error("enrichment survived bulk replace")
	}
	if got := st.SelectedTags(); !reflect.DeepEqual(got, []string{"keep"}) {
		t.Errorf("SelectedTags() = %v, selection must survive", got)
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("A2022", paper.Paper{}, false)
	s.SetSelectedTags([]string{"x"})

	var last Change
	s.Subscribe(func(st *State, ch Change) { last = ch })
	s.Clear()

	st := s.State()
	if st.Len() != 0 || len(st.SelectedTags()) != 0 {
		t.Error("Clear() left state behind")
	}
	if last.Op != OpClear || !last.Emptied {
		t.Errorf("change = %+v, want emptied clear", last)
	}
}

func TestSelectedTagsSortedAndSet(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetSelectedTags([]string{"zeta", "alpha", "zeta", ""})

	if got := s.State().SelectedTags(); !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Errorf("SelectedTags() = %v, want sorted unique", got)
	}
	set := s.State().SelectedTagSet()
	if !set["alpha"] || !set["zeta"] || len(set) != 2 {
		t.Errorf("SelectedTagSet() = %v", set)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	kv := storage.NewMemKV()
	cache := bibcache.New(storage.NewMemKV())

	s := New(kv, cache)
	s.Add("Doe2022", paper.Paper{DOI: "10.1/a", Tags: []string{"x"}}, false)
	s.Add("Roe2021", paper.Paper{AlsoRead: []string{"Doe2022"}}, false)
	abstract := "Kept."
	s.SetEnriched("Doe2022", paper.BibInfo{Title: "T"}, &abstract)
	s.SetSelectedTags([]string{"x"})

	reloaded := New(kv, cache)
	st := reloaded.State()
	if got := st.Keys(); !reflect.DeepEqual(got, []string{"Doe2022", "Roe2021"}) {
		t.Fatalf("Keys() = %v after reload", got)
	}
	if p, _ := st.Get("Roe2021"); !reflect.DeepEqual(p.AlsoRead, []string{"Doe2022"}) {
		t.Errorf("AlsoRead = %v after reload", p.AlsoRead)
	}
	if m, ok := st.Meta("Doe2022"); !ok || m.BibInfo.Title != "T" || m.Abstract == nil {
		t.Errorf("Meta = %+v, %v after reload", m, ok)
	}
	if got := st.SelectedTags(); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("SelectedTags() = %v after reload", got)
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	kv := storage.NewMemKV()
	kv.Set(BlobName, []byte("][nonsense"))

	var logged bool
	s := New(kv, nil, WithLogf(func(string, ...any) { logged = true }))
	if s.State().Len() != 0 {
		t.Error("corrupt snapshot produced records")
	}
	if !logged {
		t.Error("corrupt snapshot not logged")
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("A2022", paper.Paper{Tags: []string{"x"}}, false)

	before := s.State()
	s.SetTags("A2022", []string{"y"})

	if p, _ := before.Get("A2022"); !reflect.DeepEqual(p.Tags, []string{"x"}) {
		t.Errorf("old snapshot mutated: Tags = %v", p.Tags)
	}
	if p, _ := s.State().Get("A2022"); !reflect.DeepEqual(p.Tags, []string{"y"}) {
		t.Errorf("new snapshot wrong: Tags = %v", p.Tags)
	}
}
