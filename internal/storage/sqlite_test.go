package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf.db")
	kv, err := OpenSQLiteKV(path)
	if err != nil {
		t.Fatalf("OpenSQLiteKV() error = %v", err)
	}
	defer kv.Close()

	if _, err := kv.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := kv.Set("bibcache", []byte(`{"k":"v"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := kv.Get("bibcache")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"k":"v"}` {
		t.Errorf("Get() = %q", got)
	}

	if err := kv.Set("bibcache", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if got, _ := kv.Get("bibcache"); string(got) != `{}` {
		t.Errorf("Get() after overwrite = %q", got)
	}

	ts, err := kv.UpdatedAt("bibcache")
	if err != nil {
		t.Fatalf("UpdatedAt() error = %v", err)
	}
	if ts.IsZero() || time.Since(ts) > time.Minute {
		t.Errorf("UpdatedAt() = %v, want a recent stamp", ts)
	}
	if ts, _ := kv.UpdatedAt("never"); !ts.IsZero() {
		t.Errorf("UpdatedAt(never) = %v, want zero time", ts)
	}
}

func TestSQLiteKVSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf.db")

	kv, err := OpenSQLiteKV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set("bibcache", []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	kv2, err := OpenSQLiteKV(path)
	if err != nil {
		t.Fatal(err)
	}
	defer kv2.Close()
	got, err := kv2.Get("bibcache")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "persisted" {
		t.Errorf("Get() after reopen = %q", got)
	}
}
