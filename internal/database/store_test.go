// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tomtom215/squadapi/internal/config"
)

type testDoc struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Update(ctx, func(tx *Tx) error {
		return tx.Put("docs", "a", &testDoc{ID: "a", Name: "alpha"})
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got testDoc
	if err := s.View(ctx, func(tx *Tx) error { return tx.Get("docs", "a", &got) }); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "alpha" {
		t.Errorf("Name = %q", got.Name)
	}

	err = s.View(ctx, func(tx *Tx) error {
		_, err := Get[testDoc](tx, "docs", "missing")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing Get error = %v, want ErrNotFound", err)
	}

	if err := s.Update(ctx, func(tx *Tx) error { return tx.Delete("docs", "a") }); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err = s.Update(ctx, func(tx *Tx) error { return tx.Delete("docs", "a") })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.Put("docs", "a", &testDoc{ID: "a"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update error = %v", err)
	}

	err = s.View(ctx, func(tx *Tx) error {
		ok, err := tx.Exists("docs", "a")
		if err != nil {
			return err
		}
		if ok {
			t.Error("document written by failed transaction is visible")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestScanListAndFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Update(ctx, func(tx *Tx) error {
		for i, name := range []string{"c", "a", "b"} {
			if err := tx.Put("docs", name, &testDoc{ID: name, Count: i}); err != nil {
				return err
			}
		}
		// Other collections sharing a prefix must not leak into the scan.
		return tx.Put("docs2", "z", &testDoc{ID: "z"})
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(ctx, func(tx *Tx) error {
		all, err := List[testDoc](tx, "docs", nil)
		if err != nil {
			return err
		}
		if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
			t.Errorf("List = %+v, want a,b,c in key order", all)
		}

		some, err := List(tx, "docs", func(d *testDoc) bool { return d.Count > 0 })
		if err != nil {
			return err
		}
		if len(some) != 2 {
			t.Errorf("filtered List len = %d, want 2", len(some))
		}

		first, err := First(tx, "docs", func(d *testDoc) bool { return d.Count == 2 })
		if err != nil {
			return err
		}
		if first.ID != "b" {
			t.Errorf("First = %s, want b", first.ID)
		}

		_, err = First(tx, "docs", func(d *testDoc) bool { return d.Count == 99 })
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("First miss error = %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestIndexes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.SetIndex(Users, IndexUsername, "ankur", "u1"); err != nil {
			return err
		}
		return tx.SetIndex(Users, IndexUsername, "ankur", "u1")
	})
	if err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	err = s.Update(ctx, func(tx *Tx) error {
		return tx.SetIndex(Users, IndexUsername, "ankur", "u2")
	})
	if !errors.Is(err, ErrIndexTaken) {
		t.Errorf("SetIndex by other owner error = %v, want ErrIndexTaken", err)
	}

	err = s.Update(ctx, func(tx *Tx) error {
		id, err := tx.LookupIndex(Users, IndexUsername, "ankur")
		if err != nil {
			return err
		}
		if id != "u1" {
			t.Errorf("LookupIndex = %q", id)
		}
		return tx.DeleteIndex(Users, IndexUsername, "ankur")
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.View(ctx, func(tx *Tx) error {
		_, err := tx.LookupIndex(Users, IndexUsername, "ankur")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupIndex after delete error = %v", err)
	}
}

func TestConcurrentIncrementsRetryConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.Update(ctx, func(tx *Tx) error { return tx.Put("docs", "n", &testDoc{ID: "n"}) }); err != nil {
		t.Fatal(err)
	}

	const workers = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, func(tx *Tx) error {
				d, err := Get[testDoc](tx, "docs", "n")
				if err != nil {
					return err
				}
				d.Count++
				return tx.Put("docs", "n", d)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var d testDoc
	if err := s.View(ctx, func(tx *Tx) error { return tx.Get("docs", "n", &d) }); err != nil {
		t.Fatal(err)
	}
	if d.Count != succeeded {
		t.Errorf("Count = %d, committed updates = %d; lost update", d.Count, succeeded)
	}
	if succeeded == 0 {
		t.Error("no update committed")
	}
}

func TestContextCanceled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, func(*Tx) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("Update on canceled context: err=%v called=%v", err, called)
	}
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.View(ctx, func(*Tx) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("View after Close = %v, want ErrClosed", err)
	}
	if err := s.Update(ctx, func(*Tx) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Update after Close = %v, want ErrClosed", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after Close = %v, want ErrClosed", err)
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(&config.DatabaseConfig{Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := s.Update(ctx, func(tx *Tx) error { return tx.Put("docs", "a", &testDoc{ID: "a"}) }); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(&config.DatabaseConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := s.View(ctx, func(tx *Tx) error { return tx.Get("docs", "a", &testDoc{}) }); err != nil {
		t.Errorf("document not persisted: %v", err)
	}
	if err := s.CollectGarbage(0.5); err != nil {
		t.Errorf("CollectGarbage: %v", err)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		limit, offset int
		want          int
	}{
		{2, 0, 2},
		{2, 4, 1},
		{0, 1, 4},
		{10, 10, 0},
		{3, -1, 3},
	}
	for _, tt := range tests {
		if got := Page(items, tt.limit, tt.offset); len(got) != tt.want {
			t.Errorf("Page(limit=%d, offset=%d) len = %d, want %d", tt.limit, tt.offset, len(got), tt.want)
		}
	}
}
