package kv

import "testing"

func TestBadgerStore(t *testing.T) {
	storeHarness(t, func(t *testing.T) Store {
		s, err := NewBadger(BadgerOptions{InMemory: true})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestBadgerStore_onDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadger(BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	key := Key{"wake", "profile", "persisted"}
	if err := s.Set(t.Context(), key, []byte("v")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(t.Context(), key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
}

func TestBadgerStore_requiresDir(t *testing.T) {
	if _, err := NewBadger(BadgerOptions{}); err == nil {
		t.Error("NewBadger without Dir succeeded, want error")
	}
}
