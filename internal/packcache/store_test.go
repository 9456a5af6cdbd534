package packcache

import "testing"

func TestMemStoreRoundTrip(t *testing.T) {
	s := NewMemStore()
	if _, err := s.Get(1); err != ErrNotCached {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}
	s.Put(1, []byte("hello"))
	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q", got)
	}

	// mutating the returned slice must not corrupt the cache.
	got[0] = 'X'
	again, _ := s.Get(1)
	if string(again) != "hello" {
		t.Errorf("cache corrupted by caller mutation: %q", again)
	}

	s.Invalidate(1)
	if _, err := s.Get(1); err != ErrNotCached {
		t.Errorf("expected invalidated entry to be gone, got %v", err)
	}
}

func TestMemStoreStats(t *testing.T) {
	s := NewMemStore()
	s.Put(1, []byte("abc"))
	s.Put(2, []byte("de"))
	stats := s.Stats()
	if stats.Entries != 2 || stats.Bytes != 5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
