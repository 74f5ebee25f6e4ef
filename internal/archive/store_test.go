package archive

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStore_InsertAndStats(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	s.Insert("matches:soccer", "initial_matches", []byte(`{"matches":[]}`))
	s.Insert("match:soccer:m1", "match_update", []byte(`{"data":{}}`))

	// Inserts are async; poll until both landed.
	deadline := time.Now().Add(3 * time.Second)
	for {
		rows, bytes := s.Stats()
		if rows == 2 && bytes > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("rows=%d bytes=%d after timeout", rows, bytes)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStore_NilNoOp(t *testing.T) {
	var s *Store
	s.Insert("matches:soccer", "match_update", []byte(`{}`))
	if rows, bytes := s.Stats(); rows != 0 || bytes != 0 {
		t.Fatalf("nil store stats = %d/%d", rows, bytes)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
