package keyword

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestIndex(t *testing.T, path string) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	return idx
}

func TestBleveIndex_Lookup(t *testing.T) {
	idx := newTestIndex(t, filepath.Join(t.TempDir(), "metadata.bleve"))
	defer func() {
		_ = idx.Close()
	}()
	ctx := context.Background()

	docs := map[string]Fields{
		"bns-303-b": {"act": "Bharatiya Nyaya Sanhita (BNS)", "section": "303", "effective_from": "2024-07-01"},
		"bns-303-a": {"act": "Bharatiya Nyaya Sanhita (BNS)", "section": "303", "effective_from": "2024-07-01"},
		"ipc-303":   {"act": "Indian Penal Code (IPC)", "section": "303", "effective_from": "1860-10-06"},
		"bns-3030":  {"act": "Bharatiya Nyaya Sanhita (BNS)", "section": "3030"},
		"it-66c":    {"act": "Information Technology Act", "section": "66C"},
	}
	for id, f := range docs {
		if err := idx.Index(ctx, id, f); err != nil {
			t.Fatalf("Index %s: %v", id, err)
		}
	}

	tests := []struct {
		name   string
		filter Fields
		limit  int
		want   []string
	}{
		{"section only", Fields{"section": "303"}, 10, []string{"bns-303-a", "bns-303-b", "ipc-303"}},
		{"section and act", Fields{"section": "303", "act": "Indian Penal Code (IPC)"}, 10, []string{"ipc-303"}},
		{"limit", Fields{"section": "303"}, 2, []string{"bns-303-a", "bns-303-b"}},
		{"alphanumeric section", Fields{"section": "66C"}, 10, []string{"it-66c"}},
		{"no prefix match", Fields{"section": "30"}, 10, []string{}},
		{"case sensitive", Fields{"section": "66c"}, 10, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Lookup(ctx, tt.filter, tt.limit)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup(%v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}

	if _, err := idx.Lookup(ctx, nil, 10); !errors.Is(err, ErrEmptyFilter) {
		t.Errorf("empty filter error = %v, want ErrEmptyFilter", err)
	}
}

func TestBleveIndex_DeleteAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.bleve")
	ctx := context.Background()

	idx := newTestIndex(t, path)
	if err := idx.Index(ctx, "a", Fields{"section": "1"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "b", Fields{"section": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx = newTestIndex(t, path)
	defer idx.Close()
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DocCount after reopen = %d, want 1", n)
	}
	got, err := idx.Lookup(ctx, Fields{"section": "2"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("Lookup after reopen = %v", got)
	}
}
