package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestEmbeddingCache_GetRefreshesRecency(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a")
	c.Set("c", []float32{3}) // evicts b, not a
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive after recent Get")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

type countingEmbedder struct {
	*HashingEmbedder
	single  int
	batched int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.single++
	return c.HashingEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batched += len(texts)
	return c.HashingEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{HashingEmbedder: NewHashingEmbedder(16)}
	e := NewCachedEmbedder(inner, 10)

	if _, err := e.Embed(ctx, "theft"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(ctx, "theft"); err != nil {
		t.Fatal(err)
	}
	if inner.single != 1 {
		t.Errorf("inner Embed calls = %d, want 1", inner.single)
	}

	out, err := e.EmbedBatch(ctx, []string{"theft", "robbery", "murder"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if inner.batched != 3 {
		t.Errorf("inner batched texts = %d, want 3 (query vectors are not reused for passages)", inner.batched)
	}
	if _, err := e.EmbedBatch(ctx, []string{"robbery", "dacoity"}); err != nil {
		t.Fatal(err)
	}
	if inner.batched != 4 {
		t.Errorf("inner batched texts = %d, want 4 (robbery was cached)", inner.batched)
	}
	if e.Dimensions() != 16 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}

// taskEmbedder returns a different vector for queries and passages of the same text.
type taskEmbedder struct {
	*HashingEmbedder
}

func (e taskEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (e taskEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0, 1}
	}
	return out, nil
}

func TestCachedEmbedder_QueryAndPassageVectorsKeptApart(t *testing.T) {
	ctx := context.Background()
	e := NewCachedEmbedder(taskEmbedder{NewHashingEmbedder(2)}, 10)

	q, err := e.Embed(ctx, "theft")
	if err != nil {
		t.Fatal(err)
	}
	p, err := e.EmbedBatch(ctx, []string{"theft"})
	if err != nil {
		t.Fatal(err)
	}
	if q[0] != 1 || p[0][1] != 1 {
		t.Errorf("query %v and passage %v vectors were mixed up", q, p[0])
	}
	q, err = e.Embed(ctx, "theft")
	if err != nil {
		t.Fatal(err)
	}
	if q[0] != 1 {
		t.Errorf("cached query vector: got %v", q)
	}
}
