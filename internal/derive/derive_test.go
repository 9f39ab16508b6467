package derive

import (
	"context"
	"testing"

	"github.com/synapse-sync/core/internal/embedding"
	"github.com/synapse-sync/core/internal/keyword"
)

func TestDeriveProducesEmbeddingAndKeywords(t *testing.T) {
	p := New(embedding.NewHashProvider(64, 4096), keyword.NewTFIDFExtractor(), 5)

	res, err := p.Derive(context.Background(), "Machine learning and deep learning are closely related fields")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 64 {
		t.Fatalf("expected 64-dim embedding, got %d", len(res.Embedding))
	}
	if len(res.Keywords) == 0 {
		t.Fatal("expected at least one keyword")
	}
}

func TestDeriveToleratesEmptyBodyEmbeddingFailure(t *testing.T) {
	p := New(embedding.NewHashProvider(32, 4096), keyword.NewTFIDFExtractor(), 5)

	res, err := p.Derive(context.Background(), "   ")
	if err != nil {
		t.Fatalf("derive itself must not fail: %v", err)
	}
	if res.Embedding != nil {
		t.Fatalf("expected nil embedding for empty body, got %v", res.Embedding)
	}
	if res.Keywords != nil {
		t.Fatalf("expected nil keywords for empty body, got %v", res.Keywords)
	}
}

func TestDeriveConcurrentCallsAllSucceed(t *testing.T) {
	p := New(embedding.NewHashProvider(16, 4096), keyword.NewTFIDFExtractor(), 3)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := p.Derive(context.Background(), "concurrent note body about testing and pools")
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}
