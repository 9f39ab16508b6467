// Package derive runs the C4 derivation pipeline: turning an accepted note
// body into an embedding vector and a ranked keyword list, under a bounded
// worker pool so a burst of pushes cannot exhaust CPU or DB connections.
package derive

import (
	"context"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/synapse-sync/core/internal/embedding"
	"github.com/synapse-sync/core/internal/keyword"
)

// Result is the outcome of deriving one note's embedding and keywords.
// Embedding is nil when derivation permanently failed; the caller still
// accepts the write (SPEC_FULL.md §4.2: a note is never rejected for a
// derivation failure).
type Result struct {
	Embedding []float32
	Keywords  []keyword.Scored
}

// Pipeline bounds concurrent embed+extract work to runtime.NumCPU() slots
// and retries transient failures with exponential backoff before giving up.
type Pipeline struct {
	embedder  embedding.Provider
	extractor keyword.Extractor
	sem       *semaphore.Weighted
	topK      int
	maxRetry  time.Duration
}

func New(embedder embedding.Provider, extractor keyword.Extractor, topK int) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		extractor: extractor,
		sem:       semaphore.NewWeighted(int64(runtime.NumCPU())),
		topK:      topK,
		maxRetry:  5 * time.Second,
	}
}

// Derive runs embedding and keyword extraction concurrently for one note
// body, each under its own backoff-retried attempt, and each independently
// tolerant of permanent failure (embedding failure yields nil embedding,
// keyword failure yields an empty keyword list - neither aborts the other).
func (p *Pipeline) Derive(ctx context.Context, body string) (Result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer p.sem.Release(1)

	var res Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec, err := p.embedWithRetry(gctx, body)
		if err != nil {
			res.Embedding = nil
			return nil
		}
		res.Embedding = vec
		return nil
	})

	g.Go(func() error {
		scored, err := p.extractWithRetry(gctx, body)
		if err != nil {
			res.Keywords = nil
			return nil
		}
		res.Keywords = scored
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (p *Pipeline) embedWithRetry(ctx context.Context, body string) ([]float32, error) {
	var vec []float32
	op := func() error {
		v, err := p.embedder.Embed(ctx, body)
		if err != nil {
			if err == embedding.ErrEmptyInput {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vec, nil
}

func (p *Pipeline) extractWithRetry(ctx context.Context, body string) ([]keyword.Scored, error) {
	var scored []keyword.Scored
	op := func() error {
		s, err := p.extractor.Extract(ctx, body, p.topK)
		if err != nil {
			return err
		}
		scored = s
		return nil
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return scored, nil
}
