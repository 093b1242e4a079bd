package barcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/PabloGalante/kbju-bot/internal/domain"
	"github.com/PabloGalante/kbju-bot/internal/observability"
)

// FileDecoder is the blocking decode run by the pool.
type FileDecoder interface {
	DecodeFile(path string) (string, error)
}

// Pool runs decodes off the caller's goroutine with at most `workers` in
// flight. It implements domain.BarcodeDecoder.
type Pool struct {
	decoder FileDecoder
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewPool bounds decoding to workers concurrent jobs, each (queueing
// included) limited to timeout.
func NewPool(decoder FileDecoder, workers int, timeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		decoder: decoder,
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
	}
}

type result struct {
	code string
	err  error
}

// Decode returns domain.ErrDecodeTimeout if no worker frees up or the
// decode does not finish in time. A decode that times out keeps running
// to completion in the background; its result is dropped. A panicking
// decoder is reported as an error.
func (p *Pool) Decode(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", p.ctxErr(ctx, err)
	}

	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				observability.LoggerFromContext(ctx).Error("decoder panic", "panic", fmt.Sprint(r), "path", path)
				done <- result{err: fmt.Errorf("decoder panic: %v", r)}
			}
		}()
		code, err := p.decoder.DecodeFile(path)
		done <- result{code: code, err: err}
	}()

	select {
	case r := <-done:
		return r.code, r.err
	case <-ctx.Done():
		return "", p.ctxErr(ctx, ctx.Err())
	}
}

func (p *Pool) ctxErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrDecodeTimeout
	}
	return err
}
