// Package dispatch runs jobs one user at a time, in arrival order, while
// different users progress in parallel.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/PabloGalante/kbju-bot/internal/domain"
	"github.com/PabloGalante/kbju-bot/internal/observability"
)

// Job is one unit of work for a user.
type Job func(ctx context.Context)

type mailbox struct {
	jobs []Job
}

// Dispatcher keeps one mailbox goroutine per active user. A mailbox is
// reaped as soon as it drains.
type Dispatcher struct {
	ctx context.Context

	mu     sync.Mutex
	boxes  map[domain.UserID]*mailbox
	closed bool
	wg     sync.WaitGroup
}

// New creates a dispatcher. Jobs receive ctx (or a child of it).
func New(ctx context.Context) *Dispatcher {
	return &Dispatcher{
		ctx:   ctx,
		boxes: make(map[domain.UserID]*mailbox),
	}
}

// Submit enqueues job behind every job already submitted for userID.
// It returns false after Close.
func (d *Dispatcher) Submit(userID domain.UserID, job Job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	if box, ok := d.boxes[userID]; ok {
		box.jobs = append(box.jobs, job)
		return true
	}

	box := &mailbox{jobs: []Job{job}}
	d.boxes[userID] = box
	d.wg.Add(1)
	go d.run(userID, box)
	return true
}

// Do submits job and waits until it ran or ctx is done.
func (d *Dispatcher) Do(ctx context.Context, userID domain.UserID, job Job) error {
	done := make(chan struct{})
	ok := d.Submit(userID, func(jobCtx context.Context) {
		defer close(done)
		job(jobCtx)
	})
	if !ok {
		return fmt.Errorf("dispatcher closed")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the number of users with a live mailbox.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.boxes)
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(userID domain.UserID, box *mailbox) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(box.jobs) == 0 {
			delete(d.boxes, userID)
			d.mu.Unlock()
			return
		}
		job := box.jobs[0]
		box.jobs[0] = nil
		box.jobs = box.jobs[1:]
		d.mu.Unlock()

		d.safeRun(userID, job)
	}
}

// safeRun keeps a panicking job from killing the mailbox or the process.
func (d *Dispatcher) safeRun(userID domain.UserID, job Job) {
	ctx := observability.WithUserID(d.ctx, userID)
	defer func() {
		if r := recover(); r != nil {
			observability.LoggerFromContext(ctx).Error("job panicked", "panic", fmt.Sprint(r))
		}
	}()
	job(ctx)
}
