package dispatch_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/PabloGalante/kbju-bot/internal/app/dispatch"
	"github.com/PabloGalante/kbju-bot/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSameUserRunsInArrivalOrder(t *testing.T) {
	d := dispatch.New(context.Background())
	defer d.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	var running int32

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		d.Submit(42, func(ctx context.Context) {
			defer wg.Done()
			if atomic.AddInt32(&running, 1) != 1 {
				t.Errorf("two jobs of the same user overlapped")
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			atomic.AddInt32(&running, -1)
		})
	}
	wg.Wait()

	require.Len(t, order, n)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestDifferentUsersRunInParallel(t *testing.T) {
	d := dispatch.New(context.Background())
	defer d.Close()

	release := make(chan struct{})
	started := make(chan domain.UserID, 2)

	for _, u := range []domain.UserID{1, 2} {
		u := u
		d.Submit(u, func(ctx context.Context) {
			started <- u
			<-release
		})
	}

	// both must start while neither has finished
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("users did not run in parallel")
		}
	}
	close(release)
}

func TestMailboxIsReapedWhenIdle(t *testing.T) {
	d := dispatch.New(context.Background())
	defer d.Close()

	require.NoError(t, d.Do(context.Background(), 7, func(ctx context.Context) {}))

	assert.Eventually(t, func() bool { return d.Active() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPanicDoesNotStopMailbox(t *testing.T) {
	d := dispatch.New(context.Background())
	defer d.Close()

	d.Submit(3, func(ctx context.Context) { panic("boom") })

	ran := false
	require.NoError(t, d.Do(context.Background(), 3, func(ctx context.Context) { ran = true }))
	assert.True(t, ran)
}

func TestDoHonorsContext(t *testing.T) {
	d := dispatch.New(context.Background())
	defer d.Close()

	block := make(chan struct{})
	d.Submit(5, func(ctx context.Context) { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Do(ctx, 5, func(ctx context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}

func TestSubmitAfterClose(t *testing.T) {
	d := dispatch.New(context.Background())
	d.Close()

	assert.False(t, d.Submit(1, func(ctx context.Context) {}))
	assert.Error(t, d.Do(context.Background(), 1, func(ctx context.Context) {}))
}
