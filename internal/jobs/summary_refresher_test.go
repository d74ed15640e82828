package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	calls atomic.Int64
	err   error
}

func (f *fakeExecutor) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	f.calls.Add(1)
	return pgconn.CommandTag{}, f.err
}

type fakePublisher struct {
	calls atomic.Int64
}

func (f *fakePublisher) Publish(context.Context, string, any) error {
	f.calls.Add(1)
	return nil
}

func TestSummaryRefresherRunsEachInterval(t *testing.T) {
	db := &fakeExecutor{}
	pub := &fakePublisher{}
	r := NewSummaryRefresher(zap.NewNop(), db, pub, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Start(ctx)

	require.Eventually(t, func() bool {
		return db.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, pub.calls.Load(), int64(2))

	cancel()
}

func TestSummaryRefresherSkipsPublishOnFailure(t *testing.T) {
	db := &fakeExecutor{err: errors.New("relation missing")}
	pub := &fakePublisher{}
	r := NewSummaryRefresher(zap.NewNop(), db, pub, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Start(ctx)

	require.Eventually(t, func() bool {
		return db.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	assert.Equal(t, int64(0), pub.calls.Load())
}

func TestSummaryRefresherStop(t *testing.T) {
	r := NewSummaryRefresher(zap.NewNop(), &fakeExecutor{}, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	r.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
