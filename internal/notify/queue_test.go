package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu   sync.Mutex
	got  []string
	gate chan struct{}
	err  error
}

func (r *recorder) AddressShared(_ context.Context, s Share) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s.Recipient)
	return r.err
}

func (r *recorder) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestQueueDeliversInOrderAndDrainsOnStop(t *testing.T) {
	rec := &recorder{err: errors.New("smtp down")}
	q := NewQueue(rec, 8, time.Second, discardLogger)
	q.Start()

	for _, to := range []string{"a@x.test", "b@x.test", "c@x.test"} {
		assert.NoError(t, q.AddressShared(context.Background(), Share{Recipient: to}))
	}
	q.Stop()

	assert.Equal(t, []string{"a@x.test", "b@x.test", "c@x.test"}, rec.recipients())

	assert.NoError(t, q.AddressShared(context.Background(), Share{Recipient: "late@x.test"}))
	assert.Len(t, rec.recipients(), 3)
}

func TestQueueDropsWhenFull(t *testing.T) {
	rec := &recorder{gate: make(chan struct{})}
	q := NewQueue(rec, 1, time.Second, discardLogger)
	q.Start()

	// The worker takes the first share and blocks on the gate; the second
	// fills the buffer; the third is dropped.
	assert.NoError(t, q.AddressShared(context.Background(), Share{Recipient: "1"}))
	assert.Eventually(t, func() bool { return len(q.pending) == 0 }, time.Second, time.Millisecond)
	assert.NoError(t, q.AddressShared(context.Background(), Share{Recipient: "2"}))
	assert.NoError(t, q.AddressShared(context.Background(), Share{Recipient: "3"}))

	close(rec.gate)
	q.Stop()
	assert.Equal(t, []string{"1", "2"}, rec.recipients())
}

func TestQueueRejectsAfterStop(t *testing.T) {
	q := NewQueue(&recorder{}, 8, time.Second, discardLogger)
	q.Start()
	q.Stop()

	for range 50 {
		assert.NoError(t, q.AddressShared(context.Background(), Share{Recipient: "late@x.test"}))
	}
	assert.Empty(t, q.pending, "nothing is buffered once the worker is gone")
}
