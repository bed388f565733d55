package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Queue delivers notifications on a background goroutine so a slow mail
// transport never holds up the request that shared the address.
//
// AddressShared only enqueues. When the buffer is full the notification is
// dropped with a warning. Stop delivers whatever is still buffered.
type Queue struct {
	next    Notifier
	logger  *slog.Logger
	timeout time.Duration

	pending chan Share
	done    chan struct{}
	closing sync.RWMutex // held for writing while done is closed
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewQueue wraps next. size is the buffer length; each delivery gets its
// own timeout.
func NewQueue(next Notifier, size int, timeout time.Duration, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Queue{
		next:    next,
		logger:  logger,
		timeout: timeout,
		pending: make(chan Share, size),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Calling it twice is harmless.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.wg.Add(1)
		go q.worker()
	})
}

// Stop ends the worker after it drains the buffer.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.closing.Lock()
		close(q.done)
		q.closing.Unlock()
		q.wg.Wait()
	})
}

func (q *Queue) AddressShared(_ context.Context, s Share) error {
	q.closing.RLock()
	defer q.closing.RUnlock()

	// Checked first: once done is closed no worker is left to drain pending.
	select {
	case <-q.done:
		q.logger.Warn("notification dropped after shutdown", slog.String("recipient", s.Recipient))
		return nil
	default:
	}

	select {
	case q.pending <- s:
	default:
		q.logger.Warn("notification queue full, dropping",
			slog.String("addressID", s.AddressID),
			slog.String("recipient", s.Recipient),
		)
	}
	return nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case s := <-q.pending:
			q.deliver(s)
		case <-q.done:
			for {
				select {
				case s := <-q.pending:
					q.deliver(s)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(s Share) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.AddressShared(ctx, s); err != nil {
		q.logger.Warn("share notification failed",
			slog.String("addressID", s.AddressID),
			slog.String("recipient", s.Recipient),
			slog.String("error", err.Error()),
		)
	}
}
