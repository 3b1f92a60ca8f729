package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/metrics"
)

// Subscription delivers a freshly mapped value every time the underlying data
// changes. Updates is closed when the subscription ends; Err then reports why,
// or nil after Unsubscribe.
type Subscription[V any] struct {
	updates chan V
	cancel  context.CancelFunc
	it      docstore.SnapshotIterator
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func subscribe[V any](ctx context.Context, it docstore.SnapshotIterator, collection string, log *logrus.Entry, mapFn func([]docstore.Document) V) *Subscription[V] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[V]{
		updates: make(chan V),
		cancel:  cancel,
		it:      it,
		done:    make(chan struct{}),
	}
	gauge := metrics.ActiveSubscriptions.WithLabelValues(collection)
	gauge.Inc()

	go func() {
		defer close(s.done)
		defer close(s.updates)
		defer gauge.Dec()
		defer it.Stop()

		for {
			docs, err := it.Next()
			if err != nil {
				if !errors.Is(err, docstore.ErrStopped) && ctx.Err() == nil {
					log.WithError(err).Warn("live query failed")
					s.setErr(err)
				}
				return
			}
			v := mapFn(docs)
			select {
			case s.updates <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Cancelling the parent context ends the subscription too.
	go func() {
		select {
		case <-ctx.Done():
			it.Stop()
		case <-s.done:
		}
	}()
	return s
}

// Updates returns the channel of mapped results.
func (s *Subscription[V]) Updates() <-chan V {
	return s.updates
}

func (s *Subscription[V]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription[V]) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Unsubscribe stops the live query and waits for delivery to end. No value is
// sent on Updates after it returns.
func (s *Subscription[V]) Unsubscribe() {
	s.cancel()
	s.it.Stop()
	<-s.done
}

// Done is closed once the subscription has ended.
func (s *Subscription[V]) Done() <-chan struct{} {
	return s.done
}
