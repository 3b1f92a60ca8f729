package screens

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/repository"
)

// Holder is the state holder of one screen.
type Holder interface {
	Route() navigation.Route
	// Snapshot returns the current state, ready to be serialized.
	Snapshot() any
	// Watch calls fn with every new state until the returned stop function runs.
	Watch(fn func(snapshot any)) (stop func())
	// Notices returns the one-shot notification channel, or nil.
	Notices() <-chan Notice
	// Start subscribes to the screen's live data.
	Start(ctx context.Context) error
	// Handle runs one intent. Unknown names return ErrUnknownIntent.
	Handle(ctx context.Context, in Intent) error
	// Close ends every live subscription and waits for their goroutines.
	Close()
}

// screen implements the state plumbing shared by all holders.
type screen[S any] struct {
	route   navigation.Route
	state   *State[S]
	notices *Notices
	log     *logrus.Entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	closers []func()
	wg      sync.WaitGroup
}

func (s *screen[S]) init(route navigation.Route, initial S) {
	s.route = route
	s.state = NewState(initial)
	s.log = logger.For("screens").WithField("route", string(route))
}

func (s *screen[S]) Route() navigation.Route {
	return s.route
}

func (s *screen[S]) Snapshot() any {
	return s.state.Get()
}

func (s *screen[S]) Watch(fn func(any)) func() {
	return s.state.Subscribe(func(v S) { fn(v) })
}

func (s *screen[S]) Notices() <-chan Notice {
	if s.notices == nil {
		return nil
	}
	return s.notices.C()
}

// begin derives the context live subscriptions run under.
func (s *screen[S]) begin(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, s.cancel = context.WithCancel(ctx)
	return ctx
}

func (s *screen[S]) onClose(fn func()) {
	s.mu.Lock()
	s.closers = append(s.closers, fn)
	s.mu.Unlock()
}

func (s *screen[S]) Close() {
	s.mu.Lock()
	cancel, closers := s.cancel, s.closers
	s.cancel, s.closers = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, fn := range closers {
		fn()
	}
	s.wg.Wait()
}

// errorText is the message shown to the user. Coded errors show only their
// message, not the wrapped cause.
func (s *screen[S]) errorText(err error) *string {
	msg := err.Error()
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return &msg
}

// follow applies every update of sub until the subscription ends or the screen
// closes.
func follow[S, V any](s *screen[S], sub *repository.Subscription[V], apply func(V)) {
	s.onClose(sub.Unsubscribe)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for v := range sub.Updates() {
			apply(v)
		}
		if err := sub.Err(); err != nil {
			s.log.WithError(err).Warn("live data stopped")
		}
	}()
}
