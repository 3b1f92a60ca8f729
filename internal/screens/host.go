package screens

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/metrics"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/services"
)

var ErrHostClosed = errors.New("screen host is closed")

type FrameType string

const (
	FrameState    FrameType = "state"
	FrameNotice   FrameType = "notice"
	FrameNavigate FrameType = "navigate"
	FrameError    FrameType = "error"
	FrameSession  FrameType = "session"
)

// Session tells the client who is signed in. Token is empty after sign-out.
type Session struct {
	SignedIn bool   `json:"signedIn"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Frame is one message sent to the UI client.
type Frame struct {
	Type    FrameType                `json:"type"`
	Route   navigation.Route         `json:"route,omitempty"`
	Arg     string                   `json:"arg,omitempty"`
	State   any                      `json:"state,omitempty"`
	Notice  *Notice                  `json:"notice,omitempty"`
	Stack   []navigation.Destination `json:"stack,omitempty"`
	Session *Session                 `json:"session,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// Host runs the screens of one connected client. It owns the back stack and
// keeps exactly one holder active: the one for the top entry. Navigation done
// while an intent runs takes effect when the intent returns.
type Host struct {
	auth  *services.AuthClient
	nav   *navigation.Navigator
	stack *navigation.BackStack
	graph *navigation.Graph[Holder]
	log   *logrus.Entry

	frames     chan Frame
	done       chan struct{}
	closeOnce  sync.Once
	moved      atomic.Bool
	authHandle int

	mu         sync.Mutex
	ctx        context.Context
	active     Holder
	dest       navigation.Destination
	stopWatch  func()
	stopNotice chan struct{}
	noticeWG   sync.WaitGroup
	started    bool
	closed     bool
}

func NewHost(deps Deps, auth *services.AuthClient) *Host {
	h := &Host{
		auth:   auth,
		nav:    navigation.NewNavigator(),
		stack:  navigation.NewBackStack(navigation.Destination{Route: navigation.StartDestination}),
		log:    logger.For("screens"),
		frames: make(chan Frame, 64),
		done:   make(chan struct{}),
	}
	h.stack.OnChange(func(navigation.Destination) { h.moved.Store(true) })
	h.nav.Initialize(h.stack)
	h.graph = NewGraph(deps, h.nav, auth)
	h.authHandle = auth.AddStateListener(func(id *services.Identity) {
		h.emit(Frame{Type: FrameSession, Session: h.session(id)})
	})
	return h
}

// Frames delivers every frame for the client in order.
func (h *Host) Frames() <-chan Frame {
	return h.frames
}

// Done is closed once Close has been called.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

func (h *Host) Navigator() *navigation.Navigator {
	return h.nav
}

func (h *Host) Auth() *services.AuthClient {
	return h.auth
}

// Current returns the destination of the active holder.
func (h *Host) Current() navigation.Destination {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dest
}

// Start activates the start destination. ctx bounds every live subscription of
// the session.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	if h.started {
		return nil
	}
	h.started = true
	h.ctx = ctx
	metrics.ScreenSessions.Inc()
	h.emit(Frame{Type: FrameSession, Session: h.session(h.auth.CurrentUser())})

	h.activate(h.stack.Current())
	h.settle()
	return nil
}

// Dispatch runs in on the active holder and applies any navigation it caused.
func (h *Host) Dispatch(ctx context.Context, in Intent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.active == nil {
		return ErrHostClosed
	}

	route := h.active.Route()
	err := h.active.Handle(ctx, in)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		h.log.WithError(err).WithFields(logrus.Fields{
			"route":  string(route),
			"intent": in.Name,
		}).Warn("intent failed")
		h.emit(Frame{Type: FrameError, Route: route, Error: err.Error()})
	}
	metrics.ScreenIntents.WithLabelValues(string(route), outcome).Inc()

	h.settle()
	return err
}

func (h *Host) session(id *services.Identity) *Session {
	if id == nil {
		return &Session{}
	}
	return &Session{SignedIn: true, UserID: id.UserID, Username: id.Username, Token: h.auth.Token()}
}

// Close ends the active holder and stops frame delivery.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.auth.RemoveStateListener(h.authHandle)
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.deactivate()
	if h.started {
		metrics.ScreenSessions.Dec()
	}
}

// settle follows the back stack until the active holder matches its top entry.
// Holders may navigate while starting, so this loops.
func (h *Host) settle() {
	for h.moved.Swap(false) {
		h.activate(h.stack.Current())
	}
}

func (h *Host) activate(dest navigation.Destination) {
	h.deactivate()

	holder, err := h.graph.Build(dest)
	if err != nil {
		h.log.WithError(err).WithField("route", dest.String()).Error("cannot build screen")
		h.emit(Frame{Type: FrameError, Route: dest.Route, Arg: dest.Arg, Error: err.Error()})
		return
	}
	h.active, h.dest = holder, dest
	h.emit(Frame{Type: FrameNavigate, Route: dest.Route, Arg: dest.Arg, Stack: h.stack.Entries()})

	h.stopWatch = holder.Watch(func(state any) {
		h.emit(Frame{Type: FrameState, Route: dest.Route, Arg: dest.Arg, State: state})
	})
	if notices := holder.Notices(); notices != nil {
		stop := make(chan struct{})
		h.stopNotice = stop
		h.noticeWG.Add(1)
		go func() {
			defer h.noticeWG.Done()
			for {
				select {
				case n := <-notices:
					h.emit(Frame{Type: FrameNotice, Route: dest.Route, Arg: dest.Arg, Notice: &n})
				case <-stop:
					return
				}
			}
		}()
	}

	if err := holder.Start(h.ctx); err != nil {
		h.log.WithError(err).WithField("route", dest.String()).Error("screen failed to start")
		h.emit(Frame{Type: FrameError, Route: dest.Route, Arg: dest.Arg, Error: err.Error()})
	}
	h.emit(Frame{Type: FrameState, Route: dest.Route, Arg: dest.Arg, State: holder.Snapshot()})
}

func (h *Host) deactivate() {
	if h.active == nil {
		return
	}
	if h.stopWatch != nil {
		h.stopWatch()
		h.stopWatch = nil
	}
	if h.stopNotice != nil {
		close(h.stopNotice)
		h.noticeWG.Wait()
		h.stopNotice = nil
	}
	h.active.Close()
	h.active = nil
}

func (h *Host) emit(f Frame) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.frames <- f:
	case <-h.done:
	}
}
