// Package screens holds one state holder per screen and the session that hosts
// them for a connected UI client.
package screens

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownIntent = errors.New("unknown intent")

// State is an observable value. Subscribers are called synchronously after every
// Set, in no particular order. Publishes are delivered one at a time in the order
// they were applied, so a subscriber must not write back to the same State.
type State[T any] struct {
	notifyMu sync.Mutex
	mu       sync.RWMutex
	value    T
	subs     map[int]func(T)
	nextID   int
}

func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial, subs: make(map[int]func(T))}
}

func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *State[T]) Set(v T) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	s.value = v
	subs := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update applies fn to the current value and publishes the result.
func (s *State[T]) Update(fn func(T) T) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	v := fn(s.value)
	s.value = v
	subs := make([]func(T), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(v)
	}
}

// Subscribe registers fn and returns the function that removes it.
func (s *State[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Notice is a transient message for the UI, shown once and not kept in state.
// ActionIntent names the intent the client sends back if the user takes the action.
type Notice struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	ActionLabel  string `json:"actionLabel,omitempty"`
	ActionIntent string `json:"actionIntent,omitempty"`
}

const (
	NoticeSnackbar = "snackbar"
	NoticeToast    = "toast"
)

// Notices is a one-shot notification channel. Notices sent while nobody reads
// are buffered up to a small limit; further ones are dropped.
type Notices struct {
	ch chan Notice
}

func NewNotices() *Notices {
	return &Notices{ch: make(chan Notice, 8)}
}

// Send queues n and reports whether it was accepted.
func (n *Notices) Send(notice Notice) bool {
	select {
	case n.ch <- notice:
		return true
	default:
		return false
	}
}

func (n *Notices) C() <-chan Notice {
	return n.ch
}

// Intent is a named user action with an optional JSON payload.
type Intent struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewIntent builds an intent with payload marshalled to JSON.
func NewIntent(name string, payload any) Intent {
	in := Intent{Name: name}
	if payload != nil {
		in.Payload, _ = json.Marshal(payload)
	}
	return in
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (in Intent) Decode(v any) error {
	if len(in.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(in.Payload, v); err != nil {
		return fmt.Errorf("intent %s: bad payload: %w", in.Name, err)
	}
	return nil
}

func unknownIntent(in Intent) error {
	return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Name)
}
