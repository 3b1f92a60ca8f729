package navigation

import "sync"

// BackStack is the navigation stack owned by one screen session. Every change
// is reported to the OnChange callback with the new top entry.
type BackStack struct {
	mu       sync.Mutex
	entries  []Destination
	onChange func(Destination)
}

func NewBackStack(start Destination) *BackStack {
	return &BackStack{entries: []Destination{start}}
}

// OnChange sets the callback run after every push or pop. It runs outside the
// stack's lock, on the goroutine that changed the stack.
func (b *BackStack) OnChange(fn func(Destination)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *BackStack) Navigate(dest Destination) {
	b.mu.Lock()
	b.entries = append(b.entries, dest)
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn(dest)
	}
}

// Pop removes the top entry. The last entry is never removed; false is
// returned in that case.
func (b *BackStack) Pop() bool {
	b.mu.Lock()
	if len(b.entries) <= 1 {
		b.mu.Unlock()
		return false
	}
	b.entries = b.entries[:len(b.entries)-1]
	top := b.entries[len(b.entries)-1]
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn(top)
	}
	return true
}

func (b *BackStack) Current() Destination {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries[len(b.entries)-1]
}

// Entries returns a copy of the stack, bottom first.
func (b *BackStack) Entries() []Destination {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Destination(nil), b.entries...)
}

func (b *BackStack) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
