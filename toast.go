package ahadi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration is how long a toast stays visible unless told otherwise.
const DefaultToastDuration = 5 * time.Second

// ToastType is the severity shown with a toast.
type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastInfo    ToastType = "info"
	ToastWarning ToastType = "warning"
)

// Toast is one transient user-facing notice.
type Toast struct {
	ID        uuid.UUID
	Type      ToastType
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// ToastStore holds the visible toasts. Toasts with a positive duration are
// dismissed automatically. Each store is independent; share one through a
// context with ContextWithToasts.
type ToastStore struct {
	clock Clock

	mu        sync.Mutex
	toasts    []Toast
	timers    map[uuid.UUID]Timer
	listeners []*subscription[[]Toast]
	closed    bool
}

// ToastOption configures a ToastStore.
type ToastOption func(*ToastStore)

// WithToastClock sets the clock that drives auto-dismissal.
func WithToastClock(clock Clock) ToastOption {
	return func(s *ToastStore) { s.clock = clock }
}

// NewToastStore returns an empty store.
func NewToastStore(opts ...ToastOption) *ToastStore {
	s := &ToastStore{
		clock:  SystemClock(),
		timers: make(map[uuid.UUID]Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Success shows a success toast for DefaultToastDuration.
func (s *ToastStore) Success(message string) uuid.UUID {
	return s.Show(ToastSuccess, message, DefaultToastDuration)
}

// Error shows an error toast for DefaultToastDuration.
func (s *ToastStore) Error(message string) uuid.UUID {
	return s.Show(ToastError, message, DefaultToastDuration)
}

// Info shows an info toast for DefaultToastDuration.
func (s *ToastStore) Info(message string) uuid.UUID {
	return s.Show(ToastInfo, message, DefaultToastDuration)
}

// Warning shows a warning toast for DefaultToastDuration.
func (s *ToastStore) Warning(message string) uuid.UUID {
	return s.Show(ToastWarning, message, DefaultToastDuration)
}

// Show appends a toast. A duration of zero or less keeps it until dismissed.
func (s *ToastStore) Show(typ ToastType, message string, duration time.Duration) uuid.UUID {
	t := Toast{
		ID:        uuid.New(),
		Type:      typ,
		Message:   message,
		Duration:  duration,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return t.ID
	}
	s.toasts = append(s.toasts, t)
	if duration > 0 {
		id := t.ID
		s.timers[id] = s.clock.AfterFunc(duration, func() { s.Dismiss(id) })
	}
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return t.ID
}

// Dismiss removes a toast. Unknown ids are ignored.
func (s *ToastStore) Dismiss(id uuid.UUID) {
	s.mu.Lock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	idx := -1
	for i, t := range s.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.toasts = append(s.toasts[:idx:idx], s.toasts[idx+1:]...)
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
}

// Toasts returns the visible toasts, oldest first.
func (s *ToastStore) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toast(nil), s.toasts...)
}

// OnChange registers fn to receive the toast list after every change.
func (s *ToastStore) OnChange(fn func([]Toast)) (unsubscribe func()) {
	sub := &subscription[[]Toast]{fn: fn}
	s.mu.Lock()
	s.listeners = append(s.listeners, sub)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.listeners = removeSubscription(s.listeners, sub)
		s.mu.Unlock()
	}
}

// Close cancels pending expiries and drops all toasts.
func (s *ToastStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.listeners = nil
	s.closed = true
}

func (s *ToastStore) snapshotLocked() ([]Toast, []*subscription[[]Toast]) {
	return append([]Toast(nil), s.toasts...), append([]*subscription[[]Toast]{}, s.listeners...)
}

func notify[T any](subs []*subscription[T], v T) {
	for _, sub := range subs {
		sub.fn(v)
	}
}

type toastKey struct{}

// ContextWithToasts returns a context carrying store.
func ContextWithToasts(ctx context.Context, store *ToastStore) context.Context {
	return context.WithValue(ctx, toastKey{}, store)
}

// ToastsFromContext returns the store carried by ctx.
func ToastsFromContext(ctx context.Context) (*ToastStore, bool) {
	store, ok := ctx.Value(toastKey{}).(*ToastStore)
	return store, ok && store != nil
}
