package ahadi

// recentList keeps the newest items first, bounded by limit.
type recentList[T any] struct {
	items []T
	limit int
}

func newRecentList[T any](limit int) *recentList[T] {
	return &recentList[T]{limit: limit}
}

func (l *recentList[T]) push(v T) {
	keep := min(len(l.items), l.limit-1)
	next := make([]T, 0, keep+1)
	next = append(next, v)
	l.items = append(next, l.items[:keep]...)
}

func (l *recentList[T]) snapshot() []T {
	return append([]T(nil), l.items...)
}

func (l *recentList[T]) clear() { l.items = nil }
