package lazy

import "sync/atomic"

// Value is a publish-once holder for a lazily computed field.
// Concurrent first computations are allowed to race: exactly one value
// becomes canonical and losers observe the winner's value. After a
// successful publish the value never changes.
type Value[T any] struct {
	p atomic.Pointer[T]
}

// Load returns the published value, if any.
func (v *Value[T]) Load() (T, bool) {
	if p := v.p.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Publish installs val unless another goroutine published first, and
// returns the value that ended up stored. A losing candidate is simply
// dropped; callers must not assume they are the only writer.
func (v *Value[T]) Publish(val T) T {
	if v.p.CompareAndSwap(nil, &val) {
		return val
	}
	return *v.p.Load()
}
