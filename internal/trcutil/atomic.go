package trcutil

import "sync"

// Atomic set and get operations for any type.
type Atomic[T any] struct {
	mtx sync.Mutex
	val T
	set bool
}

// Set the value to val.
func (a *Atomic[T]) Set(val T) { a.mtx.Lock(); defer a.mtx.Unlock(); a.val, a.set = val, true }

// Get the current value, and whether it was ever set.
func (a *Atomic[T]) Get() (T, bool) { a.mtx.Lock(); defer a.mtx.Unlock(); return a.val, a.set }
