package trcringbuf

// RingBuffer is an ordered log of items, which is either unbounded, or bounded
// to a maximum size, in which case adding to a full buffer overwrites the
// oldest item. RingBuffer is not safe for concurrent use; callers are expected
// to provide their own synchronization.
type RingBuffer[T any] struct {
	buf []T // grows up to max, or forever if max is zero
	max int // zero means unbounded
	cur int // when full, index of the oldest item and the next write
}

// NewRingBuffer returns an empty ring buffer which holds at most max items. If
// max is zero or negative, the buffer is unbounded.
func NewRingBuffer[T any](max int) *RingBuffer[T] {
	if max < 0 {
		max = 0
	}
	return &RingBuffer[T]{
		max: max,
	}
}

// Add the value to the ring buffer. If the ring buffer was full and an item was
// overwritten by this add, return that item and true, otherwise return a zero
// value item and false.
func (rb *RingBuffer[T]) Add(val T) (dropped T, ok bool) {
	// Unbounded, or not yet full: plain append.
	if rb.max <= 0 || len(rb.buf) < rb.max {
		rb.buf = append(rb.buf, val)
		return dropped, false
	}

	// Full: overwrite the oldest item, which is at the cursor.
	dropped, ok = rb.buf[rb.cur], true
	rb.buf[rb.cur] = val

	// Advance the cursor to the new oldest item.
	rb.cur += 1
	if rb.cur >= len(rb.buf) {
		rb.cur -= len(rb.buf)
	}

	return dropped, ok
}

// Slice returns a copy of every value in the ring buffer, oldest first. The
// returned slice is never nil.
func (rb *RingBuffer[T]) Slice() []T {
	out := make([]T, 0, len(rb.buf))
	out = append(out, rb.buf[rb.cur:]...)
	out = append(out, rb.buf[:rb.cur]...)
	return out
}

// Len returns the number of values in the ring buffer.
func (rb *RingBuffer[T]) Len() int {
	return len(rb.buf)
}

// Max returns the maximum number of values, or zero if unbounded.
func (rb *RingBuffer[T]) Max() int {
	return rb.max
}

// Reset drops every value and releases the underlying memory.
func (rb *RingBuffer[T]) Reset() {
	rb.buf = nil
	rb.cur = 0
}
