package batch

// Buffer is a fixed-capacity ordered set of slots. Slot indices are stable
// until the buffer is released.
type Buffer[T any] struct {
	slots []T
}

// NewBuffer allocates a buffer with provided capacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{
		slots: make([]T, 0, capacity),
	}
}

// Len returns number of occupied slots.
func (b *Buffer[T]) Len() int {
	return len(b.slots)
}

// Cap returns capacity of the buffer.
func (b *Buffer[T]) Cap() int {
	return cap(b.slots)
}

// Full returns true if all slots are occupied.
func (b *Buffer[T]) Full() bool {
	return len(b.slots) == cap(b.slots)
}

// Put occupies the next free slot. Put on a full buffer panics.
func (b *Buffer[T]) Put(v T) {
	if b.Full() {
		panic("put into full buffer")
	}
	b.slots = append(b.slots, v)
}

// Slots returns occupied slots. Writes to the returned slice are written
// to the buffer.
func (b *Buffer[T]) Slots() []T {
	return b.slots
}

// Set overwrites the slot at index i.
func (b *Buffer[T]) Set(i int, v T) {
	b.slots[i] = v
}

// permute moves the value at position i to position perm[i].
func (b *Buffer[T]) permute(perm []int) {
	if perm == nil {
		return
	}
	permuted := make([]T, len(b.slots), cap(b.slots))
	for i, j := range perm {
		permuted[j] = b.slots[i]
	}
	b.slots = permuted
}

// release hands occupied slots over and leaves buffer empty.
func (b *Buffer[T]) release() []T {
	out := b.slots
	b.slots = nil
	return out
}
