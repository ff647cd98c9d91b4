package dispatch

import (
	"sync"
)

// Mailbox is a thread-safe FIFO queue that never blocks senders. Its ring
// buffer doubles in size when it reaches 70% full.
type Mailbox[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Signalled (non-blocking, capacity 1) whenever an item is sent.
	ready chan struct{}

	// Stats
	totalReceived int64
	totalSent     int64
	resizeCount   int
}

// NewMailbox creates a mailbox with the given initial capacity.
func NewMailbox[T any](initialCapacity int) *Mailbox[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	m := &Mailbox[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		ready:    make(chan struct{}, 1),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Send appends an item. It returns false if the mailbox is closed.
func (m *Mailbox[T]) Send(item T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}

	threshold := (m.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if m.count+1 >= threshold {
		m.grow()
	}

	m.buf[m.tail] = item
	m.tail = (m.tail + 1) % m.capacity
	m.count++
	m.totalReceived++
	m.cond.Signal()
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready returns a channel that receives a value after items are sent. One
// signal may stand for many items; drain with DrainTo.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Receive removes and returns the oldest item, blocking until one is
// available. It returns false once the mailbox is closed and empty.
func (m *Mailbox[T]) Receive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.count == 0 && !m.closed {
		m.cond.Wait()
	}

	if m.count == 0 {
		var zero T
		return zero, false
	}
	return m.popLocked(), true
}

// TryReceive removes and returns the oldest item without blocking.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		var zero T
		return zero, false
	}
	return m.popLocked(), true
}

// DrainTo removes up to max items (all items when max <= 0) in FIFO order.
func (m *Mailbox[T]) DrainTo(max int) []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return nil
	}

	n := m.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = m.popLocked()
	}
	return result
}

// Close stops accepting items. Queued items can still be received.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.cond.Broadcast()
}

// Len returns the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Stats returns mailbox statistics.
func (m *Mailbox[T]) Stats() MailboxStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MailboxStats{
		Count:         m.count,
		Capacity:      m.capacity,
		TotalReceived: m.totalReceived,
		TotalSent:     m.totalSent,
		ResizeCount:   m.resizeCount,
	}
}

// MailboxStats contains mailbox statistics.
type MailboxStats struct {
	Count         int
	Capacity      int
	TotalReceived int64 // Items accepted by Send
	TotalSent     int64 // Items handed to receivers
	ResizeCount   int
}

// popLocked removes the head item. Caller must hold the lock and ensure
// count > 0.
func (m *Mailbox[T]) popLocked() T {
	item := m.buf[m.head]
	var zero T
	m.buf[m.head] = zero
	m.head = (m.head + 1) % m.capacity
	m.count--
	m.totalSent++
	return item
}

// grow doubles the capacity. Caller must hold the lock.
func (m *Mailbox[T]) grow() {
	newCapacity := m.capacity * 2
	newBuf := make([]T, newCapacity)

	if m.count > 0 {
		if m.head < m.tail {
			copy(newBuf, m.buf[m.head:m.tail])
		} else {
			n := copy(newBuf, m.buf[m.head:])
			copy(newBuf[n:], m.buf[:m.tail])
		}
	}

	m.buf = newBuf
	m.head = 0
	m.tail = m.count
	m.capacity = newCapacity
	m.resizeCount++
}
