package noisecore

import "sync"

// fifoMutex is a ticket lock: waiters are granted the lock in the exact
// order they called Lock, unlike sync.Mutex which makes no ordering
// guarantee. The secured channel keeps one of these per direction
// (spec.md §5.4) so concurrent writers assign nonces to the wire in
// arrival order rather than racing.
type fifoMutex struct {
	mu   sync.Mutex
	cond *sync.Cond

	next   uint64 // ticket currently allowed to proceed
	ticket uint64 // next ticket to hand out
}

func newFIFOMutex() *fifoMutex {
	m := &fifoMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Lock blocks until it is this caller's turn, in call order.
func (m *fifoMutex) Lock() {
	m.mu.Lock()
	my := m.ticket
	m.ticket++
	for m.next != my {
		m.cond.Wait()
	}
	m.mu.Unlock()
}

// Unlock releases the lock, waking whichever waiter holds the next ticket.
func (m *fifoMutex) Unlock() {
	m.mu.Lock()
	m.next++
	m.cond.Broadcast()
	m.mu.Unlock()
}
