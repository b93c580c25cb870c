package transport

import "sync"

// StopLatch is the one-shot "stop at end of track" flag: armed, it
// converts the next natural track end into a full stop and clears
// itself.
type StopLatch struct {
	mu    sync.Mutex
	armed bool
}

// Arm sets or clears the latch.
func (l *StopLatch) Arm(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.armed = on
}

// Armed reports the latch state without consuming it.
func (l *StopLatch) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.armed
}

// Consume returns whether the latch was armed and clears it.
func (l *StopLatch) Consume() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	armed := l.armed
	l.armed = false
	return armed
}
