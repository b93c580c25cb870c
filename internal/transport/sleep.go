package transport

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SleepTimer stops playback when a wall-clock deadline passes. A
// recurring check compares the clock against the deadline and fires the
// expire callback exactly once when crossed, then clears the deadline.
type SleepTimer struct {
	mu       sync.Mutex
	deadline time.Time
	cancel   chan struct{}

	// Interval is the deadline check cadence. Tests shorten it.
	Interval time.Duration

	onExpire func()
	logger   *logrus.Logger
}

// NewSleepTimer creates an idle timer; onExpire runs when a deadline
// passes.
func NewSleepTimer(onExpire func(), logger *logrus.Logger) *SleepTimer {
	return &SleepTimer{
		Interval: time.Second,
		onExpire: onExpire,
		logger:   logger,
	}
}

// Set arms the timer to expire after d, replacing any earlier deadline.
func (t *SleepTimer) Set(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		close(t.cancel)
	}
	t.deadline = time.Now().Add(d)
	t.cancel = make(chan struct{})

	t.logger.WithField("deadline", t.deadline).Info("Sleep timer set")
	go t.watch(t.cancel)
}

// Deadline returns the pending deadline, or nil when the timer is idle.
func (t *SleepTimer) Deadline() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadline.IsZero() {
		return nil
	}
	d := t.deadline
	return &d
}

// Cancel disarms the timer before expiry.
func (t *SleepTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
	t.deadline = time.Time{}
}

// watch polls the deadline until it passes or the timer is cancelled.
func (t *SleepTimer) watch(cancel chan struct{}) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.cancel != cancel {
				t.mu.Unlock()
				return
			}
			if time.Now().Before(t.deadline) {
				t.mu.Unlock()
				continue
			}
			t.deadline = time.Time{}
			t.cancel = nil
			t.mu.Unlock()

			t.logger.Info("Sleep timer expired, stopping playback")
			t.onExpire()
			return
		}
	}
}
