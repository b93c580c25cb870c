package transport

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSleepTimerExpires(t *testing.T) {
	expired := make(chan struct{})
	timer := NewSleepTimer(func() { close(expired) }, newTestLogger())
	timer.Interval = 5 * time.Millisecond

	timer.Set(20 * time.Millisecond)
	if timer.Deadline() == nil {
		t.Fatal("Expected a pending deadline after Set")
	}

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep timer never expired")
	}

	// The deadline clears once the timer fires.
	deadlineCleared := false
	for i := 0; i < 50; i++ {
		if timer.Deadline() == nil {
			deadlineCleared = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !deadlineCleared {
		t.Error("Expected deadline to clear after expiry")
	}
}

func TestSleepTimerCancel(t *testing.T) {
	var fired atomic.Bool
	timer := NewSleepTimer(func() { fired.Store(true) }, newTestLogger())
	timer.Interval = 5 * time.Millisecond

	timer.Set(30 * time.Millisecond)
	timer.Cancel()

	if timer.Deadline() != nil {
		t.Error("Expected no deadline after Cancel")
	}

	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Error("Cancelled timer must not fire")
	}
}

func TestSleepTimerReplacesDeadline(t *testing.T) {
	var fires atomic.Int32
	timer := NewSleepTimer(func() { fires.Add(1) }, newTestLogger())
	timer.Interval = 5 * time.Millisecond

	timer.Set(time.Hour)
	timer.Set(20 * time.Millisecond)

	deadline := timer.Deadline()
	if deadline == nil || time.Until(*deadline) > time.Minute {
		t.Fatal("Expected the later Set to replace the deadline")
	}

	fired := false
	for i := 0; i < 100; i++ {
		if fires.Load() > 0 {
			fired = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !fired {
		t.Fatal("Replaced timer never fired")
	}

	time.Sleep(50 * time.Millisecond)
	if n := fires.Load(); n != 1 {
		t.Errorf("Expected exactly one expiry, got %d", n)
	}
}
