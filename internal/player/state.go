package player

import (
	"sync"
	"time"

	"sonata/pkg/models"
)

// State is the reactive playback snapshot exposed to UI layers.
type State struct {
	Track         *models.Track         `json:"track,omitempty"`
	IsPlaying     bool                  `json:"isPlaying"`
	Position      int64                 `json:"position"` // in milliseconds
	Duration      int64                 `json:"duration"` // in milliseconds
	ShuffleOn     bool                  `json:"shuffleOn"`
	RepeatMode    models.RepeatMode     `json:"repeatMode"`
	SleepTimerEnd *time.Time            `json:"sleepTimerEnd,omitempty"`
	QueueLength   int                   `json:"queueLength"`
	Source        models.PlaybackSource `json:"source"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// StateManager holds the current state and notifies subscribers on
// every change.
type StateManager struct {
	state     *State
	mutex     sync.RWMutex
	listeners []chan *State
}

// NewStateManager creates a state manager with an idle initial state.
func NewStateManager() *StateManager {
	return &StateManager{
		state: &State{
			RepeatMode: models.RepeatNone,
			UpdatedAt:  time.Now(),
		},
		listeners: make([]chan *State, 0),
	}
}

// Get returns a copy of the current state (thread-safe).
func (sm *StateManager) Get() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	return *sm.state
}

// UpdateTrack sets the currently loaded track.
func (sm *StateManager) UpdateTrack(track *models.Track) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if track == nil {
		sm.state.Track = nil
	} else {
		t := *track
		sm.state.Track = &t
	}
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// UpdateProgress folds in one status report: position, duration and the
// authoritative playing flag.
func (sm *StateManager) UpdateProgress(position, duration int64, isPlaying bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Position = position
	if duration > 0 {
		sm.state.Duration = duration
	}
	sm.state.IsPlaying = isPlaying
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// UpdatePlayback sets the optimistic playing flag.
func (sm *StateManager) UpdatePlayback(isPlaying bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.IsPlaying = isPlaying
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// UpdateModes sets the shuffle and repeat modes.
func (sm *StateManager) UpdateModes(shuffleOn bool, repeat models.RepeatMode) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.ShuffleOn = shuffleOn
	sm.state.RepeatMode = repeat
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// UpdateQueue records the queue length and where the queue came from.
func (sm *StateManager) UpdateQueue(length int, source models.PlaybackSource) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.QueueLength = length
	sm.state.Source = source
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// UpdateSleepTimer records the pending sleep deadline, or clears it.
func (sm *StateManager) UpdateSleepTimer(deadline *time.Time) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.SleepTimerEnd = deadline
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// ClearTrack returns the state to idle (when playback stops).
func (sm *StateManager) ClearTrack() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Track = nil
	sm.state.IsPlaying = false
	sm.state.Position = 0
	sm.state.Duration = 0
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Subscribe adds a listener for state changes.
func (sm *StateManager) Subscribe() <-chan *State {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	ch := make(chan *State, 16) // buffered to keep notifiers from blocking
	sm.listeners = append(sm.listeners, ch)
	return ch
}

// Unsubscribe removes a listener; call it when done to avoid leaks.
func (sm *StateManager) Unsubscribe(ch <-chan *State) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for i, listener := range sm.listeners {
		if listener == ch {
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends state updates to all subscribers (must be
// called with the lock held). A listener that stopped draining is
// dropped rather than blocking everyone else.
func (sm *StateManager) notifyListeners() {
	stateCopy := *sm.state
	for i := 0; i < len(sm.listeners); i++ {
		select {
		case sm.listeners[i] <- &stateCopy:
		default:
			close(sm.listeners[i])
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			i--
		}
	}
}
