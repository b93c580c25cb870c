package engine

import (
	"fmt"
	"sync"
	"time"

	"sonata/pkg/models"

	"github.com/sirupsen/logrus"
)

// Status is one asynchronous report from an audio resource.
type Status struct {
	Position  time.Duration
	Duration  time.Duration
	Playing   bool
	Completed bool
}

// StatusFunc receives resource status reports.
type StatusFunc func(Status)

// Resource is a single loaded audio stream. Implementations push Status
// reports to the callback supplied at creation until Close is called.
// All operations may complete asynchronously on the device side.
type Resource interface {
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Close() error
}

// ResourceFactory allocates a resource bound to one track. The factory
// must keep invoking onStatus until the resource is closed.
type ResourceFactory func(track models.Track, onStatus StatusFunc) (Resource, error)

// PlaybackError reports a track that could not be loaded or played. The
// engine stays idle; surfacing the failure is caller policy.
type PlaybackError struct {
	Track models.Track
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed for %q: %v", e.Track.Title, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// Engine owns the single live audio resource. It loads, starts, pauses
// and disposes resources; it never decides what plays next. Track
// sequencing is signalled upward through the TrackEnded handler.
//
// Each resource is tagged with a generation number. Status callbacks
// carry the generation they were created under, so a late report from
// a disposed resource is ignored instead of corrupting the state of
// its replacement.
type Engine struct {
	mu      sync.Mutex
	factory ResourceFactory
	logger  *logrus.Logger

	resource   Resource
	track      *models.Track
	generation uint64

	// playing reflects the requested state optimistically; the next
	// status report corrects it.
	playing  bool
	position time.Duration
	duration time.Duration

	onStatus   func(track models.Track, st Status)
	onTrackEnd func(track models.Track)
}

// New creates an engine that allocates resources through factory.
func New(factory ResourceFactory, logger *logrus.Logger) *Engine {
	return &Engine{factory: factory, logger: logger}
}

// SetHandlers installs the upward callbacks: onStatus for continuous
// position/duration/playing reports, onTrackEnd when a track finishes
// naturally. Both may be nil. Handlers are invoked without the engine
// lock held, so they may call back into the engine.
func (e *Engine) SetHandlers(onStatus func(models.Track, Status), onTrackEnd func(models.Track)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatus = onStatus
	e.onTrackEnd = onTrackEnd
}

// Current returns the loaded track, or nil when idle.
func (e *Engine) Current() *models.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.track == nil {
		return nil
	}
	t := *e.track
	return &t
}

// IsPlaying reports the optimistic playing state.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Position returns the last reported playback position.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Duration returns the last reported total duration.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Play starts the track. If it is already the loaded track, playback
// toggles between paused and playing instead of reloading, avoiding an
// audible restart. Otherwise any existing resource is disposed first.
func (e *Engine) Play(track models.Track) error {
	e.mu.Lock()

	if e.resource != nil && e.track != nil && e.track.ID == track.ID {
		var err error
		if e.playing {
			e.playing = false
			err = e.resource.Pause()
		} else {
			e.playing = true
			err = e.resource.Play()
		}
		e.mu.Unlock()
		return err
	}

	return e.startLocked(track, true)
}

// Restart force-reloads the track even when it is already current, used
// for repeat-one replay and wrap-around to the same track.
func (e *Engine) Restart(track models.Track) error {
	e.mu.Lock()
	return e.startLocked(track, true)
}

// Load binds a resource to the track without starting playback; session
// restore uses it so a relaunch shows continuity silently.
func (e *Engine) Load(track models.Track) error {
	e.mu.Lock()
	return e.startLocked(track, false)
}

// startLocked replaces the live resource. It is entered with the lock
// held and releases it before returning.
func (e *Engine) startLocked(track models.Track, play bool) error {
	e.disposeLocked()

	gen := e.generation
	res, err := e.factory(track, func(st Status) {
		e.apply(gen, st)
	})
	if err != nil {
		e.track = nil
		e.playing = false
		e.mu.Unlock()
		e.logger.WithError(err).WithField("track_id", track.ID).Error("Failed to create audio resource")
		return &PlaybackError{Track: track, Err: err}
	}

	t := track
	e.resource = res
	e.track = &t
	e.playing = play
	e.position = 0
	e.duration = time.Duration(track.Duration) * time.Millisecond
	e.mu.Unlock()

	if play {
		if err := res.Play(); err != nil {
			e.Stop()
			return &PlaybackError{Track: track, Err: err}
		}
	}
	return nil
}

// Pause pauses the loaded resource; a no-op when idle.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resource == nil {
		return nil
	}
	e.playing = false
	return e.resource.Pause()
}

// Resume resumes the loaded resource; a no-op when idle.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resource == nil {
		return nil
	}
	e.playing = true
	return e.resource.Play()
}

// Seek jumps to the given position. Bounds are clamped to the known
// duration; the resource is expected to clamp again on its side.
func (e *Engine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resource == nil {
		return nil
	}
	if pos < 0 {
		pos = 0
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	e.position = pos
	return e.resource.Seek(pos)
}

// Stop disposes the resource fully and returns the engine to idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.disposeLocked()
	e.track = nil
	e.playing = false
	e.position = 0
	e.duration = 0
	e.mu.Unlock()
}

// disposeLocked detaches the current resource's callbacks (by bumping
// the generation) before closing it, so a stale "completed" from the
// old resource cannot trigger an advance on its replacement.
func (e *Engine) disposeLocked() {
	e.generation++
	if e.resource != nil {
		if err := e.resource.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close audio resource")
		}
		e.resource = nil
	}
}

// apply folds one resource status report into engine state, in arrival
// order. Reports from a superseded generation are dropped.
func (e *Engine) apply(gen uint64, st Status) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}

	e.position = st.Position
	if st.Duration > 0 {
		e.duration = st.Duration
	}
	e.playing = st.Playing && !st.Completed

	var track models.Track
	if e.track != nil {
		track = *e.track
	}
	onStatus := e.onStatus
	onTrackEnd := e.onTrackEnd
	e.mu.Unlock()

	if onStatus != nil {
		onStatus(track, st)
	}
	if st.Completed && onTrackEnd != nil {
		onTrackEnd(track)
	}
}
