package player

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"sonata/internal/engine"
	"sonata/internal/library"
	"sonata/internal/playlist"
	"sonata/internal/queue"
	"sonata/internal/session"
	"sonata/internal/transport"
	"sonata/pkg/models"

	"github.com/sirupsen/logrus"
)

// Service is the playback session: the one object UI layers talk to.
// It composes the library, playlist store, queue, engine and transport
// policy, snapshots the session on every change, and publishes state
// through its StateManager. Exactly one Service exists per process; it
// is constructed explicitly and passed by reference, never a global.
//
// All operations are safe to call from any goroutine. Queue and mode
// mutations complete fully before the method returns, so a caller never
// observes a half-applied edit.
type Service struct {
	logger *logrus.Logger

	library   *library.Manager
	playlists *playlist.Store
	engine    *engine.Engine
	sessions  *session.Manager
	state     *StateManager

	sleep *transport.SleepTimer
	latch transport.StopLatch
	rng   *rand.Rand

	// mu guards queue, repeat and source. Engine and state carry their
	// own locks and never call back into the service while holding
	// them, so taking mu around engine reads is safe.
	mu     sync.Mutex
	queue  *queue.Manager
	repeat models.RepeatMode
	source models.PlaybackSource
}

// NewService wires the playback session together and installs the
// engine's upward handlers. Call Restore afterwards to resume a prior
// session.
func NewService(lib *library.Manager, playlists *playlist.Store, eng *engine.Engine, sessions *session.Manager, logger *logrus.Logger) *Service {
	s := &Service{
		logger:    logger,
		library:   lib,
		playlists: playlists,
		engine:    eng,
		sessions:  sessions,
		state:     NewStateManager(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		queue:     queue.NewManager(),
		repeat:    models.RepeatNone,
	}

	s.sleep = transport.NewSleepTimer(s.handleSleepExpire, logger)
	eng.SetHandlers(s.handleStatus, s.handleTrackEnd)
	return s
}

func (s *Service) lock()   { s.mu.Lock() }
func (s *Service) unlock() { s.mu.Unlock() }

// State returns the current reactive snapshot.
func (s *Service) State() State { return s.state.Get() }

// Subscribe returns a channel of state updates.
func (s *Service) Subscribe() <-chan *State { return s.state.Subscribe() }

// Unsubscribe releases a subscription channel.
func (s *Service) Unsubscribe(ch <-chan *State) { s.state.Unsubscribe(ch) }

// Playlists exposes playlist management to UI layers.
func (s *Service) Playlists() *playlist.Store { return s.playlists }

// Library exposes the track library and metadata overrides.
func (s *Service) Library() *library.Manager { return s.library }

// PlayFromLibrary starts the given track with the whole library as the
// queue context.
func (s *Service) PlayFromLibrary(trackID string) error {
	tracks := s.library.Tracks()
	idx := models.TrackIndex(tracks, trackID)
	if idx < 0 {
		return fmt.Errorf("track %s not in library", trackID)
	}
	return s.PlayInContext(tracks[idx], tracks, models.PlaybackSource{Kind: models.SourceLibrary})
}

// PlayFromPlaylist starts a track with one playlist as the queue
// context.
func (s *Service) PlayFromPlaylist(playlistID, trackID string) error {
	pl, err := s.playlists.Get(playlistID)
	if err != nil {
		return err
	}
	idx := models.TrackIndex(pl.Tracks, trackID)
	if idx < 0 {
		return fmt.Errorf("track %s not in playlist %s", trackID, playlistID)
	}
	return s.PlayInContext(pl.Tracks[idx], pl.Tracks, models.PlaybackSource{Kind: models.SourcePlaylist, Ref: playlistID})
}

// PlayFromMood starts playing every library track matching the mood.
func (s *Service) PlayFromMood(mood models.Mood) error {
	tracks := s.library.ByMood(mood)
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks tagged %s", mood)
	}
	return s.PlayInContext(tracks[0], tracks, models.PlaybackSource{Kind: models.SourceMood, Ref: string(mood)})
}

// PlayDailyMix plays the mood mix predicted for the current moment.
func (s *Service) PlayDailyMix() error {
	mood, _ := s.library.DailyMix(time.Now())
	return s.PlayFromMood(mood)
}

// PlayInContext replaces the queue with the given context and starts
// the track. Requesting the track that is already loaded toggles
// pause/resume instead of reloading it.
func (s *Service) PlayInContext(track models.Track, context []models.Track, source models.PlaybackSource) error {
	s.lock()
	s.queue.SetSource(context, &track)
	s.source = source
	length := s.queue.Len()
	s.unlock()

	s.state.UpdateQueue(length, source)

	if err := s.engine.Play(track); err != nil {
		s.logger.WithError(err).WithField("track_id", track.ID).Error("Playback failed")
		return err
	}
	s.state.UpdateTrack(&track)
	s.state.UpdatePlayback(s.engine.IsPlaying())
	s.persistSession()
	return nil
}

// Pause pauses playback; a no-op when idle.
func (s *Service) Pause() error {
	if err := s.engine.Pause(); err != nil {
		return err
	}
	s.state.UpdatePlayback(false)
	return nil
}

// Resume resumes playback; a no-op when idle.
func (s *Service) Resume() error {
	if err := s.engine.Resume(); err != nil {
		return err
	}
	if s.engine.Current() != nil {
		s.state.UpdatePlayback(true)
	}
	return nil
}

// TogglePlay flips between playing and paused.
func (s *Service) TogglePlay() error {
	if s.engine.IsPlaying() {
		return s.Pause()
	}
	return s.Resume()
}

// Seek jumps to the given position in the current track. Callers clamp
// to [0, duration]; the engine clamps again.
func (s *Service) Seek(positionMillis int64) error {
	return s.engine.Seek(time.Duration(positionMillis) * time.Millisecond)
}

// Next skips to the next track per the repeat and shuffle modes, or
// stops at the end of the queue.
func (s *Service) Next() error {
	s.lock()
	next, track := s.advanceLocked()
	s.unlock()

	if next < 0 {
		s.stopPlayback()
		return nil
	}
	return s.startTrack(track)
}

// Previous restarts the current track when more than three seconds in;
// otherwise it moves to the prior queue entry, wrapping only under
// repeat-all.
func (s *Service) Previous() error {
	current := s.engine.Current()
	if current == nil {
		return nil
	}

	if s.engine.Position() > transport.ScrubBackThreshold*time.Millisecond {
		return s.engine.Seek(0)
	}

	s.lock()
	idx := s.queue.IndexOf(current.ID)
	prev := transport.PrevIndex(s.queue.Len(), idx, s.repeat)
	var track models.Track
	if prev >= 0 && prev != idx {
		track, _ = s.queue.At(prev)
	}
	s.unlock()

	if prev < 0 || prev == idx {
		return s.engine.Seek(0)
	}
	return s.startTrack(track)
}

// ToggleShuffle flips shuffle mode, re-anchoring the queue on the
// current track when turning it on.
func (s *Service) ToggleShuffle() bool {
	current := s.engine.Current()

	s.lock()
	on := s.queue.ToggleShuffle(current)
	repeat := s.repeat
	s.unlock()

	s.state.UpdateModes(on, repeat)
	s.persistSession()
	return on
}

// CycleRepeat advances the repeat mode: none -> all -> one -> none.
func (s *Service) CycleRepeat() models.RepeatMode {
	s.lock()
	s.repeat = s.repeat.Cycle()
	repeat := s.repeat
	shuffleOn := s.queue.ShuffleOn()
	s.unlock()

	s.state.UpdateModes(shuffleOn, repeat)
	s.persistSession()
	return repeat
}

// Stop disposes the audio resource and clears the current track.
func (s *Service) Stop() { s.stopPlayback() }

// QueueTracks returns the live queue order.
func (s *Service) QueueTracks() []models.Track {
	s.lock()
	defer s.unlock()
	return s.queue.Tracks()
}

// ReorderQueue relocates one queue entry; with shuffle off the move is
// mirrored onto the canonical order.
func (s *Service) ReorderQueue(fromIndex, toIndex int) error {
	s.lock()
	err := s.queue.Reorder(fromIndex, toIndex)
	s.unlock()
	if err != nil {
		return err
	}
	s.persistSession()
	return nil
}

// RemoveFromQueue removes the track from both queue orders. Removing
// the currently playing track stops playback first.
func (s *Service) RemoveFromQueue(trackID string) {
	if cur := s.engine.Current(); cur != nil && cur.ID == trackID {
		s.stopPlayback()
	}

	s.lock()
	s.queue.Remove(trackID)
	length := s.queue.Len()
	source := s.source
	s.unlock()

	s.state.UpdateQueue(length, source)
	s.persistSession()
}

// SetSleepTimer stops playback after the given duration.
func (s *Service) SetSleepTimer(d time.Duration) {
	s.sleep.Set(d)
	s.state.UpdateSleepTimer(s.sleep.Deadline())
}

// CancelSleepTimer disarms a pending sleep timer.
func (s *Service) CancelSleepTimer() {
	s.sleep.Cancel()
	s.state.UpdateSleepTimer(nil)
}

// SleepTimerEnd returns the pending sleep deadline, if any.
func (s *Service) SleepTimerEnd() *time.Time { return s.sleep.Deadline() }

// SetStopAfterTrack arms or clears the one-shot end-of-track stop.
func (s *Service) SetStopAfterTrack(on bool) { s.latch.Arm(on) }

// StopAfterTrack reports whether the one-shot stop is armed.
func (s *Service) StopAfterTrack() bool { return s.latch.Armed() }

// Restore resumes a persisted session: the queue and modes come back
// and the engine is rebuilt paused on the saved track, so relaunching
// never starts audio by itself.
func (s *Service) Restore() error {
	snap, err := s.sessions.Load()
	if err != nil {
		return err
	}
	if snap == nil || snap.CurrentTrack == nil {
		return nil
	}

	repeat := snap.LoopMode
	if repeat != models.RepeatAll && repeat != models.RepeatOne {
		repeat = models.RepeatNone
	}

	s.lock()
	s.queue.Restore(snap.Queue, snap.OriginalQueue, snap.ShuffleOn)
	s.repeat = repeat
	s.source = models.PlaybackSource{Kind: models.SourceLibrary}
	length := s.queue.Len()
	s.unlock()

	s.state.UpdateModes(snap.ShuffleOn, repeat)
	s.state.UpdateQueue(length, models.PlaybackSource{Kind: models.SourceLibrary})

	if err := s.engine.Load(*snap.CurrentTrack); err != nil {
		// The file may have vanished since the snapshot; the queue is
		// still restored, only the resource stays idle.
		s.logger.WithError(err).WithField("track_id", snap.CurrentTrack.ID).Warn("Could not rebuild saved track")
		return nil
	}
	s.state.UpdateTrack(snap.CurrentTrack)
	s.state.UpdatePlayback(false)
	return nil
}

// Shutdown stops playback and disarms timers. The session snapshot is
// already durable; shutdown does not erase it.
func (s *Service) Shutdown() {
	s.sleep.Cancel()
	s.engine.Stop()
}

// advanceLocked computes the next queue index and track for a skip or
// natural advance. Must be called with the service lock held.
func (s *Service) advanceLocked() (int, models.Track) {
	var idx = -1
	if cur := s.engine.Current(); cur != nil {
		idx = s.queue.IndexOf(cur.ID)
	}
	next := transport.AdvanceIndex(s.queue.Len(), idx, s.repeat, s.queue.ShuffleOn(), s.rng)
	if next < 0 {
		return -1, models.Track{}
	}
	track, err := s.queue.At(next)
	if err != nil {
		return -1, models.Track{}
	}
	return next, track
}

// startTrack loads and plays a queue entry, forcing a reload when the
// entry is the track already current (wrap-around in a single-track
// queue must restart it, not toggle pause).
func (s *Service) startTrack(track models.Track) error {
	var err error
	if cur := s.engine.Current(); cur != nil && cur.ID == track.ID {
		err = s.engine.Restart(track)
	} else {
		err = s.engine.Play(track)
	}
	if err != nil {
		s.logger.WithError(err).WithField("track_id", track.ID).Error("Playback failed")
		s.state.ClearTrack()
		return err
	}

	s.state.UpdateTrack(&track)
	s.state.UpdatePlayback(true)
	s.persistSession()
	return nil
}

// stopPlayback returns the session to stopped-but-alive.
func (s *Service) stopPlayback() {
	s.engine.Stop()
	s.state.ClearTrack()
	s.persistSession()
}

// handleStatus applies one engine status report to the reactive state.
func (s *Service) handleStatus(_ models.Track, st engine.Status) {
	s.state.UpdateProgress(st.Position.Milliseconds(), st.Duration.Milliseconds(), st.Playing)
}

// handleTrackEnd is the sequencing policy for a natural track end: the
// stop latch wins, then repeat-one replays, then the queue advances.
func (s *Service) handleTrackEnd(track models.Track) {
	if s.latch.Consume() {
		s.stopPlayback()
		return
	}

	s.lock()
	repeat := s.repeat
	s.unlock()

	if repeat == models.RepeatOne {
		if err := s.engine.Restart(track); err != nil {
			s.logger.WithError(err).WithField("track_id", track.ID).Error("Replay failed")
			s.stopPlayback()
		}
		return
	}

	s.lock()
	next, nextTrack := s.advanceLocked()
	s.unlock()

	if next < 0 {
		s.stopPlayback()
		return
	}
	if err := s.startTrack(nextTrack); err != nil {
		s.logger.WithError(err).Error("Auto-advance failed")
	}
}

// handleSleepExpire runs when the sleep deadline passes.
func (s *Service) handleSleepExpire() {
	s.stopPlayback()
	s.state.UpdateSleepTimer(nil)
}

// persistSession snapshots the current session. Write failures are
// logged inside the session manager; the live session is never rolled
// back.
func (s *Service) persistSession() {
	s.lock()
	snap := session.Snapshot{
		CurrentTrack:  s.engine.Current(),
		Queue:         s.queue.Tracks(),
		OriginalQueue: s.queue.Original(),
		ShuffleOn:     s.queue.ShuffleOn(),
		LoopMode:      s.repeat,
	}
	s.unlock()

	if err := s.sessions.Save(snap); err != nil {
		s.logger.WithError(err).Warn("Session snapshot not saved")
	}
}
