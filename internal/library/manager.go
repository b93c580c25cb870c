package library

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"sonata/internal/media"
	"sonata/internal/store"
	"sonata/pkg/models"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	libraryKey   = "library"
	overridesKey = "overrides"
)

// Manager owns the scanned track list and the user's metadata
// overrides. Tracks are cached in the blob store so the app has a
// library before the first rescan finishes; overrides are stored
// separately, keyed by track ID, and never written back onto tracks.
type Manager struct {
	mu      sync.RWMutex
	scanner *media.Scanner
	store   store.Store
	logger  *logrus.Logger

	tracks    []models.Track
	overrides map[string]models.MetadataOverride
}

// NewManager loads the cached library and overrides. Missing or
// malformed blobs start empty.
func NewManager(scanner *media.Scanner, st store.Store, logger *logrus.Logger) *Manager {
	m := &Manager{
		scanner:   scanner,
		store:     st,
		logger:    logger,
		overrides: make(map[string]models.MetadataOverride),
	}

	if blob, err := st.Read(libraryKey); err == nil {
		if err := json.Unmarshal(blob, &m.tracks); err != nil {
			logger.WithError(err).Warn("Malformed library cache, starting empty")
			m.tracks = nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.WithError(err).Warn("Failed to load library cache")
	}

	if blob, err := st.Read(overridesKey); err == nil {
		if err := json.Unmarshal(blob, &m.overrides); err != nil {
			logger.WithError(err).Warn("Malformed overrides, starting empty")
			m.overrides = make(map[string]models.MetadataOverride)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.WithError(err).Warn("Failed to load metadata overrides")
	}

	return m
}

// Reload performs a full library scan. On success the cached track list
// is replaced and overrides referencing vanished track IDs are pruned.
// A permission failure propagates as media.ErrPermissionDenied.
func (m *Manager) Reload() ([]models.Track, error) {
	tracks, err := m.scanner.Scan()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.tracks = tracks
	m.pruneOrphansLocked()
	m.persistLocked()
	m.mu.Unlock()

	return m.Tracks(), nil
}

// Tracks returns the library with overrides applied, in scan order.
func (m *Manager) Tracks() []models.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Track, len(m.tracks))
	for i, t := range m.tracks {
		out[i] = m.effectiveLocked(t)
	}
	return out
}

// Track returns one track by ID, override applied.
func (m *Manager) Track(id string) (models.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tracks {
		if t.ID == id {
			return m.effectiveLocked(t), true
		}
	}
	return models.Track{}, false
}

// ByMood returns the tracks whose effective mood (override first, then
// scanned tag) matches.
func (m *Manager) ByMood(mood models.Mood) []models.Track {
	return lo.Filter(m.Tracks(), func(t models.Track, _ int) bool {
		return t.Mood == mood
	})
}

// Override returns the stored override for a track ID, if any.
func (m *Manager) Override(trackID string) (models.MetadataOverride, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ov, ok := m.overrides[trackID]
	return ov, ok
}

// SetOverride stores user edits for a track. An all-empty override
// clears the entry instead.
func (m *Manager) SetOverride(trackID string, ov models.MetadataOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ov == (models.MetadataOverride{}) {
		delete(m.overrides, trackID)
	} else {
		m.overrides[trackID] = ov
	}
	return m.persistOverridesLocked()
}

// ClearOverride removes the override for a track ID.
func (m *Manager) ClearOverride(trackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.overrides, trackID)
	return m.persistOverridesLocked()
}

// pruneOrphansLocked drops overrides whose track ID no longer exists in
// the library. Runs after every full reload.
func (m *Manager) pruneOrphansLocked() {
	present := make(map[string]bool, len(m.tracks))
	for _, t := range m.tracks {
		present[t.ID] = true
	}

	pruned := 0
	for id := range m.overrides {
		if !present[id] {
			delete(m.overrides, id)
			pruned++
		}
	}
	if pruned > 0 {
		m.logger.WithField("pruned", pruned).Info("Pruned orphaned metadata overrides")
	}
}

func (m *Manager) effectiveLocked(t models.Track) models.Track {
	if ov, ok := m.overrides[t.ID]; ok {
		return ov.Apply(t)
	}
	return t
}

func (m *Manager) persistLocked() {
	blob, err := json.Marshal(m.tracks)
	if err == nil {
		err = m.store.Write(libraryKey, blob)
	}
	if err != nil {
		m.logger.WithError(err).Error("Failed to persist library cache")
	}
	if err := m.persistOverridesLocked(); err != nil {
		m.logger.WithError(err).Error("Failed to persist overrides")
	}
}

func (m *Manager) persistOverridesLocked() error {
	blob, err := json.Marshal(m.overrides)
	if err != nil {
		return err
	}
	return m.store.Write(overridesKey, blob)
}

// PredictMood picks a mood for the moment: mornings lean energetic,
// nights calm, weekends workout, anything else focus.
func PredictMood(now time.Time) models.Mood {
	hour := now.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return models.MoodEnergetic
	case hour >= 21 || hour < 5:
		return models.MoodCalm
	case now.Weekday() == time.Saturday || now.Weekday() == time.Sunday:
		return models.MoodWorkout
	default:
		return models.MoodFocus
	}
}

// DailyMix returns the predicted mood for now and the library tracks
// matching it.
func (m *Manager) DailyMix(now time.Time) (models.Mood, []models.Track) {
	mood := PredictMood(now)
	return mood, m.ByMood(mood)
}
