package session

import (
	"encoding/json"
	"errors"
	"time"

	"sonata/internal/store"
	"sonata/pkg/models"

	"github.com/sirupsen/logrus"
)

const storageKey = "session"

// Snapshot is the persisted playback session: what was playing, the
// queue in both orders, and the shuffle/repeat modes. Saved on every
// change so a killed process resumes where it left off.
type Snapshot struct {
	CurrentTrack  *models.Track     `json:"currentTrack"`
	Queue         []models.Track    `json:"queue"`
	OriginalQueue []models.Track    `json:"originalQueue"`
	ShuffleOn     bool              `json:"isShuffle"`
	LoopMode      models.RepeatMode `json:"loopMode"`
	SavedAt       int64             `json:"savedAt"` // unix millis
}

// Manager persists and restores playback session snapshots.
type Manager struct {
	store  store.Store
	logger *logrus.Logger
}

// NewManager creates a session manager over the given blob store.
func NewManager(st store.Store, logger *logrus.Logger) *Manager {
	return &Manager{store: st, logger: logger}
}

// Save persists the snapshot, stamping it with the current time. A
// write failure is logged and returned but must not roll back the live
// session.
func (m *Manager) Save(snap Snapshot) error {
	snap.SavedAt = time.Now().UnixMilli()

	blob, err := json.Marshal(snap)
	if err != nil {
		m.logger.WithError(err).Error("Failed to encode session snapshot")
		return err
	}
	if err := m.store.Write(storageKey, blob); err != nil {
		m.logger.WithError(err).Error("Failed to persist session snapshot")
		return err
	}
	return nil
}

// Load returns the persisted snapshot, or nil when none exists. A
// malformed snapshot is treated as no prior session: fail open, never
// fatal.
func (m *Manager) Load() (*Snapshot, error) {
	blob, err := m.store.Read(storageKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		m.logger.WithError(err).Warn("Malformed session snapshot, starting fresh")
		return nil, nil
	}
	return &snap, nil
}

// Clear removes any persisted snapshot.
func (m *Manager) Clear() error {
	return m.store.Delete(storageKey)
}
