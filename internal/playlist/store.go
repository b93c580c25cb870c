package playlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"sonata/internal/store"
	"sonata/pkg/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const storageKey = "playlists"

// ErrPlaylistNotFound is reported when an operation references a
// deleted or nonexistent playlist.
var ErrPlaylistNotFound = errors.New("playlist not found")

// Store manages the durable set of user playlists. Every mutation reads
// the whole in-memory set, edits it and persists the whole set back;
// fine for typical catalog sizes, O(total size) per edit if it ever
// matters.
//
// Persistence failures are logged and returned but the in-memory edit
// stands: the live session wins over strict durability.
//
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	store  store.Store
	logger *logrus.Logger

	playlists []models.Playlist
}

// NewStore loads the persisted playlist set. A missing or malformed
// blob starts an empty catalog rather than failing.
func NewStore(st store.Store, logger *logrus.Logger) *Store {
	s := &Store{store: st, logger: logger}

	blob, err := st.Read(storageKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.WithError(err).Warn("Failed to load playlists, starting empty")
		}
		return s
	}
	if err := json.Unmarshal(blob, &s.playlists); err != nil {
		logger.WithError(err).Warn("Malformed playlist data, starting empty")
		s.playlists = nil
	}
	return s
}

// All returns a copy of every playlist, newest first ordering preserved
// as stored.
func (s *Store) All() []models.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Playlist, len(s.playlists))
	for i, p := range s.playlists {
		out[i] = copyPlaylist(p)
	}
	return out
}

// Get returns one playlist by ID.
func (s *Store) Get(id string) (models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.playlists {
		if p.ID == id {
			return copyPlaylist(p), nil
		}
	}
	return models.Playlist{}, fmt.Errorf("%w: %s", ErrPlaylistNotFound, id)
}

// Create adds an empty playlist with the given name.
func (s *Store) Create(name string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Playlist{
		ID:        uuid.New().String(),
		Name:      name,
		Tracks:    []models.Track{},
		CreatedAt: time.Now(),
	}
	s.playlists = append(s.playlists, p)
	return copyPlaylist(p), s.persist()
}

// Rename changes a playlist's display name.
func (s *Store) Rename(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.find(id)
	if err != nil {
		return err
	}
	p.Name = name
	return s.persist()
}

// Delete removes a playlist entirely.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.find(id); err != nil {
		return err
	}
	s.playlists = lo.Filter(s.playlists, func(p models.Playlist, _ int) bool {
		return p.ID != id
	})
	return s.persist()
}

// SetArtwork sets or replaces the playlist's cover reference.
func (s *Store) SetArtwork(id, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.find(id)
	if err != nil {
		return err
	}
	p.ArtworkURI = uri
	return s.persist()
}

// AddTrack appends a track to the playlist. Adding a track already
// present (by ID) is a no-op.
func (s *Store) AddTrack(id string, track models.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.find(id)
	if err != nil {
		return err
	}
	if p.Contains(track.ID) {
		return nil
	}
	p.Tracks = append(p.Tracks, track)
	return s.persist()
}

// AddTracks appends several tracks at once, skipping any already in the
// playlist. One persist covers the whole batch.
func (s *Store) AddTracks(id string, tracks []models.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.find(id)
	if err != nil {
		return err
	}
	added := false
	for _, track := range tracks {
		if p.Contains(track.ID) {
			continue
		}
		p.Tracks = append(p.Tracks, track)
		added = true
	}
	if !added {
		return nil
	}
	return s.persist()
}

// RemoveTrack removes one track from the playlist by track ID.
func (s *Store) RemoveTrack(id, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.find(id)
	if err != nil {
		return err
	}
	p.Tracks = lo.Filter(p.Tracks, func(t models.Track, _ int) bool {
		return t.ID != trackID
	})
	return s.persist()
}

// ReorderTrack relocates the track at fromIndex to toIndex, shifting
// everything strictly between the two bounds by one position.
func (s *Store) ReorderTrack(id string, fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.find(id)
	if err != nil {
		return err
	}
	reordered, err := ShiftReorder(p.Tracks, fromIndex, toIndex)
	if err != nil {
		return err
	}
	p.Tracks = reordered
	return s.persist()
}

// MoveTracks moves the given track IDs from one playlist to another as
// a single edit: removed from the source, appended to the target, IDs
// already present in the target are skipped (but still removed from the
// source).
func (s *Store) MoveTracks(sourceID, targetID string, trackIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.find(sourceID)
	if err != nil {
		return err
	}
	dst, err := s.find(targetID)
	if err != nil {
		return err
	}

	moving := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		moving[id] = true
	}

	var kept, moved []models.Track
	for _, t := range src.Tracks {
		if moving[t.ID] {
			moved = append(moved, t)
		} else {
			kept = append(kept, t)
		}
	}

	src.Tracks = kept
	for _, t := range moved {
		if dst.Contains(t.ID) {
			continue
		}
		dst.Tracks = append(dst.Tracks, t)
	}
	return s.persist()
}

// find returns a pointer into the backing slice for mutation. Callers
// hold the write lock.
func (s *Store) find(id string) (*models.Playlist, error) {
	for i := range s.playlists {
		if s.playlists[i].ID == id {
			return &s.playlists[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, id)
}

// persist writes the entire playlist set back to the store. Callers
// hold the write lock.
func (s *Store) persist() error {
	blob, err := json.Marshal(s.playlists)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode playlists")
		return err
	}
	if err := s.store.Write(storageKey, blob); err != nil {
		s.logger.WithError(err).Error("Failed to persist playlists")
		return fmt.Errorf("failed to persist playlists: %w", err)
	}
	return nil
}

// ShiftReorder returns a copy of tracks with the element at fromIndex
// placed at toIndex; every element strictly between the two bounds
// shifts by one position. Both indices must be in range.
func ShiftReorder(tracks []models.Track, fromIndex, toIndex int) ([]models.Track, error) {
	n := len(tracks)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return nil, fmt.Errorf("reorder index out of range: %d -> %d (len %d)", fromIndex, toIndex, n)
	}

	out := make([]models.Track, 0, n)
	out = append(out, tracks...)
	moved := out[fromIndex]
	if fromIndex < toIndex {
		copy(out[fromIndex:toIndex], out[fromIndex+1:toIndex+1])
	} else {
		copy(out[toIndex+1:fromIndex+1], out[toIndex:fromIndex])
	}
	out[toIndex] = moved
	return out, nil
}

func copyPlaylist(p models.Playlist) models.Playlist {
	tracks := make([]models.Track, len(p.Tracks))
	copy(tracks, p.Tracks)
	p.Tracks = tracks
	return p
}
