package queue

import (
	"fmt"
	"math/rand"
	"time"

	"sonata/pkg/models"
)

// Manager owns the ordered sequence of tracks eligible for playback. It
// keeps two parallel sequences: the live queue and the pre-shuffle
// canonical order, so shuffle can be toggled off without losing the
// user's intended order.
//
// Invariant: queue and original always hold the same multiset of
// tracks; with shuffle off they are identical.
type Manager struct {
	queue     []models.Track
	original  []models.Track
	shuffleOn bool
	rng       *rand.Rand
}

// NewManager returns an empty queue.
func NewManager() *Manager {
	return &Manager{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tracks returns a copy of the live queue.
func (m *Manager) Tracks() []models.Track {
	out := make([]models.Track, len(m.queue))
	copy(out, m.queue)
	return out
}

// Original returns a copy of the canonical (pre-shuffle) order.
func (m *Manager) Original() []models.Track {
	out := make([]models.Track, len(m.original))
	copy(out, m.original)
	return out
}

// Len returns the number of queued tracks.
func (m *Manager) Len() int { return len(m.queue) }

// ShuffleOn reports whether shuffle is engaged.
func (m *Manager) ShuffleOn() bool { return m.shuffleOn }

// At returns the track at the given queue index.
func (m *Manager) At(index int) (models.Track, error) {
	if index < 0 || index >= len(m.queue) {
		return models.Track{}, fmt.Errorf("queue index %d out of range (len %d)", index, len(m.queue))
	}
	return m.queue[index], nil
}

// IndexOf returns the queue position of the track with the given ID,
// or -1.
func (m *Manager) IndexOf(trackID string) int {
	return models.TrackIndex(m.queue, trackID)
}

// SetSource replaces the queue wholesale with a new track context. With
// shuffle engaged the anchor track leads and the rest is permuted;
// otherwise the given order is kept verbatim.
func (m *Manager) SetSource(tracks []models.Track, anchor *models.Track) {
	m.original = make([]models.Track, len(tracks))
	copy(m.original, tracks)

	if m.shuffleOn && anchor != nil {
		m.queue = m.anchoredShuffle(tracks, anchor.ID)
	} else {
		m.queue = make([]models.Track, len(tracks))
		copy(m.queue, tracks)
	}
}

// ToggleShuffle flips shuffle and returns the new state. Turning it on
// permutes the *current* queue behind the current track, so a reorder
// done before shuffling still counts for the remaining tracks. Turning
// it off restores the canonical order verbatim, discarding any
// reordering done while shuffled; an accepted asymmetry, not a bug.
func (m *Manager) ToggleShuffle(current *models.Track) bool {
	m.shuffleOn = !m.shuffleOn

	if m.shuffleOn {
		anchorID := ""
		if current != nil {
			anchorID = current.ID
		}
		m.queue = m.anchoredShuffle(m.queue, anchorID)
	} else {
		m.queue = make([]models.Track, len(m.original))
		copy(m.queue, m.original)
	}
	return m.shuffleOn
}

// Reorder relocates one queue entry. With shuffle off the same move is
// mirrored onto the canonical order; with shuffle on the edit stays
// local to the shuffle session.
func (m *Manager) Reorder(fromIndex, toIndex int) error {
	n := len(m.queue)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return fmt.Errorf("reorder index out of range: %d -> %d (len %d)", fromIndex, toIndex, n)
	}

	m.queue = relocate(m.queue, fromIndex, toIndex)
	if !m.shuffleOn {
		m.original = relocate(m.original, fromIndex, toIndex)
	}
	return nil
}

// Remove deletes the track from both the queue and the canonical order.
func (m *Manager) Remove(trackID string) {
	m.queue = without(m.queue, trackID)
	m.original = without(m.original, trackID)
}

// Restore rebuilds the queue from a persisted session snapshot.
func (m *Manager) Restore(queue, original []models.Track, shuffleOn bool) {
	m.queue = make([]models.Track, len(queue))
	copy(m.queue, queue)
	m.original = make([]models.Track, len(original))
	copy(m.original, original)
	m.shuffleOn = shuffleOn
}

// anchoredShuffle returns anchor first followed by a random permutation
// of the remaining tracks. An empty anchor ID permutes everything.
func (m *Manager) anchoredShuffle(tracks []models.Track, anchorID string) []models.Track {
	var head []models.Track
	rest := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == anchorID && len(head) == 0 {
			head = append(head, t)
		} else {
			rest = append(rest, t)
		}
	}

	m.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	return append(head, rest...)
}

func relocate(tracks []models.Track, fromIndex, toIndex int) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	out = append(out, tracks...)
	moved := out[fromIndex]
	out = append(out[:fromIndex], out[fromIndex+1:]...)
	out = append(out[:toIndex], append([]models.Track{moved}, out[toIndex:]...)...)
	return out
}

func without(tracks []models.Track, trackID string) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != trackID {
			out = append(out, t)
		}
	}
	return out
}
