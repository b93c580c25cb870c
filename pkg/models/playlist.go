package models

import "time"

// Playlist is a user-named ordered collection of tracks. Tracks are held
// by value so a playlist survives a track vanishing from the library.
// Duplicates by track ID are forbidden within one playlist.
type Playlist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Tracks     []Track   `json:"tracks"`
	CreatedAt  time.Time `json:"createdAt"`
	ArtworkURI string    `json:"artworkUri,omitempty"`
}

// Contains reports whether the playlist already holds a track with the
// given ID.
func (p *Playlist) Contains(trackID string) bool {
	return TrackIndex(p.Tracks, trackID) >= 0
}
