package models

// Track represents one playable unit enumerated from the media source.
// Tracks are never mutated in place; user edits live in MetadataOverride
// records keyed by track ID.
type Track struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Artist           string `json:"artist"`
	URI              string `json:"uri"`
	Duration         int64  `json:"duration"` // in milliseconds
	Artwork          string `json:"artwork,omitempty"`
	Mood             Mood   `json:"mood,omitempty"`
	ModificationTime int64  `json:"modificationTime,omitempty"` // unix millis
	AlbumID          string `json:"albumId,omitempty"`
	AlbumName        string `json:"albumName,omitempty"`
	FileSize         int64  `json:"fileSize,omitempty"`
}

// MetadataOverride holds user edits to a track's displayed metadata.
// Empty fields mean "no override"; the scanned value stays visible.
type MetadataOverride struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Mood   Mood   `json:"mood,omitempty"`
}

// Apply returns a copy of track with the override's non-empty fields
// substituted in.
func (o MetadataOverride) Apply(track Track) Track {
	if o.Title != "" {
		track.Title = o.Title
	}
	if o.Artist != "" {
		track.Artist = o.Artist
	}
	if o.Album != "" {
		track.AlbumName = o.Album
	}
	if o.Mood != "" {
		track.Mood = o.Mood
	}
	return track
}

// TrackIndex returns the position of the track with the given ID, or -1.
func TrackIndex(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
