package models

// RepeatMode controls what happens when a track ends naturally.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

// Cycle returns the next mode in the none -> all -> one -> none order.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// PlaybackSource tags where the active queue came from: the whole
// library, one playlist, or a mood filter.
type PlaybackSource struct {
	Kind string `json:"kind"` // "library", "playlist" or "mood"
	Ref  string `json:"ref,omitempty"`
}

const (
	SourceLibrary  = "library"
	SourcePlaylist = "playlist"
	SourceMood     = "mood"
)
