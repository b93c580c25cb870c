package models

// Mood is a heuristic tag describing the feel of a track. The set is
// fixed; filtering and the daily mix both key off these values.
type Mood string

const (
	MoodCalm        Mood = "calm"
	MoodEnergetic   Mood = "energetic"
	MoodMelancholic Mood = "melancholic"
	MoodFocus       Mood = "focus"
	MoodWorkout     Mood = "workout"
)

// Moods returns every known mood in a stable order.
func Moods() []Mood {
	return []Mood{MoodCalm, MoodEnergetic, MoodMelancholic, MoodFocus, MoodWorkout}
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	for _, known := range Moods() {
		if m == known {
			return true
		}
	}
	return false
}
