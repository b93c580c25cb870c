package media

import (
	"hash/fnv"
	"strings"

	"sonata/pkg/models"
)

// Classifier assigns a mood to a track title. It is pluggable so the
// keyword heuristic can be swapped without touching the scanner.
type Classifier interface {
	Classify(title string) models.Mood
}

// KeywordClassifier matches keyword families in the title and falls back
// to a hash of the title when nothing matches, so the same title always
// gets the same mood across rescans.
type KeywordClassifier struct{}

var moodKeywords = []struct {
	mood     models.Mood
	keywords []string
}{
	{models.MoodCalm, []string{"chill", "calm", "relax", "sleep", "ambient", "peace", "lofi", "acoustic"}},
	{models.MoodWorkout, []string{"workout", "gym", "pump", "power", "run", "cardio"}},
	{models.MoodEnergetic, []string{"party", "dance", "hype", "energy", "upbeat", "remix"}},
	{models.MoodMelancholic, []string{"sad", "melanchol", "blue", "rain", "alone", "goodbye", "slow"}},
	{models.MoodFocus, []string{"focus", "study", "concentr", "instrumental", "piano"}},
}

// Classify scans the title for keyword families in priority order.
func (KeywordClassifier) Classify(title string) models.Mood {
	lower := strings.ToLower(title)
	for _, family := range moodKeywords {
		for _, kw := range family.keywords {
			if strings.Contains(lower, kw) {
				return family.mood
			}
		}
	}
	return fallbackMood(lower)
}

// fallbackMood picks a mood deterministically from the title hash.
func fallbackMood(title string) models.Mood {
	h := fnv.New32a()
	h.Write([]byte(title))
	moods := models.Moods()
	return moods[int(h.Sum32())%len(moods)]
}
