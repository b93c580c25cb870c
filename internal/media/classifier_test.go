package media

import (
	"testing"

	"sonata/pkg/models"
)

func TestClassifyKeywords(t *testing.T) {
	tests := []struct {
		title string
		want  models.Mood
	}{
		{"Lofi Beats to Study", models.MoodCalm},
		{"Deep Sleep Ambient", models.MoodCalm},
		{"Gym Pump Mix", models.MoodWorkout},
		{"Morning Run", models.MoodWorkout},
		{"Party Anthem (Remix)", models.MoodEnergetic},
		{"Upbeat Summer", models.MoodEnergetic},
		{"Rainy Goodbye", models.MoodMelancholic},
		{"Alone Again", models.MoodMelancholic},
		{"Piano Concentration", models.MoodFocus},
		{"CHILL VIBES", models.MoodCalm}, // case-insensitive
	}

	var c KeywordClassifier
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := c.Classify(tt.title); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.title, got, tt.want)
			}
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Calm keywords win over later families when a title matches several.
	var c KeywordClassifier
	if got := c.Classify("Chill Party"); got != models.MoodCalm {
		t.Errorf("Expected calm to take priority, got %s", got)
	}
}

func TestClassifyFallbackIsDeterministic(t *testing.T) {
	var c KeywordClassifier
	title := "Untitled 47"

	first := c.Classify(title)
	if !first.Valid() {
		t.Fatalf("Fallback produced invalid mood %q", first)
	}
	for i := 0; i < 10; i++ {
		if got := c.Classify(title); got != first {
			t.Fatalf("Fallback not stable: %s then %s", first, got)
		}
	}
}
