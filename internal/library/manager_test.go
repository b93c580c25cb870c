package library

import (
	"io"
	"testing"
	"time"

	"sonata/internal/media"
	"sonata/internal/store"
	"sonata/pkg/models"

	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSource serves a mutable asset list so tests can simulate files
// appearing and vanishing between rescans.
type fakeSource struct {
	assets []media.Asset
}

func (f *fakeSource) RequestPermission() error { return nil }

func (f *fakeSource) Enumerate(offset, limit int) ([]media.Asset, bool, error) {
	if offset >= len(f.assets) {
		return nil, false, nil
	}
	end := offset + limit
	if end > len(f.assets) {
		end = len(f.assets)
	}
	return f.assets[offset:end], end < len(f.assets), nil
}

func (f *fakeSource) ListAlbums() ([]media.Album, error) { return nil, nil }

func newTestManager(t *testing.T, source *fakeSource) (store.Store, *Manager) {
	t.Helper()
	blobs, err := store.NewFileStore(t.TempDir(), newTestLogger())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}
	scanner := media.NewScanner(source, nil, 10, newTestLogger())
	return blobs, NewManager(scanner, blobs, newTestLogger())
}

func asset(id, title string) media.Asset {
	return media.Asset{
		ID:              id,
		Filename:        id + ".mp3",
		URI:             "file:///music/" + id + ".mp3",
		Title:           title,
		Artist:          "Artist",
		DurationSeconds: 120,
	}
}

func TestReloadPopulatesLibrary(t *testing.T) {
	source := &fakeSource{assets: []media.Asset{
		asset("a", "Chill Morning"),
		asset("b", "Workout Power"),
	}}
	blobs, m := newTestManager(t, source)

	tracks, err := m.Reload()
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(tracks))
	}

	// The scan result is cached: a fresh manager over the same store sees
	// the library without rescanning.
	scanner := media.NewScanner(&fakeSource{}, nil, 10, newTestLogger())
	cached := NewManager(scanner, blobs, newTestLogger())
	if got := len(cached.Tracks()); got != 2 {
		t.Errorf("Expected cached library of 2 tracks, got %d", got)
	}
}

func TestTrackLookup(t *testing.T) {
	source := &fakeSource{assets: []media.Asset{asset("a", "Song A")}}
	_, m := newTestManager(t, source)
	m.Reload()

	track, ok := m.Track("a")
	if !ok {
		t.Fatal("Expected track a to exist")
	}
	if track.Title != "Song A" {
		t.Errorf("Expected Song A, got %q", track.Title)
	}

	if _, ok := m.Track("ghost"); ok {
		t.Error("Expected lookup miss for unknown ID")
	}
}

func TestOverrides(t *testing.T) {
	source := &fakeSource{assets: []media.Asset{asset("a", "Chill Song")}}
	_, m := newTestManager(t, source)
	m.Reload()

	if err := m.SetOverride("a", models.MetadataOverride{
		Title: "Renamed",
		Mood:  models.MoodWorkout,
	}); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}

	t.Run("AppliedOnRead", func(t *testing.T) {
		track, _ := m.Track("a")
		if track.Title != "Renamed" {
			t.Errorf("Expected override title, got %q", track.Title)
		}
		if track.Artist != "Artist" {
			t.Errorf("Non-overridden field changed: %q", track.Artist)
		}
	})

	t.Run("MoodFilterUsesOverride", func(t *testing.T) {
		if got := len(m.ByMood(models.MoodWorkout)); got != 1 {
			t.Errorf("Expected override mood to count in filter, got %d", got)
		}
		if got := len(m.ByMood(models.MoodCalm)); got != 0 {
			t.Errorf("Expected scanned mood to be shadowed, got %d tracks", got)
		}
	})

	t.Run("EmptyOverrideClears", func(t *testing.T) {
		if err := m.SetOverride("a", models.MetadataOverride{}); err != nil {
			t.Fatalf("SetOverride failed: %v", err)
		}
		track, _ := m.Track("a")
		if track.Title != "Chill Song" {
			t.Errorf("Expected scanned title back, got %q", track.Title)
		}
	})
}

func TestClearOverride(t *testing.T) {
	source := &fakeSource{assets: []media.Asset{asset("a", "Song")}}
	_, m := newTestManager(t, source)
	m.Reload()

	m.SetOverride("a", models.MetadataOverride{Title: "X"})
	if err := m.ClearOverride("a"); err != nil {
		t.Fatalf("ClearOverride failed: %v", err)
	}
	if _, ok := m.Override("a"); ok {
		t.Error("Expected override to be gone")
	}
}

func TestReloadPrunesOrphanedOverrides(t *testing.T) {
	source := &fakeSource{assets: []media.Asset{
		asset("a", "Keeper"),
		asset("b", "Goner"),
	}}
	_, m := newTestManager(t, source)
	m.Reload()

	m.SetOverride("a", models.MetadataOverride{Title: "A"})
	m.SetOverride("b", models.MetadataOverride{Title: "B"})

	// b vanishes from the device.
	source.assets = source.assets[:1]
	if _, err := m.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if _, ok := m.Override("a"); !ok {
		t.Error("Override for surviving track pruned")
	}
	if _, ok := m.Override("b"); ok {
		t.Error("Override for vanished track not pruned")
	}
}

func TestPredictMood(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want models.Mood
	}{
		{"WeekdayMorning", time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC), models.MoodEnergetic},
		{"LateNight", time.Date(2026, 8, 24, 23, 0, 0, 0, time.UTC), models.MoodCalm},
		{"EarlyMorning", time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC), models.MoodCalm},
		{"WeekendAfternoon", time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC), models.MoodWorkout},
		{"WeekdayAfternoon", time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC), models.MoodFocus},
		{"WeekendMorningIsStillMorning", time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC), models.MoodEnergetic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PredictMood(tt.at); got != tt.want {
				t.Errorf("PredictMood(%s) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestDailyMix(t *testing.T) {
	source := &fakeSource{assets: []media.Asset{
		asset("a", "Focus Session"),
		asset("b", "Party Time"),
	}}
	_, m := newTestManager(t, source)
	m.Reload()

	// Weekday afternoon predicts focus.
	mood, tracks := m.DailyMix(time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC))
	if mood != models.MoodFocus {
		t.Fatalf("Expected focus mix, got %s", mood)
	}
	if len(tracks) != 1 || tracks[0].ID != "a" {
		t.Errorf("Expected the focus track only, got %+v", tracks)
	}
}
