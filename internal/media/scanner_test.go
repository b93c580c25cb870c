package media

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSource serves a fixed asset list page by page. Entries whose
// listing index is in skip are dropped from their page, the way a real
// source drops unreadable files, while more still reflects the listing.
type fakeSource struct {
	assets        []Asset
	albums        []Album
	skip          map[int]bool
	permissionErr error
	enumerateErr  error

	enumerateCalls int
}

func (f *fakeSource) RequestPermission() error { return f.permissionErr }

func (f *fakeSource) Enumerate(offset, limit int) ([]Asset, bool, error) {
	f.enumerateCalls++
	if f.enumerateErr != nil {
		return nil, false, f.enumerateErr
	}
	if offset >= len(f.assets) {
		return nil, false, nil
	}
	end := offset + limit
	if end > len(f.assets) {
		end = len(f.assets)
	}
	page := make([]Asset, 0, end-offset)
	for i := offset; i < end; i++ {
		if f.skip[i] {
			continue
		}
		page = append(page, f.assets[i])
	}
	return page, end < len(f.assets), nil
}

func (f *fakeSource) ListAlbums() ([]Album, error) { return f.albums, nil }

func makeAssets(n int) []Asset {
	assets := make([]Asset, n)
	for i := range assets {
		assets[i] = Asset{
			ID:              fmt.Sprintf("asset-%d", i),
			Filename:        fmt.Sprintf("song%d.mp3", i),
			URI:             fmt.Sprintf("file:///music/song%d.mp3", i),
			Title:           fmt.Sprintf("Song %d", i),
			Artist:          "Artist",
			DurationSeconds: 180,
		}
	}
	return assets
}

func TestScanPaginatesToExhaustion(t *testing.T) {
	source := &fakeSource{assets: makeAssets(25)}
	scanner := NewScanner(source, nil, 10, newTestLogger())

	tracks, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 25 {
		t.Errorf("Expected 25 tracks, got %d", len(tracks))
	}
	// Pages of 10, 10, 5; the last page reports no more.
	if source.enumerateCalls != 3 {
		t.Errorf("Expected 3 pages, got %d", source.enumerateCalls)
	}
}

func TestScanContinuesPastShortPages(t *testing.T) {
	// A skipped entry mid-listing shortens its page; the scan must keep
	// going and pick up everything after it.
	source := &fakeSource{
		assets: makeAssets(5),
		skip:   map[int]bool{1: true},
	}
	scanner := NewScanner(source, nil, 2, newTestLogger())

	tracks, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 4 {
		t.Fatalf("Expected 4 readable tracks, got %d", len(tracks))
	}
	if tracks[len(tracks)-1].ID != "asset-4" {
		t.Errorf("Expected the last asset to survive the short page, got %s", tracks[len(tracks)-1].ID)
	}
}

func TestScanSurvivesFullyUnreadablePage(t *testing.T) {
	// Every entry of the first page is unreadable: the page is empty but
	// the listing is not exhausted.
	source := &fakeSource{
		assets: makeAssets(4),
		skip:   map[int]bool{0: true, 1: true},
	}
	scanner := NewScanner(source, nil, 2, newTestLogger())

	tracks, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("Expected the 2 readable tracks, got %d", len(tracks))
	}
}

func TestScanFillsMetadataGaps(t *testing.T) {
	source := &fakeSource{
		assets: []Asset{
			{
				ID:               "bare",
				Filename:         "untagged song.flac",
				URI:              "file:///music/untagged song.flac",
				DurationSeconds:  245.5,
				ModificationTime: 1700000000000,
				AlbumID:          "albums/best",
				FileSize:         1024,
			},
		},
		albums: []Album{{ID: "albums/best", Title: "Best Of"}},
	}
	scanner := NewScanner(source, nil, 10, newTestLogger())

	tracks, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("Expected 1 track, got %d", len(tracks))
	}

	track := tracks[0]
	if track.Title != "untagged song" {
		t.Errorf("Expected title from filename, got %q", track.Title)
	}
	if track.Artist != "Unknown Artist" {
		t.Errorf("Expected Unknown Artist fallback, got %q", track.Artist)
	}
	if track.Duration != 245500 {
		t.Errorf("Expected duration 245500ms, got %d", track.Duration)
	}
	if track.ModificationTime != 1700000000000 {
		t.Errorf("Expected stat mtime carried over, got %d", track.ModificationTime)
	}
	if track.AlbumName != "Best Of" {
		t.Errorf("Expected album name resolved, got %q", track.AlbumName)
	}
	if !track.Mood.Valid() {
		t.Errorf("Expected a valid mood, got %q", track.Mood)
	}
}

func TestScanPermissionDenied(t *testing.T) {
	source := &fakeSource{
		permissionErr: fmt.Errorf("%w: /music", ErrPermissionDenied),
	}
	scanner := NewScanner(source, nil, 10, newTestLogger())

	if _, err := scanner.Scan(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}
}

func TestScanEnumerateError(t *testing.T) {
	source := &fakeSource{enumerateErr: errors.New("device gone")}
	scanner := NewScanner(source, nil, 10, newTestLogger())

	if _, err := scanner.Scan(); err == nil {
		t.Error("Expected enumerate error to propagate")
	}
}

func TestScanEmptyLibrary(t *testing.T) {
	scanner := NewScanner(&fakeSource{}, nil, 10, newTestLogger())

	tracks, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("Expected empty library, got %d tracks", len(tracks))
	}
}
