package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"sonata/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultPageSize matches the page size used against the device store.
const DefaultPageSize = 200

// Scanner drives a Source to exhaustion and turns its assets into
// tracks. It does not cache; callers own caching.
type Scanner struct {
	source     Source
	classifier Classifier
	pageSize   int
	logger     *logrus.Logger
}

// NewScanner creates a scanner over the given source. A nil classifier
// defaults to the keyword heuristic.
func NewScanner(source Source, classifier Classifier, pageSize int, logger *logrus.Logger) *Scanner {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Scanner{
		source:     source,
		classifier: classifier,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// Scan enumerates every page of the source and returns the full track
// list. Stopping after one page would silently truncate the library, so
// pages are fetched until the source reports no more remain; page length
// is never used as an end signal, since skipped entries shorten pages.
func (s *Scanner) Scan() ([]models.Track, error) {
	if err := s.source.RequestPermission(); err != nil {
		return nil, err
	}

	albums, err := s.source.ListAlbums()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list albums, album names will be empty")
	}
	albumNames := make(map[string]string, len(albums))
	for _, album := range albums {
		albumNames[album.ID] = album.Title
	}

	var tracks []models.Track
	for offset := 0; ; offset += s.pageSize {
		page, more, err := s.source.Enumerate(offset, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate media page at offset %d: %w", offset, err)
		}
		for _, asset := range page {
			tracks = append(tracks, s.trackFromAsset(asset, albumNames))
		}
		if !more {
			break
		}
	}

	s.logger.WithField("track_count", len(tracks)).Info("Library scan complete")
	return tracks, nil
}

// trackFromAsset converts one raw asset into a Track, filling gaps the
// source left: title from filename, unknown artist, heuristic mood.
func (s *Scanner) trackFromAsset(asset Asset, albumNames map[string]string) models.Track {
	title := asset.Title
	if title == "" {
		title = strings.TrimSuffix(asset.Filename, filepath.Ext(asset.Filename))
	}
	artist := asset.Artist
	if artist == "" {
		artist = "Unknown Artist"
	}

	duration := int64(asset.DurationSeconds * 1000)
	if duration < 0 {
		duration = 0
	}

	return models.Track{
		ID:               asset.ID,
		Title:            title,
		Artist:           artist,
		URI:              asset.URI,
		Duration:         duration,
		Artwork:          asset.Artwork,
		Mood:             s.classifier.Classify(title),
		ModificationTime: asset.ModificationTime,
		AlbumID:          asset.AlbumID,
		AlbumName:        albumNames[asset.AlbumID],
		FileSize:         asset.FileSize,
	}
}
