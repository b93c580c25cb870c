package media

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sonata/internal/cache"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// FilesystemSource enumerates audio files under a root directory. It
// stands in for the device media store: assets are identified by their
// path relative to the root, which stays stable across rescans.
type FilesystemSource struct {
	root             string
	supportedFormats []string
	logger           *logrus.Logger
	artwork          *cache.Artwork

	// listing is rebuilt on RequestPermission and on the first
	// Enumerate call, then paged from memory so offsets stay stable.
	listing []string
}

// NewFilesystemSource creates a source rooted at dir. Only files whose
// extension appears in supportedFormats are enumerated.
func NewFilesystemSource(dir string, supportedFormats []string, logger *logrus.Logger) *FilesystemSource {
	return &FilesystemSource{
		root:             dir,
		supportedFormats: supportedFormats,
		logger:           logger,
		artwork:          cache.NewArtwork(),
	}
}

// RequestPermission verifies the library directory is readable. A
// permission failure is reported as ErrPermissionDenied so callers can
// tell it apart from an empty library.
func (s *FilesystemSource) RequestPermission() error {
	f, err := os.Open(s.root)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, s.root)
		}
		return fmt.Errorf("failed to open library directory: %w", err)
	}
	f.Close()

	return s.refreshListing()
}

// refreshListing walks the root and rebuilds the ordered file list,
// newest modification first, matching how the device store sorts.
func (s *FilesystemSource) refreshListing() error {
	type entry struct {
		path    string
		modTime int64
	}
	var entries []entry

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
			}
			return err
		}
		if info.IsDir() || !s.isAudioFile(path) {
			return nil
		}
		entries = append(entries, entry{path: path, modTime: info.ModTime().UnixMilli()})
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].modTime != entries[j].modTime {
			return entries[i].modTime > entries[j].modTime
		}
		return entries[i].path < entries[j].path
	})

	s.listing = make([]string, len(entries))
	for i, e := range entries {
		s.listing[i] = e.path
	}
	return nil
}

// Enumerate returns one page of assets starting at offset. Unreadable
// entries are skipped, so a page may come back short (or even empty)
// while more assets remain; the more flag alone signals the end of the
// library.
func (s *FilesystemSource) Enumerate(offset, limit int) ([]Asset, bool, error) {
	if s.listing == nil {
		if err := s.refreshListing(); err != nil {
			return nil, false, err
		}
	}
	if offset >= len(s.listing) {
		return nil, false, nil
	}

	end := offset + limit
	if end > len(s.listing) {
		end = len(s.listing)
	}

	assets := make([]Asset, 0, end-offset)
	for _, path := range s.listing[offset:end] {
		asset, err := s.readAsset(path)
		if err != nil {
			s.logger.WithError(err).WithField("file_path", path).Warn("Skipping unreadable audio file")
			continue
		}
		assets = append(assets, asset)
	}
	return assets, end < len(s.listing), nil
}

// ListAlbums maps each directory under the root to an album. The
// relative directory path is the album ID; its base name is the title.
func (s *FilesystemSource) ListAlbums() ([]Album, error) {
	seen := make(map[string]bool)
	var albums []Album

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !s.isAudioFile(path) {
			return nil
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(s.root, dir)
		if err != nil || rel == "." || seen[rel] {
			return nil
		}
		seen[rel] = true
		albums = append(albums, Album{ID: rel, Title: filepath.Base(dir)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(albums, func(i, j int) bool { return albums[i].ID < albums[j].ID })
	return albums, nil
}

// readAsset builds an Asset from one audio file: stat info, best-effort
// tags and a duration probe.
func (s *FilesystemSource) readAsset(path string) (Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Asset{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return Asset{}, err
	}

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return Asset{}, err
	}

	asset := Asset{
		ID:               filepath.ToSlash(rel),
		Filename:         filepath.Base(path),
		URI:              "file://" + path,
		ModificationTime: stat.ModTime().UnixMilli(),
		FileSize:         stat.Size(),
	}
	if dir := filepath.Dir(rel); dir != "." {
		asset.AlbumID = filepath.ToSlash(dir)
	}

	duration, err := probeDuration(path)
	if err != nil {
		s.logger.WithError(err).WithField("file_path", path).Warn("Failed to probe duration, setting to 0")
		duration = 0
	}
	asset.DurationSeconds = duration

	// Tags are optional; a file with no tags still enumerates.
	if metadata, err := tag.ReadFrom(file); err == nil {
		asset.Title = metadata.Title()
		asset.Artist = metadata.Artist()
		asset.Artwork = s.extractArtwork(metadata)
	}

	return asset, nil
}

// extractArtwork caches embedded cover art and returns a reference of
// the form "art:<hash>" resolvable via Artwork().
func (s *FilesystemSource) extractArtwork(metadata tag.Metadata) string {
	picture := metadata.Picture()
	if picture == nil {
		return ""
	}

	hash := md5.Sum(picture.Data)
	artID := fmt.Sprintf("%x", hash)
	s.artwork.Set(artID, picture.Data)
	return "art:" + artID
}

// Artwork resolves an artwork reference produced by Enumerate.
func (s *FilesystemSource) Artwork(ref string) ([]byte, bool) {
	return s.artwork.Get(strings.TrimPrefix(ref, "art:"))
}

func (s *FilesystemSource) isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range s.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
