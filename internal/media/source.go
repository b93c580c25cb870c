package media

import "errors"

// Asset is one raw record returned by a Source page, before it is
// turned into a models.Track. Title and Artist are best-effort tag
// reads and may be empty.
type Asset struct {
	ID               string
	Filename         string
	URI              string
	Title            string
	Artist           string
	DurationSeconds  float64
	ModificationTime int64 // unix millis, from stat
	AlbumID          string
	Artwork          string
	FileSize         int64
}

// Album pairs an album identifier with its display title.
type Album struct {
	ID    string
	Title string
}

// Source enumerates the device's local audio assets. Enumerate is
// paginated: callers must keep fetching pages until the more flag comes
// back false, otherwise the library is silently truncated. A page may be
// shorter than limit (unreadable entries are skipped), so page length
// says nothing about whether more assets remain.
type Source interface {
	RequestPermission() error
	Enumerate(offset, limit int) (assets []Asset, more bool, err error)
	ListAlbums() ([]Album, error)
}

// ErrPermissionDenied distinguishes "access refused" from "no audio
// files". Callers surface it to the user instead of showing an empty
// library.
var ErrPermissionDenied = errors.New("media: permission denied")
