package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"torrent-gateway/models"
	"torrent-gateway/services"
)

var (
	ErrTorrentUnavailable  = errors.New("torrent unavailable")
	ErrFileIndexOutOfRange = errors.New("file index out of range")
	ErrMalformedFileEntry  = errors.New("malformed file entry")
	ErrFileNotOnDisk       = errors.New("file not on disk")
)

// ResolveError records which torrent file a resolution failed for.
type ResolveError struct {
	TorrentID int64
	FileIndex int
	Err       error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("torrent %d file %d: %v", e.TorrentID, e.FileIndex, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Target is a torrent file resolved to a location on disk.
type Target struct {
	Torrent models.TorrentRef
	Index   int
	File    models.FileEntry
	Media   models.ResolvedMedia
}

// OnDisk reports ErrFileNotOnDisk when the torrent lists the file but it has
// not materialized yet.
func (t Target) OnDisk() error {
	if !t.Media.Exists {
		return &ResolveError{TorrentID: t.Torrent.ID, FileIndex: t.Index, Err: ErrFileNotOnDisk}
	}
	return nil
}

// Resolver maps a torrent id and file index to a path on disk.
type Resolver struct {
	client services.TorrentClient
}

// NewResolver resolves files through client.
func NewResolver(client services.TorrentClient) *Resolver {
	return &Resolver{client: client}
}

// Resolve maps a torrent id and file index to an absolute path. The torrent is
// fetched fresh and the index is checked against the current file list.
func (r *Resolver) Resolve(ctx context.Context, torrentID int64, fileIndex int) (Target, error) {
	fail := func(err error) (Target, error) {
		return Target{}, &ResolveError{TorrentID: torrentID, FileIndex: fileIndex, Err: err}
	}

	torrent, err := r.client.GetTorrent(ctx, torrentID)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrTorrentUnavailable, err))
	}
	if fileIndex < 0 || fileIndex >= len(torrent.Files) {
		return fail(ErrFileIndexOutOfRange)
	}

	file := torrent.Files[fileIndex]
	path, err := ResolvePath(torrent.DownloadDir, file)
	if err != nil {
		return fail(err)
	}

	target := Target{
		Torrent: torrent,
		Index:   fileIndex,
		File:    file,
		Media: models.ResolvedMedia{
			Path: path,
			Mime: VideoMime(path),
		},
	}
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		target.Media.Exists = true
	}
	return target, nil
}

// ResolvePath joins the download directory with the file's relative name and
// makes the result absolute. Names that would climb out of a non-empty
// download directory are rejected.
func ResolvePath(downloadDir string, file models.FileEntry) (string, error) {
	if file.Name == "" {
		return "", ErrMalformedFileEntry
	}

	path, err := filepath.Abs(filepath.Join(downloadDir, file.Name))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedFileEntry, err)
	}

	if downloadDir != "" {
		root, err := filepath.Abs(downloadDir)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedFileEntry, err)
		}
		if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %q escapes download dir", ErrMalformedFileEntry, file.Name)
		}
	}
	return path, nil
}
