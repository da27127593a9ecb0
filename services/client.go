package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/anacrolix/torrent/metainfo"

	"torrent-gateway/models"
)

var (
	// ErrServiceUnavailable means the torrent service could not be reached or
	// answered with a transport-level failure.
	ErrServiceUnavailable = errors.New("torrent service unavailable")
	ErrTorrentNotFound    = errors.New("torrent not found")
	ErrInvalidTorrent     = errors.New("invalid torrent")
)

// TorrentClient is the query contract of the torrent service. Every call goes
// to the service; nothing is cached between calls.
type TorrentClient interface {
	Ping(ctx context.Context) error
	ListTorrents(ctx context.Context) ([]models.TorrentRef, error)
	GetTorrent(ctx context.Context, id int64) (models.TorrentRef, error)
	AddTorrentByMagnet(ctx context.Context, uri string) (models.TorrentRef, error)
	AddTorrentByFile(ctx context.Context, data []byte) (models.TorrentRef, error)
}

// ValidateMagnet checks that uri is a parseable magnet link carrying an info hash.
func ValidateMagnet(uri string) (metainfo.Magnet, error) {
	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return metainfo.Magnet{}, fmt.Errorf("%w: %w", ErrInvalidTorrent, err)
	}
	if m.InfoHash == (metainfo.Hash{}) {
		return metainfo.Magnet{}, fmt.Errorf("%w: magnet has no info hash", ErrInvalidTorrent)
	}
	return m, nil
}

// ValidateTorrentFile decodes data as a bencoded metainfo file and returns it
// together with its info dictionary.
func ValidateTorrentFile(data []byte) (*metainfo.MetaInfo, metainfo.Info, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return nil, metainfo.Info{}, fmt.Errorf("%w: %w", ErrInvalidTorrent, err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, metainfo.Info{}, fmt.Errorf("%w: %w", ErrInvalidTorrent, err)
	}
	return mi, info, nil
}
