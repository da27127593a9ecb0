package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/hekmon/transmissionrpc/v3"
	"github.com/sirupsen/logrus"

	"torrent-gateway/config"
	"torrent-gateway/models"
)

var torrentFields = []string{"id", "name", "status", "percentDone", "downloadDir", "files"}

// TransmissionClient talks to a Transmission daemon over its JSON-RPC API.
type TransmissionClient struct {
	rpc         *transmissionrpc.Client
	downloadDir string
	timeout     time.Duration
	log         logrus.FieldLogger
}

// NewTransmissionClient builds a client for the configured RPC endpoint. No
// connection is made until the first call.
func NewTransmissionClient(cfg *config.TransmissionConfig, log logrus.FieldLogger) (*TransmissionClient, error) {
	rpc, err := transmissionrpc.New(cfg.RPCEndpoint(), &transmissionrpc.Config{
		CustomClient: &http.Client{Timeout: cfg.Timeout},
		UserAgent:    "torrent-gateway",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transmission client: %w", err)
	}
	return &TransmissionClient{
		rpc:         rpc,
		downloadDir: cfg.DownloadDir,
		timeout:     cfg.Timeout,
		log:         log.WithField("component", "transmission"),
	}, nil
}

// Ping checks the daemon is reachable and pushes the preferred download
// directory to its session when one is configured.
func (c *TransmissionClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.rpc.SessionArgumentsGet(ctx, []string{"download-dir"})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	if c.downloadDir == "" {
		return nil
	}
	if session.DownloadDir != nil && *session.DownloadDir == c.downloadDir {
		return nil
	}

	dir := c.downloadDir
	if err := c.rpc.SessionArgumentsSet(ctx, transmissionrpc.SessionArguments{DownloadDir: &dir}); err != nil {
		return fmt.Errorf("%w: set download dir: %w", ErrServiceUnavailable, err)
	}
	c.log.WithField("download_dir", dir).Info("Updated daemon download directory")
	return nil
}

// ListTorrents returns all torrents known to the daemon.
func (c *TransmissionClient) ListTorrents(ctx context.Context) ([]models.TorrentRef, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	torrents, err := c.rpc.TorrentGet(ctx, torrentFields, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	refs := make([]models.TorrentRef, 0, len(torrents))
	for _, t := range torrents {
		refs = append(refs, toTorrentRef(t))
	}
	return refs, nil
}

// GetTorrent fetches one torrent with its file list.
func (c *TransmissionClient) GetTorrent(ctx context.Context, id int64) (models.TorrentRef, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	torrents, err := c.rpc.TorrentGet(ctx, torrentFields, []int64{id})
	if err != nil {
		return models.TorrentRef{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	if len(torrents) == 0 {
		return models.TorrentRef{}, fmt.Errorf("%w: %d", ErrTorrentNotFound, id)
	}
	return toTorrentRef(torrents[0]), nil
}

// AddTorrentByMagnet hands a magnet link to the daemon.
func (c *TransmissionClient) AddTorrentByMagnet(ctx context.Context, uri string) (models.TorrentRef, error) {
	return c.add(ctx, transmissionrpc.TorrentAddPayload{Filename: &uri})
}

// AddTorrentByFile uploads .torrent contents to the daemon.
func (c *TransmissionClient) AddTorrentByFile(ctx context.Context, data []byte) (models.TorrentRef, error) {
	meta := base64.StdEncoding.EncodeToString(data)
	return c.add(ctx, transmissionrpc.TorrentAddPayload{MetaInfo: &meta})
}

func (c *TransmissionClient) add(ctx context.Context, payload transmissionrpc.TorrentAddPayload) (models.TorrentRef, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.downloadDir != "" {
		dir := c.downloadDir
		payload.DownloadDir = &dir
	}

	t, err := c.rpc.TorrentAdd(ctx, payload)
	if err != nil {
		return models.TorrentRef{}, fmt.Errorf("%w: add torrent: %w", ErrServiceUnavailable, err)
	}
	ref := toTorrentRef(t)
	c.log.WithFields(logrus.Fields{"id": ref.ID, "name": ref.Name}).Info("Torrent added")
	return ref, nil
}

func toTorrentRef(t transmissionrpc.Torrent) models.TorrentRef {
	var ref models.TorrentRef
	if t.ID != nil {
		ref.ID = *t.ID
	}
	if t.Name != nil {
		ref.Name = *t.Name
	}
	if t.Status != nil {
		ref.Status = t.Status.String()
	}
	if t.PercentDone != nil {
		ref.Progress = *t.PercentDone
	}
	if t.DownloadDir != nil {
		ref.DownloadDir = *t.DownloadDir
	}
	for _, f := range t.Files {
		ref.Files = append(ref.Files, models.FileEntry{
			Name:      f.Name,
			Size:      f.Length,
			Completed: f.BytesCompleted,
		})
	}
	return ref
}
