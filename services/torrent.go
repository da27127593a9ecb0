package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/anacrolix/torrent/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"torrent-gateway/config"
	"torrent-gateway/models"
)

// Torrent states reported by the embedded engine.
const (
	StatusStopped     = "stopped"
	StatusMetadata    = "metadata"
	StatusDownloading = "downloading"
	StatusSeeding     = "seeding"
)

// EmbeddedEngine runs an in-process BitTorrent client and acts as the torrent
// service. Torrents are registered in the database so ids survive restarts.
type EmbeddedEngine struct {
	cfg         *config.EmbeddedConfig
	db          *gorm.DB
	downloadDir string
	client      *torrent.Client
	active      map[int64]*torrent.Torrent
	mutex       sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	log         logrus.FieldLogger
}

// NewEmbeddedEngine creates an engine. Call Start before use.
func NewEmbeddedEngine(cfg *config.EmbeddedConfig, db *gorm.DB, log logrus.FieldLogger) (*EmbeddedEngine, error) {
	dir, err := filepath.Abs(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download dir: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &EmbeddedEngine{
		cfg:         cfg,
		db:          db,
		downloadDir: dir,
		active:      make(map[int64]*torrent.Torrent),
		ctx:         ctx,
		cancel:      cancel,
		log:         log.WithField("component", "engine"),
	}, nil
}

// Start creates the BitTorrent client and re-adds saved torrents.
func (s *EmbeddedEngine) Start() error {
	clientConfig := torrent.NewDefaultClientConfig()
	clientConfig.DataDir = s.downloadDir
	clientConfig.DefaultStorage = storage.NewFile(s.downloadDir)
	clientConfig.ListenPort = s.cfg.ListenPort
	clientConfig.DisableIPv6 = true
	clientConfig.HTTPUserAgent = s.cfg.UserAgent

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return fmt.Errorf("failed to create torrent client: %w", err)
	}

	s.mutex.Lock()
	s.client = client
	s.mutex.Unlock()

	if err := s.restore(); err != nil {
		s.log.WithError(err).Warn("Failed to restore torrents")
	}

	s.log.WithField("download_dir", s.downloadDir).Info("Torrent engine started")
	return nil
}

// Stop drops all torrents and closes the client.
func (s *EmbeddedEngine) Stop() {
	s.cancel()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, t := range s.active {
		t.Drop()
		delete(s.active, id)
	}
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}

	s.log.Info("Torrent engine stopped")
}

// Ping reports whether the client is running.
func (s *EmbeddedEngine) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	s.mutex.RLock()
	running := s.client != nil
	s.mutex.RUnlock()
	if !running {
		return fmt.Errorf("%w: engine not running", ErrServiceUnavailable)
	}
	return nil
}

// ListTorrents returns every registered torrent in id order.
func (s *EmbeddedEngine) ListTorrents(ctx context.Context) ([]models.TorrentRef, error) {
	var records []models.TorrentRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	refs := make([]models.TorrentRef, 0, len(records))
	for _, rec := range records {
		refs = append(refs, s.toTorrentRef(rec))
	}
	return refs, nil
}

// GetTorrent looks up a registered torrent by id.
func (s *EmbeddedEngine) GetTorrent(ctx context.Context, id int64) (models.TorrentRef, error) {
	var rec models.TorrentRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TorrentRef{}, fmt.Errorf("%w: %d", ErrTorrentNotFound, id)
	}
	if err != nil {
		return models.TorrentRef{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return s.toTorrentRef(rec), nil
}

// AddTorrentByMagnet registers and starts a magnet link.
func (s *EmbeddedEngine) AddTorrentByMagnet(ctx context.Context, uri string) (models.TorrentRef, error) {
	m, err := ValidateMagnet(uri)
	if err != nil {
		return models.TorrentRef{}, err
	}
	return s.register(ctx, models.TorrentRecord{
		InfoHash:  m.InfoHash.HexString(),
		MagnetURI: uri,
		Name:      m.DisplayName,
	})
}

// AddTorrentByFile registers and starts a .torrent file.
func (s *EmbeddedEngine) AddTorrentByFile(ctx context.Context, data []byte) (models.TorrentRef, error) {
	mi, info, err := ValidateTorrentFile(data)
	if err != nil {
		return models.TorrentRef{}, err
	}
	return s.register(ctx, models.TorrentRecord{
		InfoHash: mi.HashInfoBytes().HexString(),
		MetaInfo: data,
		Name:     info.Name,
	})
}

// register stores rec unless a torrent with the same info hash already exists,
// then hands it to the client.
func (s *EmbeddedEngine) register(ctx context.Context, rec models.TorrentRecord) (models.TorrentRef, error) {
	if err := s.Ping(ctx); err != nil {
		return models.TorrentRef{}, err
	}

	var existing models.TorrentRecord
	err := s.db.WithContext(ctx).Where("info_hash = ?", rec.InfoHash).First(&existing).Error
	switch {
	case err == nil:
		return s.toTorrentRef(existing), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return models.TorrentRef{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.TorrentRef{}, fmt.Errorf("%w: failed to create torrent record: %w", ErrServiceUnavailable, err)
	}

	go s.addToClient(rec)

	return s.toTorrentRef(rec), nil
}

func (s *EmbeddedEngine) addToClient(rec models.TorrentRecord) {
	log := s.log.WithFields(logrus.Fields{"id": rec.ID, "info_hash": rec.InfoHash})

	s.mutex.RLock()
	client := s.client
	s.mutex.RUnlock()
	if client == nil {
		return
	}

	var (
		t   *torrent.Torrent
		err error
	)
	if len(rec.MetaInfo) > 0 {
		var mi *metainfo.MetaInfo
		mi, err = metainfo.Load(bytes.NewReader(rec.MetaInfo))
		if err == nil {
			t, err = client.AddTorrent(mi)
		}
	} else {
		t, err = client.AddMagnet(rec.MagnetURI)
	}
	if err != nil {
		log.WithError(err).Error("Failed to add torrent")
		return
	}

	s.mutex.Lock()
	s.active[rec.ID] = t
	s.mutex.Unlock()

	select {
	case <-t.GotInfo():
		t.DownloadAll()
		if err := s.db.Model(&models.TorrentRecord{}).Where("id = ?", rec.ID).
			Update("name", t.Name()).Error; err != nil {
			log.WithError(err).Warn("Failed to update torrent name")
		}
		log.WithField("name", t.Name()).Info("Torrent metadata received")
	case <-time.After(s.cfg.MetadataTimeout):
		log.Warn("Timeout waiting for metadata")
	case <-s.ctx.Done():
	}
}

func (s *EmbeddedEngine) restore() error {
	var records []models.TorrentRecord
	if err := s.db.Order("id").Find(&records).Error; err != nil {
		return err
	}
	for _, rec := range records {
		go s.addToClient(rec)
	}
	s.log.WithField("count", len(records)).Info("Restored torrents")
	return nil
}

func (s *EmbeddedEngine) toTorrentRef(rec models.TorrentRecord) models.TorrentRef {
	ref := models.TorrentRef{
		ID:          rec.ID,
		Name:        rec.Name,
		Status:      StatusStopped,
		DownloadDir: s.downloadDir,
	}

	s.mutex.RLock()
	t := s.active[rec.ID]
	s.mutex.RUnlock()
	if t == nil {
		return ref
	}

	select {
	case <-t.GotInfo():
	default:
		ref.Status = StatusMetadata
		return ref
	}

	ref.Name = t.Name()
	var total, done int64
	for _, f := range t.Files() {
		completed := f.BytesCompleted()
		ref.Files = append(ref.Files, models.FileEntry{
			Name:      f.Path(),
			Size:      f.Length(),
			Completed: completed,
		})
		total += f.Length()
		done += completed
	}
	if total > 0 {
		ref.Progress = float64(done) / float64(total)
	}
	ref.Status = StatusDownloading
	if total > 0 && done == total {
		ref.Status = StatusSeeding
	}
	return ref
}
