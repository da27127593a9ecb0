package models

import (
	"time"
)

// TorrentRef is a torrent as reported by the torrent service. It is fetched
// per request and never mutated here.
type TorrentRef struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Progress    float64     `json:"progress"`
	DownloadDir string      `json:"download_dir"`
	Files       []FileEntry `json:"files"`
}

// FileEntry is one file of a torrent. Name is relative to the torrent's
// download directory.
type FileEntry struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Completed int64  `json:"completed"`
}

// ResolvedMedia is the on-disk location of a torrent file.
type ResolvedMedia struct {
	Path   string
	Mime   string
	Exists bool
}

// Subtitle is a sidecar subtitle found next to a video.
type Subtitle struct {
	Path   string
	Format string
}

// VideoFile is a playable file of a torrent together with its position in
// the torrent's file list.
type VideoFile struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Completed  int64  `json:"completed"`
	Title      string `json:"title,omitempty"`
	Season     int    `json:"season,omitempty"`
	Episode    int    `json:"episode,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// TorrentRecord is the embedded engine's registry row. Its ID is the torrent
// id exposed to clients.
type TorrentRecord struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	InfoHash  string    `json:"info_hash" gorm:"size:64;not null;uniqueIndex"`
	MagnetURI string    `json:"magnet_uri" gorm:"type:text"`
	MetaInfo  []byte    `json:"-"`
	Name      string    `json:"name" gorm:"size:512"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
