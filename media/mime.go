package media

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/cehbz/torrentname"

	"torrent-gateway/models"
)

const (
	MimeMP4      = "video/mp4"
	MimeMatroska = "video/x-matroska"
	MimeVTT      = "text/vtt"
	MimeText     = "text/plain"
)

var videoExtensions = map[string]bool{
	".mp4": true,
	".mkv": true,
}

// IsVideoFile reports whether name has a playable video extension.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// VideoMime classifies a media path. Anything that is not Matroska is served
// as MP4.
func VideoMime(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".mkv" {
		return MimeMatroska
	}
	return MimeMP4
}

// SubtitleMime returns the Content-Type for a subtitle file.
func SubtitleMime(path string) string {
	if strings.HasSuffix(path, ".vtt") {
		return MimeVTT
	}
	return MimeText
}

// DownloadMime picks the Content-Type for an attachment download.
func DownloadMime(path string) string {
	if IsVideoFile(path) {
		return VideoMime(path)
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// FilterVideoFiles keeps the playable files of a torrent, preserving each
// file's original index.
func FilterVideoFiles(files []models.FileEntry) []models.VideoFile {
	var videos []models.VideoFile
	for i, f := range files {
		if !IsVideoFile(f.Name) {
			continue
		}
		v := models.VideoFile{
			Index:     i,
			Name:      f.Name,
			Size:      f.Size,
			Completed: f.Completed,
		}
		if parsed := torrentname.Parse(filepath.Base(f.Name)); parsed != nil {
			v.Title = parsed.Title
			v.Season = parsed.Season
			v.Episode = parsed.Episode
			v.Resolution = parsed.Resolution
		}
		videos = append(videos, v)
	}
	return videos
}
