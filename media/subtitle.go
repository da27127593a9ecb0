package media

import (
	"os"
	"path/filepath"
	"strings"

	"torrent-gateway/models"
)

// SubtitleExtensions is the lookup priority for sidecar subtitles.
var SubtitleExtensions = []string{".srt", ".vtt"}

// FindSubtitle looks for a subtitle next to the media file that shares its
// base name. The first extension in SubtitleExtensions that exists wins.
func FindSubtitle(file models.FileEntry, downloadDir string) (models.Subtitle, bool) {
	if file.Name == "" {
		return models.Subtitle{}, false
	}
	base := strings.TrimSuffix(file.Name, filepath.Ext(file.Name))

	for _, ext := range SubtitleExtensions {
		candidate := filepath.Join(downloadDir, base+ext)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if abs, err := filepath.Abs(candidate); err == nil {
			candidate = abs
		}
		return models.Subtitle{Path: candidate, Format: strings.TrimPrefix(ext, ".")}, true
	}
	return models.Subtitle{}, false
}
