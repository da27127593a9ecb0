package handlers

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"torrent-gateway/media"
	"torrent-gateway/middleware"
	"torrent-gateway/models"
	"torrent-gateway/services"
)

var pageFormats = []string{binding.MIMEHTML, binding.MIMEJSON}

type torrentView struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Status      string             `json:"status"`
	Progress    float64            `json:"progress"`
	DownloadDir string             `json:"download_dir"`
	VideoFiles  []models.VideoFile `json:"video_files"`
}

// render answers with JSON when the client asks for it and with the HTML page
// otherwise. Accept headers matching neither (video/mp4 on a stream URL) still
// get the page rather than a 406.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if c.NegotiateFormat(pageFormats...) == "" {
		c.HTML(status, name, data)
		return
	}
	c.Negotiate(status, gin.Negotiate{
		Offered:  pageFormats,
		HTMLName: name,
		Data:     data,
	})
}

// Index lists torrents with their video files.
func (h *Handler) Index(c *gin.Context) {
	torrents, err := h.client.ListTorrents(c.Request.Context())
	if err != nil {
		h.Unavailable(c, err)
		return
	}

	views := make([]torrentView, 0, len(torrents))
	for _, t := range torrents {
		views = append(views, torrentView{
			ID:          t.ID,
			Name:        t.Name,
			Status:      t.Status,
			Progress:    math.Round(t.Progress*100) / 100,
			DownloadDir: t.DownloadDir,
			VideoFiles:  media.FilterVideoFiles(t.Files),
		})
	}

	h.render(c, http.StatusOK, "index.html", gin.H{
		"torrents": views,
		"error":    nil,
		"notice":   h.notices.Pop(c),
	})
}

// Unavailable renders the listing with no torrents and an error message.
func (h *Handler) Unavailable(c *gin.Context, err error) {
	h.log.WithError(err).Debug("Rendering unavailable page")
	h.render(c, http.StatusServiceUnavailable, "index.html", gin.H{
		"torrents": []torrentView{},
		"error":    msgUnavailable,
		"notice":   h.notices.Pop(c),
	})
}

// Watch renders the player page for a video file.
func (h *Handler) Watch(c *gin.Context, target media.Target) error {
	var subtitleURL *string
	if _, ok := media.FindSubtitle(target.File, target.Torrent.DownloadDir); ok {
		u := fileURL("subtitle", target)
		subtitleURL = &u
	}

	h.render(c, http.StatusOK, "watch.html", gin.H{
		"torrent_id":   target.Torrent.ID,
		"torrent_name": target.Torrent.Name,
		"file_index":   target.Index,
		"file_name":    path.Base(target.File.Name),
		"file":         target.File,
		"stream_url":   fileURL("stream", target),
		"stream_mime":  target.Media.Mime,
		"download_url": fileURL("download", target),
		"subtitle_url": subtitleURL,
	})
	return nil
}

func fileURL(kind string, target media.Target) string {
	return fmt.Sprintf("/%s/%d/%d", kind, target.Torrent.ID, target.Index)
}

// AddMagnet adds a magnet link from the listing form.
func (h *Handler) AddMagnet(c *gin.Context) {
	magnet := c.PostForm("magnet")
	if magnet == "" {
		h.redirectWithNotice(c, middleware.NoticeError, "Please provide a magnet link.")
		return
	}
	if _, err := services.ValidateMagnet(magnet); err != nil {
		h.log.WithError(err).Info("Rejected magnet link")
		h.redirectWithNotice(c, middleware.NoticeError, "Invalid magnet link.")
		return
	}

	if !h.add(c, func() (models.TorrentRef, error) {
		return h.client.AddTorrentByMagnet(c.Request.Context(), magnet)
	}) {
		return
	}
	h.redirectWithNotice(c, middleware.NoticeSuccess, "Magnet link added.")
}

// AddFile adds an uploaded .torrent file.
func (h *Handler) AddFile(c *gin.Context) {
	header, err := c.FormFile("torrent_file")
	if err != nil {
		h.redirectWithNotice(c, middleware.NoticeError, "Please choose a .torrent file to upload.")
		return
	}
	f, err := header.Open()
	if err != nil {
		h.redirectWithNotice(c, middleware.NoticeError, "Please choose a .torrent file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	switch {
	case err != nil:
		h.log.WithError(err).Warn("Failed to read upload")
		h.redirectWithNotice(c, middleware.NoticeError, "Failed to read uploaded file.")
		return
	case len(data) == 0:
		h.redirectWithNotice(c, middleware.NoticeError, "Uploaded file is empty.")
		return
	case int64(len(data)) > h.maxUpload:
		h.redirectWithNotice(c, middleware.NoticeError, "Uploaded file is too large.")
		return
	}

	if _, _, err := services.ValidateTorrentFile(data); err != nil {
		h.log.WithError(err).Info("Rejected torrent file")
		h.redirectWithNotice(c, middleware.NoticeError, "Uploaded file is not a valid torrent.")
		return
	}

	if !h.add(c, func() (models.TorrentRef, error) {
		return h.client.AddTorrentByFile(c.Request.Context(), data)
	}) {
		return
	}
	h.redirectWithNotice(c, middleware.NoticeSuccess, "Torrent file added.")
}

func (h *Handler) add(c *gin.Context, fn func() (models.TorrentRef, error)) bool {
	ref, err := fn()
	if err != nil {
		h.log.WithError(err).Warn("Failed to add torrent")
		msg := "Failed to add torrent."
		if errors.Is(err, services.ErrServiceUnavailable) {
			msg = msgUnavailable
		}
		h.redirectWithNotice(c, middleware.NoticeError, msg)
		return false
	}
	h.log.WithFields(logrus.Fields{"id": ref.ID, "name": ref.Name}).Info("Torrent added")
	return true
}

// Health reports service reachability without the 503 page.
func (h *Handler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if err := h.client.Ping(c.Request.Context()); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"version": h.version,
		"backend": h.backend,
	})
}
