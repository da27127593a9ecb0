package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"torrent-gateway/media"
	"torrent-gateway/metrics"
)

// Stream serves a video inline with range support.
func (h *Handler) Stream(c *gin.Context, target media.Target) error {
	return h.send(c, "stream", target.Media.Path, target.Media.Mime, media.StreamOptions{})
}

// Download serves a file as an attachment.
func (h *Handler) Download(c *gin.Context, target media.Target) error {
	return h.send(c, "download", target.Media.Path, media.DownloadMime(target.Media.Path),
		media.StreamOptions{Attachment: true})
}

// Subtitle serves the sidecar subtitle next to a video.
func (h *Handler) Subtitle(c *gin.Context, target media.Target) error {
	sub, ok := media.FindSubtitle(target.File, target.Torrent.DownloadDir)
	if !ok {
		return errSubtitleNotFound
	}
	return h.send(c, "subtitle", sub.Path, media.SubtitleMime(sub.Path), media.StreamOptions{})
}

// send streams path honoring the request's Range header. The file handle is
// released before send returns.
func (h *Handler) send(c *gin.Context, kind, path, contentType string, opts media.StreamOptions) error {
	resp, err := media.Stream(path, contentType, c.GetHeader("Range"), opts)
	if err != nil {
		return err
	}
	defer resp.Close()

	n, err := resp.Send(c.Writer, c.Request.Method != http.MethodHead)
	metrics.StreamedBytesTotal.WithLabelValues(kind).Add(float64(n))
	if err != nil {
		// Headers are already out; usually the client went away.
		h.log.WithError(err).WithField("path", path).Debug("Transfer interrupted")
	}
	return nil
}
