package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"torrent-gateway/media"
	"torrent-gateway/middleware"
	"torrent-gateway/services"
)

const (
	msgUnavailable   = "Unable to reach the torrent service. Check host, port, and credentials."
	msgFileNotFound  = "Requested file not found in torrent."
	msgVideoNotReady = "Video file is not available yet."
	msgFileNotReady  = "File is not available yet."
)

var (
	errBadParams        = errors.New("invalid torrent id or file index")
	errSubtitleNotFound = errors.New("subtitle not found")
)

// ErrorPolicy decides how a route presents a failed lookup. Browser routes
// redirect to the listing with a notice; raw resource routes answer a bare
// status code.
type ErrorPolicy struct {
	Redirect       bool
	NotFoundNotice string
	MissingNotice  string
}

var (
	// BrowserPage is for routes a user navigates to.
	BrowserPage = ErrorPolicy{
		Redirect:       true,
		NotFoundNotice: msgFileNotFound,
		MissingNotice:  msgVideoNotReady,
	}
	// BrowserDownload is BrowserPage with the wording used for downloads.
	BrowserDownload = ErrorPolicy{
		Redirect:       true,
		NotFoundNotice: msgFileNotFound,
		MissingNotice:  msgFileNotReady,
	}
	// RawResource is for routes fetched by players and scripts.
	RawResource = ErrorPolicy{}
)

// Handler serves the gateway routes.
type Handler struct {
	client    services.TorrentClient
	resolver  *media.Resolver
	notices   *middleware.Notices
	backend   string
	version   string
	maxUpload int64
	log       logrus.FieldLogger
}

// Options carries handler settings that do not come from the backend.
type Options struct {
	Backend   string
	Version   string
	MaxUpload int64
}

// NewHandler builds a Handler. MaxUpload defaults to 10 MiB.
func NewHandler(client services.TorrentClient, notices *middleware.Notices, opts Options, log logrus.FieldLogger) *Handler {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 10 << 20
	}
	return &Handler{
		client:    client,
		resolver:  media.NewResolver(client),
		notices:   notices,
		backend:   opts.Backend,
		version:   opts.Version,
		maxUpload: opts.MaxUpload,
		log:       log.WithField("component", "handlers"),
	}
}

// TargetHandler serves a resolved torrent file. A returned error is presented
// according to the route's ErrorPolicy.
type TargetHandler func(c *gin.Context, target media.Target) error

// WithTarget resolves :id and :index before calling next. When requireOnDisk
// is set, files the torrent lists but that are not yet on disk count as
// missing.
func (h *Handler) WithTarget(policy ErrorPolicy, requireOnDisk bool, next TargetHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, index, err := targetParams(c)
		if err != nil {
			h.fail(c, policy, err)
			return
		}

		target, err := h.resolver.Resolve(c.Request.Context(), id, index)
		if err == nil && requireOnDisk {
			err = target.OnDisk()
		}
		if err == nil {
			err = next(c, target)
		}
		if err != nil {
			h.fail(c, policy, err)
		}
	}
}

func targetParams(c *gin.Context) (int64, int, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, 0, errBadParams
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, 0, errBadParams
	}
	return id, index, nil
}

func (h *Handler) fail(c *gin.Context, policy ErrorPolicy, err error) {
	log := h.log.WithError(err).WithField("path", c.Request.URL.Path)

	switch {
	case errors.Is(err, services.ErrServiceUnavailable):
		log.Warn("Torrent service failed mid-request")
		if policy.Redirect {
			h.Unavailable(c, err)
		} else {
			c.AbortWithStatus(http.StatusServiceUnavailable)
		}
		return
	case errors.Is(err, media.ErrFileNotOnDisk):
		log.Info("File not on disk")
	case errors.Is(err, media.ErrTorrentUnavailable),
		errors.Is(err, media.ErrFileIndexOutOfRange),
		errors.Is(err, media.ErrMalformedFileEntry),
		errors.Is(err, errSubtitleNotFound),
		errors.Is(err, errBadParams):
		log.Info("File lookup failed")
	default:
		log.Error("Unexpected error")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if !policy.Redirect {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	msg := policy.NotFoundNotice
	if errors.Is(err, media.ErrFileNotOnDisk) {
		msg = policy.MissingNotice
	}
	h.redirectWithNotice(c, middleware.NoticeError, msg)
}

func (h *Handler) redirectWithNotice(c *gin.Context, category, message string) {
	h.notices.Flash(c, category, message)
	c.Redirect(http.StatusFound, "/")
	c.Abort()
}
