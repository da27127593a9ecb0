package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"torrent-gateway/middleware"
)

// SetupRouter wires the HTTP surface. Every route except /health and /metrics
// first checks that the torrent service is reachable.
func SetupRouter(h *Handler, templates *template.Template, gatherer prometheus.Gatherer, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.SetHTMLTemplate(templates)

	router.GET("/health", h.Health)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	app := router.Group("/")
	app.Use(middleware.RequireService(h.client, h.Unavailable, log))
	{
		app.GET("/", h.Index)
		app.POST("/add-magnet", h.AddMagnet)
		app.POST("/add-file", h.AddFile)

		app.GET("/watch/:id/:index", h.WithTarget(BrowserPage, true, h.Watch))
		app.GET("/download/:id/:index", h.WithTarget(BrowserDownload, true, h.Download))
		app.HEAD("/download/:id/:index", h.WithTarget(BrowserDownload, true, h.Download))

		app.GET("/stream/:id/:index", h.WithTarget(RawResource, true, h.Stream))
		app.HEAD("/stream/:id/:index", h.WithTarget(RawResource, true, h.Stream))
		app.GET("/subtitle/:id/:index", h.WithTarget(RawResource, false, h.Subtitle))
	}

	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not found")
	})

	return router
}
