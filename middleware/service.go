package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"torrent-gateway/metrics"
	"torrent-gateway/services"
)

// RequireService pings the torrent service before every request. When it is
// unreachable the request is handed to unavailable and the chain stops.
func RequireService(client services.TorrentClient, unavailable func(*gin.Context, error), log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := client.Ping(c.Request.Context()); err != nil {
			metrics.ServiceUnavailableTotal.Inc()
			log.WithError(err).WithField("path", c.Request.URL.Path).Warn("Torrent service unavailable")
			unavailable(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
