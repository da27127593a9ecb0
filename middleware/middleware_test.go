package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrent-gateway/models"
)

type pingClient struct {
	err   error
	calls int
}

func (p *pingClient) Ping(context.Context) error { p.calls++; return p.err }
func (p *pingClient) ListTorrents(context.Context) ([]models.TorrentRef, error) {
	return nil, nil
}
func (p *pingClient) GetTorrent(context.Context, int64) (models.TorrentRef, error) {
	return models.TorrentRef{}, nil
}
func (p *pingClient) AddTorrentByMagnet(context.Context, string) (models.TorrentRef, error) {
	return models.TorrentRef{}, nil
}
func (p *pingClient) AddTorrentByFile(context.Context, []byte) (models.TorrentRef, error) {
	return models.TorrentRef{}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRequireService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := &pingClient{}

	router := gin.New()
	router.Use(RequireService(client, func(c *gin.Context, err error) {
		c.String(http.StatusServiceUnavailable, err.Error())
	}, quietLogger()))
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	client.err = errors.New("down")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "down", rec.Body.String())

	// Checked on every request, not once.
	assert.Equal(t, 2, client.calls)
}

func TestNoticesRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	notices := NewNotices("notice")

	router := gin.New()
	router.GET("/set", func(c *gin.Context) {
		notices.Flash(c, NoticeError, "Something went wrong; try again.")
		c.Status(http.StatusNoContent)
	})
	router.GET("/pop", func(c *gin.Context) {
		n := notices.Pop(c)
		if n == nil {
			c.String(http.StatusOK, "none")
			return
		}
		c.String(http.StatusOK, n.Category+":"+n.Message)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/pop", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "error:Something went wrong; try again.", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/pop", nil)
	req.AddCookie(&http.Cookie{Name: "notice", Value: "%%%"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "none", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pop", nil))
	assert.Equal(t, "none", rec.Body.String())
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(quietLogger()), Recovery(quietLogger()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
