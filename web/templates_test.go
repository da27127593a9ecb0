package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.0 KB", FormatFileSize(1024))
	assert.Equal(t, "1.5 MB", FormatFileSize(1536*1024))
	assert.Equal(t, "2.0 GB", FormatFileSize(2<<30))
}

func TestTemplatesRender(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "index.html", map[string]any{
		"torrents": []any{},
		"error":    "service down",
	}))
	assert.Contains(t, buf.String(), "service down")
	assert.Contains(t, buf.String(), "No torrents.")

	buf.Reset()
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "watch.html", map[string]any{
		"file_name":    "movie.mp4",
		"stream_url":   "/stream/7/0",
		"stream_mime":  "video/mp4",
		"subtitle_url": "/subtitle/7/0",
		"download_url": "/download/7/0",
	}))
	assert.Contains(t, buf.String(), `src="/subtitle/7/0"`)
}
