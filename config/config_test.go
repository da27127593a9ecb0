package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigFromFile(t *testing.T) {
	for _, k := range []string{"PORT", "ENV", "TORRENT_BACKEND", "TRANSMISSION_HOST", "TRANSMISSION_PORT", "TRANSMISSION_DOWNLOAD_DIR"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: "8080"
  env: production
transmission:
  host: seedbox
  port: 9092
  username: admin
  password: secret
  download_dir: /data
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.GetGinMode())
	assert.Equal(t, "seedbox", cfg.Transmission.Host)
	assert.Equal(t, 9092, cfg.Transmission.Port)
	assert.Equal(t, "/data", cfg.Transmission.DownloadDir)
	assert.Equal(t, BackendTransmission, cfg.Torrent.Backend)
	assert.Equal(t, 10*time.Second, cfg.Transmission.Timeout)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Transmission.Host)
	assert.Equal(t, 9091, cfg.Transmission.Port)
	assert.Equal(t, "/transmission/rpc", cfg.Transmission.RPCPath)
	assert.Equal(t, "notice", cfg.Notice.CookieName)
	assert.Zero(t, cfg.Server.WriteTimeout)
	require.NoError(t, cfg.Validate())
}

func TestOverrideWithEnv(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()
	cfg.overrideWithEnv(envMap(map[string]string{
		"PORT":                      "7000",
		"TRANSMISSION_HOST":         "daemon",
		"TRANSMISSION_PORT":         "9999",
		"TRANSMISSION_USERNAME":     "u",
		"TRANSMISSION_PASSWORD":     "p",
		"TRANSMISSION_DOWNLOAD_DIR": "/downloads",
		"TORRENT_BACKEND":           "embedded",
	}))

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "daemon", cfg.Transmission.Host)
	assert.Equal(t, 9999, cfg.Transmission.Port)
	assert.Equal(t, "/downloads", cfg.Transmission.DownloadDir)
	assert.Equal(t, BackendEmbedded, cfg.Torrent.Backend)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad server port", func(c *Config) { c.Server.Port = "http" }},
		{"bad backend", func(c *Config) { c.Torrent.Backend = "qbittorrent" }},
		{"bad transmission port", func(c *Config) { c.Transmission.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"bad db driver", func(c *Config) {
			c.Torrent.Backend = BackendEmbedded
			c.Database.Driver = "oracle"
		}},
		{"postgres without host", func(c *Config) {
			c.Torrent.Backend = BackendEmbedded
			c.Database.Driver = "postgres"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.setDefaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNonNumericTransmissionPortFromEnv(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()
	cfg.overrideWithEnv(envMap(map[string]string{"TRANSMISSION_PORT": "abc"}))
	assert.Error(t, cfg.Validate())
}

func TestRPCEndpoint(t *testing.T) {
	c := TransmissionConfig{Host: "h", Port: 9091, RPCPath: "/transmission/rpc"}
	assert.Equal(t, "http://h:9091/transmission/rpc", c.RPCEndpoint().String())

	c.Username = "user"
	c.Password = "pass"
	assert.Equal(t, "http://user:pass@h:9091/transmission/rpc", c.RPCEndpoint().String())
}
