package database

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrent-gateway/config"
	"torrent-gateway/models"
)

func TestInitDBSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database = config.DatabaseConfig{
		Driver:       "sqlite",
		Name:         "test.db",
		Dir:          t.TempDir(),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := InitDB(&cfg.Database, "test", log)
	require.NoError(t, err)
	defer Close(db)

	rec := models.TorrentRecord{InfoHash: "abc", Name: "movie"}
	require.NoError(t, db.Create(&rec).Error)
	assert.NotZero(t, rec.ID)

	dup := models.TorrentRecord{InfoHash: "abc"}
	assert.Error(t, db.Create(&dup).Error)
}

func TestInitDBUnsupportedDriver(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"}, "test", log)
	assert.Error(t, err)
}
