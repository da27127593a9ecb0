package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	BackendTransmission = "transmission"
	BackendEmbedded     = "embedded"
)

// Config is the full application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Torrent      TorrentConfig      `yaml:"torrent"`
	Transmission TransmissionConfig `yaml:"transmission"`
	Embedded     EmbeddedConfig     `yaml:"embedded"`
	Database     DatabaseConfig     `yaml:"database"`
	Notice       NoticeConfig       `yaml:"notice"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	Env          string        `yaml:"env"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LogLevel     string        `yaml:"log_level"`
}

// TorrentConfig selects the torrent backend.
type TorrentConfig struct {
	Backend string `yaml:"backend"`
}

// TransmissionConfig describes how to reach the Transmission daemon.
type TransmissionConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	DownloadDir string        `yaml:"download_dir"`
	RPCPath     string        `yaml:"rpc_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

// EmbeddedConfig configures the in-process BitTorrent engine.
type EmbeddedConfig struct {
	DownloadDir     string        `yaml:"download_dir"`
	ListenPort      int           `yaml:"listen_port"`
	UserAgent       string        `yaml:"user_agent"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout"`
}

// DatabaseConfig configures the registry used by the embedded engine.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	Dir             string        `yaml:"dir"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NoticeConfig configures flash notices.
type NoticeConfig struct {
	CookieName string `yaml:"cookie_name"`
}

var defaultPaths = []string{
	"config.yaml",
	"config/config.yaml",
	"/etc/torrent-gateway/config.yaml",
}

// LoadConfig reads the YAML file at configPath. With an empty path the default
// locations are searched; when none exists the configuration is built from
// defaults and the environment alone.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.setDefaults()
	cfg.overrideWithEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Torrent.Backend == "" {
		c.Torrent.Backend = BackendTransmission
	}

	if c.Transmission.Host == "" {
		c.Transmission.Host = "localhost"
	}
	if c.Transmission.Port == 0 {
		c.Transmission.Port = 9091
	}
	if c.Transmission.RPCPath == "" {
		c.Transmission.RPCPath = "/transmission/rpc"
	}
	if c.Transmission.Timeout == 0 {
		c.Transmission.Timeout = 10 * time.Second
	}

	if c.Embedded.DownloadDir == "" {
		c.Embedded.DownloadDir = "./data/torrents"
	}
	if c.Embedded.UserAgent == "" {
		c.Embedded.UserAgent = "Torrent-Gateway/1.0"
	}
	if c.Embedded.MetadataTimeout == 0 {
		c.Embedded.MetadataTimeout = 30 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Name == "" {
		c.Database.Name = "torrent_gateway.db"
	}
	if c.Database.Dir == "" {
		c.Database.Dir = "./data/db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}

	if c.Notice.CookieName == "" {
		c.Notice.CookieName = "notice"
	}
}

func (c *Config) overrideWithEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if env := getenv("ENV"); env != "" {
		c.Server.Env = env
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}

	if backend := getenv("TORRENT_BACKEND"); backend != "" {
		c.Torrent.Backend = backend
	}

	if host := getenv("TRANSMISSION_HOST"); host != "" {
		c.Transmission.Host = host
	}
	if port := getenv("TRANSMISSION_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Transmission.Port = p
		} else {
			// Surfaced by Validate.
			c.Transmission.Port = -1
		}
	}
	if user := getenv("TRANSMISSION_USERNAME"); user != "" {
		c.Transmission.Username = user
	}
	if pass := getenv("TRANSMISSION_PASSWORD"); pass != "" {
		c.Transmission.Password = pass
	}
	if dir := getenv("TRANSMISSION_DOWNLOAD_DIR"); dir != "" {
		c.Transmission.DownloadDir = dir
	}

	if dir := getenv("TORRENT_DIR"); dir != "" {
		c.Embedded.DownloadDir = dir
	}
	if driver := getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if name := getenv("DB_NAME"); name != "" {
		c.Database.Name = name
	}
	if host := getenv("DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := getenv("DB_PORT"); port != "" {
		c.Database.Port = port
	}
	if user := getenv("DB_USER"); user != "" {
		c.Database.User = user
	}
	if pass := getenv("DB_PASSWORD"); pass != "" {
		c.Database.Password = pass
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if _, err := logrus.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	switch c.Torrent.Backend {
	case BackendTransmission:
		if c.Transmission.Port < 1 || c.Transmission.Port > 65535 {
			return fmt.Errorf("invalid transmission port %d", c.Transmission.Port)
		}
		if c.Transmission.Host == "" {
			return fmt.Errorf("transmission host is required")
		}
	case BackendEmbedded:
		supportedDrivers := map[string]bool{
			"sqlite":    true,
			"mysql":     true,
			"postgres":  true,
			"sqlserver": true,
		}
		if !supportedDrivers[c.Database.Driver] {
			return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
		}
		switch c.Database.Driver {
		case "mysql", "postgres", "sqlserver":
			if c.Database.Host == "" {
				return fmt.Errorf("database host is required for %s", c.Database.Driver)
			}
			if c.Database.User == "" {
				return fmt.Errorf("database user is required for %s", c.Database.Driver)
			}
		}
	default:
		return fmt.Errorf("unsupported torrent backend: %s", c.Torrent.Backend)
	}

	return nil
}

// GetGinMode maps the environment name to a gin mode.
func (c *Config) GetGinMode() string {
	if c.Server.Env == "production" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}

// RPCEndpoint builds the Transmission RPC URL, embedding credentials when set.
func (c *TransmissionConfig) RPCEndpoint() *url.URL {
	u := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.RPCPath,
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u
}

// GetConnectionString builds the DSN for the configured driver.
func (c *DatabaseConfig) GetConnectionString() string {
	switch c.Driver {
	case "sqlite":
		return fmt.Sprintf("%s/%s", c.Dir, c.Name)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	case "sqlserver":
		return fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			c.User, c.Password, c.Host, c.Port, c.Name)
	default:
		return ""
	}
}
