package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"torrent-gateway/config"
	"torrent-gateway/database"
	"torrent-gateway/handlers"
	"torrent-gateway/metrics"
	"torrent-gateway/middleware"
	"torrent-gateway/services"
	"torrent-gateway/web"
)

var (
	configPath = flag.String("c", "", "Path to configuration file")
	version    = flag.Bool("v", false, "Show version information")
)

const (
	AppVersion = "1.0.0"
	AppName    = "Torrent Gateway"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		os.Exit(0)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	level, _ := logrus.ParseLevel(cfg.Server.LogLevel)
	log.SetLevel(level)

	client, shutdown, err := newTorrentClient(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to start torrent backend")
	}
	defer shutdown()

	templates, err := web.Templates()
	if err != nil {
		log.WithError(err).Fatal("Failed to parse templates")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	gin.SetMode(cfg.GetGinMode())
	h := handlers.NewHandler(client, middleware.NewNotices(cfg.Notice.CookieName), handlers.Options{
		Backend: cfg.Torrent.Backend,
		Version: AppVersion,
	}, log)
	router := handlers.SetupRouter(h, templates, registry, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"backend": cfg.Torrent.Backend,
	}).Infof("Starting %s v%s", AppName, AppVersion)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Server shutdown incomplete")
	}
	log.Info("Server shutdown complete")
}

// newTorrentClient builds the configured backend and returns a function that
// releases it.
func newTorrentClient(cfg *config.Config, log *logrus.Logger) (services.TorrentClient, func(), error) {
	switch cfg.Torrent.Backend {
	case config.BackendEmbedded:
		db, err := database.InitDB(&cfg.Database, cfg.Server.Env, log)
		if err != nil {
			return nil, nil, err
		}
		engine, err := services.NewEmbeddedEngine(&cfg.Embedded, db, log)
		if err != nil {
			database.Close(db)
			return nil, nil, err
		}
		if err := engine.Start(); err != nil {
			database.Close(db)
			return nil, nil, err
		}
		return engine, func() {
			engine.Stop()
			closeDB(db, log)
		}, nil
	default:
		client, err := services.NewTransmissionClient(&cfg.Transmission, log)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("endpoint", cfg.Transmission.RPCEndpoint().Redacted()).Info("Using Transmission")
		return client, func() {}, nil
	}
}

func closeDB(db *gorm.DB, log logrus.FieldLogger) {
	if err := database.Close(db); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}
