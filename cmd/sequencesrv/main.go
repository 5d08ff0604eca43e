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

	"github.com/vctt94/bisonbotkit/logging"
	"github.com/vctt94/sequence-server/pkg/server"
	"github.com/vctt94/sequence-server/internal/db"
)

func main() {
	var (
		configPath string
		listenAddr string
		dbPath     string
		debugLevel string
	)
	flag.StringVar(&configPath, "config", "", "Path to TOML config file (optional)")
	flag.StringVar(&listenAddr, "listen", "", "Listen address, overrides config")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite snapshot file, overrides config (empty disables snapshots)")
	flag.StringVar(&debugLevel, "debuglevel", "", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if dbPath != "" {
		cfg.SnapshotPath = dbPath
	}
	if debugLevel != "" {
		cfg.DebugLevel = debugLevel
	}

	logBackend, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: cfg.DebugLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	log := logBackend.Logger("MAIN")

	var snapshots *db.SnapshotStore
	if cfg.SnapshotPath != "" {
		snapshots, err = db.Open(cfg.SnapshotPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open snapshot db: %v\n", err)
			os.Exit(1)
		}
		log.Infof("Game snapshots stored at %s", cfg.SnapshotPath)
	}

	srv := server.NewServer(cfg, logBackend, snapshots)
	srv.Start()

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s", cfg.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("Received %v, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warnf("HTTP shutdown incomplete: %v", err)
	}
	srv.Stop()
}
