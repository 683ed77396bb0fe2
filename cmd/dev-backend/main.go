// dev-backend — автономный стаб бэкенда zen-cat для локальной разработки
// порталов. Поднимает REST API на SQLite с засеянными учётками:
// admin@zen-cat.dev/admin123 и demo@zen-cat.dev/demo123.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/devserver"
)

func main() {
	var (
		addr      string
		dsn       string
		jwtSecret string
	)
	flag.StringVar(&addr, "addr", ":8098", "listen address")
	flag.StringVar(&dsn, "db", "file::memory:?cache=shared", "sqlite dsn")
	flag.StringVar(&jwtSecret, "jwt-secret", "dev-only-secret", "hs256 signing key")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(log)
	log.Info("starting dev-backend", slog.String("addr", addr))

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	store, err := devserver.OpenStorage(dsn)
	if err != nil {
		log.Error("storage_open_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	srv := devserver.New(devserver.Config{
		JWTSecret:  jwtSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 720 * time.Hour,
	}, store, log)

	if err := srv.Seed(rootCtx); err != nil {
		log.Error("seed_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("seed_ok", slog.String("admin", "admin@zen-cat.dev"))

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	log.Info("dev_backend_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}
