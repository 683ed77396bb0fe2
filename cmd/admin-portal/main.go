package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/cache"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/config"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/cookies"
	porthttp "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/http"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting admin-portal", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	sameSite, err := cookies.ParseSameSite(cfg.Cookies.SameSite)
	if err != nil {
		log.Error("cookie_config_invalid", slog.String("err", err.Error()))
		os.Exit(1)
	}

	cookieCfg := cookies.Config{
		Path:     cfg.Cookies.Path,
		Domain:   cfg.Cookies.Domain,
		Secure:   cfg.Cookies.Secure,
		SameSite: sameSite,
		MaxAge:   int(cfg.Cookies.MaxAge / time.Second),
	}

	client := zencat.New(zencat.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: cfg.Backend.UserAgent,
	})

	ctrl := session.New(client)

	if cfg.Cache.RedisURL != "" {
		users, err := cache.NewRedisCache(cfg.Cache.RedisURL, "portal:me:")
		if err != nil {
			log.Error("cache_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		defer func() {
			if cerr := users.Close(); cerr != nil {
				log.Warn("cache_close_failed", slog.String("err", cerr.Error()))
			}
		}()

		ctrl.SetUserCache(users, cfg.Cache.TTL)
		log.Info("cache_initialized")
	}

	opts := porthttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		Cookies:  cookieCfg,
		BasePath: "/api",
	}

	apiHandler := porthttp.NewAdminRouter(client, ctrl, opts)

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("admin_portal_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
