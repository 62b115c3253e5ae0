package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/hearth/internal/auth"
	"github.com/mmynk/hearth/internal/config"
	"github.com/mmynk/hearth/internal/events"
	"github.com/mmynk/hearth/internal/ledger"
	"github.com/mmynk/hearth/internal/live"
	"github.com/mmynk/hearth/internal/metrics"
	"github.com/mmynk/hearth/internal/report"
	"github.com/mmynk/hearth/internal/report/pdf"
	"github.com/mmynk/hearth/internal/server"
	"github.com/mmynk/hearth/internal/service"
	"github.com/mmynk/hearth/internal/storage"
	"github.com/mmynk/hearth/internal/storage/memory"
	"github.com/mmynk/hearth/internal/storage/sqlite"
	"github.com/mmynk/hearth/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	handler, cleanup, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// h2c serves HTTP/2 without TLS, which Connect streaming needs.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// build wires the store, ledger, live hub and router. cleanup releases the
// store and the event publisher.
func build(cfg *config.Config, logger *slog.Logger) (http.Handler, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{store.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("Failed to release resource", "error", err)
			}
		}
	}
	logger.Info("Storage initialized", "backend", cfg.DataBackend, "database", cfg.DBPath)

	m := metrics.New()
	instrumented := m.InstrumentStore(store)

	opts := []ledger.Option{
		ledger.WithObserver(m),
		ledger.WithConcurrency(cfg.BulkConcurrency),
		ledger.WithLogger(logger),
	}
	if cfg.AMQPURL != "" {
		publisher, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, publisher.Close)
		opts = append(opts, ledger.WithNotifier(publisher))
		logger.Info("Publishing changes", "exchange", cfg.AMQPExchange)
	}
	l := ledger.New(instrumented, opts...)

	hub := live.NewHub(instrumented, time.Now)
	m.TrackLiveViews(hub.Active)

	formatter, err := report.NewFormatter(cfg.Locale, cfg.CurrencySymbol)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	jwt, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	router := server.NewRouter(server.Deps{
		Service:       service.New(l, hub, report.NewBuilder(formatter, time.Now)),
		Authenticator: jwt,
		Metrics:       m,
		Renderer:      pdf.New(),
	})
	return router, cleanup, nil
}

func openStore(cfg *config.Config) (storage.DocumentStore, error) {
	switch cfg.DataBackend {
	case "memory":
		return memory.New(), nil
	default:
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, err
		}
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
