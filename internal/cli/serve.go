package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/bookflow"
	"github.com/aretw0/bookflow/internal/config"
	httpAdapter "github.com/aretw0/bookflow/pkg/adapters/http"
	natsAdapter "github.com/aretw0/bookflow/pkg/adapters/nats"
	"github.com/aretw0/bookflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunServe starts the HTTP (and, when configured, NATS) transports and blocks
// until ctx is cancelled or the listener fails.
func RunServe(ctx context.Context, cfg config.Config) error {
	logger, err := createLogger(cfg.Log, true)
	if err != nil {
		return err
	}

	res, err := createEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close() //nolint:errcheck

	mailbox := session.NewMailbox(logger)
	defer mailbox.Close()

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go res.Engine.Sessions().RunJanitor(janitorCtx, cfg.Session.SweepInterval)

	if cfg.NATS.URL != "" {
		transport, err := startNATS(cfg.NATS, res.Engine, mailbox, logger)
		if err != nil {
			return err
		}
		defer transport.Close() //nolint:errcheck
	}

	api, err := httpAdapter.NewServer(res.Engine,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMailbox(mailbox),
		httpAdapter.WithCORSOrigins(cfg.Server.CORSOrigins...),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(res.Registry, promhttp.HandlerOpts{})),
		httpAdapter.WithInfo(httpAdapter.Info{Name: "bookflow", Version: bookflow.Version, StartedAt: time.Now().UTC()}),
	)
	if err != nil {
		return err
	}
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting Bookflow server", "addr", srv.Addr,
			"store", cfg.Store.Driver, "sessions", cfg.Session.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding turns a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("Bookflow server stopped gracefully")
		return nil
	}
}

func startNATS(cfg config.NATSConfig, engine *bookflow.Engine, mailbox *session.Mailbox, logger *slog.Logger) (*natsAdapter.Transport, error) {
	conn, err := natsAdapter.Connect(cfg.URL, "bookflow")
	if err != nil {
		return nil, err
	}
	t := natsAdapter.New(conn, engine,
		natsAdapter.WithSubject(cfg.Subject),
		natsAdapter.WithQueue(cfg.Queue),
		natsAdapter.WithMailbox(mailbox),
		natsAdapter.WithLogger(logger),
	)
	if err := t.Start(); err != nil {
		t.Close() //nolint:errcheck
		return nil, err
	}
	return t, nil
}
