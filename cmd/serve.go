package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/cotyar/tagstream/codec"
	"github.com/cotyar/tagstream/health"
	"github.com/cotyar/tagstream/internal/config"
	"github.com/cotyar/tagstream/internal/safegoroutine"
	"github.com/cotyar/tagstream/journal"
	"github.com/cotyar/tagstream/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve per-tag event streams over SSE",
	Long: `Starts an HTTP server exposing one SSE stream per tag
(GET /streams/{tag}?from=N) plus /healthz, /readyz, and /metrics. Every
connection gets its own publisher and cursor.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()

	f.String("http-addr", ":8080", "HTTP listen address")
	f.Duration("refresh-interval", time.Second, "journal poll period")
	f.Int("max-buffer", 512, "per-publisher buffer bound")
	f.Uint64("sse-window", 64, "per-connection demand window")
	f.Duration("sse-heartbeat", 15*time.Second, "SSE keep-alive interval")
	f.String("journal-table", "", "journal table name (default: tagstream_journal)")
	f.Int("journal-batch", 0, "journal query batch size (default: 512)")
	f.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	mustBindPFlag("http_addr", f.Lookup("http-addr"))
	mustBindPFlag("refresh_interval", f.Lookup("refresh-interval"))
	mustBindPFlag("max_buffer_size", f.Lookup("max-buffer"))
	mustBindPFlag("sse.window", f.Lookup("sse-window"))
	mustBindPFlag("sse.heartbeat_interval", f.Lookup("sse-heartbeat"))
	mustBindPFlag("journal.table", f.Lookup("journal-table"))
	mustBindPFlag("journal.batch_size", f.Lookup("journal-batch"))
	mustBindPFlag("shutdown_timeout", f.Lookup("shutdown-timeout"))
}

func loadConfig() (*config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func openJournal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*journal.PGStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("no database configured: set --db or TAGSTREAM_DATABASE_URL")
	}
	var opts []journal.PGOption
	if cfg.Journal.Table != "" {
		opts = append(opts, journal.WithTable(cfg.Journal.Table))
	}
	if cfg.Journal.BatchSize > 0 {
		opts = append(opts, journal.WithBatchSize(cfg.Journal.BatchSize))
	}
	return journal.NewPGStore(ctx, cfg.DatabaseURL, logger, opts...)
}

func newDecoder(cfg *config.Config) (codec.Decoder, error) {
	t, err := codec.ParseType(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return codec.New(t)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}

	store, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	checker := health.NewChecker()
	checker.Register("journal")
	checker.Register("http")
	checker.SetStatus("journal", health.StatusUp)
	readiness := health.NewReadinessChecker()

	srv := server.NewStreamServer(store, dec, logger,
		server.WithRefreshInterval(cfg.RefreshInterval),
		server.WithMaxBufferSize(cfg.MaxBufferSize),
		server.WithWindow(cfg.SSE.Window),
		server.WithHeartbeat(cfg.SSE.HeartbeatInterval),
	)
	httpSrv := srv.NewHTTPServer(cfg.HTTPAddr, checker, readiness)

	g, gCtx := errgroup.WithContext(ctx)

	safegoroutine.Go(g, logger, "http", func() error {
		logger.Info("http server started", "addr", cfg.HTTPAddr)
		checker.SetStatus("http", health.StatusUp)
		readiness.SetReady(true)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	safegoroutine.Go(g, logger, "http-shutdown", func() error {
		<-gCtx.Done()
		readiness.SetReady(false)
		checker.SetStatus("http", health.StatusDown)

		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
