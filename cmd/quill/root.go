package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/quill/internal/api"
	"github.com/hyperengineering/quill/internal/config"
	"github.com/hyperengineering/quill/internal/content"
	"github.com/hyperengineering/quill/internal/llm"
	"github.com/hyperengineering/quill/internal/moderation"
	"github.com/hyperengineering/quill/internal/publish"
	"github.com/hyperengineering/quill/internal/registry"
	"github.com/hyperengineering/quill/internal/store"
	"github.com/hyperengineering/quill/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "quill",
		Short:        "Quill - titles, moderation and the memory registry",
		Version:      Version,
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.AddCommand(newRegistryCmd())
	cmd.AddCommand(newTitleCmd())
	cmd.AddCommand(newModerateCmd())
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAuth(); err != nil {
		return err
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("configuration loaded", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	resolver := newResolver(cfg)
	moderator := moderation.New(resolver, moderation.WithTimeout(time.Duration(cfg.LLM.ModerationTimeout)))

	handler := api.NewHandler(db, resolver, moderator, cfg.Registry.Path, cfg.Auth.APIKey, Version)
	router := api.NewRouter(handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	if interval := time.Duration(cfg.Registry.RefreshInterval); interval > 0 {
		builder, err := newBuilder(cfg, resolver, cfg.Registry.Path, cfg.Registry.Publish.Bucket != "")
		if err != nil {
			db.Close()
			return err
		}
		refresher := worker.NewRegistryRefreshWorker(builder, interval)
		startWorker(ctx, &wg, "registry-refresh", refresher.Run)
	}

	serveErr := serve(ctx, srv, time.Duration(cfg.Server.ShutdownTimeout))
	// Stops the worker when the server failed on its own.
	cancel()
	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return serveErr
}

// serve runs srv until ctx is done or the listener fails, then shuts it down.
// A listener failure (port in use, for example) is returned.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		// ErrServerClosed is the expected result of Shutdown
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown initiated")
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
			serveErr = fmt.Errorf("serve %s: %w", srv.Addr, err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	return serveErr
}

// newResolver builds the process-wide LLM resolver from configuration.
func newResolver(cfg *config.Config) *llm.Resolver {
	return llm.NewResolver(llm.ClientConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	}, cfg.LLM.Model)
}

// newBuilder wires a registry builder. With publish set, an upload target
// must be configured.
func newBuilder(cfg *config.Config, resolver *llm.Resolver, path string, publishRegistry bool) (*registry.Builder, error) {
	opts := []registry.BuilderOption{}
	if publishRegistry {
		if cfg.Registry.Publish.Bucket == "" {
			return nil, fmt.Errorf("publishing requires QUILL_REGISTRY_BUCKET or registry.publish.bucket")
		}
		uploader, err := publish.NewUploader(cfg.Registry.Publish)
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithUploader(uploader))
	}

	source := content.NewClient(cfg.Content.URL, cfg.Content.APIKey)
	return registry.NewBuilder(source, resolver.Resolve(), path, opts...), nil
}

// newLogger returns a slog.Logger writing to w in the configured format.
// "auto" picks text on a terminal and JSON otherwise.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	format := cfg.Format
	if format == "auto" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}

	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
