// Command server wires the argument-dispatch engine and task-grouping
// orchestrator onto an HTTP server, mirroring the bootstrap shape of
// cmd/server/main.go in the teacher repo: flags with environment-variable
// fallbacks, a slog logger, and graceful shutdown on signal.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/DataBooster/pywebapi-go/dispatch"
	"github.com/DataBooster/pywebapi-go/format"
	"github.com/DataBooster/pywebapi-go/httpapi"
	"github.com/DataBooster/pywebapi-go/orchestrator"
	"github.com/DataBooster/pywebapi-go/samplehandlers"
)

var (
	host      = flag.String("host", envOr("SERVER_HOST", "0.0.0.0"), "HTTP listen host")
	port      = flag.String("port", envOr("SERVER_PORT", "8080"), "HTTP listen port")
	scriptRoot = flag.String("script-root", envOr("USER_SCRIPT_ROOT", "./scripts"), "root directory of handler-set modules")
	debug     = flag.String("debug", os.Getenv("SERVER_DEBUG"), "debug gate; \"VisualStudio\" disables auth enforcement in the sample edge")
)

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	demoDir := filepath.Join(*scriptRoot, "demo")
	if err := os.MkdirAll(demoDir, 0o755); err != nil {
		logger.Error("cannot prepare script root", "root", demoDir, "error", err)
		os.Exit(1)
	}

	registry := dispatch.NewRegistry()
	samplehandlers.Register(registry, mustAbs(demoDir))
	cached := dispatch.NewCachedResolver(registry)

	if mountsPath := os.Getenv("MOUNTS_CONFIG"); mountsPath != "" {
		loadMounts(logger, mountsPath, *scriptRoot, cached)
	}

	formatters := format.NewRegistry()
	formatters.SetDefault(format.JSONFormatter{})

	runner := orchestrator.NewRunner(orchestrator.NewHTTPRESTInvoker(), logger)

	srv := httpapi.NewServer(mustAbs(*scriptRoot), dispatch.NewScopedLoader(cached), formatters, runner)
	if *debug == "VisualStudio" {
		logger.Warn("authentication enforcement disabled by SERVER_DEBUG=VisualStudio")
	}

	httpServer := &http.Server{
		Addr:    *host + ":" + *port,
		Handler: srv.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func mustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		slog.Default().Error("invalid script root", "path", p, "error", err)
		os.Exit(1)
	}
	return abs
}

// loadMounts pre-creates and optionally watches the directories named in a
// YAML mount manifest (spec §9's cache-invalidation seam). It does not
// register handler sets for these mounts itself — that still requires a
// Go-native Register call — it only prepares the filesystem layout and
// hooks up change notifications for an operator-supplied directory.
func loadMounts(logger *slog.Logger, mountsPath, scriptRoot string, cached *dispatch.CachedResolver) {
	data, err := os.ReadFile(mountsPath)
	if err != nil {
		logger.Error("cannot read mounts config", "path", mountsPath, "error", err)
		return
	}
	cfg, err := dispatch.LoadMountConfig(data)
	if err != nil {
		logger.Error("cannot parse mounts config", "path", mountsPath, "error", err)
		return
	}

	invalidator, err := dispatch.NewCacheInvalidator(logger, func(dir string) {
		logger.Info("handler directory changed, invalidating cached resolution", "dir", dir)
		cached.InvalidateDirectory(filepath.Dir(dir))
	})
	if err != nil {
		logger.Error("cannot start handler directory watcher", "error", err)
		return
	}

	for _, m := range cfg.Mounts {
		dir := filepath.Join(scriptRoot, m.Directory)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("cannot create mounted directory", "dir", dir, "error", err)
			continue
		}
		if !m.Watch {
			continue
		}
		if err := invalidator.Watch(dir); err != nil {
			logger.Error("cannot watch mounted directory", "dir", dir, "error", err)
		}
	}
}
