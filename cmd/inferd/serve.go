package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"inferd/internal/config"
	"inferd/internal/dispatch"
	"inferd/internal/executor"
	"inferd/internal/httpapi"
	"inferd/internal/registry"
	"inferd/internal/repository"
)

var (
	serveConfig     string
	serveAddr       string
	serveRepository string
	serveLogPretty  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the serving engine",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig, "config", envOr("INFERD_CONFIG", ""), "Path to config file (yaml/json/toml)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", envOr("INFERD_ADDR", ""), "HTTP listen address, e.g. :8080")
	serveCmd.Flags().StringVar(&serveRepository, "repository", envOr("INFERD_REPOSITORY", ""), "Model repository directory")
	serveCmd.Flags().BoolVar(&serveLogPretty, "log-pretty", false, "Human-readable console logging instead of JSON")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runServe(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	if serveConfig != "" {
		loaded, err := config.Load(serveConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	// Flags override file values.
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if serveRepository != "" {
		cfg.RepositoryRoot = serveRepository
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "inferd"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = version
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if serveLogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	repo, err := repository.Open(cfg.RepositoryRoot)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	var pub registry.EventPublisher
	if cfg.EventsURL != "" {
		np, err := registry.NewNATSPublisher(cfg.EventsURL, cfg.EventsSubject)
		if err != nil {
			return fmt.Errorf("connect events: %w", err)
		}
		defer np.Close()
		pub = np
	}

	// The echo backend is the built-in default; real execution backends
	// satisfy executor.Executor and plug in here.
	reg := registry.New(registry.Config{
		Executor:     executor.NewEcho(),
		Source:       repo,
		DrainTimeout: time.Duration(cfg.DrainTimeoutMS) * time.Millisecond,
		Publisher:    pub,
		Logger:       logger,
	})
	disp := dispatch.New(reg, logger)
	svc := httpapi.NewFacade(reg, disp, httpapi.ServerInfo{
		Name:       cfg.ServerName,
		Version:    cfg.ServerVersion,
		Extensions: cfg.Extensions,
	})

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins, nil, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	for _, name := range cfg.StartupModels {
		if err := reg.Load(ctx, name, "", nil); err != nil {
			return fmt.Errorf("startup load %s: %w", name, err)
		}
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(svc)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.Addr).Str("repository", cfg.RepositoryRoot).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("graceful shutdown error")
		}
		return nil
	})
	return g.Wait()
}
