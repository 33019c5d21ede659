package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gityap/gityap/internal/gateway"
	"github.com/gityap/gityap/internal/server"
	"github.com/gityap/gityap/internal/storage"
	"github.com/gityap/gityap/internal/usecase"
)

type Runtime struct {
	cfg        Config
	logger     zerolog.Logger
	httpServer *http.Server
	cleanup    func()
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg)

	var (
		store   storage.Store
		cleanup = func() {}
	)
	switch cfg.Store {
	case StoreRedis:
		client, err := storage.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		store = storage.NewRedis(client)
		cleanup = func() { _ = client.Close() }
	default:
		store = storage.NewMemory()
	}

	code, err := gateway.NewCodeGateway(cfg.GitHubToken, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	channels := gateway.NewChannelBridge(cfg.ChannelBridgeURL)

	recon := usecase.NewReconciler(code, channels, store, logger)
	handler := server.NewHandler(recon, logger, cfg.OperationTimeout)
	router := server.NewRouter(handler, logger)

	return &Runtime{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		cleanup: cleanup,
	}, nil
}

// Run serves HTTP until the context is cancelled or a termination signal
// arrives, then drains in-flight requests.
func (rt *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer rt.cleanup()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info().Str("addr", rt.httpServer.Addr).Msg("http server listening")
		errCh <- rt.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	rt.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return rt.httpServer.Shutdown(shutdownCtx)
}

// NewLogger builds the service logger: JSON to stderr at the configured
// level, falling back to info on an unknown level name.
func NewLogger(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}
