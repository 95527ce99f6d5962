package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/infergate/auth"
	"github.com/jonwraymond/infergate/cache"
	"github.com/jonwraymond/infergate/config"
	"github.com/jonwraymond/infergate/gateway"
	"github.com/jonwraymond/infergate/health"
	"github.com/jonwraymond/infergate/inference"
	"github.com/jonwraymond/infergate/observe"
	"github.com/jonwraymond/infergate/render"
	"github.com/jonwraymond/infergate/reorder"
	"github.com/jonwraymond/infergate/report"
	"github.com/jonwraymond/infergate/users"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "infergate.yaml", "path to config file")
	return cmd
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, fmt.Errorf("resolve secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds everything serve builds, so it can be torn down in order.
type app struct {
	handler http.Handler
	closers []io.Closer
	obs     observe.Observer
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	logger := a.obs.Logger()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "gateway listening", observe.Field{Key: "addr", Value: cfg.Listen})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info(shutdownCtx, "gateway shutting down")
	return errors.Join(serveErr, srv.Shutdown(shutdownCtx), a.close(shutdownCtx))
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	a := &app{obs: obs}
	fail := func(err error) (*app, error) {
		_ = a.close(context.Background())
		return nil, err
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fail(fmt.Errorf("init middleware: %w", err))
	}
	logger := obs.Logger()
	secretKey := []byte(cfg.Auth.JWTSecret)
	agg := health.NewAggregator()
	agg.Register("runtime", health.NewRuntimeChecker(health.RuntimeCheckerConfig{}))

	store, err := buildCache(cfg, logger, a)
	if err != nil {
		return fail(err)
	}
	if p, ok := store.(cache.Pinger); ok {
		agg.Register("cache", health.NewPingChecker("cache", p.Ping, health.StatusDegraded))
	}

	newProxy := func(name, baseURL string) (*inference.Proxy, error) {
		p, err := inference.NewProxy(inference.Config{
			Name:    name,
			BaseURL: baseURL,
			Budgets: cfg.Budgets(),
			Tokens:  auth.ServiceTokenSource(secretKey, cfg.Auth.ServiceTokenTTL),
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%s provider: %w", name, err)
		}
		a.closers = append(a.closers, p)
		return p, nil
	}

	deps := gateway.Deps{
		Authenticator: auth.NewJWTAuthenticator(auth.JWTConfig{}, auth.NewStaticKeyProvider(secretKey)),
		Cache:         store,
		Observer:      mw,
		Health:        agg,
	}

	if cfg.Providers.ImageURL != "" {
		p, err := newProxy("image", cfg.Providers.ImageURL)
		if err != nil {
			return fail(err)
		}
		images := inference.NewImageClient(p)
		deps.Images = images
		agg.Register("image", health.NewPingChecker("image", images.Ping, health.StatusDegraded))
	}

	// One process-wide generative handle, created on first use.
	var model *report.Lazy
	if cfg.Generative.APIKey != "" {
		model = report.NewLazy(func() (report.Model, error) {
			return report.NewOpenAIModel(report.OpenAIConfig{
				APIKey:  cfg.Generative.APIKey,
				BaseURL: cfg.Generative.BaseURL,
				Model:   cfg.Generative.Model,
			})
		})
	}
	agg.Register("generative", health.NewCheckerFunc("generative", func(context.Context) health.Result {
		if model == nil {
			return health.Degraded("no generative model configured", nil)
		}
		return health.Healthy("configured").WithDetails(map[string]any{"model": cfg.Generative.Model})
	}))

	if cfg.Providers.ForecastURL != "" {
		p, err := newProxy("forecast", cfg.Providers.ForecastURL)
		if err != nil {
			return fail(err)
		}
		forecast := inference.NewForecastClient(p)
		deps.Forecast = forecast
		agg.Register("forecast", health.NewPingChecker("forecast", forecast.Ping, health.StatusDegraded))
		if model != nil {
			deps.Reports = report.NewGenerator(forecast, model, store, report.Config{Logger: logger})
		}
	}

	if cfg.Providers.RendererURL != "" {
		p, err := newProxy("renderer", cfg.Providers.RendererURL)
		if err != nil {
			return fail(err)
		}
		deps.Renderer = render.NewService(inference.NewRenderClient(p))
	}

	var explainer *report.Explainer
	if model != nil {
		explainer = reorder.NewExplainer(model)
	}
	deps.Reorder = reorder.NewAdvisor(explainer, 0)

	if cfg.Users.DBPath != "" {
		dir, err := users.Open(cfg.Users.DBPath)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, dir)
		deps.Users = dir
		agg.Register("users", health.NewPingChecker("users", dir.Ping, health.StatusUnhealthy))
	}

	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		deps.MetricsHandler = promhttp.Handler()
	}

	srv, err := gateway.New(deps, gateway.Options{
		Coalesce:       cfg.Cache.Coalesce,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return fail(err)
	}
	a.handler = srv
	logger.Info(ctx, "gateway assembled",
		observe.Field{Key: "health_checks", Value: agg.CheckerNames()},
		observe.Field{Key: "cache_backend", Value: cfg.Cache.Backend},
	)
	return a, nil
}

func buildCache(cfg *config.Config, logger observe.Logger, a *app) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		a.closers = append(a.closers, client)
		return cache.NewRedisCache(client,
			cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
			cache.WithLogger(logger),
		)
	case "none":
		return nil, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}
