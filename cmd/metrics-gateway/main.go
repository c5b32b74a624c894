package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"
	"google.golang.org/grpc"

	"github.com/totalcareit/partner-metrics/internal/api"
	"github.com/totalcareit/partner-metrics/internal/auth"
	"github.com/totalcareit/partner-metrics/internal/autotask"
	"github.com/totalcareit/partner-metrics/internal/cache"
	"github.com/totalcareit/partner-metrics/internal/config"
	"github.com/totalcareit/partner-metrics/internal/daterange"
	"github.com/totalcareit/partner-metrics/internal/fixtures"
	"github.com/totalcareit/partner-metrics/internal/gateway"
	"github.com/totalcareit/partner-metrics/internal/metrics"
	"github.com/totalcareit/partner-metrics/internal/secrets"
	"github.com/totalcareit/partner-metrics/internal/services"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

func main() {
	var configPath string
	var storeSecret bool
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&storeSecret, "store-secret", false, "Read the Autotask secret from stdin, save it to the OS keyring and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if storeSecret {
		if err := storeSecretFromStdin(cfg.Autotask); err != nil {
			logger.Error("failed to store secret", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("secret stored in keyring", slog.String("user", cfg.Autotask.Username))
		return
	}

	logger.Info("starting partner-metrics",
		slog.String("grpc_address", cfg.Server.Address),
		slog.String("gateway_address", cfg.Gateway.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheProvider := newCacheProvider(ctx, cfg.Cache, logger)
	defer cacheProvider.Close()

	secret, err := secrets.Resolve(cfg.Autotask.SecretSource, cfg.Autotask.KeyringService, cfg.Autotask.Username, cfg.Autotask.Secret)
	if err != nil {
		logger.Warn("autotask secret unavailable, sample data will be served", slog.Any("error", err))
	}

	client := autotask.NewClient(autotask.Options{
		Credentials: autotask.Credentials{
			Username:        cfg.Autotask.Username,
			Secret:          secret,
			IntegrationCode: cfg.Autotask.IntegrationCode,
		},
		ZoneInfoURL:   cfg.Autotask.ZoneInfoURL,
		Timeout:       cfg.Autotask.Timeout,
		Cache:         cacheProvider,
		CacheTTL:      cfg.Cache.TTL,
		Dedupe:        cfg.Autotask.Dedupe,
		RateLimit:     cfg.Autotask.RateLimit,
		RateBurst:     cfg.Autotask.RateBurst,
		TicketQueueID: cfg.Autotask.TicketQueueID,
		Logger:        logger,
	})
	if !client.Configured() {
		logger.Warn("autotask credentials incomplete, sample data will be served")
	}

	policy, err := daterange.ParsePolicy(cfg.DateRange.UnknownPeriod)
	if err != nil {
		logger.Error("invalid date range policy", slog.Any("error", err))
		os.Exit(1)
	}
	serviceOpts := []services.Option{
		services.WithResolver(daterange.Resolver{Policy: policy}),
		services.WithTickets(client),
	}
	if cfg.DateRange.Location != "" {
		loc, err := time.LoadLocation(cfg.DateRange.Location)
		if err != nil {
			logger.Error("invalid date range location", slog.String("location", cfg.DateRange.Location), slog.Any("error", err))
			os.Exit(1)
		}
		serviceOpts = append(serviceOpts, services.WithLocation(loc))
	}

	reportService := services.NewReportService(logger, client,
		fixtures.NewStore(cfg.Reports.Dir, cfg.Reports.Types), serviceOpts...)

	var verifier auth.TokenVerifier
	if cfg.Auth.Disabled {
		logger.Warn("authentication disabled, all requests run as the development principal")
	} else {
		kf, err := auth.NewJWKSKeyfunc(ctx, cfg.Auth.JWKSURL)
		if err != nil {
			logger.Error("failed to load signing keys", slog.Any("error", err))
			os.Exit(1)
		}
		verifier = auth.NewVerifier(kf, auth.Options{
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Scope:    cfg.Auth.Scope,
			Leeway:   time.Minute,
		})
	}

	server, err := api.NewServer(cfg.Server, api.NewMetricsServer(logger, reportService),
		[]grpc.UnaryServerInterceptor{auth.UnaryServerInterceptor(verifier, api.PublicMethods...)})
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	gatewayServer := gateway.NewServer(cfg.Gateway.Address, gateway.NewRouter(gateway.Options{
		Reports:         reportService,
		Verifier:        verifier,
		Logger:          logger,
		AllowedOrigins:  cfg.Gateway.AllowedOrigins,
		RefreshInterval: cfg.Gateway.RefreshInterval,
	}), cfg.Gateway.ReadTimeout, cfg.Gateway.WriteTimeout, logger)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go func() {
		if serveErr := gatewayServer.ListenAndServe(); serveErr != nil {
			logger.Error("gateway exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := gatewayServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown", slog.Any("error", err))
	}
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("partner-metrics stopped")
}

func newCacheProvider(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NoopProvider{}
	case config.CacheRedis:
		provider, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
			KeyPrefix:    cfg.KeyPrefix,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, falling back to memory", slog.Any("error", err))
			return cache.NewMemoryProvider(cfg.TTL, nil)
		}
		return provider
	default:
		return cache.NewMemoryProvider(cfg.TTL, nil)
	}
}

func storeSecretFromStdin(cfg config.AutotaskConfig) error {
	secret, err := readSecret(os.Stdin, os.Stderr, fmt.Sprintf("Autotask secret for %s: ", cfg.Username))
	if err != nil {
		return err
	}
	return secrets.Store(cfg.KeyringService, cfg.Username, secret)
}

// readSecret prompts without echo when in is a terminal and reads one line from
// piped input otherwise.
func readSecret(in *os.File, prompt io.Writer, label string) (string, error) {
	fd := int(in.Fd())
	var secret string
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		secret = string(b)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read secret: %w", err)
		}
		secret = line
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("read secret: empty input")
	}
	return secret, nil
}
