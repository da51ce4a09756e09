package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/auth"
	"github.com/vovakirdan/wiredm/internal/config"
	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/metrics"
	"github.com/vovakirdan/wiredm/internal/relay"
	"github.com/vovakirdan/wiredm/internal/service/chat"
	"github.com/vovakirdan/wiredm/internal/store/sqlstore"
	"github.com/vovakirdan/wiredm/internal/telemetry"
	transporthttp "github.com/vovakirdan/wiredm/internal/transport/http"
)

// App wires together store, broker, services and transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           *sqlstore.Store
	relay           *relay.Relay
	publisher       relay.Publisher
	tracing         telemetry.Shutdown
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	st, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	}

	broker := core.NewBroker(cfg.Bus.FeedBuffer, logger, m)
	hub := core.NewHub(broker, core.NewFilter(st, logger, m), logger)

	publisher := relay.NewPublisher(cfg.Relay.AMQPURL, cfg.Relay.Exchange, logger)
	logger.Info().Str("mode", relay.Mode(publisher)).Msg("relay configured")

	router := transporthttp.NewRouter(transporthttp.Deps{
		Config:   cfg,
		Auth:     auth.NewService(st, jwtConfig, logger),
		Resolver: auth.NewResolver(jwtConfig),
		Chat:     chat.New(st, hub, logger),
		Hub:      hub,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	return &App{
		server:          transporthttp.NewServer(cfg, router),
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		relay:           relay.New(broker, publisher, logger, m),
		publisher:       publisher,
		tracing:         shutdownTracing,
		log:             logger,
	}, nil
}

// OpenStore opens the configured database and applies the schema.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*sqlstore.Store, error) {
	st, err := sqlstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	relayCtx, stopRelay := context.WithCancel(ctx)
	var relayDone sync.WaitGroup
	relayDone.Add(1)
	go func() {
		defer relayDone.Done()
		a.relay.Run(relayCtx)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	stopRelay()
	relayDone.Wait()
	a.cleanup()
	return runErr
}

// cleanup closes the relay connection, tracer provider and database.
func (a *App) cleanup() {
	if err := a.publisher.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close relay publisher")
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.tracing(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to flush traces")
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
