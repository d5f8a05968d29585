package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MACHINE-IT/qbuydot-backend/internal/cache"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/handler"
	"github.com/MACHINE-IT/qbuydot-backend/internal/outbox"
	"github.com/MACHINE-IT/qbuydot-backend/internal/service"
	"github.com/MACHINE-IT/qbuydot-backend/pkg/health"
	"github.com/MACHINE-IT/qbuydot-backend/pkg/httpmiddleware"
)

const serviceName = "qbuy-api"

// Run creates all dependencies, starts the HTTP server and background
// workers, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	st, err := openStorage(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	cartCache, closeCache := newCartCache(lg, cfg.Redis)
	defer closeCache()

	tel, err := service.NewTelemetry(m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create telemetry")
	}

	healthSvc, limiter, handlerChain := newHTTP(lg, cfg, st, cartCache, tel, m.TracerProvider(), m.MeterProvider())
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           handlerChain,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	if len(cfg.Kafka.Brokers) > 0 {
		pub := outbox.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		defer func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close kafka publisher", zap.Error(err))
			}
		}()
		relay := outbox.NewRelay(st.events, pub, cfg.Outbox.Interval, cfg.Outbox.BatchSize)
		lg.Info("Outbox relay enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	healthSvc.Start(gctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		err := server.Shutdown(shutdownCtx)
		healthSvc.Stop()
		if err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// newHTTP builds the services over st and returns the health registry, the
// rate limiter whose eviction loop the caller runs, and the full HTTP
// handler chain.
func newHTTP(
	lg *zap.Logger,
	cfg *Config,
	st *storage,
	cartCache cache.CartCache,
	tel *service.Telemetry,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*health.Health, *httpmiddleware.Limiter, http.Handler) {
	healthSvc := health.New(health.DefaultThresholds)
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	if st.ready != nil {
		healthSvc.Add(health.Readiness, cfg.Storage, 5*time.Second, st.ready)
	}

	hasher := auth.NewHasher([]byte(cfg.APIKeyPepper))
	carts := service.NewCart(st.tx, st.carts, cartCache, tel)
	orders := service.NewOrder(st.tx, st.products, st.orders, tel)
	accounts := service.NewAccount(st.tx, st.accounts, hasher, carts,
		decimal.NewFromInt(cfg.DefaultWalletMoney), tel)

	h := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		st.products, carts, orders, accounts,
		auth.NewAuthenticator(st.keys, hasher),
	)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		KeyFunc: httpmiddleware.HeaderKey(handler.HeaderAPIKey),
	})

	r := chi.NewRouter()
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.LogRequests(), httpmiddleware.RateLimit(limiter))
		r.Mount("/", h.Router())
	})

	return healthSvc, limiter, httpmiddleware.Wrap(r,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument(serviceName, tp, mp),
	)
}

// newCartCache returns a Redis-backed cart cache when configured, or a no-op
// cache otherwise.
func newCartCache(lg *zap.Logger, cfg RedisConfig) (cache.CartCache, func()) {
	if cfg.Addr == "" {
		return cache.Nop{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	lg.Info("Cart cache enabled", zap.String("redis", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return cache.NewRedisCache(client, cfg.TTL), func() {
		if err := client.Close(); err != nil {
			lg.Warn("Close redis client", zap.Error(err))
		}
	}
}
