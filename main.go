package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrimarket/api/catalog"
	"agrimarket/api/config"
	"agrimarket/api/database"
	"agrimarket/api/embedding"
	"agrimarket/api/handlers"
	"agrimarket/api/logger"
	"agrimarket/api/middleware"
	"agrimarket/api/recommend"
	"agrimarket/api/search"
	"agrimarket/api/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
	log.Info("server exiting")
}

// backends bundles the stores selected by STORE_BACKEND and GRAPH_BACKEND.
type backends struct {
	products interface {
		recommend.CatalogReader
		catalog.ProductStore
		search.ProductSource
	}
	activity interface {
		recommend.ActivityReader
		catalog.ActivityWriter
	}
	graph  recommend.GraphStore
	checks []handlers.HealthCheck
	close  []func()
}

func (b *backends) Close() {
	for i := len(b.close) - 1; i >= 0; i-- {
		b.close[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory catalog and activity log; data is lost on restart")
		b.products = store.NewMemoryProductStore()
		b.activity = store.NewMemoryActivityStore()
	default:
		pg, err := database.NewPostgresDB(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("initialize PostgreSQL: %w", err)
		}
		b.close = append(b.close, pg.Close)
		if err := database.EnsurePostgresSchema(ctx, pg.DB); err != nil {
			b.Close()
			return nil, err
		}

		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, log)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("initialize ClickHouse: %w", err)
		}
		b.close = append(b.close, ch.Close)
		if err := database.EnsureClickHouseSchema(ctx, ch.Conn); err != nil {
			b.Close()
			return nil, err
		}

		b.products = store.NewProductStore(pg.DB)
		b.activity = store.NewActivityStore(ch, log)
		b.checks = append(b.checks,
			handlers.HealthCheck{Name: "postgres", Check: pg.DB.PingContext},
			handlers.HealthCheck{Name: "clickhouse", Check: ch.Conn.Ping},
		)

		if cfg.GraphBackend == config.BackendPostgres {
			b.graph = store.NewRecommendationStore(pg.DB)
		}
	}

	switch cfg.GraphBackend {
	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("initialize Redis: %w", err)
		}
		b.close = append(b.close, func() { _ = rdb.Close() })
		b.graph = store.NewRedisRecommendationStore(rdb, cfg.Redis.KeyPrefix)
		b.checks = append(b.checks, handlers.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	case config.BackendMemory:
		b.graph = store.NewMemoryRecommendationStore()
	}
	return b, nil
}

func newEmbeddingGenerator(cfg config.EmbeddingConfig, log *zap.Logger) (*embedding.Generator, error) {
	var load embedding.Loader
	switch cfg.Provider {
	case config.ProviderHash:
		load = embedding.HashLoader(cfg.Dimensions)
	default:
		load = embedding.OpenAILoader(embedding.OpenAIConfig{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}, log)
	}
	return embedding.NewGenerator(embedding.Config{
		Dimensions:       cfg.Dimensions,
		Name:             cfg.Provider + "-embedding",
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}, load, log)
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET_KEY is not set; authenticated routes will reject every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	gen, err := newEmbeddingGenerator(cfg.Embedding, log)
	if err != nil {
		return fmt.Errorf("initialize embedding generator: %w", err)
	}
	if cfg.Embedding.Warmup {
		// A failed warmup is retried lazily on the first embedding request.
		if err := gen.Warmup(ctx); err != nil {
			log.Warn("embedding model warmup failed", zap.Error(err))
		}
	}

	engine, err := recommend.NewEngine(cfg.Recommend.Engine(), b.products, b.activity, b.graph, log)
	if err != nil {
		return err
	}
	svc, err := catalog.NewService(b.products, b.activity, gen, engine, catalog.Options{
		Policy:       catalog.EmbeddingPolicy(cfg.Embedding.FailurePolicy),
		ListingLimit: cfg.Recommend.ListingLimit,
	}, log)
	if err != nil {
		return err
	}
	index := search.NewIndex(b.products, gen, cfg.Search.TopK, log)

	secret := []byte(cfg.JWTSecret)
	router := &handlers.Router{
		Products:        handlers.NewProductHandlers(svc, index, cfg.Search.TopK, cfg.Search.MaxLimit, log),
		Recommendations: handlers.NewRecommendationHandlers(engine, svc, log),
		Orders:          handlers.NewOrderHandlers(svc, log),
		Health:          handlers.NewHealthHandlers(gen.Loaded, b.checks...),
		Auth:            middleware.AuthRequired(secret, log),
		OptionalAuth:    middleware.OptionalAuth(secret),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), middleware.CORSMiddleware(cfg.FrontendOrigin))
	router.Register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting",
			zap.String("addr", srv.Addr),
			zap.String("store_backend", cfg.StoreBackend),
			zap.String("graph_backend", cfg.GraphBackend),
			zap.String("embedding_provider", cfg.Embedding.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
