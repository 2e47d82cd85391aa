// Package embedding turns product text and search queries into fixed-length,
// L2-normalised vectors.
//
// The model behind a Generator is loaded lazily on first use and then shared
// read-only by every caller. Loading is serialised so that concurrent first
// calls trigger a single load; a failed load is not remembered, so the next
// call tries again instead of wedging the process.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"agrimarket/api/apperrors"
	"agrimarket/api/metrics"
)

// Encoder produces a raw, not necessarily normalised, vector for a text.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Loader initialises the model. It is called at most once per successful load.
type Loader func(ctx context.Context) (Encoder, error)

// Config controls the generator's dimension check and circuit breaker.
type Config struct {
	// Dimensions is the fixed output size D; every vector is checked against it.
	Dimensions int

	// Name labels the circuit breaker in logs and metrics.
	Name string

	// FailureThreshold is the number of consecutive inference failures that
	// opens the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
}

type loadedModel struct {
	encoder Encoder
}

// Generator is the process-wide embedding service. Construct one at startup
// and pass it to every consumer.
type Generator struct {
	load    Loader
	dims    int
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker[[]float32]

	loadMu sync.Mutex
	model  atomic.Pointer[loadedModel]
}

func NewGenerator(cfg Config, load Loader, logger *zap.Logger) (*Generator, error) {
	if load == nil {
		return nil, fmt.Errorf("embedding loader is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Name == "" {
		cfg.Name = "embedding"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	log := logger.Named("embedding")
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A caller that gave up is not a model failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("embedding circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Generator{
		load:    load,
		dims:    cfg.Dimensions,
		logger:  log,
		breaker: gobreaker.NewCircuitBreaker[[]float32](settings),
	}, nil
}

// Dimensions returns D.
func (g *Generator) Dimensions() int {
	return g.dims
}

// Loaded reports whether the model has been initialised.
func (g *Generator) Loaded() bool {
	return g.model.Load() != nil
}

// Warmup loads the model eagerly, e.g. at process start.
func (g *Generator) Warmup(ctx context.Context) error {
	_, err := g.encoder(ctx)
	return err
}

// Embed returns the normalised embedding of text. Failures are reported as
// ErrEmbeddingUnavailable; the caller decides whether to retry or degrade.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text to embed is empty", apperrors.ErrInvalidInput)
	}

	enc, err := g.encoder(ctx)
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	raw, err := g.breaker.Execute(func() ([]float32, error) {
		return enc.Encode(ctx, text)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("embed: %w", ctxErr)
		}
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		metrics.EmbeddingFailures.WithLabelValues("inference").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrEmbeddingUnavailable, err)
		}
		g.logger.Warn("embedding inference failed", zap.Error(err))
		return nil, fmt.Errorf("%w: inference: %w", apperrors.ErrEmbeddingUnavailable, err)
	}

	if len(raw) != g.dims {
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		metrics.EmbeddingFailures.WithLabelValues("dimension").Inc()
		return nil, fmt.Errorf("%w: model returned %d dimensions, want %d",
			apperrors.ErrEmbeddingUnavailable, len(raw), g.dims)
	}

	vec, ok := Normalize(raw)
	if !ok {
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		metrics.EmbeddingFailures.WithLabelValues("inference").Inc()
		return nil, fmt.Errorf("%w: model returned a zero vector", apperrors.ErrEmbeddingUnavailable)
	}

	metrics.EmbeddingRequests.WithLabelValues("ok").Inc()
	return vec, nil
}

func (g *Generator) encoder(ctx context.Context) (Encoder, error) {
	if m := g.model.Load(); m != nil {
		return m.encoder, nil
	}

	g.loadMu.Lock()
	defer g.loadMu.Unlock()

	if m := g.model.Load(); m != nil {
		return m.encoder, nil
	}

	start := time.Now()
	enc, err := g.load(ctx)
	if err != nil {
		metrics.EmbeddingFailures.WithLabelValues("load").Inc()
		g.logger.Error("failed to load embedding model",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: load model: %w", apperrors.ErrEmbeddingUnavailable, err)
	}
	if enc == nil {
		metrics.EmbeddingFailures.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("%w: loader returned no model", apperrors.ErrEmbeddingUnavailable)
	}

	g.model.Store(&loadedModel{encoder: enc})
	metrics.EmbeddingModelLoads.Inc()
	g.logger.Info("embedding model loaded",
		zap.Int("dimensions", g.dims),
		zap.Duration("elapsed", time.Since(start)))
	return enc, nil
}

// Normalize returns a unit-length copy of v. It reports false for an empty or
// zero-magnitude vector.
func Normalize(v []float32) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, false
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, true
}
