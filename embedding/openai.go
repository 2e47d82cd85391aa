package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig points at any OpenAI-compatible /v1/embeddings endpoint, such
// as a local text-embeddings server hosting all-MiniLM-L6-v2.
type OpenAIConfig struct {
	Endpoint   string // Base URL, e.g. "http://localhost:8081/v1"
	APIKey     string // Optional for local endpoints
	Model      string
	Dimensions int
}

// OpenAIEncoder calls a remote embedding model.
type OpenAIEncoder struct {
	client *openai.Client
	model  string
}

// OpenAILoader builds the client and probes the endpoint once so that an
// unreachable or mis-sized model fails the load rather than the first request.
func OpenAILoader(cfg OpenAIConfig, logger *zap.Logger) Loader {
	return func(ctx context.Context) (Encoder, error) {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedding endpoint is required")
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("embedding model is required")
		}

		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
		enc := &OpenAIEncoder{
			client: openai.NewClientWithConfig(clientConfig),
			model:  cfg.Model,
		}

		probe, err := enc.Encode(ctx, "embedding model warmup")
		if err != nil {
			return nil, fmt.Errorf("probe model %q: %w", cfg.Model, err)
		}
		if cfg.Dimensions > 0 && len(probe) != cfg.Dimensions {
			return nil, fmt.Errorf("model %q returned %d dimensions, configured %d", cfg.Model, len(probe), cfg.Dimensions)
		}

		logger.Named("embedding").Info("embedding endpoint ready",
			zap.String("endpoint", clientConfig.BaseURL),
			zap.String("model", cfg.Model),
			zap.Int("dimensions", len(probe)))
		return enc, nil
	}
}

func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return resp.Data[0].Embedding, nil
}
