package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/studypal/textbase/helper"
	"golang.org/x/time/rate"
)

// LocalEmbedder creates an embedder backed by a local sentence transformer
// model, so the engine can run without a hosted embedding provider.
// Uses the all-MiniLM-L6-v2 model which produces 384-dimensional embeddings.
func LocalEmbedder() (EmbedFunc, error) {
	// Prepare model (download if needed)
	modelName := "sentence-transformers/all-MiniLM-L6-v2"
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}, nil
}

// RateLimitedEmbedder wraps an embedder with a token bucket so concurrent
// ingestion workers cannot exceed the provider's permitted request rate.
// rps is requests per second; burst of at least 1 is enforced.
func RateLimitedEmbedder(embed EmbedFunc, rps float64, burst int) EmbedFunc {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(ctx context.Context, text string) ([]float32, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return embed(ctx, text)
	}
}
