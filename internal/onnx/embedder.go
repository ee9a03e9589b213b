// Package onnx provides a local sentence-transformer embedder backed by hugot's pure Go runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

const (
	// DefaultModelName is the Hugging Face model used when none is configured
	DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultDimensions is the output size of all-MiniLM-L6-v2
	DefaultDimensions = 384
)

var errNoEmbedding = errors.New("no embedding generated")

// featureExtractor is the subset of the hugot pipeline the embedder uses.
type featureExtractor interface {
	RunPipeline(inputs []string) (*pipelines.FeatureExtractionOutput, error)
}

// Config configures the local embedder
type Config struct {
	ModelName  string
	ModelDir   string
	Dimensions int
}

// Embedder runs a feature-extraction pipeline in process.
type Embedder struct {
	session    *hugot.Session
	pipeline   featureExtractor
	dimensions int
}

// NewEmbedder prepares the model (downloading it on first use) and builds the pipeline.
func NewEmbedder(cfg Config) (*Embedder, error) {
	modelName := cfg.ModelName
	if modelName == "" {
		modelName = DefaultModelName
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	modelPath, err := PrepareModel(modelName, cfg.ModelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "bookrag-query-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return &Embedder{session: session, pipeline: pipeline, dimensions: dimensions}, nil
}

// PrepareModel downloads modelName into modelDir if it is not there yet and returns its path.
func PrepareModel(modelName, modelDir string) (string, error) {
	if modelDir == "" {
		modelDir = "./models"
	}
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		downloadOptions.OnnxFilePath = "onnx/model.onnx"
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}

type embedResult struct {
	embedding []float32
	err       error
}

// Embed returns the sentence embedding for text. The pipeline call itself cannot be
// interrupted, so cancellation abandons the in-flight run and discards its output.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyEmbeddingInput
	}

	done := make(chan embedResult, 1)
	go func() {
		result, err := e.pipeline.RunPipeline([]string{text})
		if err != nil {
			done <- embedResult{err: fmt.Errorf("failed to generate embedding: %w", err)}
			return
		}
		if len(result.Embeddings) == 0 {
			done <- embedResult{err: errNoEmbedding}
			return
		}
		done <- embedResult{embedding: result.Embeddings[0]}
	}()

	select {
	case <-ctx.Done():
		return nil, domain.NewDependencyError(domain.DependencyEmbedder, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "local embedding failed", res.err)
		}
		if len(res.embedding) != e.dimensions {
			return nil, fmt.Errorf("got %d dimensions, expected %d: %w", len(res.embedding), e.dimensions, domain.ErrEmbeddingDimensions)
		}
		return res.embedding, nil
	}
}

// Dimensions returns the embedding size this embedder enforces.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close releases the hugot session.
func (e *Embedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}
