//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	ctx := context.Background()
	text := "What sensors does a humanoid robot use for balance?"

	embedding, err := client.GenerateEmbedding(ctx, text)

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
}

func TestIntegration_Generate_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	gen := NewGenerator(GeneratorConfig{APIKey: apiKey, Temperature: DefaultTemperature})
	answer, err := gen.Generate(context.Background(),
		"Answer only from the provided context.",
		"[1] The robot uses an IMU to estimate its orientation.",
		"What does the robot use to estimate orientation?")

	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}
