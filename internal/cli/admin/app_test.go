package admin

import (
	"testing"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestAnswerConfig_FromEnvironmentConfig(t *testing.T) {
	cfg := &config.Config{
		DefaultTopK:         7,
		MaxTopK:             12,
		SimilarityThreshold: 0.65,
		ContextTokenBudget:  2000,
		GroundingMinOverlap: 0,
		EmbedTimeout:        time.Second,
		SearchTimeout:       2 * time.Second,
		FetchTimeout:        3 * time.Second,
		GenerateTimeout:     4 * time.Second,
	}

	ac := answerConfig(cfg)

	assert.Equal(t, 7, ac.DefaultTopK)
	assert.Equal(t, 12, ac.MaxTopK)
	assert.Equal(t, 0.65, ac.SimilarityThreshold)
	assert.Equal(t, 2000, ac.ContextTokenBudget)
	assert.Equal(t, 0.0, ac.GroundingMinOverlap)
	assert.Equal(t, 4*time.Second, ac.GenerateTimeout)
	assert.Positive(t, ac.CitationOverhead)
}

func TestApp_CloseRunsInReverseOrder(t *testing.T) {
	var order []int
	a := &app{}
	a.closers = append(a.closers,
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return assert.AnError },
	)

	err := a.Close()

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, a.Close())
}

func TestMigrateCmd_RejectsUnknownAction(t *testing.T) {
	cmd := MigrateCmd()
	assert.Equal(t, "migrate [up|down|version]", cmd.Use)
	assert.Error(t, cmd.Args(cmd, []string{"up", "extra"}))
}

func TestRunMigrate_UnknownActionFailsBeforeConnecting(t *testing.T) {
	err := runMigrate(MigrateCmd(), []string{"sideways"})
	assert.ErrorContains(t, err, `unknown migrate action "sideways"`)
}
