package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatsService_Stats(t *testing.T) {
	repo := new(MockQueryLogRepository)
	repo.On("Stats", mock.Anything, 5).Return(&QueryStats{TotalQueries: 4, RefusalRate: 0.25}, nil)

	stats, err := NewStatsService(repo).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalQueries)
	assert.NotNil(t, stats.RefusalReasons)
}

func TestStatsService_Error(t *testing.T) {
	repo := new(MockQueryLogRepository)
	repo.On("Stats", mock.Anything, 5).Return(nil, errors.New("db down"))

	_, err := NewStatsService(repo).Stats(context.Background())
	assert.Error(t, err)
}
