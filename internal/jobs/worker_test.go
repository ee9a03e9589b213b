package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (p *countingProcessor) ProcessJobs(ctx context.Context) error {
	p.calls.Add(1)
	return p.err
}

type MockAuditRunner struct {
	mock.Mock
}

func (m *MockAuditRunner) Run(ctx context.Context) (*service.AuditReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuditReport), args.Error(1)
}

func TestWorker_RunsUntilStopped(t *testing.T) {
	p := &countingProcessor{err: errors.New("boom")}
	w := NewWorker(p, 5*time.Millisecond, nil)

	go w.Start(context.Background())

	assert.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	w.Stop()

	calls := p.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, p.calls.Load())
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	p := &countingProcessor{}
	w := NewWorker(p, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestWorker_RunOnStart(t *testing.T) {
	p := &countingProcessor{}
	w := NewWorker(p, time.Hour, nil, WithRunOnStart())

	go w.Start(context.Background())

	assert.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	w.Stop()
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestAuditWorker_LogsOrphans(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	runner := new(MockAuditRunner)
	runner.On("Run", mock.Anything).Return(&service.AuditReport{
		Checked:      10,
		OrphanCount:  2,
		OrphanSample: []string{"a", "b"},
	}, nil)

	err := NewAuditWorker(runner, zap.New(core)).ProcessJobs(context.Background())

	require.NoError(t, err)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(2), warnings[0].ContextMap()["orphans"])
}

func TestAuditWorker_Consistent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	runner := new(MockAuditRunner)
	runner.On("Run", mock.Anything).Return(&service.AuditReport{Checked: 3}, nil)

	require.NoError(t, NewAuditWorker(runner, zap.New(core)).ProcessJobs(context.Background()))
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestAuditWorker_PropagatesError(t *testing.T) {
	runner := new(MockAuditRunner)
	runner.On("Run", mock.Anything).Return(nil, errors.New("index down"))

	err := NewAuditWorker(runner, nil).ProcessJobs(context.Background())
	assert.EqualError(t, err, "index down")
}
