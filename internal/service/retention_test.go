package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRetentionService_Sweep(t *testing.T) {
	ms := new(MockDatasetStore)
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewRetentionService(ms, 30*24*time.Hour, zap.New(core))
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	ms.On("DeleteOlderThan", ctx, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)).Return(int64(4), nil).Once()

	deleted, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	require.Equal(t, 1, logs.FilterMessage("deleted expired datasets").Len())
	assert.Equal(t, int64(4), logs.All()[0].ContextMap()["count"])
	ms.AssertExpectations(t)
}

func TestRetentionService_SweepError(t *testing.T) {
	ms := new(MockDatasetStore)
	core, logs := observer.New(zapcore.ErrorLevel)
	svc := NewRetentionService(ms, time.Hour, zap.New(core))

	ms.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection reset"))

	_, err := svc.Sweep(context.Background())
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, 1, logs.Len())
}

func TestRetentionService_StartStop(t *testing.T) {
	ms := new(MockDatasetStore)
	svc := NewRetentionService(ms, time.Hour, zap.NewNop())
	svc.SetInterval(5 * time.Millisecond)

	swept := make(chan struct{}, 1)
	ms.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	})

	svc.Start()
	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("retention sweep did not run")
	}
	svc.Stop()
}
