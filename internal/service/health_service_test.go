package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mock_llm "jude-e/backend/internal/llm/mocks"
	mock_retrieval "jude-e/backend/internal/retrieval/mocks"
	"jude-e/backend/internal/service"
)

func TestHealthService_Ready(t *testing.T) {
	ctx := context.Background()

	t.Run("All upstreams ready", func(t *testing.T) {
		retriever := mock_retrieval.NewMockRetriever(t)
		gateway := mock_llm.NewMockGateway(t)
		retriever.On("Ready", mock.Anything).Return(nil).Once()
		gateway.On("Ready", mock.Anything).Return(nil).Once()

		readiness := service.NewHealthService(retriever, gateway, time.Second).Ready(ctx)
		assert.True(t, readiness.Ready)
		require.Len(t, readiness.Components, 2)
		assert.Equal(t, "context", readiness.Components[0].Name)
		assert.Equal(t, "generation", readiness.Components[1].Name)
	})

	t.Run("One upstream down", func(t *testing.T) {
		retriever := mock_retrieval.NewMockRetriever(t)
		gateway := mock_llm.NewMockGateway(t)
		retriever.On("Ready", mock.Anything).Return(nil).Once()
		gateway.On("Ready", mock.Anything).Return(errors.New(`model "gemma3:1b" is not available`)).Once()

		readiness := service.NewHealthService(retriever, gateway, time.Second).Ready(ctx)
		assert.False(t, readiness.Ready)
		assert.True(t, readiness.Components[0].Ready)
		assert.False(t, readiness.Components[1].Ready)
		assert.Contains(t, readiness.Components[1].Error, "gemma3:1b")
	})
}

func TestHealthService_WaitUntilReady(t *testing.T) {
	t.Run("Returns once upstreams answer", func(t *testing.T) {
		retriever := mock_retrieval.NewMockRetriever(t)
		gateway := mock_llm.NewMockGateway(t)
		retriever.On("Ready", mock.Anything).Return(errors.New("connection refused")).Once()
		retriever.On("Ready", mock.Anything).Return(nil)
		gateway.On("Ready", mock.Anything).Return(nil)

		err := service.NewHealthService(retriever, gateway, time.Second).
			WaitUntilReady(context.Background(), 10*time.Millisecond)
		assert.NoError(t, err)
	})

	t.Run("Gives up when the context ends", func(t *testing.T) {
		retriever := mock_retrieval.NewMockRetriever(t)
		gateway := mock_llm.NewMockGateway(t)
		retriever.On("Ready", mock.Anything).Return(errors.New("connection refused"))
		gateway.On("Ready", mock.Anything).Return(nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := service.NewHealthService(retriever, gateway, time.Second).WaitUntilReady(ctx, 10*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
