package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/llm"
	mock_llm "jude-e/backend/internal/llm/mocks"
	"jude-e/backend/internal/model"
	"jude-e/backend/internal/prompt"
	mock_repo "jude-e/backend/internal/repository/mocks"
	"jude-e/backend/internal/retrieval"
	mock_retrieval "jude-e/backend/internal/retrieval/mocks"
	"jude-e/backend/internal/service"
)

type Mocks struct {
	retriever *mock_retrieval.MockRetriever
	gateway   *mock_llm.MockGateway
	repo      *mock_repo.MockTurnRepository
}

func setupChatService(t *testing.T, opts service.ChatOptions) (*service.ChatService, Mocks) {
	mocks := Mocks{
		retriever: mock_retrieval.NewMockRetriever(t),
		gateway:   mock_llm.NewMockGateway(t),
		repo:      mock_repo.NewMockTurnRepository(t),
	}
	composer := prompt.NewComposer(prompt.Sampling{Temperature: 0.2, TopP: 0.9, TopK: 40})
	chatService := service.NewChatService(mocks.retriever, composer, mocks.gateway, mocks.repo, nil, opts)
	return chatService, mocks
}

func amlBundle() *retrieval.Bundle {
	return &retrieval.Bundle{
		Shape: retrieval.ShapeNested,
		Documents: []retrieval.Document{
			{Text: "AML is a blood cancer."},
			{Text: "AML affects white blood cells."},
		},
	}
}

func turnWithStatus(status model.TurnStatus) any {
	return mock.MatchedBy(func(turn *model.Turn) bool { return turn.Status == status })
}

func TestChatService_Chat_Streamed(t *testing.T) {
	ctx := context.Background()
	chatService, mocks := setupChatService(t, service.ChatOptions{
		Mode:              llm.ModeStreamed,
		ContextTimeout:    time.Second,
		GenerationTimeout: time.Minute,
	})

	const upstream = "{\"response\":\"Hel\"}\n{\"response\":\"lo\"}\n"
	var genCtx context.Context

	mocks.retriever.On("Fetch", mock.Anything, "What is AML?").Return(amlBundle(), nil).Once()
	mocks.gateway.On("GenerateStream", mock.Anything, mock.MatchedBy(func(req *prompt.Request) bool {
		return req.Stream &&
			req.System == prompt.SystemPrompt(model.RoleChild) &&
			req.Prompt == "Context: AML is a blood cancer.\n\n---\n\nAML affects white blood cells.\n\nQuestion: What is AML?\nAnswer:"
	})).Run(func(args mock.Arguments) {
		genCtx = args.Get(0).(context.Context)
	}).Return(io.NopCloser(strings.NewReader(upstream)), nil).Once()
	mocks.repo.On("RecordTurn", mock.Anything, mock.MatchedBy(func(turn *model.Turn) bool {
		return turn.Status == model.TurnStatusOK &&
			turn.Role == model.RoleChild &&
			turn.Mode == "streamed" &&
			turn.DocumentCount == 2 &&
			turn.BytesRelayed == int64(len(upstream)) &&
			turn.ErrorKind == ""
	})).Return(nil).Once()

	result, err := chatService.Chat(ctx, &service.ChatRequest{Prompt: "What is AML?", UserRole: "kid"})
	require.NoError(t, err)
	require.NotNil(t, result.Stream)
	assert.Nil(t, result.Body)
	assert.NotEmpty(t, result.TurnID)
	assert.Equal(t, 2, result.DocumentCount)

	_, hasDeadline := genCtx.Deadline()
	assert.True(t, hasDeadline)

	relayed, err := io.ReadAll(result.Stream)
	require.NoError(t, err)
	assert.Equal(t, upstream, string(relayed))

	assert.NoError(t, genCtx.Err())
	require.NoError(t, result.Stream.Close())
	assert.ErrorIs(t, genCtx.Err(), context.Canceled)

	chatService.CompleteTurn(ctx, result, int64(len(relayed)), nil)
}

func TestChatService_Chat_Buffered(t *testing.T) {
	ctx := context.Background()
	chatService, mocks := setupChatService(t, service.ChatOptions{Mode: llm.ModeBuffered})

	body := []byte(`{"response":"AML is a blood cancer.","done":true}`)
	mocks.retriever.On("Fetch", mock.Anything, "What is AML?").Return(amlBundle(), nil).Once()
	mocks.gateway.On("Generate", mock.Anything, mock.MatchedBy(func(req *prompt.Request) bool {
		return !req.Stream && req.System == prompt.SystemPrompt(model.RoleCaregiver)
	})).Return(body, nil).Once()
	mocks.repo.On("RecordTurn", mock.Anything, turnWithStatus(model.TurnStatusOK)).Return(nil).Once()

	result, err := chatService.Chat(ctx, &service.ChatRequest{Prompt: "What is AML?"})
	require.NoError(t, err)
	assert.Equal(t, body, result.Body)
	assert.Nil(t, result.Stream)
	assert.Equal(t, model.RoleCaregiver, result.Role)

	chatService.CompleteTurn(ctx, result, int64(len(body)), nil)
}

func TestChatService_Chat_ContextFailure(t *testing.T) {
	ctx := context.Background()
	fetchErr := fmt.Errorf("%w: context service returned status 500", app_errors.ErrContextUnavailable)

	t.Run("Failure - Fail policy aborts the turn", func(t *testing.T) {
		chatService, mocks := setupChatService(t, service.ChatOptions{ContextPolicy: service.ContextPolicyFail})

		mocks.retriever.On("Fetch", mock.Anything, "q").Return(nil, fetchErr).Once()
		mocks.repo.On("RecordTurn", mock.Anything, turnWithStatus(model.TurnStatusContextUnavailable)).Return(nil).Once()

		result, err := chatService.Chat(ctx, &service.ChatRequest{Prompt: "q"})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, app_errors.ErrContextUnavailable)
		mocks.gateway.AssertNotCalled(t, "GenerateStream", mock.Anything, mock.Anything)
	})

	t.Run("Success - Degrade policy continues with empty context", func(t *testing.T) {
		chatService, mocks := setupChatService(t, service.ChatOptions{
			Mode:          llm.ModeBuffered,
			ContextPolicy: service.ContextPolicyDegrade,
		})

		mocks.retriever.On("Fetch", mock.Anything, "q").Return(nil, fetchErr).Once()
		mocks.gateway.On("Generate", mock.Anything, mock.MatchedBy(func(req *prompt.Request) bool {
			return req.Prompt == "Context: \n\nQuestion: q\nAnswer:"
		})).Return([]byte(`{"response":"ok"}`), nil).Once()
		mocks.repo.On("RecordTurn", mock.Anything, mock.MatchedBy(func(turn *model.Turn) bool {
			return turn.ContextSkipped && turn.DocumentCount == 0 && turn.Status == model.TurnStatusOK
		})).Return(nil).Once()

		result, err := chatService.Chat(ctx, &service.ChatRequest{Prompt: "q"})
		require.NoError(t, err)
		assert.True(t, result.ContextSkipped)
		chatService.CompleteTurn(ctx, result, 17, nil)
	})

	t.Run("Failure - Unwrapped retriever errors are still context errors", func(t *testing.T) {
		chatService, mocks := setupChatService(t, service.ChatOptions{})

		mocks.retriever.On("Fetch", mock.Anything, "q").Return(nil, errors.New("dial tcp: refused")).Once()
		mocks.repo.On("RecordTurn", mock.Anything, turnWithStatus(model.TurnStatusContextUnavailable)).Return(nil).Once()

		_, err := chatService.Chat(ctx, &service.ChatRequest{Prompt: "q"})
		assert.ErrorIs(t, err, app_errors.ErrContextUnavailable)
	})
}

func TestChatService_Chat_ContextDeadline(t *testing.T) {
	chatService, mocks := setupChatService(t, service.ChatOptions{ContextTimeout: 20 * time.Millisecond})

	mocks.retriever.On("Fetch", mock.Anything, "q").
		Return(func(ctx context.Context, _ string) *retrieval.Bundle {
			<-ctx.Done()
			return nil
		}, func(ctx context.Context, _ string) error {
			return fmt.Errorf("%w: request failed: %w", app_errors.ErrContextUnavailable, ctx.Err())
		}).Once()
	mocks.repo.On("RecordTurn", mock.Anything, turnWithStatus(model.TurnStatusTimeout)).Return(nil).Once()

	_, err := chatService.Chat(context.Background(), &service.ChatRequest{Prompt: "q"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, app_errors.ErrContextUnavailable)
}

func TestChatService_Chat_GenerationFailure(t *testing.T) {
	ctx := context.Background()
	genErr := fmt.Errorf("%w: api returned status 500", app_errors.ErrGenerationFailed)

	for _, mode := range []llm.Mode{llm.ModeBuffered, llm.ModeStreamed} {
		t.Run(string(mode), func(t *testing.T) {
			chatService, mocks := setupChatService(t, service.ChatOptions{Mode: mode})

			mocks.retriever.On("Fetch", mock.Anything, "q").Return(amlBundle(), nil).Once()
			if mode == llm.ModeBuffered {
				mocks.gateway.On("Generate", mock.Anything, mock.Anything).Return(nil, genErr).Once()
			} else {
				mocks.gateway.On("GenerateStream", mock.Anything, mock.Anything).Return(nil, genErr).Once()
			}
			mocks.repo.On("RecordTurn", mock.Anything, turnWithStatus(model.TurnStatusGenerationFailed)).Return(nil).Once()

			result, err := chatService.Chat(ctx, &service.ChatRequest{Prompt: "q"})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, app_errors.ErrGenerationFailed)
		})
	}
}

func TestChatService_Chat_Validation(t *testing.T) {
	chatService, _ := setupChatService(t, service.ChatOptions{})

	_, err := chatService.Chat(context.Background(), &service.ChatRequest{Prompt: "   "})
	assert.ErrorIs(t, err, app_errors.ErrValidation)

	_, err = chatService.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestChatService_CompleteTurn(t *testing.T) {
	chatService, mocks := setupChatService(t, service.ChatOptions{})
	result := &service.ChatResult{TurnID: "t1", Mode: llm.ModeStreamed, Role: model.RoleCaregiver, StartedAt: time.Now()}

	t.Run("Relay failure is recorded", func(t *testing.T) {
		mocks.repo.On("RecordTurn", mock.Anything, mock.MatchedBy(func(turn *model.Turn) bool {
			return turn.ID == "t1" && turn.Status == model.TurnStatusRelayFailed && turn.BytesRelayed == 5
		})).Return(nil).Once()

		chatService.CompleteTurn(context.Background(), result, 5, errors.New("broken pipe"))
	})

	t.Run("Cancelled request context still records", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		mocks.repo.On("RecordTurn", mock.MatchedBy(func(ctx context.Context) bool {
			return ctx.Err() == nil
		}), turnWithStatus(model.TurnStatusOK)).Return(nil).Once()

		chatService.CompleteTurn(ctx, result, 10, nil)
	})

	t.Run("Ledger failure is not fatal", func(t *testing.T) {
		mocks.repo.On("RecordTurn", mock.Anything, mock.Anything).Return(errors.New("database is locked")).Once()
		assert.NotPanics(t, func() { chatService.CompleteTurn(context.Background(), result, 0, nil) })
	})
}

func TestTurnStatusFor(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want model.TurnStatus
	}{
		{"No error", nil, model.TurnStatusOK},
		{"Deadline", fmt.Errorf("%w: %w", app_errors.ErrGenerationFailed, context.DeadlineExceeded), model.TurnStatusTimeout},
		{"Context", app_errors.ErrContextUnavailable, model.TurnStatusContextUnavailable},
		{"Generation", app_errors.ErrGenerationFailed, model.TurnStatusGenerationFailed},
		{"Other", io.ErrUnexpectedEOF, model.TurnStatusRelayFailed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, service.TurnStatusFor(tc.err))
		})
	}
}

func TestParseContextPolicy(t *testing.T) {
	policy, err := service.ParseContextPolicy("Degrade")
	require.NoError(t, err)
	assert.Equal(t, service.ContextPolicyDegrade, policy)

	_, err = service.ParseContextPolicy("retry")
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}
