package api_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jude-e/backend/internal/api"
	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/interfaces/mocks"
	"jude-e/backend/internal/model"
)

func setupTurnHandler(t *testing.T) (*api.TurnHandler, *mocks.MockTurnService) {
	mockTurnSvc := mocks.NewMockTurnService(t)
	return api.NewTurnHandler(mockTurnSvc), mockTurnSvc
}

func TestTurnHandler_HandleListTurns(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockSvc := setupTurnHandler(t)
		expected := []*model.Turn{{ID: "t1", Role: model.RoleChild, Status: model.TurnStatusOK}}
		mockSvc.On("ListTurns", mock.Anything, 10).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/turns?limit=10", nil)
		rr := httptest.NewRecorder()
		handler.HandleListTurns(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got []*model.Turn
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "t1", got[0].ID)
	})

	t.Run("Default limit", func(t *testing.T) {
		handler, mockSvc := setupTurnHandler(t)
		mockSvc.On("ListTurns", mock.Anything, 0).Return([]*model.Turn{}, nil).Once()

		rr := httptest.NewRecorder()
		handler.HandleListTurns(rr, httptest.NewRequest(http.MethodGet, "/api/turns", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("Failure - Bad limit", func(t *testing.T) {
		handler, _ := setupTurnHandler(t)

		rr := httptest.NewRecorder()
		handler.HandleListTurns(rr, httptest.NewRequest(http.MethodGet, "/api/turns?limit=lots", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Failure - Service error", func(t *testing.T) {
		handler, mockSvc := setupTurnHandler(t)
		mockSvc.On("ListTurns", mock.Anything, 0).Return(nil, errors.New("database is locked")).Once()

		rr := httptest.NewRecorder()
		handler.HandleListTurns(rr, httptest.NewRequest(http.MethodGet, "/api/turns", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestTurnHandler_HandleGetTurn(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockSvc := setupTurnHandler(t)
		mockSvc.On("GetTurn", mock.Anything, "t1").Return(&model.Turn{ID: "t1"}, nil).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodGet, "/api/turns/t1", nil), map[string]string{"turnID": "t1"})
		rr := httptest.NewRecorder()
		handler.HandleGetTurn(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Not found", func(t *testing.T) {
		handler, mockSvc := setupTurnHandler(t)
		mockSvc.On("GetTurn", mock.Anything, "nope").Return(nil, fmt.Errorf("%w: turn nope", app_errors.ErrNotFound)).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodGet, "/api/turns/nope", nil), map[string]string{"turnID": "nope"})
		rr := httptest.NewRecorder()
		handler.HandleGetTurn(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
