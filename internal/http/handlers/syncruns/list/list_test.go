package list

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	args := m.Called(ctx, limit)
	if res := args.Get(0); res != nil {
		return res.([]*models.SyncRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "лимит по умолчанию",
			url:  "/api/sync-runs",
			setupMock: func(m *MockService) {
				m.On("ListSyncRuns", mock.Anything, defaultLimit).
					Return([]*models.SyncRun{{ID: 2, Status: models.SyncPartial, UsersSynced: 1, UsersFailed: 1}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"PARTIAL"`,
		},
		{
			name: "пустой журнал",
			url:  "/api/sync-runs?limit=5",
			setupMock: func(m *MockService) {
				m.On("ListSyncRuns", mock.Anything, 5).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"data":[]`,
		},
		{
			name:           "лимит вне диапазона",
			url:            "/api/sync-runs?limit=0",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "field Limit must be at least 1",
		},
		{
			name:           "нечисловой лимит",
			url:            "/api/sync-runs?limit=x",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "limit must be an integer",
		},
		{
			name: "ошибка хранилища",
			url:  "/api/sync-runs",
			setupMock: func(m *MockService) {
				m.On("ListSyncRuns", mock.Anything, defaultLimit).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "failed to list sync runs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			New(logger, mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
