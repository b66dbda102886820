package syncuser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SyncByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSyncHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная синхронизация",
			id:   "1",
			setupMock: func(m *MockService) {
				m.On("SyncByID", mock.Anything, int64(1)).Return(&models.User{ID: 1, Email: "a@x.com"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "Subscription synced successfully",
		},
		{
			name:           "некорректный id",
			id:             "abc",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "failed to decode id from url",
		},
		{
			name: "пользователь не найден",
			id:   "404",
			setupMock: func(m *MockService) {
				m.On("SyncByID", mock.Anything, int64(404)).
					Return(nil, fmt.Errorf("storage.GetUserByID: %w", repository.ErrUserNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "User not found",
		},
		{
			name: "синхронизация не удалась",
			id:   "2",
			setupMock: func(m *MockService) {
				m.On("SyncByID", mock.Anything, int64(2)).Return(nil, fmt.Errorf("sync failed"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Failed to sync subscription",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/users/sync/"+tt.id, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			New(logger, mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
