package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/trading-academy/internal/http/middlewarectx"
	"github.com/magabrotheeeer/trading-academy/internal/models"
)

// MockService реализует интерфейс cancel.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Cancel(ctx context.Context, username, id, reason string) (*models.Subscription, error) {
	args := m.Called(ctx, username, id, reason)
	if res := args.Get(0); res != nil {
		return res.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCancelHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		id             string
		username       string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "успешная отмена подписки",
			id:       "sub-1",
			username: "alice",
			body:     `{"reason":"too expensive"}`,
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice", "sub-1", "too expensive").
					Return(&models.Subscription{ID: "sub-1", Status: models.StatusCancelled}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"cancelled"`,
		},
		{
			name:     "отмена без тела запроса",
			id:       "sub-1",
			username: "alice",
			body:     "",
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice", "sub-1", "").
					Return(&models.Subscription{ID: "sub-1", Status: models.StatusCancelled}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"cancelled"`,
		},
		{
			name:           "запрос без пользователя в контексте",
			id:             "sub-1",
			username:       "",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
		{
			name:     "подписка не найдена",
			id:       "ghost",
			username: "alice",
			body:     `{}`,
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice", "ghost", "").
					Return(nil, models.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `subscription not found`,
		},
		{
			name:     "чужая подписка выглядит несуществующей",
			id:       "sub-1",
			username: "mallory",
			body:     `{}`,
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "mallory", "sub-1", "").
					Return(nil, models.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `subscription not found`,
		},
		{
			name:     "отмена истекшей подписки",
			id:       "sub-2",
			username: "alice",
			body:     `{}`,
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice", "sub-2", "").
					Return(nil, models.ErrSubscriptionTerminal)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `subscription is expired`,
		},
		{
			name:     "конфликт версий",
			id:       "sub-3",
			username: "alice",
			body:     `{}`,
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice", "sub-3", "").
					Return(nil, models.ErrVersionConflict)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `modified concurrently`,
		},
		{
			name:     "ошибка сервиса",
			id:       "sub-4",
			username: "alice",
			body:     `{}`,
			setupMock: func(m *MockService) {
				m.On("Cancel", mock.Anything, "alice", "sub-4", "").
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not cancel subscription`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+tt.id+"/cancel", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			if tt.username != "" {
				ctx = context.WithValue(ctx, middlewarectx.User, tt.username)
			}
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
