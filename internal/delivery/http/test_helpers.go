package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/frontandrew/swapstation/internal/delivery/http/middleware"
	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// CreateTestBooking создает тестовое бронирование
func CreateTestBooking(id, driverID uuid.UUID, status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:        id,
		DriverID:  driverID,
		VehicleID: uuid.New(),
		StationID: uuid.New(),
		Status:    status,
	}
}

// CreateTestSwap создает тестовую запись журнала обменов
func CreateTestSwap(id, driverID uuid.UUID) *domain.SwapTransaction {
	now := time.Now()
	return &domain.SwapTransaction{
		ID:                        id,
		DriverID:                  driverID,
		VehicleID:                 uuid.New(),
		StationID:                 uuid.New(),
		SwapOutBatteryID:          uuid.New(),
		SwapOutBatteryModel:       "LFP-48",
		SwapOutBatteryChargeLevel: 97,
		SwapOutBatteryHealth:      88,
		StartTime:                 now,
		EndTime:                   now,
		Status:                    domain.SwapCompleted,
	}
}

// CreateAuthContext создает контекст с claims пользователя, как после AuthMiddleware
func CreateAuthContext(t *testing.T, userID uuid.UUID, role domain.UserRole) context.Context {
	t.Helper()
	claims := &jwt.Claims{UserID: userID, Role: role}
	return context.WithValue(context.Background(), middleware.UserClaimsKey, claims)
}

// WithURLParam добавляет параметр пути chi в запрос
func WithURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// DecodeResponse разбирает JSON конверт ответа
func DecodeResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}

// AssertSuccess проверяет успешный ответ API
func AssertSuccess(t *testing.T, response map[string]interface{}) {
	t.Helper()
	success, ok := response["success"].(bool)
	if !ok || !success {
		t.Errorf("Expected success=true, got %v", response)
	}
}

// AssertError проверяет ошибочный ответ API
func AssertError(t *testing.T, response map[string]interface{}) {
	t.Helper()
	success, ok := response["success"].(bool)
	if !ok || success {
		t.Errorf("Expected success=false, got %v", response)
	}
}
