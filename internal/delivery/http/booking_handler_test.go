package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBookingHandler_CreateBooking(t *testing.T) {
	driverID := uuid.New()
	vehicleID := uuid.New()
	stationID := uuid.New()
	driver := domain.Identity{UserID: driverID, Role: domain.RoleDriver}

	tests := []struct {
		name           string
		requestBody    interface{}
		setupContext   func() context.Context
		mockSetup      func(*MockBookingService)
		expectedStatus int
		checkResponse  func(*testing.T, map[string]interface{})
	}{
		{
			name:        "успешное создание бронирования",
			requestBody: CreateBookingRequest{VehicleID: vehicleID, StationID: stationID},
			setupContext: func() context.Context {
				return CreateAuthContext(t, driverID, domain.RoleDriver)
			},
			mockSetup: func(m *MockBookingService) {
				m.On("Create", mock.Anything, driver, vehicleID, stationID).
					Return(CreateTestBooking(uuid.New(), driverID, domain.BookingPending), nil)
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp map[string]interface{}) {
				AssertSuccess(t, resp)
				data := resp["data"].(map[string]interface{})
				assert.Equal(t, "PENDING", data["status"])
			},
		},
		{
			name:        "отсутствие авторизации",
			requestBody: CreateBookingRequest{VehicleID: vehicleID, StationID: stationID},
			setupContext: func() context.Context {
				return context.Background()
			},
			mockSetup:      func(m *MockBookingService) {},
			expectedStatus: http.StatusUnauthorized,
			checkResponse:  AssertError,
		},
		{
			name:        "невалидный JSON",
			requestBody: "invalid json",
			setupContext: func() context.Context {
				return CreateAuthContext(t, driverID, domain.RoleDriver)
			},
			mockSetup:      func(m *MockBookingService) {},
			expectedStatus: http.StatusBadRequest,
			checkResponse:  AssertError,
		},
		{
			name:        "не указана станция",
			requestBody: CreateBookingRequest{VehicleID: vehicleID},
			setupContext: func() context.Context {
				return CreateAuthContext(t, driverID, domain.RoleDriver)
			},
			mockSetup:      func(m *MockBookingService) {},
			expectedStatus: http.StatusBadRequest,
			checkResponse:  AssertError,
		},
		{
			name:        "чужой автомобиль",
			requestBody: CreateBookingRequest{VehicleID: vehicleID, StationID: stationID},
			setupContext: func() context.Context {
				return CreateAuthContext(t, driverID, domain.RoleDriver)
			},
			mockSetup: func(m *MockBookingService) {
				m.On("Create", mock.Anything, driver, vehicleID, stationID).Return(nil, domain.ErrVehicleNotOwned)
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp map[string]interface{}) {
				AssertError(t, resp)
				assert.Contains(t, resp["error"], "does not belong")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			tt.mockSetup(mockService)

			handler := NewBookingHandler(mockService, logger.NewNoop())

			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body))
			req = req.WithContext(tt.setupContext())
			w := httptest.NewRecorder()

			handler.CreateBooking(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkResponse(t, DecodeResponse(t, w.Body.Bytes()))
			mockService.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_ConfirmBooking(t *testing.T) {
	staffID := uuid.New()
	bookingID := uuid.New()
	staff := domain.Identity{UserID: staffID, Role: domain.RoleStaff}

	tests := []struct {
		name           string
		idParam        string
		mockSetup      func(*MockBookingService)
		expectedStatus int
	}{
		{
			name:    "успешное подтверждение",
			idParam: bookingID.String(),
			mockSetup: func(m *MockBookingService) {
				booking := CreateTestBooking(bookingID, uuid.New(), domain.BookingConfirmed)
				code := "ABC123"
				booking.ConfirmationCode = &code
				m.On("Confirm", mock.Anything, staff, bookingID).Return(booking, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "невалидный ID",
			idParam:        "not-a-uuid",
			mockSetup:      func(m *MockBookingService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "бронирование не найдено",
			idParam: bookingID.String(),
			mockSetup: func(m *MockBookingService) {
				m.On("Confirm", mock.Anything, staff, bookingID).Return(nil, domain.ErrBookingNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:    "нет свободной батареи",
			idParam: bookingID.String(),
			mockSetup: func(m *MockBookingService) {
				m.On("Confirm", mock.Anything, staff, bookingID).Return(nil, domain.ErrNoBatteryAvailable)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:    "нет подписки",
			idParam: bookingID.String(),
			mockSetup: func(m *MockBookingService) {
				m.On("Confirm", mock.Anything, staff, bookingID).Return(nil, domain.ErrNoActiveCredit)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:    "коды исчерпаны",
			idParam: bookingID.String(),
			mockSetup: func(m *MockBookingService) {
				m.On("Confirm", mock.Anything, staff, bookingID).Return(nil, domain.ErrCodeSpaceExhausted)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			tt.mockSetup(mockService)

			handler := NewBookingHandler(mockService, logger.NewNoop())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+tt.idParam+"/confirm", nil)
			req = req.WithContext(CreateAuthContext(t, staffID, domain.RoleStaff))
			req = WithURLParam(req, "id", tt.idParam)
			w := httptest.NewRecorder()

			handler.ConfirmBooking(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_CancelBooking(t *testing.T) {
	driverID := uuid.New()
	bookingID := uuid.New()
	driver := domain.Identity{UserID: driverID, Role: domain.RoleDriver}

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockBookingService)
		expectedStatus int
	}{
		{
			name: "отмена без причины",
			mockSetup: func(m *MockBookingService) {
				m.On("Cancel", mock.Anything, driver, bookingID, "").
					Return(CreateTestBooking(bookingID, driverID, domain.BookingCancelled), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "отмена с причиной",
			body: `{"reason":"plans changed"}`,
			mockSetup: func(m *MockBookingService) {
				m.On("Cancel", mock.Anything, driver, bookingID, "plans changed").
					Return(CreateTestBooking(bookingID, driverID, domain.BookingCancelled), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "уже подтверждено",
			mockSetup: func(m *MockBookingService) {
				m.On("Cancel", mock.Anything, driver, bookingID, "").Return(nil, domain.ErrBookingNotPending)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "чужое бронирование",
			mockSetup: func(m *MockBookingService) {
				m.On("Cancel", mock.Anything, driver, bookingID, "").Return(nil, domain.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			tt.mockSetup(mockService)

			handler := NewBookingHandler(mockService, logger.NewNoop())

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/"+bookingID.String()+"/cancel", bytes.NewBufferString(tt.body))
			req = req.WithContext(CreateAuthContext(t, driverID, domain.RoleDriver))
			req = WithURLParam(req, "id", bookingID.String())
			w := httptest.NewRecorder()

			handler.CancelBooking(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_GetMyBookings(t *testing.T) {
	driverID := uuid.New()
	driver := domain.Identity{UserID: driverID, Role: domain.RoleDriver}

	tests := []struct {
		name           string
		query          string
		mockSetup      func(*MockBookingService)
		expectedStatus int
		expectedLen    int
	}{
		{
			name:  "список с пагинацией",
			query: "?limit=5&offset=10",
			mockSetup: func(m *MockBookingService) {
				m.On("ListMine", mock.Anything, driver, 5, 10).Return([]*domain.Booking{
					CreateTestBooking(uuid.New(), driverID, domain.BookingPending),
					CreateTestBooking(uuid.New(), driverID, domain.BookingCompleted),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedLen:    2,
		},
		{
			name: "ошибка базы данных",
			mockSetup: func(m *MockBookingService) {
				m.On("ListMine", mock.Anything, driver, 0, 0).Return(nil, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			tt.mockSetup(mockService)

			handler := NewBookingHandler(mockService, logger.NewNoop())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/me"+tt.query, nil)
			req = req.WithContext(CreateAuthContext(t, driverID, domain.RoleDriver))
			w := httptest.NewRecorder()

			handler.GetMyBookings(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := DecodeResponse(t, w.Body.Bytes())
			if tt.expectedStatus == http.StatusOK {
				assert.Len(t, resp["data"].([]interface{}), tt.expectedLen)
			} else {
				assert.Equal(t, "Internal server error", resp["error"])
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_GetStationBookings(t *testing.T) {
	staffID := uuid.New()
	stationID := uuid.New()
	staff := domain.Identity{UserID: staffID, Role: domain.RoleStaff}

	tests := []struct {
		name           string
		query          string
		mockSetup      func(*MockBookingService)
		expectedStatus int
	}{
		{
			name:  "фильтр по статусу",
			query: "?status=CONFIRMED",
			mockSetup: func(m *MockBookingService) {
				m.On("ListByStation", mock.Anything, staff, stationID, domain.BookingConfirmed, 0, 0).
					Return([]*domain.Booking{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "неизвестный статус",
			query:          "?status=LOST",
			mockSetup:      func(m *MockBookingService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			tt.mockSetup(mockService)

			handler := NewBookingHandler(mockService, logger.NewNoop())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/stations/"+stationID.String()+"/bookings"+tt.query, nil)
			req = req.WithContext(CreateAuthContext(t, staffID, domain.RoleStaff))
			req = WithURLParam(req, "id", stationID.String())
			w := httptest.NewRecorder()

			handler.GetStationBookings(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}
