package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestVehicleHandler_RegisterVehicle(t *testing.T) {
	driverID := uuid.New()
	driver := domain.Identity{UserID: driverID, Role: domain.RoleDriver}

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockVehicleService)
		expectedStatus int
	}{
		{
			name: "успешная заявка",
			body: `{"license_plate": "A123BC77"}`,
			mockSetup: func(m *MockVehicleService) {
				m.On("Register", mock.Anything, driver, "A123BC77").Return(&domain.VehicleRegistration{
					ID:           uuid.New(),
					DriverID:     driverID,
					LicensePlate: "A123BC77",
					Status:       domain.RegistrationPending,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "невалидный JSON",
			body:           `{license_plate}`,
			mockSetup:      func(m *MockVehicleService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "некорректный номер",
			body: `{"license_plate": "A1"}`,
			mockSetup: func(m *MockVehicleService) {
				m.On("Register", mock.Anything, driver, "A1").Return(nil, domain.ErrInvalidVehicleData)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVehicleService)
			tt.mockSetup(mockService)

			handler := NewVehicleHandler(mockService, logger.NewNoop())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/vehicles/registrations", bytes.NewBufferString(tt.body))
			req = req.WithContext(CreateAuthContext(t, driverID, domain.RoleDriver))
			w := httptest.NewRecorder()

			handler.RegisterVehicle(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestVehicleHandler_ApproveRegistration(t *testing.T) {
	staffID := uuid.New()
	staff := domain.Identity{UserID: staffID, Role: domain.RoleStaff}
	registrationID := uuid.New()

	tests := []struct {
		name           string
		mockSetup      func(*MockVehicleService)
		expectedStatus int
	}{
		{
			name: "заявка одобрена",
			mockSetup: func(m *MockVehicleService) {
				m.On("Approve", mock.Anything, staff, registrationID, "LFP-48").Return(&domain.Vehicle{
					ID:           uuid.New(),
					LicensePlate: "A123BC77",
					BatteryModel: "LFP-48",
					IsActive:     true,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "решение уже принято",
			mockSetup: func(m *MockVehicleService) {
				m.On("Approve", mock.Anything, staff, registrationID, "LFP-48").Return(nil, domain.ErrRegistrationDecided)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "номер уже зарегистрирован",
			mockSetup: func(m *MockVehicleService) {
				m.On("Approve", mock.Anything, staff, registrationID, "LFP-48").Return(nil, domain.ErrVehicleAlreadyExists)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVehicleService)
			tt.mockSetup(mockService)

			handler := NewVehicleHandler(mockService, logger.NewNoop())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/vehicles/registrations/"+registrationID.String()+"/approve",
				bytes.NewBufferString(`{"battery_model": "LFP-48"}`))
			req = req.WithContext(CreateAuthContext(t, staffID, domain.RoleStaff))
			req = WithURLParam(req, "id", registrationID.String())
			w := httptest.NewRecorder()

			handler.ApproveRegistration(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestVehicleHandler_RejectRegistration(t *testing.T) {
	staffID := uuid.New()
	registrationID := uuid.New()

	mockService := new(MockVehicleService)
	mockService.On("Reject", mock.Anything, domain.Identity{UserID: staffID, Role: domain.RoleAdmin}, registrationID, "").
		Return(&domain.VehicleRegistration{ID: registrationID, Status: domain.RegistrationRejected}, nil)

	handler := NewVehicleHandler(mockService, logger.NewNoop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vehicles/registrations/"+registrationID.String()+"/reject", nil)
	req = req.WithContext(CreateAuthContext(t, staffID, domain.RoleAdmin))
	req = WithURLParam(req, "id", registrationID.String())
	w := httptest.NewRecorder()

	handler.RejectRegistration(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := DecodeResponse(t, w.Body.Bytes())
	AssertSuccess(t, resp)
	mockService.AssertExpectations(t)
}
