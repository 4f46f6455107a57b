package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frontandrew/swapstation/internal/delivery/http/middleware"
	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/google/uuid"
)

// VehicleService определяет интерфейс для подключения автомобилей
type VehicleService interface {
	Register(ctx context.Context, identity domain.Identity, licensePlate string) (*domain.VehicleRegistration, error)
	Approve(ctx context.Context, identity domain.Identity, registrationID uuid.UUID, batteryModel string) (*domain.Vehicle, error)
	Reject(ctx context.Context, identity domain.Identity, registrationID uuid.UUID, reason string) (*domain.VehicleRegistration, error)
	ListMine(ctx context.Context, identity domain.Identity) ([]*domain.Vehicle, error)
}

// RegisterVehicleRequest - заявка на подключение автомобиля
type RegisterVehicleRequest struct {
	LicensePlate string `json:"license_plate"`
}

// ApproveRegistrationRequest - решение сотрудника по заявке
type ApproveRegistrationRequest struct {
	BatteryModel string `json:"battery_model"`
}

// VehicleHandler обрабатывает запросы связанные с автомобилями
type VehicleHandler struct {
	vehicleService VehicleService
	logger         logger.Logger
}

// NewVehicleHandler создает новый handler
func NewVehicleHandler(vehicleService VehicleService, logger logger.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
		logger:         logger,
	}
}

// RegisterVehicle подает заявку на подключение автомобиля
// POST /api/v1/vehicles/registrations
func (h *VehicleHandler) RegisterVehicle(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RegisterVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg, err := h.vehicleService.Register(r.Context(), identity, req.LicensePlate)
	if err != nil {
		respondDomainError(w, h.logger, "register vehicle", err)
		return
	}

	respondData(w, http.StatusCreated, reg)
}

// ApproveRegistration одобряет заявку
// POST /api/v1/vehicles/registrations/{id}/approve
func (h *VehicleHandler) ApproveRegistration(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	registrationID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid registration ID")
		return
	}

	var req ApproveRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vehicle, err := h.vehicleService.Approve(r.Context(), identity, registrationID, req.BatteryModel)
	if err != nil {
		respondDomainError(w, h.logger, "approve registration", err)
		return
	}

	respondData(w, http.StatusCreated, vehicle)
}

// RejectRegistration отклоняет заявку
// POST /api/v1/vehicles/registrations/{id}/reject
func (h *VehicleHandler) RejectRegistration(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	registrationID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid registration ID")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	reg, err := h.vehicleService.Reject(r.Context(), identity, registrationID, body.Reason)
	if err != nil {
		respondDomainError(w, h.logger, "reject registration", err)
		return
	}

	respondData(w, http.StatusOK, reg)
}

// GetMyVehicles возвращает подключенные автомобили текущего водителя
// GET /api/v1/vehicles/me
func (h *VehicleHandler) GetMyVehicles(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vehicles, err := h.vehicleService.ListMine(r.Context(), identity)
	if err != nil {
		respondDomainError(w, h.logger, "list vehicles", err)
		return
	}

	respondData(w, http.StatusOK, vehicles)
}
