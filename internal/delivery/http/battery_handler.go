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

// BatteryService определяет интерфейс для сервиса аккумуляторов
type BatteryService interface {
	ListByStation(ctx context.Context, identity domain.Identity, stationID uuid.UUID) ([]*domain.BatteryUnit, error)
	RestoreFromMaintenance(ctx context.Context, identity domain.Identity, batteryID uuid.UUID, newHealth float64) (*domain.BatteryUnit, error)
}

// BatteryHandler обрабатывает запросы связанные с аккумуляторами
type BatteryHandler struct {
	batteryService BatteryService
	logger         logger.Logger
}

// NewBatteryHandler создает новый handler
func NewBatteryHandler(batteryService BatteryService, logger logger.Logger) *BatteryHandler {
	return &BatteryHandler{
		batteryService: batteryService,
		logger:         logger,
	}
}

// GetStationBatteries возвращает блоки станции
// GET /api/v1/stations/{id}/batteries
func (h *BatteryHandler) GetStationBatteries(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stationID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid station ID")
		return
	}

	units, err := h.batteryService.ListByStation(r.Context(), identity, stationID)
	if err != nil {
		respondDomainError(w, h.logger, "list station batteries", err)
		return
	}

	respondData(w, http.StatusOK, units)
}

// RestoreBattery возвращает блок из обслуживания с новым SOH
// POST /api/v1/batteries/{id}/restore
func (h *BatteryHandler) RestoreBattery(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	batteryID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid battery ID")
		return
	}

	var body struct {
		StateOfHealth *float64 `json:"state_of_health"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.StateOfHealth == nil {
		respondError(w, http.StatusBadRequest, "state_of_health is required")
		return
	}

	unit, err := h.batteryService.RestoreFromMaintenance(r.Context(), identity, batteryID, *body.StateOfHealth)
	if err != nil {
		respondDomainError(w, h.logger, "restore battery", err)
		return
	}

	respondData(w, http.StatusOK, unit)
}
