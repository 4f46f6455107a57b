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

// BookingService определяет интерфейс для сервиса бронирований
type BookingService interface {
	Create(ctx context.Context, identity domain.Identity, vehicleID, stationID uuid.UUID) (*domain.Booking, error)
	Confirm(ctx context.Context, identity domain.Identity, bookingID uuid.UUID) (*domain.Booking, error)
	Cancel(ctx context.Context, identity domain.Identity, bookingID uuid.UUID, reason string) (*domain.Booking, error)
	Get(ctx context.Context, identity domain.Identity, bookingID uuid.UUID) (*domain.Booking, error)
	ListMine(ctx context.Context, identity domain.Identity, limit, offset int) ([]*domain.Booking, error)
	ListByStation(ctx context.Context, identity domain.Identity, stationID uuid.UUID, status domain.BookingStatus, limit, offset int) ([]*domain.Booking, error)
}

// CreateBookingRequest - тело запроса на бронирование
type CreateBookingRequest struct {
	VehicleID uuid.UUID `json:"vehicle_id"`
	StationID uuid.UUID `json:"station_id"`
}

// BookingHandler обрабатывает запросы связанные с бронированиями
type BookingHandler struct {
	bookingService BookingService
	logger         logger.Logger
}

// NewBookingHandler создает новый handler
func NewBookingHandler(bookingService BookingService, logger logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBooking создает бронирование от имени водителя
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VehicleID == uuid.Nil || req.StationID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "vehicle_id and station_id are required")
		return
	}

	booking, err := h.bookingService.Create(r.Context(), identity, req.VehicleID, req.StationID)
	if err != nil {
		respondDomainError(w, h.logger, "create booking", err)
		return
	}

	respondData(w, http.StatusCreated, booking)
}

// GetMyBookings возвращает бронирования текущего водителя
// GET /api/v1/bookings/me
func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, offset := getPage(r)
	bookings, err := h.bookingService.ListMine(r.Context(), identity, limit, offset)
	if err != nil {
		respondDomainError(w, h.logger, "list my bookings", err)
		return
	}

	respondData(w, http.StatusOK, bookings)
}

// GetBookingByID возвращает бронирование по ID
// GET /api/v1/bookings/{id}
func (h *BookingHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	bookingID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := h.bookingService.Get(r.Context(), identity, bookingID)
	if err != nil {
		respondDomainError(w, h.logger, "get booking", err)
		return
	}

	respondData(w, http.StatusOK, booking)
}

// ConfirmBooking подтверждает бронирование (только для сотрудников)
// POST /api/v1/bookings/{id}/confirm
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	bookingID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := h.bookingService.Confirm(r.Context(), identity, bookingID)
	if err != nil {
		respondDomainError(w, h.logger, "confirm booking", err)
		return
	}

	respondData(w, http.StatusOK, booking)
}

// CancelBooking отменяет ожидающее бронирование
// PATCH /api/v1/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	bookingID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	// Причина необязательна, тело может отсутствовать
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	booking, err := h.bookingService.Cancel(r.Context(), identity, bookingID, body.Reason)
	if err != nil {
		respondDomainError(w, h.logger, "cancel booking", err)
		return
	}

	respondData(w, http.StatusOK, booking)
}

// GetStationBookings возвращает бронирования станции (только для сотрудников)
// GET /api/v1/stations/{id}/bookings?status=PENDING
func (h *BookingHandler) GetStationBookings(w http.ResponseWriter, r *http.Request) {
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

	status := domain.BookingStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.BookingPending, domain.BookingConfirmed, domain.BookingCompleted, domain.BookingCancelled:
	default:
		respondError(w, http.StatusBadRequest, "Invalid booking status")
		return
	}

	limit, offset := getPage(r)
	bookings, err := h.bookingService.ListByStation(r.Context(), identity, stationID, status, limit, offset)
	if err != nil {
		respondDomainError(w, h.logger, "list station bookings", err)
		return
	}

	respondData(w, http.StatusOK, bookings)
}
