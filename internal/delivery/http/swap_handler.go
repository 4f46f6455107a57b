package http

import (
	"context"
	"net/http"

	"github.com/frontandrew/swapstation/internal/delivery/http/middleware"
	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/google/uuid"
)

// SwapService определяет интерфейс для сервиса обменов
type SwapService interface {
	Redeem(ctx context.Context, code string) (*domain.SwapTransaction, error)
	History(ctx context.Context, identity domain.Identity, driverID uuid.UUID, limit, offset int) ([]*domain.SwapTransaction, error)
	GetTransaction(ctx context.Context, identity domain.Identity, id uuid.UUID) (*domain.SwapTransaction, error)
}

// SwapHandler обрабатывает запросы связанные с обменом аккумуляторов
type SwapHandler struct {
	swapService SwapService
	logger      logger.Logger
}

// NewSwapHandler создает новый handler
func NewSwapHandler(swapService SwapService, logger logger.Logger) *SwapHandler {
	return &SwapHandler{
		swapService: swapService,
		logger:      logger,
	}
}

// Redeem выполняет обмен по коду подтверждения (публичный - используется терминалом станции)
// POST /api/v1/swap/redeem?code=ABC123
func (h *SwapHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	record, err := h.swapService.Redeem(r.Context(), code)
	if err != nil {
		respondDomainError(w, h.logger, "redeem", err)
		return
	}

	respondData(w, http.StatusOK, record)
}

// GetMyTransactions возвращает журнал обменов водителя.
// Сотрудник может запросить журнал другого водителя через driver_id.
// GET /api/v1/swap/transactions/me
func (h *SwapHandler) GetMyTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var driverID uuid.UUID
	if raw := r.URL.Query().Get("driver_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid driver ID")
			return
		}
		driverID = parsed
	}

	limit, offset := getPage(r)
	history, err := h.swapService.History(r.Context(), identity, driverID, limit, offset)
	if err != nil {
		respondDomainError(w, h.logger, "swap history", err)
		return
	}

	respondData(w, http.StatusOK, history)
}

// GetTransactionByID возвращает запись журнала
// GET /api/v1/swap/transactions/{id}
func (h *SwapHandler) GetTransactionByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	record, err := h.swapService.GetTransaction(r.Context(), identity, id)
	if err != nil {
		respondDomainError(w, h.logger, "get swap transaction", err)
		return
	}

	respondData(w, http.StatusOK, record)
}
