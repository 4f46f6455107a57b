package http

import (
	"context"
	"net/http"

	"github.com/frontandrew/swapstation/internal/delivery/http/middleware"
	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/google/uuid"
)

// CreditService определяет интерфейс для журнала подписок
type CreditService interface {
	GetActive(ctx context.Context, identity domain.Identity, driverID uuid.UUID) (*domain.SubscriptionCredit, error)
}

// CreditHandler обрабатывает запросы по подписке водителя
type CreditHandler struct {
	creditService CreditService
	logger        logger.Logger
}

// NewCreditHandler создает новый handler
func NewCreditHandler(creditService CreditService, logger logger.Logger) *CreditHandler {
	return &CreditHandler{
		creditService: creditService,
		logger:        logger,
	}
}

// GetMyCredit возвращает активную подписку текущего водителя
// GET /api/v1/credits/me
func (h *CreditHandler) GetMyCredit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	credit, err := h.creditService.GetActive(r.Context(), identity, identity.UserID)
	if err != nil {
		respondDomainError(w, h.logger, "get credit", err)
		return
	}

	respondData(w, http.StatusOK, credit)
}
