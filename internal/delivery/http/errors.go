package http

import (
	"errors"
	"net/http"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
)

// statusFor выбирает HTTP статус по категории доменной ошибки
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError отвечает ошибкой use case.
// Внутренние ошибки логируются, а клиенту уходит только общее сообщение.
func respondDomainError(w http.ResponseWriter, log logger.Logger, operation string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		fields := map[string]interface{}{
			"operation": operation,
			"error":     err,
		}
		if errors.Is(err, domain.ErrExhausted) {
			fields["alert"] = true
		}
		log.Error("Request failed", fields)
		respondError(w, status, "Internal server error")
		return
	}

	respondError(w, status, err.Error())
}
