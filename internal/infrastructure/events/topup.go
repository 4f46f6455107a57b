// Package events - обработчики входящих событий брокера
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/pkg/metrics"
	"github.com/frontandrew/swapstation/internal/usecase/subscription"
)

// Granter начисляет пакет обменов
type Granter interface {
	Grant(ctx context.Context, topUp subscription.TopUp) (*domain.SubscriptionCredit, error)
}

// Subscriber доставляет сообщения из очереди (реализуется *rabbitmq.Client)
type Subscriber interface {
	Subscribe(ctx context.Context, exchange, queue string, handler func(ctx context.Context, body []byte) error) error
}

// TopUpConsumer обрабатывает события пополнения подписки от сервиса оплаты
type TopUpConsumer struct {
	ledger Granter
	logger logger.Logger
}

// NewTopUpConsumer создает обработчик пополнений
func NewTopUpConsumer(ledger Granter, logger logger.Logger) *TopUpConsumer {
	return &TopUpConsumer{
		ledger: ledger,
		logger: logger,
	}
}

// Run читает очередь до отмены ctx
func (c *TopUpConsumer) Run(ctx context.Context, sub Subscriber, exchange, queue string) error {
	c.logger.Info("Credit top-up consumer started", map[string]interface{}{
		"exchange": exchange,
		"queue":    queue,
	})
	return sub.Subscribe(ctx, exchange, queue, c.Handle)
}

// Handle обрабатывает одно сообщение.
// Некорректное событие и повторное пополнение при активной подписке подтверждаются
// и отбрасываются; ошибка возвращается только для сбоев хранилища, чтобы брокер повторил доставку.
func (c *TopUpConsumer) Handle(ctx context.Context, body []byte) error {
	var topUp subscription.TopUp
	if err := json.Unmarshal(body, &topUp); err != nil {
		metrics.CreditTopUpsTotal.WithLabelValues(metrics.ResultError).Inc()
		c.logger.Warn("Malformed credit top-up event dropped", map[string]interface{}{
			"error": err,
		})
		return nil
	}

	credit, err := c.ledger.Grant(ctx, topUp)
	switch {
	case err == nil:
		metrics.CreditTopUpsTotal.WithLabelValues(metrics.ResultOK).Inc()
		c.logger.Info("Credit top-up applied", map[string]interface{}{
			"driver_id": credit.DriverID,
			"credit_id": credit.ID,
		})
		return nil
	case errors.Is(err, domain.ErrConflict):
		metrics.CreditTopUpsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		c.logger.Warn("Credit top-up rejected: active subscription exists", map[string]interface{}{
			"driver_id": topUp.DriverID,
		})
		return nil
	case errors.Is(err, domain.ErrValidation):
		metrics.CreditTopUpsTotal.WithLabelValues(metrics.ResultError).Inc()
		c.logger.Warn("Invalid credit top-up event dropped", map[string]interface{}{
			"driver_id": topUp.DriverID,
			"error":     err,
		})
		return nil
	default:
		metrics.CreditTopUpsTotal.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to apply credit top-up: %w", err)
	}
}
