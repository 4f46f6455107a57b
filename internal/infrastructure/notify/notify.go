package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/pkg/metrics"
	"github.com/sony/gobreaker"
)

// Notifier отправляет уведомления во внешний сервис.
// Ошибки доставки не возвращаются: они логируются, вызывающий код не ждет доставки.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Publisher публикует сообщение в обмен брокера
type Publisher interface {
	Publish(ctx context.Context, exchange string, body []byte) error
}

// LogNotifier только пишет уведомление в лог (брокер не настроен)
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier создает LogNotifier
func NewLogNotifier(logger logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// secretPayloadKeys не попадают в лог: код подтверждения выдает батарею
var secretPayloadKeys = map[string]struct{}{
	"confirmation_code": {},
}

// loggablePayload возвращает копию payload без секретных полей
func loggablePayload(payload map[string]interface{}) map[string]interface{} {
	if len(payload) == 0 {
		return payload
	}
	out := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		if _, secret := secretPayloadKeys[key]; secret {
			continue
		}
		out[key] = value
	}
	return out
}

// Notify реализует Notifier
func (n *LogNotifier) Notify(_ context.Context, notification domain.Notification) {
	n.logger.Info("Notification", map[string]interface{}{
		"recipient": notification.Recipient,
		"kind":      notification.Kind,
		"payload":   loggablePayload(notification.Payload),
	})
	metrics.NotificationsTotal.WithLabelValues(string(notification.Kind), metrics.ResultSkipped).Inc()
}

// BrokerNotifier публикует уведомления в RabbitMQ через circuit breaker
type BrokerNotifier struct {
	publisher Publisher
	exchange  string
	breaker   *gobreaker.CircuitBreaker
	logger    logger.Logger
	timeout   time.Duration
}

// NewBrokerNotifier создает BrokerNotifier.
// После серии ошибок брокера breaker размыкается, и уведомления отбрасываются без ожидания.
func NewBrokerNotifier(publisher Publisher, exchange string, log logger.Logger) *BrokerNotifier {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &BrokerNotifier{
		publisher: publisher,
		exchange:  exchange,
		breaker:   breaker,
		logger:    log,
		timeout:   5 * time.Second,
	}
}

// Notify реализует Notifier
func (n *BrokerNotifier) Notify(ctx context.Context, notification domain.Notification) {
	body, err := json.Marshal(notification)
	if err != nil {
		n.logger.Error("Failed to encode notification", map[string]interface{}{
			"kind":  notification.Kind,
			"error": err,
		})
		metrics.NotificationsTotal.WithLabelValues(string(notification.Kind), metrics.ResultError).Inc()
		return
	}

	// Запрос может завершиться раньше публикации, поэтому отвязываемся от его отмены
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	_, err = n.breaker.Execute(func() (interface{}, error) {
		return nil, n.publisher.Publish(publishCtx, n.exchange, body)
	})
	if err != nil {
		n.logger.Warn("Notification not delivered", map[string]interface{}{
			"recipient": notification.Recipient,
			"kind":      notification.Kind,
			"error":     err,
		})
		metrics.NotificationsTotal.WithLabelValues(string(notification.Kind), metrics.ResultError).Inc()
		return
	}

	metrics.NotificationsTotal.WithLabelValues(string(notification.Kind), metrics.ResultOK).Inc()
}
