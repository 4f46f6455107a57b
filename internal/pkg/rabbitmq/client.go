package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publishChannel - часть amqp.Channel, нужная для публикации
type publishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Client обертка над соединением RabbitMQ.
// Обмены объявляются как fanout и durable.
// Закрытый брокером канал публикации открывается заново при следующей публикации.
type Client struct {
	conn *amqp.Connection
	mu   sync.Mutex // amqp.Channel не безопасен для параллельной публикации
	ch   publishChannel
	open func() (publishChannel, error)
}

// Dial подключается к брокеру с несколькими попытками
func Dial(url string, attempts int) (*Client, error) {
	var (
		conn *amqp.Connection
		err  error
	)

	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		time.Sleep(time.Duration(i) * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c := &Client{
		conn: conn,
		open: func() (publishChannel, error) {
			ch, err := conn.Channel()
			if err != nil {
				return nil, err
			}
			return ch, nil
		},
	}

	if _, err := c.channel(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	return c, nil
}

// channel возвращает открытый канал публикации. Вызывается под mu.
func (c *Client) channel() (publishChannel, error) {
	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}

	ch, err := c.open()
	if err != nil {
		return nil, err
	}
	c.ch = ch
	return ch, nil
}

// Publish публикует JSON сообщение в fanout обмен.
// Если канал закрылся между проверкой и публикацией, делается одна повторная попытка на новом канале.
func (c *Client) Publish(ctx context.Context, exchange string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.publish(ctx, exchange, body)
	if errors.Is(err, amqp.ErrClosed) {
		c.ch = nil
		err = c.publish(ctx, exchange, body)
	}
	return err
}

func (c *Client) publish(ctx context.Context, exchange string, body []byte) error {
	ch, err := c.channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	err = ch.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// Subscribe привязывает именованную durable очередь к обмену и вызывает handler для каждого сообщения.
// Ошибка handler возвращает сообщение в очередь один раз, повторная ошибка его отбрасывает.
// Блокируется до отмены ctx или закрытия канала.
func (c *Client) Subscribe(ctx context.Context, exchange, queue string, handler func(ctx context.Context, body []byte) error) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("rabbitmq: delivery channel closed")
			}
			if err := handler(ctx, msg.Body); err != nil {
				_ = msg.Nack(false, !msg.Redelivered)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

// Close закрывает канал и соединение
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
