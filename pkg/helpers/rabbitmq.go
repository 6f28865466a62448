package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher publishes JSON to durable queues through the default
// exchange. The channel runs in confirm mode, so a nil error from
// PublishJSONTo means the broker has taken the message.
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

func NewRabbitPublisher(url string, queues ...string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err == nil {
		err = ch.Confirm(false)
	}
	for _, q := range queues {
		if err != nil {
			break
		}
		err = DeclareDurableQueue(ch, q)
	}
	if err != nil {
		if ch != nil {
			_ = ch.Close()
		}
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

// DeclareDurableQueue declares a durable, non-exclusive queue.
func DeclareDurableQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

// ConsumeQueue declares queue and starts a manual-ack consumer that holds at
// most prefetch unacked deliveries.
func ConsumeQueue(ch *amqp.Channel, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := DeclareDurableQueue(ch, queue); err != nil {
		return nil, err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("qos %s: %w", queue, err)
		}
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return msgs, nil
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSONTo encodes body and waits for the broker to confirm it.
func (p *RabbitPublisher) PublishJSONTo(ctx context.Context, queue string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", queue, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         b,
	}

	p.mu.Lock()
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", queue, err)
	}
	if !acked {
		return errors.New("broker nacked message for " + queue)
	}
	return nil
}
