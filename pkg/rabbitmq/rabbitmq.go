package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
)

const (
	// ExchangeName is the topic exchange every order event is published on.
	ExchangeName = "order_events"
	// MirrorRetryQueue receives order.mirror_failed events.
	MirrorRetryQueue = "order_mirror_retry"
	// MirrorRetryDelayQueue parks failed retries until MirrorRetryDelay has
	// passed, then dead-letters them back onto the order exchange.
	MirrorRetryDelayQueue = "order_mirror_retry_delay"
	// MirrorRetryDelay is the wait between two attempts at the same message.
	MirrorRetryDelay = 5 * time.Second
	mirrorRetryKey   = "order.mirror_failed"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp.Channel is not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, declares the order exchange and binds the
// mirror retry queue to it.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("exchange", ExchangeName).Str("queue", MirrorRetryQueue).Msg("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}

	_, err = ch.QueueDeclare(
		MirrorRetryQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", MirrorRetryQueue, err)
	}

	if err := ch.QueueBind(MirrorRetryQueue, mirrorRetryKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", MirrorRetryQueue, err)
	}

	// Not bound to the exchange; fed directly through the default exchange.
	_, err = ch.QueueDeclare(
		MirrorRetryDelayQueue, // name
		true,                  // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		amqp.Table{
			"x-message-ttl":             int32(MirrorRetryDelay / time.Millisecond),
			"x-dead-letter-exchange":    ExchangeName,
			"x-dead-letter-routing-key": mirrorRetryKey,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", MirrorRetryDelayQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish marshals event to JSON and publishes it on the order exchange under routingKey.
func (c *Client) Publish(ctx context.Context, routingKey string, event interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event to JSON: %w", routingKey, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		ExchangeName, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	log.Debug().Str("routing_key", routingKey).RawJSON("event", body).Msg("order event published")
	return nil
}

// ConsumeMirrorRetries delivers messages from the mirror retry queue to
// handler in a background goroutine until the channel closes. A message the
// handler fails on is moved to the delay queue and comes back after
// MirrorRetryDelay; the messages behind it are not held up.
func (c *Client) ConsumeMirrorRetries(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		MirrorRetryQueue, // queue
		"",               // consumer tag
		false,            // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Info().Str("queue", MirrorRetryQueue).Msg("waiting for mirror retry events")

	go func() {
		for msg := range msgs {
			if err := handler(ctx, msg.Body); err != nil {
				log.Error().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Dur("delay", MirrorRetryDelay).Msg("mirror retry failed, delaying")
				if delayErr := c.delay(msg.Body); delayErr != nil {
					log.Error().Err(delayErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to delay message, requeueing")
					if nackErr := msg.Nack(false, true); nackErr != nil {
						log.Error().Err(nackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to nack message")
					}
					continue
				}
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				log.Error().Err(ackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to ack message")
			}
		}
	}()

	return nil
}

// delay parks body on the delay queue.
func (c *Client) delay(body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel.Publish(
		"",                    // default exchange
		MirrorRetryDelayQueue, // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
}
