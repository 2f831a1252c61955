package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
)

const (
	dequeueOperationTimeout = 5 * time.Second
	retryAttemptsHeader     = "x-processing-attempts"
	dialAttempts            = 5
	dialDelay               = 2 * time.Second
)

type RabbitMqClient struct {
	connection *amqp091.Connection
	channel    *amqp091.Channel
	queueName  string

	// amqp channels must not be published to concurrently
	publishMu sync.Mutex
}

func NewRabbitMqClient(cfg *config.QueueConfig, queueName string) (*RabbitMqClient, error) {
	amqpURI := fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url)

	var conn *amqp091.Connection
	err := retry.Do(
		func() error {
			var err error
			conn, err = amqp091.Dial(amqpURI)
			return err
		},
		retry.Attempts(dialAttempts),
		retry.Delay(dialDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("queueName", queueName).Msg("retrying rabbitmq dial")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &RabbitMqClient{
		connection: conn,
		channel:    ch,
		queueName:  queueName,
	}, nil
}

// ReceiveMessages consumes the queue with manual acknowledgement. The returned
// channel is closed when the underlying delivery channel closes.
func (c *RabbitMqClient) ReceiveMessages() (<-chan QueueMessage, error) {
	deliveries, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, err
	}

	output := make(chan QueueMessage)
	go func() {
		defer close(output)
		for d := range deliveries {
			output <- QueueMessage{
				Body:          string(d.Body),
				Receipt:       strconv.FormatUint(d.DeliveryTag, 10),
				RetryAttempts: retryAttempts(d.Headers),
			}
		}
	}()

	return output, nil
}

func retryAttempts(headers amqp091.Table) int32 {
	if headers == nil {
		return 0
	}
	switch v := headers[retryAttemptsHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	default:
		return 0
	}
}

// DeleteMessage acknowledges the delivery, removing it from the queue.
func (c *RabbitMqClient) DeleteMessage(receipt string) error {
	deliveryTag, err := strconv.ParseUint(receipt, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid receipt %q: %w", receipt, err)
	}
	return c.channel.Ack(deliveryTag, false)
}

func (c *RabbitMqClient) ReQueueMessage(ctx context.Context, message QueueMessage) error {
	ctx, cancel := context.WithTimeout(ctx, dequeueOperationTimeout)
	defer cancel()

	headers := amqp091.Table{retryAttemptsHeader: message.IncrementRetryAttempts()}
	if err := c.publish(ctx, message.Body, headers); err != nil {
		return err
	}
	return c.DeleteMessage(message.Receipt)
}

func (c *RabbitMqClient) SendMessage(ctx context.Context, messageBody string) error {
	return c.publish(ctx, messageBody, nil)
}

func (c *RabbitMqClient) publish(ctx context.Context, body string, headers amqp091.Table) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	return c.channel.PublishWithContext(ctx,
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Headers:      headers,
			Body:         []byte(body),
		},
	)
}

func (c *RabbitMqClient) Stop() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.connection.Close()
}

func (c *RabbitMqClient) GetQueueName() string {
	return c.queueName
}

func (c *RabbitMqClient) Ping() error {
	if c.connection == nil || c.connection.IsClosed() {
		return fmt.Errorf("rabbitmq connection of %s is closed", c.queueName)
	}
	if c.channel == nil || c.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel of %s is closed", c.queueName)
	}
	return nil
}
