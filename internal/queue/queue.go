package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/metrics"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue/client"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue/handlers"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type UnprocessableMessageHandler func(ctx context.Context, messageBody, receipt, queueName string) *types.Error

// Queues holds the inbound consumers (xcm responses, time units) and the
// outbound producers (xcm programs, vault events).
type Queues struct {
	XcmResponseQueueClient client.QueueClient
	TimeUnitQueueClient    client.QueueClient
	XcmOutboundQueueClient client.QueueClient
	VaultEventQueueClient  client.QueueClient
	processingTimeout      time.Duration
	maxRetryAttempts       int32
}

func New(cfg *config.QueueConfig) (*Queues, error) {
	names := []string{
		config.XcmResponseQueueName,
		config.TimeUnitQueueName,
		config.XcmOutboundQueueName,
		config.VaultEventQueueName,
	}
	clients := make([]client.QueueClient, 0, len(names))
	for _, name := range names {
		c, err := client.NewQueueClient(cfg, name)
		if err != nil {
			for _, opened := range clients {
				opened.Stop()
			}
			return nil, fmt.Errorf("error while creating queue client %s: %w", name, err)
		}
		clients = append(clients, c)
	}
	return &Queues{
		XcmResponseQueueClient: clients[0],
		TimeUnitQueueClient:    clients[1],
		XcmOutboundQueueClient: clients[2],
		VaultEventQueueClient:  clients[3],
		processingTimeout:      cfg.ProcessingTimeout(),
		maxRetryAttempts:       cfg.MaxRetryAttempts,
	}, nil
}

// Start all message processing
func (q *Queues) StartReceivingMessages(h *handlers.QueueHandler) error {
	if err := startQueueMessageProcessing(
		q.XcmResponseQueueClient, h.XcmResponseHandler, h.HandleUnprocessedMessage,
		q.maxRetryAttempts, q.processingTimeout,
	); err != nil {
		return err
	}
	return startQueueMessageProcessing(
		q.TimeUnitQueueClient, h.TimeUnitHandler, h.HandleUnprocessedMessage,
		q.maxRetryAttempts, q.processingTimeout,
	)
}

// Turn off all message processing
func (q *Queues) StopReceivingMessages() {
	for _, c := range q.all() {
		if err := c.Stop(); err != nil {
			log.Error().Err(err).Str("queueName", c.GetQueueName()).Msg("error while stopping queue")
		}
	}
}

func (q *Queues) IsConnectionHealthy() error {
	var errs []error
	for _, c := range q.all() {
		if err := c.Ping(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InboundClient returns the consumer queue a parked message came from.
func (q *Queues) InboundClient(queueName string) (client.QueueClient, error) {
	switch queueName {
	case config.XcmResponseQueueName:
		return q.XcmResponseQueueClient, nil
	case config.TimeUnitQueueName:
		return q.TimeUnitQueueClient, nil
	default:
		return nil, fmt.Errorf("unknown inbound queue: %s", queueName)
	}
}

func (q *Queues) all() []client.QueueClient {
	return []client.QueueClient{
		q.XcmResponseQueueClient,
		q.TimeUnitQueueClient,
		q.XcmOutboundQueueClient,
		q.VaultEventQueueClient,
	}
}

func startQueueMessageProcessing(
	queueClient client.QueueClient,
	handler handlers.MessageHandler, unprocessableHandler UnprocessableMessageHandler,
	maxRetryAttempts int32, timeout time.Duration,
) error {
	messagesChan, err := queueClient.ReceiveMessages()
	if err != nil {
		return fmt.Errorf("error setting up message channel from queue %s: %w", queueClient.GetQueueName(), err)
	}

	go func() {
		for message := range messagesChan {
			processMessage(queueClient, message, handler, unprocessableHandler, maxRetryAttempts, timeout)
		}
		log.Info().Str("queueName", queueClient.GetQueueName()).Msg("stopped receiving messages")
	}()
	return nil
}

// processMessage runs the handler on one message. A failed message is put
// back with its attempts incremented until it exceeds maxRetryAttempts, then
// it is parked as unprocessable and removed from the queue.
func processMessage(
	queueClient client.QueueClient, message client.QueueMessage,
	handler handlers.MessageHandler, unprocessableHandler UnprocessableMessageHandler,
	maxRetryAttempts int32, timeout time.Duration,
) {
	queueName := queueClient.GetQueueName()
	logger := log.With().Str("queueName", queueName).Str("traceId", uuid.NewString()).Logger()

	// For each message, create a new context with a deadline or timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = logger.WithContext(ctx)

	if message.GetRetryAttempts() > maxRetryAttempts {
		logger.Error().Str("receipt", message.Receipt).Int32("attempts", message.GetRetryAttempts()).
			Msg("exceeded retry attempts, message will be stored as unprocessable")
		if err := unprocessableHandler(ctx, message.Body, message.Receipt, queueName); err != nil {
			// left unacknowledged, the broker redelivers it
			logger.Error().Err(err).Msg("error while saving unprocessable message")
			return
		}
		metrics.RecordQueueFailure(queueName)
		if err := queueClient.DeleteMessage(message.Receipt); err != nil {
			logger.Error().Err(err).Msg("error while deleting message from queue")
		}
		return
	}

	if err := handle(ctx, handler, message.Body); err != nil {
		logger.Warn().Err(err).Int32("attempts", message.GetRetryAttempts()).
			Msg("error while processing message from queue, requeueing")
		if reQueueErr := queueClient.ReQueueMessage(ctx, message); reQueueErr != nil {
			logger.Error().Err(reQueueErr).Msg("error while requeueing message")
		}
		return
	}

	if err := queueClient.DeleteMessage(message.Receipt); err != nil {
		logger.Error().Err(err).Msg("error while deleting message from queue")
	}
}

// handle turns a panic in the handler into an error, so the message is
// requeued and eventually parked like any other failure.
func handle(ctx context.Context, handler handlers.MessageHandler, body string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().Interface("panic", r).Msg("panic while handling message")
			err = fmt.Errorf("panic while handling message: %v", r)
		}
	}()
	if herr := handler(ctx, body); herr != nil {
		return herr
	}
	return nil
}
