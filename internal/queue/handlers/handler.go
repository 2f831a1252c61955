package handlers

import (
	"context"

	"github.com/vtokenlabs/liquid-staking-service/internal/services"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type QueueHandler struct {
	Services *services.Services
}

type MessageHandler func(ctx context.Context, messageBody string) *types.Error
type UnprocessableMessageHandler func(ctx context.Context, messageBody, receipt string) *types.Error

func NewQueueHandler(services *services.Services) *QueueHandler {
	return &QueueHandler{
		Services: services,
	}
}

// HandleUnprocessedMessage parks a message that exhausted its retries so it
// can be replayed later.
func (qh *QueueHandler) HandleUnprocessedMessage(ctx context.Context, messageBody, receipt, queueName string) *types.Error {
	return qh.Services.SaveUnprocessableMessages(ctx, messageBody, receipt, queueName)
}
