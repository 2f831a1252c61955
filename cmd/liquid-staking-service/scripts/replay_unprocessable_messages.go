package scripts

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue"
)

// ReplayUnprocessableMessages sends every parked message back to the queue it
// was consumed from, deleting it once published.
func ReplayUnprocessableMessages(ctx context.Context, queues *queue.Queues, db db.DBClient) (err error) {
	unprocessableMessages, err := db.FindUnprocessableMessages(ctx)
	if err != nil {
		return errors.New("failed to retrieve unprocessable messages")
	}

	messageCount := len(unprocessableMessages)
	log.Info().Int("count", messageCount).Msg("replaying unprocessable messages")
	if messageCount == 0 {
		return errors.New("no unprocessable messages to replay")
	}

	for _, msg := range unprocessableMessages {
		queueClient, err := queues.InboundClient(msg.QueueName)
		if err != nil {
			return err
		}
		if err := queueClient.SendMessage(ctx, msg.MessageBody); err != nil {
			return fmt.Errorf("failed to republish message %s: %w", msg.Receipt, err)
		}
		if err := db.DeleteUnprocessableMessage(ctx, msg.Receipt); err != nil {
			return fmt.Errorf("failed to delete unprocessable message %s: %w", msg.Receipt, err)
		}
	}

	log.Info().Msg("Reprocessing of unprocessable messages completed.")
	return nil
}
