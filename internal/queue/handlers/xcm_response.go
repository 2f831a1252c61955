package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	queueClient "github.com/vtokenlabs/liquid-staking-service/internal/queue/client"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// XcmResponseHandler applies a remote response to its pending query. Duplicate
// and unknown responses are dropped by the correlation engine, so redelivery
// is safe.
func (h *QueueHandler) XcmResponseHandler(ctx context.Context, messageBody string) *types.Error {
	var msg queueClient.XcmResponseMessage
	if err := json.Unmarshal([]byte(messageBody), &msg); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal the message body into XcmResponseMessage")
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}
	if msg.QueryID == 0 {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "missing query_id")
	}

	if err := h.Services.NotifyQueryResponse(ctx, msg.QueryResponse); err != nil {
		log.Ctx(ctx).Error().Err(err).Uint64("queryId", msg.QueryID).Msg("Failed to apply xcm response")
		return err
	}
	return nil
}
