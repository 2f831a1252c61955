package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	queueClient "github.com/vtokenlabs/liquid-staking-service/internal/queue/client"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// TimeUnitHandler advances the ongoing time unit of an asset.
func (h *QueueHandler) TimeUnitHandler(ctx context.Context, messageBody string) *types.Error {
	var msg queueClient.TimeUnitMessage
	if err := json.Unmarshal([]byte(messageBody), &msg); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal the message body into TimeUnitMessage")
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}
	if err := msg.Asset.Validate(); err != nil {
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}
	if err := msg.TimeUnit.Validate(); err != nil {
		return types.NewError(http.StatusBadRequest, types.BadRequest, fmt.Errorf("time unit: %w", err))
	}

	if err := h.Services.UpdateTimeUnit(ctx, msg.Asset, msg.TimeUnit); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("asset", msg.Asset.String()).Msg("Failed to update time unit")
		return err
	}
	return nil
}
