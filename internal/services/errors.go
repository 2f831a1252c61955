package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type errorClass struct {
	status int
	code   types.ErrorCode
	errs   []error
}

var errorClasses = []errorClass{
	{http.StatusBadRequest, types.ValidationError, []error{
		types.ErrBelowMinimum, types.ErrInvalidFee, types.ErrInvalidAmount, types.ErrInvalidDelegator,
		types.ErrInvalidRequest, types.ErrInvalidTimeUnit, types.ErrMixedTimeUnit, types.ErrBelowMinimumBond,
	}},
	{http.StatusBadRequest, types.UnsupportedOperation, []error{
		types.ErrUnsupportedAsset, types.ErrUnsupportedOperation,
	}},
	{http.StatusForbidden, types.InsufficientFunds, []error{
		types.ErrInsufficientBalance, types.ErrInsufficientFeeReserve,
	}},
	{http.StatusForbidden, types.Forbidden, []error{
		types.ErrNotOwner, types.ErrRetryDisabled,
	}},
	{http.StatusNotFound, types.NotFound, []error{
		types.ErrPoolNotFound, types.ErrDelegatorNotInitialized, types.ErrQueryNotFound, types.ErrUnlockRecordNotFound,
	}},
	{http.StatusConflict, types.Conflict, []error{
		types.ErrDelegatorAlreadyExists, types.ErrDelegatorInUse, types.ErrAlreadyRetried,
	}},
	{http.StatusConflict, types.InvalidState, []error{
		types.ErrInvalidQueryState, types.ErrNotAllowedBack, types.ErrUnlockRecordMatured,
		types.ErrTooManyUnlockChunks, types.ErrEmptyPool, types.ErrOngoingTimeUnitNotSet,
	}},
	{http.StatusBadGateway, types.XcmSendError, []error{
		types.ErrXcmSend,
	}},
}

// toError maps a domain or storage error to the API error carrying its
// status. Unknown errors are internal.
func toError(ctx context.Context, operation string, err error) *types.Error {
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if db.IsInvalidPaginationTokenError(err) {
		log.Ctx(ctx).Warn().Err(err).Str("operation", operation).Msg("invalid pagination token")
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}
	for _, class := range errorClasses {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				if class.status >= http.StatusInternalServerError {
					log.Ctx(ctx).Error().Err(err).Str("operation", operation).Msg("operation failed")
				} else {
					log.Ctx(ctx).Warn().Err(err).Str("operation", operation).Msg("operation rejected")
				}
				return types.NewError(class.status, class.code, err)
			}
		}
	}
	log.Ctx(ctx).Error().Err(err).Str("operation", operation).Msg("operation failed")
	return types.NewInternalServiceError(err)
}
