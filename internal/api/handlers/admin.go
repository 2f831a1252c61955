package handlers

import (
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type AmountPayload struct {
	Amount string `json:"amount"`
}

type TimeUnitPayload struct {
	TimeUnit string `json:"time_unit"`
}

type FeesPayload struct {
	Mint   string `json:"mint"`
	Redeem string `json:"redeem"`
}

type ReconcilePayload struct {
	// omitted to reconcile against the confirmed delegator ledgers
	RemoteTotal *string `json:"remote_total,omitempty"`
}

const (
	settingMinimumMint    = "minimum-mint"
	settingMinimumRedeem  = "minimum-redeem"
	settingUnlockDuration = "unlock-duration"
	settingFees           = "fees"
	settingTimeUnit       = "time-unit"
)

// UpdatePoolSetting changes one governance setting of a pool. The setting is
// taken from the last path segment.
func (h *Handler) UpdatePoolSetting(request *http.Request) (*Result, *types.Error) {
	asset, err := parseAssetParam(request)
	if err != nil {
		return nil, err
	}
	ctx := request.Context()

	switch setting := chi.URLParam(request, "setting"); setting {
	case settingMinimumMint, settingMinimumRedeem:
		payload := &AmountPayload{}
		if err := decodePayload(request, payload); err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", payload.Amount)
		if err != nil {
			return nil, err
		}
		if setting == settingMinimumMint {
			err = h.services.SetMinimumMint(ctx, asset, amount)
		} else {
			err = h.services.SetMinimumRedeem(ctx, asset, amount)
		}
		if err != nil {
			return nil, err
		}
	case settingUnlockDuration, settingTimeUnit:
		payload := &TimeUnitPayload{}
		if err := decodePayload(request, payload); err != nil {
			return nil, err
		}
		unit, err := parseTimeUnit("time_unit", payload.TimeUnit)
		if err != nil {
			return nil, err
		}
		if setting == settingUnlockDuration {
			err = h.services.SetUnlockDuration(ctx, asset, unit)
		} else {
			err = h.services.UpdateTimeUnit(ctx, asset, unit)
		}
		if err != nil {
			return nil, err
		}
	case settingFees:
		payload := &FeesPayload{}
		if err := decodePayload(request, payload); err != nil {
			return nil, err
		}
		mint, err := parseRate("mint", payload.Mint)
		if err != nil {
			return nil, err
		}
		redeem, err := parseRate("redeem", payload.Redeem)
		if err != nil {
			return nil, err
		}
		if err := h.services.SetFees(ctx, asset, types.Fees{Mint: mint, Redeem: redeem}); err != nil {
			return nil, err
		}
	default:
		return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "unknown pool setting")
	}

	pool, err := h.services.Pool(ctx, asset)
	if err != nil {
		return nil, err
	}
	return NewResult(pool), nil
}

func (h *Handler) ReconcilePool(request *http.Request) (*Result, *types.Error) {
	asset, err := parseAssetParam(request)
	if err != nil {
		return nil, err
	}
	payload := &ReconcilePayload{}
	if request.ContentLength != 0 {
		if err := decodePayload(request, payload); err != nil {
			return nil, err
		}
	}
	var remoteTotal *sdkmath.Int
	if payload.RemoteTotal != nil {
		total, err := parseAmount("remote_total", *payload.RemoteTotal)
		if err != nil {
			return nil, err
		}
		remoteTotal = &total
	}

	res, err := h.services.Reconcile(request.Context(), asset, remoteTotal)
	if err != nil {
		return nil, err
	}
	return NewResult(res), nil
}
