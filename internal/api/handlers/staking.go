package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type StakingRequestPayload struct {
	Asset     string   `json:"asset"`
	Delegator string   `json:"delegator"`
	Amount    string   `json:"amount,omitempty"`
	Targets   []string `json:"targets,omitempty"`
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Validator string   `json:"validator,omitempty"`
	// payout era, e.g. "era(12)"
	TimeUnit    string `json:"time_unit,omitempty"`
	TargetAsset string `json:"target_asset,omitempty"`
}

func parseStakingRequest(request *http.Request) (*types.StakingRequest, *types.Error) {
	op, ok := types.OperationKindFromString(chi.URLParam(request, "operation"))
	if !ok {
		return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "unknown staking operation")
	}
	payload := &StakingRequestPayload{}
	if err := decodePayload(request, payload); err != nil {
		return nil, err
	}
	asset, err := parseAsset(payload.Asset)
	if err != nil {
		return nil, err
	}
	d, err := parseDelegator(payload.Delegator)
	if err != nil {
		return nil, err
	}

	req := &types.StakingRequest{
		Asset:     asset,
		Delegator: d,
		Operation: op,
		Targets:   payload.Targets,
		From:      payload.From,
		To:        payload.To,
		Validator: payload.Validator,
	}
	if payload.Amount != "" {
		if req.Amount, err = parseAmount("amount", payload.Amount); err != nil {
			return nil, err
		}
	}
	if payload.TimeUnit != "" {
		unit, err := parseTimeUnit("time_unit", payload.TimeUnit)
		if err != nil {
			return nil, err
		}
		req.TimeUnit = &unit
	}
	if payload.TargetAsset != "" {
		if req.TargetAsset, err = parseAsset(payload.TargetAsset); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// Stake runs a staking agent operation. Remote operations answer 202 with the
// pending query, local ones 200.
func (h *Handler) Stake(request *http.Request) (*Result, *types.Error) {
	req, err := parseStakingRequest(request)
	if err != nil {
		return nil, err
	}
	res, err := h.services.Stake(request.Context(), *req)
	if err != nil {
		return nil, err
	}
	if res.Query != nil {
		return NewAcceptedResult(res), nil
	}
	return NewResult(res), nil
}
