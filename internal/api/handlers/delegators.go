package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type DelegatorPayload struct {
	Asset string `json:"asset"`
	// "scheme:value", e.g. "account32:0x..." or "index:3"
	Delegator string `json:"delegator"`
}

func (h *Handler) InitializeDelegator(request *http.Request) (*Result, *types.Error) {
	payload := &DelegatorPayload{}
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

	ledger, err := h.services.InitializeDelegator(request.Context(), asset, d)
	if err != nil {
		return nil, err
	}
	return &Result{Data: &PublicResponse[any]{Data: ledger}, Status: http.StatusCreated}, nil
}

func (h *Handler) RemoveDelegator(request *http.Request) (*Result, *types.Error) {
	asset, d, err := parseDelegatorPath(request)
	if err != nil {
		return nil, err
	}
	if err := h.services.RemoveDelegator(request.Context(), asset, d); err != nil {
		return nil, err
	}
	return NewResult(d.Key()), nil
}

func (h *Handler) GetDelegators(request *http.Request) (*Result, *types.Error) {
	asset, err := parseAssetParam(request)
	if err != nil {
		return nil, err
	}
	ledgers, err := h.services.Delegators(request.Context(), asset)
	if err != nil {
		return nil, err
	}
	return NewResult(ledgers), nil
}

func (h *Handler) GetDelegator(request *http.Request) (*Result, *types.Error) {
	asset, d, err := parseDelegatorPath(request)
	if err != nil {
		return nil, err
	}
	ledger, err := h.services.Delegator(request.Context(), asset, d)
	if err != nil {
		return nil, err
	}
	return NewResult(ledger), nil
}

func parseDelegatorPath(request *http.Request) (types.Asset, types.Delegator, *types.Error) {
	asset, err := parseAssetParam(request)
	if err != nil {
		return "", types.Delegator{}, err
	}
	d, err := parseDelegator(chi.URLParam(request, "delegator"))
	if err != nil {
		return "", types.Delegator{}, err
	}
	return asset, d, nil
}
