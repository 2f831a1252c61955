package handlers

import (
	"net/http"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type MintRequestPayload struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type RedeemRequestPayload struct {
	Asset        string `json:"asset"`
	Account      string `json:"account"`
	VTokenAmount string `json:"vtoken_amount"`
}

type RebondRequestPayload struct {
	Asset    string `json:"asset"`
	Account  string `json:"account"`
	UnlockId uint64 `json:"unlock_id"`
}

func (h *Handler) Mint(request *http.Request) (*Result, *types.Error) {
	payload := &MintRequestPayload{}
	if err := decodePayload(request, payload); err != nil {
		return nil, err
	}
	asset, err := parseAsset(payload.Asset)
	if err != nil {
		return nil, err
	}
	account, err := parseAccount("account", payload.Account)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", payload.Amount)
	if err != nil {
		return nil, err
	}

	minted, err := h.services.Mint(request.Context(), asset, account, amount)
	if err != nil {
		return nil, err
	}
	return NewResult(minted), nil
}

func (h *Handler) Redeem(request *http.Request) (*Result, *types.Error) {
	payload := &RedeemRequestPayload{}
	if err := decodePayload(request, payload); err != nil {
		return nil, err
	}
	asset, err := parseAsset(payload.Asset)
	if err != nil {
		return nil, err
	}
	account, err := parseAccount("account", payload.Account)
	if err != nil {
		return nil, err
	}
	vAmount, err := parseAmount("vtoken_amount", payload.VTokenAmount)
	if err != nil {
		return nil, err
	}

	redeemed, err := h.services.Redeem(request.Context(), asset, account, vAmount)
	if err != nil {
		return nil, err
	}
	return NewResult(redeemed), nil
}

// Rebond cancels a pending redemption and mints vtoken for it at the current
// exchange rate.
func (h *Handler) Rebond(request *http.Request) (*Result, *types.Error) {
	payload := &RebondRequestPayload{}
	if err := decodePayload(request, payload); err != nil {
		return nil, err
	}
	asset, err := parseAsset(payload.Asset)
	if err != nil {
		return nil, err
	}
	account, err := parseAccount("account", payload.Account)
	if err != nil {
		return nil, err
	}
	if payload.UnlockId == 0 {
		return nil, badRequest("invalid unlock_id")
	}

	minted, err := h.services.RebondByUnlockId(request.Context(), asset, account, payload.UnlockId)
	if err != nil {
		return nil, err
	}
	return NewResult(minted), nil
}
