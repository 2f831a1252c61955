package handlers

import (
	"net/http"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (h *Handler) GetPools(request *http.Request) (*Result, *types.Error) {
	pools, err := h.services.Pools(request.Context())
	if err != nil {
		return nil, err
	}
	return NewResult(pools), nil
}

func (h *Handler) GetPool(request *http.Request) (*Result, *types.Error) {
	asset, err := parseAssetParam(request)
	if err != nil {
		return nil, err
	}
	pool, err := h.services.Pool(request.Context(), asset)
	if err != nil {
		return nil, err
	}
	return NewResult(pool), nil
}

// GetUnlockingRecords lists the pending redemptions of a pool, optionally
// filtered by owner.
func (h *Handler) GetUnlockingRecords(request *http.Request) (*Result, *types.Error) {
	asset, err := parseAssetParam(request)
	if err != nil {
		return nil, err
	}
	owner := request.URL.Query().Get("owner")
	if owner != "" {
		if owner, err = parseAccount("owner", owner); err != nil {
			return nil, err
		}
	}
	records, err := h.services.UnlockingRecords(request.Context(), asset, owner)
	if err != nil {
		return nil, err
	}
	return NewResult(records), nil
}

func (h *Handler) GetBalance(request *http.Request) (*Result, *types.Error) {
	asset, err := parseAsset(request.URL.Query().Get("asset"))
	if err != nil {
		return nil, err
	}
	account, err := parseAccount("account", request.URL.Query().Get("account"))
	if err != nil {
		return nil, err
	}
	balance, err := h.services.Balance(request.Context(), asset, account)
	if err != nil {
		return nil, err
	}
	return NewResult(balance), nil
}
