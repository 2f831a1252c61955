package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/utils"
)

func badRequest(format string, args ...interface{}) *types.Error {
	return types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, fmt.Sprintf(format, args...))
}

func decodePayload(request *http.Request, payload interface{}) *types.Error {
	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return badRequest("invalid request payload")
	}
	return nil
}

func parseAsset(value string) (types.Asset, *types.Error) {
	asset := types.Asset(strings.TrimSpace(value))
	if err := asset.Validate(); err != nil {
		return "", types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}
	return asset, nil
}

func parseAssetParam(request *http.Request) (types.Asset, *types.Error) {
	return parseAsset(chi.URLParam(request, "asset"))
}

func parseAccount(field, value string) (string, *types.Error) {
	if !utils.IsValidAccountId(value) {
		return "", badRequest("invalid %s", field)
	}
	return value, nil
}

// parseAmount parses a non negative decimal integer.
func parseAmount(field, value string) (sdkmath.Int, *types.Error) {
	amount, ok := sdkmath.NewIntFromString(strings.TrimSpace(value))
	if !ok || amount.IsNegative() {
		return sdkmath.Int{}, badRequest("invalid %s", field)
	}
	return amount, nil
}

func parseRate(field, value string) (sdkmath.LegacyDec, *types.Error) {
	rate, err := sdkmath.LegacyNewDecFromStr(strings.TrimSpace(value))
	if err != nil {
		return sdkmath.LegacyDec{}, badRequest("invalid %s", field)
	}
	return rate, nil
}

func parseTimeUnit(field, value string) (types.TimeUnit, *types.Error) {
	unit, err := types.ParseTimeUnit(value)
	if err != nil {
		return types.TimeUnit{}, badRequest("invalid %s: %v", field, err)
	}
	return unit, nil
}

func parseDelegator(value string) (types.Delegator, *types.Error) {
	d, err := types.ParseDelegatorKey(value)
	if err != nil {
		return types.Delegator{}, types.NewError(http.StatusBadRequest, types.ValidationError, err)
	}
	return d, nil
}

func parseIdParam(request *http.Request, name string) (uint64, *types.Error) {
	id, ok := utils.ParseId(chi.URLParam(request, name))
	if !ok {
		return 0, badRequest("invalid %s", name)
	}
	return id, nil
}
