package client

import (
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// XcmResponseMessage is published on the xcm response queue by the relayer
// watching the remote chains.
type XcmResponseMessage struct {
	types.QueryResponse
}

// TimeUnitMessage announces that a chain entered a new staking epoch.
type TimeUnitMessage struct {
	Asset    types.Asset    `json:"asset"`
	TimeUnit types.TimeUnit `json:"time_unit"`
}
