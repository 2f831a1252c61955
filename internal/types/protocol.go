package types

import "fmt"

// StakingProtocol is the closed set of remote staking flavours.
type StakingProtocol string

const (
	AstarDappStaking StakingProtocol = "astar_dapp_staking"
	ParachainStaking StakingProtocol = "parachain_staking"
	RelayStaking     StakingProtocol = "relay_staking"
)

func (p StakingProtocol) String() string {
	return string(p)
}

func StakingProtocolFromString(s string) (StakingProtocol, error) {
	switch StakingProtocol(s) {
	case AstarDappStaking, ParachainStaking, RelayStaking:
		return StakingProtocol(s), nil
	default:
		return "", fmt.Errorf("unknown staking protocol: %s", s)
	}
}

// TimeUnitKind is the epoch flavour the protocol schedules unbonding in.
func (p StakingProtocol) TimeUnitKind() TimeUnitKind {
	switch p {
	case AstarDappStaking:
		return Era
	case ParachainStaking:
		return Round
	default:
		return Era
	}
}

// ChainInfo is the local clock state.
type ChainInfo struct {
	Height uint64 `json:"height"`
}
