package types

import (
	"fmt"
	"regexp"
	"strings"
)

const vTokenPrefix = "v"

var assetSymbolRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-]{0,31}$`)

// Asset identifies a fungible asset: an underlying token ("KSM"), its
// liquid-staking derivative ("vKSM") or a chain specific wrapped token.
type Asset string

func (a Asset) String() string {
	return string(a)
}

// VToken returns the liquid-staking derivative of an underlying asset.
func (a Asset) VToken() Asset {
	return Asset(vTokenPrefix + string(a))
}

func (a Asset) IsVToken() bool {
	s := string(a)
	return len(s) > 1 && strings.HasPrefix(s, vTokenPrefix) && s[1] >= 'A' && s[1] <= 'Z'
}

// Underlying strips the vToken prefix. It returns the asset itself when it is
// not a vToken.
func (a Asset) Underlying() Asset {
	if !a.IsVToken() {
		return a
	}
	return Asset(strings.TrimPrefix(string(a), vTokenPrefix))
}

func (a Asset) Validate() error {
	if !assetSymbolRegex.MatchString(string(a)) {
		return fmt.Errorf("invalid asset symbol: %q", string(a))
	}
	return nil
}
