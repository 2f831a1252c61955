package services

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type PoolPublic struct {
	Asset            string     `json:"asset"`
	VToken           string     `json:"vtoken"`
	TokenPool        string     `json:"token_pool"`
	VTokenIssuance   string     `json:"vtoken_issuance"`
	ExchangeRate     string     `json:"exchange_rate"`
	MinimumMint      string     `json:"minimum_mint"`
	MinimumRedeem    string     `json:"minimum_redeem"`
	UnlockDuration   string     `json:"unlock_duration"`
	OngoingTimeUnit  string     `json:"ongoing_time_unit"`
	Fees             types.Fees `json:"fees"`
	RemoteTotal      string     `json:"remote_total"`
	DivergenceStreak uint32     `json:"divergence_streak"`
	LastReconciledAt uint64     `json:"last_reconciled_at"`
}

type UnlockingRecordPublic struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	Asset       string `json:"asset"`
	TokenAmount string `json:"token_amount"`
	UnlockAt    string `json:"unlock_at"`
	CreatedAt   uint64 `json:"created_at"`
	IsFee       bool   `json:"is_fee"`
}

type MintPublic struct {
	Asset  string `json:"asset"`
	VToken string `json:"vtoken"`
	Minted string `json:"minted"`
}

type RedeemPublic struct {
	Asset    string `json:"asset"`
	UnlockId uint64 `json:"unlock_id"`
}

type BalancePublic struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Free    string `json:"free"`
}

func intString(v sdkmath.Int) string {
	if v.IsNil() {
		return "0"
	}
	return v.String()
}

func (s *Services) poolPublic(ctx context.Context, p types.Pool) (PoolPublic, error) {
	rate, issuance, err := s.vault.ExchangeRate(ctx, p)
	if err != nil {
		return PoolPublic{}, err
	}
	return PoolPublic{
		Asset:            p.Asset.String(),
		VToken:           p.Asset.VToken().String(),
		TokenPool:        intString(p.TokenPool),
		VTokenIssuance:   intString(issuance),
		ExchangeRate:     rate.String(),
		MinimumMint:      intString(p.MinimumMint),
		MinimumRedeem:    intString(p.MinimumRedeem),
		UnlockDuration:   p.UnlockDuration.String(),
		OngoingTimeUnit:  p.OngoingTimeUnit.String(),
		Fees:             p.Fees,
		RemoteTotal:      intString(p.RemoteTotal),
		DivergenceStreak: p.DivergenceStreak,
		LastReconciledAt: p.LastReconciledAt,
	}, nil
}

func fromUnlockingRecord(r types.UnlockingRecord) UnlockingRecordPublic {
	return UnlockingRecordPublic{
		ID:          r.ID,
		Owner:       r.Owner,
		Asset:       r.Asset.String(),
		TokenAmount: intString(r.TokenAmount),
		UnlockAt:    r.UnlockAt.String(),
		CreatedAt:   r.CreatedAt,
		IsFee:       r.IsFee,
	}
}

func (s *Services) Pools(ctx context.Context) ([]PoolPublic, *types.Error) {
	pools, err := s.vault.Pools(ctx)
	if err != nil {
		return nil, toError(ctx, "pools", err)
	}
	out := make([]PoolPublic, 0, len(pools))
	for _, p := range pools {
		pub, err := s.poolPublic(ctx, p)
		if err != nil {
			return nil, toError(ctx, "pools", err)
		}
		out = append(out, pub)
	}
	return out, nil
}

func (s *Services) Pool(ctx context.Context, asset types.Asset) (*PoolPublic, *types.Error) {
	p, err := s.vault.Pool(ctx, asset)
	if err != nil {
		return nil, toError(ctx, "pool", err)
	}
	pub, err := s.poolPublic(ctx, *p)
	if err != nil {
		return nil, toError(ctx, "pool", err)
	}
	return &pub, nil
}

func (s *Services) UnlockingRecords(ctx context.Context, asset types.Asset, owner string) ([]UnlockingRecordPublic, *types.Error) {
	records, err := s.vault.UnlockingRecords(ctx, asset, owner)
	if err != nil {
		return nil, toError(ctx, "unlocking_records", err)
	}
	out := make([]UnlockingRecordPublic, 0, len(records))
	for _, r := range records {
		out = append(out, fromUnlockingRecord(r))
	}
	return out, nil
}

func (s *Services) Balance(ctx context.Context, asset types.Asset, account string) (*BalancePublic, *types.Error) {
	free, err := s.ledger.FreeBalance(ctx, asset, account)
	if err != nil {
		return nil, toError(ctx, "balance", err)
	}
	return &BalancePublic{Asset: asset.String(), Account: account, Free: intString(free)}, nil
}

func (s *Services) Mint(ctx context.Context, asset types.Asset, who string, amount sdkmath.Int) (*MintPublic, *types.Error) {
	var minted sdkmath.Int
	err := s.atomic(ctx, "mint", func(ctx context.Context) error {
		var err error
		minted, err = s.vault.Mint(ctx, asset, who, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("asset", asset.String()).Str("account", who).Str("amount", amount.String()).
		Str("minted", minted.String()).Msg("minted vtoken")
	return &MintPublic{Asset: asset.String(), VToken: asset.VToken().String(), Minted: minted.String()}, nil
}

func (s *Services) Redeem(ctx context.Context, asset types.Asset, who string, vAmount sdkmath.Int) (*RedeemPublic, *types.Error) {
	var id uint64
	err := s.atomic(ctx, "redeem", func(ctx context.Context) error {
		var err error
		id, err = s.vault.Redeem(ctx, asset, who, vAmount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &RedeemPublic{Asset: asset.String(), UnlockId: id}, nil
}

func (s *Services) RebondByUnlockId(ctx context.Context, asset types.Asset, who string, id uint64) (*MintPublic, *types.Error) {
	var minted sdkmath.Int
	err := s.atomic(ctx, "rebond_by_unlock_id", func(ctx context.Context) error {
		var err error
		minted, err = s.vault.RebondByUnlockId(ctx, asset, who, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &MintPublic{Asset: asset.String(), VToken: asset.VToken().String(), Minted: minted.String()}, nil
}

// UpdateTimeUnit advances the ongoing time unit of an asset and releases the
// records that matured with it.
func (s *Services) UpdateTimeUnit(ctx context.Context, asset types.Asset, unit types.TimeUnit) *types.Error {
	if err := s.atomic(ctx, "update_time_unit", func(ctx context.Context) error {
		return s.vault.UpdateOngoingTimeUnit(ctx, asset, unit)
	}); err != nil {
		return err
	}
	return s.matureUnlocks(ctx, asset)
}

func (s *Services) SetMinimumMint(ctx context.Context, asset types.Asset, amount sdkmath.Int) *types.Error {
	return s.atomic(ctx, "set_minimum_mint", func(ctx context.Context) error {
		return s.vault.SetMinimumMint(ctx, asset, amount)
	})
}

func (s *Services) SetMinimumRedeem(ctx context.Context, asset types.Asset, amount sdkmath.Int) *types.Error {
	return s.atomic(ctx, "set_minimum_redeem", func(ctx context.Context) error {
		return s.vault.SetMinimumRedeem(ctx, asset, amount)
	})
}

func (s *Services) SetUnlockDuration(ctx context.Context, asset types.Asset, duration types.TimeUnit) *types.Error {
	return s.atomic(ctx, "set_unlock_duration", func(ctx context.Context) error {
		return s.vault.SetUnlockDuration(ctx, asset, duration)
	})
}

func (s *Services) SetFees(ctx context.Context, asset types.Asset, fees types.Fees) *types.Error {
	return s.atomic(ctx, "set_fees", func(ctx context.Context) error {
		return s.vault.SetFees(ctx, asset, fees)
	})
}
