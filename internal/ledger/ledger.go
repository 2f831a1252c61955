// Package ledger is the multi-asset balance ledger the vault and the staking
// agent move funds through. Every call runs inside the caller's transition.
package ledger

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type Ledger struct {
	store db.BalanceStore
}

func New(store db.BalanceStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) FreeBalance(ctx context.Context, asset types.Asset, who string) (sdkmath.Int, error) {
	return l.store.FindBalance(ctx, asset, who)
}

func (l *Ledger) TotalIssuance(ctx context.Context, asset types.Asset) (sdkmath.Int, error) {
	return l.store.FindTotalIssuance(ctx, asset)
}

// Deposit mints amount into who's balance.
func (l *Ledger) Deposit(ctx context.Context, asset types.Asset, who string, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	balance, err := l.store.FindBalance(ctx, asset, who)
	if err != nil {
		return err
	}
	issuance, err := l.store.FindTotalIssuance(ctx, asset)
	if err != nil {
		return err
	}
	if balance, err = types.CheckedAdd(balance, amount); err != nil {
		return err
	}
	if issuance, err = types.CheckedAdd(issuance, amount); err != nil {
		return err
	}
	if err := l.store.SaveBalance(ctx, asset, who, balance); err != nil {
		return err
	}
	return l.store.SaveTotalIssuance(ctx, asset, issuance)
}

// Withdraw burns amount from who's balance.
func (l *Ledger) Withdraw(ctx context.Context, asset types.Asset, who string, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	balance, err := l.store.FindBalance(ctx, asset, who)
	if err != nil {
		return err
	}
	if balance.LT(amount) {
		return errorsmod.Wrapf(types.ErrInsufficientBalance, "%s of %s has %s, needs %s", who, asset, balance, amount)
	}
	issuance, err := l.store.FindTotalIssuance(ctx, asset)
	if err != nil {
		return err
	}
	if balance, err = types.CheckedSub(balance, amount); err != nil {
		return err
	}
	if issuance, err = types.CheckedSub(issuance, amount); err != nil {
		return err
	}
	if err := l.store.SaveBalance(ctx, asset, who, balance); err != nil {
		return err
	}
	return l.store.SaveTotalIssuance(ctx, asset, issuance)
}

// Transfer moves amount between two accounts, issuance is unchanged.
func (l *Ledger) Transfer(ctx context.Context, asset types.Asset, from, to string, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() || from == to {
		return nil
	}
	fromBalance, err := l.store.FindBalance(ctx, asset, from)
	if err != nil {
		return err
	}
	if fromBalance.LT(amount) {
		return errorsmod.Wrapf(types.ErrInsufficientBalance, "%s of %s has %s, needs %s", from, asset, fromBalance, amount)
	}
	toBalance, err := l.store.FindBalance(ctx, asset, to)
	if err != nil {
		return err
	}
	if fromBalance, err = types.CheckedSub(fromBalance, amount); err != nil {
		return err
	}
	if toBalance, err = types.CheckedAdd(toBalance, amount); err != nil {
		return err
	}
	if err := l.store.SaveBalance(ctx, asset, from, fromBalance); err != nil {
		return err
	}
	return l.store.SaveBalance(ctx, asset, to, toBalance)
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "amount must be non-negative")
	}
	return nil
}
