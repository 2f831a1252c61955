package agent

import (
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/xcm"
)

// callInput is what an encoder needs to build the remote call of one request.
type callInput struct {
	req    types.StakingRequest
	ledger *types.DelegatorLedger
	cfg    config.AgentConfig
}

func (in callInput) amount() string {
	return in.req.AmountOrZero().String()
}

func (in callInput) singleTarget() (string, error) {
	if len(in.req.Targets) != 1 {
		return "", errorsmod.Wrapf(types.ErrInvalidRequest, "%s needs exactly one target, got %d",
			in.req.Operation, len(in.req.Targets))
	}
	return in.req.Targets[0], nil
}

func (in callInput) redelegation() (string, string, error) {
	if in.req.From == "" || in.req.To == "" || in.req.From == in.req.To {
		return "", "", errorsmod.Wrapf(types.ErrInvalidRequest, "redelegate from %q to %q", in.req.From, in.req.To)
	}
	return in.req.From, in.req.To, nil
}

type callEncoder func(in callInput) (xcm.Call, error)

// calls lists, per protocol, the operations that are dispatched as a single
// remote call. Operations absent from a table are unsupported by the protocol.
var calls = map[types.StakingProtocol]map[types.OperationKind]callEncoder{
	types.AstarDappStaking: {
		types.OpBond:          astarLock,
		types.OpBondExtra:     astarLock,
		types.OpUnbond:        astarUnlock,
		types.OpUnbondAll:     astarUnlockAll,
		types.OpDelegate:      astarStake,
		types.OpUndelegate:    astarUnstake,
		types.OpRedelegate:    astarMoveStake,
		types.OpPayout:        fixed(xcm.NewCall("dappStaking", "claimStakerRewards")),
		types.OpLiquidize:     fixed(xcm.NewCall("dappStaking", "claimUnlocked")),
		types.OpRefreshLedger: ledgerQuery("dappStaking", "ledger", "account"),
	},
	types.ParachainStaking: {
		types.OpBond:          parachainDelegate,
		types.OpBondExtra:     parachainBondMore,
		types.OpUnbond:        parachainBondLess,
		types.OpUnbondAll:     fixed(xcm.NewCall("parachainStaking", "scheduleLeaveDelegators")),
		types.OpRebond:        parachainCancelRequest,
		types.OpDelegate:      parachainDelegate,
		types.OpUndelegate:    parachainRevoke,
		types.OpRedelegate:    parachainRedelegate,
		types.OpLiquidize:     parachainExecute,
		types.OpRefreshLedger: ledgerQuery("parachainStaking", "delegatorState", "delegator"),
	},
	types.RelayStaking: {
		types.OpBond:          relayBond,
		types.OpBondExtra:     relayBondExtra,
		types.OpUnbond:        relayUnbond,
		types.OpUnbondAll:     relayUnbondAll,
		types.OpRebond:        relayRebond,
		types.OpDelegate:      relayNominate,
		types.OpPayout:        relayPayout,
		types.OpLiquidize:     fixed(xcm.NewCall("staking", "withdrawUnbonded").With("num_slashing_spans", "0")),
		types.OpChill:         fixed(xcm.NewCall("staking", "chill")),
		types.OpRefreshLedger: ledgerQuery("staking", "ledger", "controller"),
	},
}

// Supports reports whether the protocol can carry the operation. Transfers are
// supported everywhere, convert_asset only with a wrapped asset configured.
func Supports(cfg config.AgentConfig, op types.OperationKind) bool {
	switch op {
	case types.OpInitializeDelegator, types.OpTransferTo, types.OpTransferBack:
		return true
	case types.OpConvertAsset:
		return cfg.WrappedAsset != ""
	}
	_, ok := calls[cfg.StakingProtocol()][op]
	return ok
}

// Capabilities lists the supported operations in their canonical order.
func Capabilities(cfg config.AgentConfig) []types.OperationKind {
	var out []types.OperationKind
	for _, op := range types.RemoteOperations() {
		if Supports(cfg, op) {
			out = append(out, op)
		}
	}
	return out
}

func encodeCall(in callInput) (xcm.Call, error) {
	switch in.req.Operation {
	case types.OpTransferBack:
		return xcm.NewCall("polkadotXcm", "transferAssets").
			With("asset", in.req.Asset.String()).
			With("amount", in.amount()).
			With("beneficiary", in.cfg.SovereignAccount), nil
	case types.OpConvertAsset:
		return convertAsset(in)
	}
	encode, ok := calls[in.cfg.StakingProtocol()][in.req.Operation]
	if !ok {
		return xcm.Call{}, errorsmod.Wrapf(types.ErrUnsupportedOperation, "%s on %s",
			in.req.Operation, in.cfg.Protocol)
	}
	return encode(in)
}

func fixed(call xcm.Call) callEncoder {
	return func(callInput) (xcm.Call, error) {
		return call, nil
	}
}

func ledgerQuery(pallet, method, key string) callEncoder {
	return func(in callInput) (xcm.Call, error) {
		return xcm.NewCall(pallet, method).With(key, in.req.Delegator.Value), nil
	}
}

// convertAsset swaps between the asset and its configured wrapped form.
func convertAsset(in callInput) (xcm.Call, error) {
	wrapped := types.Asset(in.cfg.WrappedAsset)
	target := in.req.TargetAsset
	if target == "" {
		target = wrapped
	}
	if target != wrapped && target != in.req.Asset {
		return xcm.Call{}, errorsmod.Wrapf(types.ErrInvalidRequest, "cannot convert %s to %s", in.req.Asset, target)
	}
	from := in.req.Asset
	if target == in.req.Asset {
		from = wrapped
	}
	return xcm.NewCall("assets", "convert").
		With("from", from.String()).
		With("to", target.String()).
		With("amount", in.amount()), nil
}

func astarLock(in callInput) (xcm.Call, error) {
	return xcm.NewCall("dappStaking", "lock").With("amount", in.amount()), nil
}

func astarUnlock(in callInput) (xcm.Call, error) {
	return xcm.NewCall("dappStaking", "unlock").With("amount", in.amount()), nil
}

func astarUnlockAll(in callInput) (xcm.Call, error) {
	return xcm.NewCall("dappStaking", "unlock").With("amount", in.ledger.Bonded.String()), nil
}

// astarStake stakes locked funds on a contract, all of them when no amount is
// given.
func astarStake(in callInput) (xcm.Call, error) {
	contract, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	amount := in.amount()
	if in.req.AmountOrZero().IsZero() {
		amount = in.ledger.Bonded.String()
	}
	return xcm.NewCall("dappStaking", "stake").With("smart_contract", contract).With("amount", amount), nil
}

func astarUnstake(in callInput) (xcm.Call, error) {
	contract, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("dappStaking", "unstake").With("smart_contract", contract).With("amount", in.amount()), nil
}

func astarMoveStake(in callInput) (xcm.Call, error) {
	from, to, err := in.redelegation()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("dappStaking", "moveStake").
		With("source_contract", from).
		With("destination_contract", to).
		With("amount", in.ledger.Bonded.String()), nil
}

func parachainDelegate(in callInput) (xcm.Call, error) {
	candidate, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("parachainStaking", "delegate").With("candidate", candidate).With("amount", in.amount()), nil
}

func parachainBondMore(in callInput) (xcm.Call, error) {
	candidate, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("parachainStaking", "delegatorBondMore").
		With("candidate", candidate).With("more", in.amount()), nil
}

func parachainBondLess(in callInput) (xcm.Call, error) {
	candidate, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("parachainStaking", "scheduleDelegatorBondLess").
		With("candidate", candidate).With("less", in.amount()), nil
}

// parachainCancelRequest cancels the scheduled bond-less request of a
// collator, which is how parachain staking rebonds.
func parachainCancelRequest(in callInput) (xcm.Call, error) {
	candidate, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("parachainStaking", "cancelDelegationRequest").With("candidate", candidate), nil
}

func parachainRevoke(in callInput) (xcm.Call, error) {
	collator, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("parachainStaking", "scheduleRevokeDelegation").With("collator", collator), nil
}

func parachainRedelegate(in callInput) (xcm.Call, error) {
	from, to, err := in.redelegation()
	if err != nil {
		return xcm.Call{}, err
	}
	revoke := xcm.NewCall("parachainStaking", "scheduleRevokeDelegation").With("collator", from)
	delegate := xcm.NewCall("parachainStaking", "delegate").
		With("candidate", to).With("amount", in.ledger.Bonded.String())
	return xcm.NewCall("utility", "batchAll").
		With("calls", strings.Join([]string{revoke.String(), delegate.String()}, ";")), nil
}

func parachainExecute(in callInput) (xcm.Call, error) {
	if len(in.req.Targets) == 0 {
		return xcm.NewCall("parachainStaking", "executeLeaveDelegators").
			With("delegator", in.req.Delegator.Value), nil
	}
	candidate, err := in.singleTarget()
	if err != nil {
		return xcm.Call{}, err
	}
	return xcm.NewCall("parachainStaking", "executeDelegationRequest").
		With("delegator", in.req.Delegator.Value).With("candidate", candidate), nil
}

func relayBond(in callInput) (xcm.Call, error) {
	return xcm.NewCall("staking", "bond").With("value", in.amount()).With("payee", "Staked"), nil
}

func relayBondExtra(in callInput) (xcm.Call, error) {
	return xcm.NewCall("staking", "bondExtra").With("max_additional", in.amount()), nil
}

func relayUnbond(in callInput) (xcm.Call, error) {
	return xcm.NewCall("staking", "unbond").With("value", in.amount()), nil
}

func relayUnbondAll(in callInput) (xcm.Call, error) {
	return xcm.NewCall("staking", "unbond").With("value", in.ledger.Bonded.String()), nil
}

func relayRebond(in callInput) (xcm.Call, error) {
	return xcm.NewCall("staking", "rebond").With("value", in.amount()), nil
}

func relayNominate(in callInput) (xcm.Call, error) {
	if len(in.req.Targets) == 0 {
		return xcm.Call{}, errorsmod.Wrap(types.ErrInvalidRequest, "nominate needs at least one validator")
	}
	return xcm.NewCall("staking", "nominate").With("targets", strings.Join(in.req.Targets, ",")), nil
}

func relayPayout(in callInput) (xcm.Call, error) {
	if in.req.Validator == "" || in.req.TimeUnit == nil {
		return xcm.Call{}, errorsmod.Wrap(types.ErrInvalidRequest, "payout needs a validator and an era")
	}
	return xcm.NewCall("staking", "payoutStakers").
		With("validator_stash", in.req.Validator).
		With("era", strconv.FormatUint(uint64(in.req.TimeUnit.Value), 10)), nil
}
