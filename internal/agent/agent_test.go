package agent_test

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/agent"
	"github.com/vtokenlabs/liquid-staking-service/internal/clock"
	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/memdb"
	"github.com/vtokenlabs/liquid-staking-service/internal/delegator"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/query"
	"github.com/vtokenlabs/liquid-staking-service/internal/testutil"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/vault"
	"github.com/vtokenlabs/liquid-staking-service/internal/xcm"
)

const (
	ksm  = types.Asset("KSM")
	glmr = types.Asset("GLMR")
	astr = types.Asset("ASTR")
)

type fixture struct {
	ctx      context.Context
	rec      *events.Recorder
	store    *memdb.Store
	ledger   *ledger.Ledger
	engine   *query.Engine
	sender   *xcm.MemorySender
	registry *agent.Registry
}

func setup(t *testing.T) *fixture {
	store := memdb.New(config.DbConfig{MaxPaginationLimit: 50})
	l := ledger.New(store)
	c := clock.New(store)
	v := vault.New(store, l, c, testutil.VaultConfig(
		testutil.PoolConfig(ksm.String()), testutil.PoolConfig(glmr.String()), testutil.PoolConfig(astr.String()),
	))
	ctx, rec := events.WithRecorder(context.Background())
	require.NoError(t, v.EnsurePools(ctx))

	astar := testutil.AgentConfig(astr.String(), types.AstarDappStaking)
	astar.WrappedAsset = "WASTR"
	staking := &config.StakingConfig{Agents: []config.AgentConfig{
		testutil.AgentConfig(ksm.String(), types.RelayStaking),
		testutil.AgentConfig(glmr.String(), types.ParachainStaking),
		astar,
	}}
	dels := delegator.New(store, l, c, v, testutil.RuntimeConfig())
	engine := query.New(store, l, c, dels, 20)
	sender := xcm.NewMemorySender()
	return &fixture{
		ctx:      ctx,
		rec:      rec,
		store:    store,
		ledger:   l,
		engine:   engine,
		sender:   sender,
		registry: agent.NewRegistry(staking, l, c, engine, dels, sender),
	}
}

func (f *fixture) agent(t *testing.T, asset types.Asset) *agent.Agent {
	a, err := f.registry.Get(asset)
	require.NoError(t, err)
	return a
}

func (f *fixture) delegator(t *testing.T, asset types.Asset, d types.Delegator) types.Delegator {
	_, err := f.agent(t, asset).InitializeDelegator(f.ctx, d)
	require.NoError(t, err)
	return d
}

func (f *fixture) fund(t *testing.T, asset types.Asset, who string, amount int64) {
	require.NoError(t, f.ledger.Deposit(f.ctx, asset, who, sdkmath.NewInt(amount)))
}

func (f *fixture) balance(t *testing.T, asset types.Asset, who string) string {
	b, err := f.ledger.FreeBalance(f.ctx, asset, who)
	require.NoError(t, err)
	return b.String()
}

func (f *fixture) queries(t *testing.T) []types.PendingQuery {
	res, err := f.engine.List(f.ctx, "", "")
	require.NoError(t, err)
	return res.Data
}

func lastCall(t *testing.T, s *xcm.MemorySender) string {
	p, ok := s.Last()
	require.True(t, ok)
	for _, ins := range p.Instructions {
		if ins.Kind == xcm.Transact {
			return string(ins.Call)
		}
	}
	t.Fatalf("no transact instruction in %+v", p)
	return ""
}

func TestCapabilityTable(t *testing.T) {
	f := setup(t)
	unsupported := map[types.Asset][]types.OperationKind{
		ksm:  {types.OpUndelegate, types.OpRedelegate, types.OpConvertAsset},
		glmr: {types.OpChill, types.OpPayout, types.OpConvertAsset},
		astr: {types.OpChill, types.OpRebond},
	}
	for asset, ops := range unsupported {
		caps := f.agent(t, asset).Capabilities()
		for _, op := range ops {
			assert.NotContains(t, caps, op, "%s should not support %s", asset, op)
		}
		for _, op := range []types.OperationKind{types.OpBond, types.OpUnbond, types.OpTransferTo, types.OpRefreshLedger} {
			assert.Contains(t, caps, op)
		}
	}
	assert.Contains(t, f.agent(t, astr).Capabilities(), types.OpConvertAsset)

	_, err := f.registry.Get("DOT")
	assert.ErrorIs(t, err, types.ErrUnsupportedAsset)
}

func TestBondRegistersQueryAndAppliesOnlyOnConfirmation(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "fee-reserve", 10)

	q, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
	})
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, types.QueryPending, q.Status)
	assert.Equal(t, "9", f.balance(t, ksm, "fee-reserve"))

	p, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, q.ID, p.QueryID())
	assert.Equal(t, "staking.bond(payee=Staked,value=50)", lastCall(t, f.sender))

	l, err := f.agent(t, ksm).InitializeDelegator(f.ctx, d)
	assert.ErrorIs(t, err, types.ErrDelegatorAlreadyExists)
	assert.Nil(t, l)

	require.NoError(t, f.engine.OnResponse(f.ctx, types.QueryResponse{QueryID: q.ID, Success: true}))
	res, err := f.engine.Get(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, types.QueryConfirmed, res.Status)

	ledgers, err := f.store.FindDelegatorLedgers(f.ctx, ksm)
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	assert.Equal(t, "50", ledgers[0].Bonded.String())
}

func TestUnsupportedOperationSendsNothing(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, glmr, testutil.RandomKey20Delegator())
	f.fund(t, glmr, "fee-reserve", 10)

	_, err := f.registry.Execute(f.ctx, types.StakingRequest{Asset: glmr, Delegator: d, Operation: types.OpChill})
	assert.ErrorIs(t, err, types.ErrUnsupportedOperation)
	assert.Empty(t, f.sender.Sent())
	assert.Equal(t, "10", f.balance(t, glmr, "fee-reserve"))
}

func TestOperationsRequireInitializedDelegator(t *testing.T) {
	f := setup(t)
	f.fund(t, ksm, "fee-reserve", 10)
	_, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: testutil.RandomAccount32Delegator(), Operation: types.OpChill,
	})
	assert.ErrorIs(t, err, types.ErrDelegatorNotInitialized)
}

func TestInsufficientFeeReserveFailsFast(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())

	_, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
	})
	assert.ErrorIs(t, err, types.ErrInsufficientFeeReserve)
	assert.Empty(t, f.sender.Sent())
	assert.Empty(t, f.queries(t))
}

func TestBondBelowProtocolMinimum(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "fee-reserve", 10)

	_, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(5),
	})
	assert.ErrorIs(t, err, types.ErrBelowMinimumBond)

	_, err = f.registry.Execute(f.ctx, types.StakingRequest{Asset: ksm, Delegator: d, Operation: types.OpBond})
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestUnbondCarriesExpectedUnlockTime(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "fee-reserve", 10)

	q, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpUnbond, Amount: sdkmath.NewInt(20),
	})
	require.NoError(t, err)
	require.NotNil(t, q.Mutation.UnlockAt)
	assert.Equal(t, types.NewTimeUnit(types.Era, 6), *q.Mutation.UnlockAt)
}

func TestUnbondBoundedByUnlockingChunks(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "fee-reserve", 10)

	l, err := f.store.FindDelegatorLedger(f.ctx, ksm, d)
	require.NoError(t, err)
	l.Bonded = sdkmath.NewInt(100)
	for i := uint32(0); i < 4; i++ {
		l.Unlocking = append(l.Unlocking, types.UnlockChunk{
			Amount: sdkmath.NewInt(1), UnlockAt: types.NewTimeUnit(types.Era, 10+i),
		})
	}
	require.NoError(t, f.store.SaveDelegatorLedger(f.ctx, *l))

	_, err = f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpUnbond, Amount: sdkmath.NewInt(20),
	})
	assert.ErrorIs(t, err, types.ErrTooManyUnlockChunks)
}

func TestSendFailureRollsBackTheTransition(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "fee-reserve", 10)
	f.sender.FailWith(errors.New("broker down"))

	err := f.store.RunAtomic(f.ctx, func(ctx context.Context) error {
		_, err := f.registry.Execute(ctx, types.StakingRequest{
			Asset: ksm, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
		})
		return err
	})
	assert.ErrorIs(t, err, types.ErrXcmSend)
	assert.Equal(t, "10", f.balance(t, ksm, "fee-reserve"))
	assert.Empty(t, f.queries(t))
}

func TestLocalTransferSettlesWithoutQuery(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, types.Delegator{Scheme: types.DerivativeIndex, Value: "3"})
	f.fund(t, ksm, "sovereign", 100)

	q, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpTransferTo, Amount: sdkmath.NewInt(40),
	})
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.Equal(t, "60", f.balance(t, ksm, "sovereign"))
	assert.Equal(t, "40", f.balance(t, ksm, "sovereign/sub/3"))

	_, err = f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpTransferBack, Amount: sdkmath.NewInt(15),
	})
	require.NoError(t, err)
	assert.Equal(t, "75", f.balance(t, ksm, "sovereign"))
	assert.Empty(t, f.sender.Sent())

	evs := f.rec.Events()
	assert.Equal(t, types.LocalTransferEventType, evs[len(evs)-1].GetEventType())
}

func TestRemoteTransferToIsRefundedOnFailure(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "sovereign", 100)
	f.fund(t, ksm, "fee-reserve", 10)

	q, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpTransferTo, Amount: sdkmath.NewInt(40),
	})
	require.NoError(t, err)
	assert.Equal(t, "60", f.balance(t, ksm, "sovereign"))

	p, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, "41", p.Instructions[0].Amount.String())

	require.NoError(t, f.engine.OnResponse(f.ctx, types.QueryResponse{QueryID: q.ID, Error: "Barrier"}))
	assert.Equal(t, "100", f.balance(t, ksm, "sovereign"))
}

func TestTransferBackCreditsOnConfirmation(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "fee-reserve", 10)

	q, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpTransferBack, Amount: sdkmath.NewInt(25),
	})
	require.NoError(t, err)
	assert.Equal(t, "0", f.balance(t, ksm, "sovereign"))

	require.NoError(t, f.engine.OnResponse(f.ctx, types.QueryResponse{QueryID: q.ID, Success: true}))
	assert.Equal(t, "25", f.balance(t, ksm, "sovereign"))
}

func TestReplayIssuesFreshQuery(t *testing.T) {
	f := setup(t)
	d := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	f.fund(t, ksm, "fee-reserve", 10)

	q, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
	})
	require.NoError(t, err)
	replayed, err := f.registry.Replay(f.ctx, *q)
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, replayed.ID)
	assert.Equal(t, q.ID, replayed.RetryOf)
	assert.Equal(t, q.Mutation.Request, replayed.Mutation.Request)
	assert.Len(t, f.sender.Sent(), 2)
}

func TestProtocolCallEncoding(t *testing.T) {
	f := setup(t)
	f.fund(t, glmr, "fee-reserve", 10)
	f.fund(t, astr, "fee-reserve", 10)
	glmrDelegator := f.delegator(t, glmr, testutil.RandomKey20Delegator())
	astrDelegator := f.delegator(t, astr, testutil.RandomAccount32Delegator())

	_, err := f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: glmr, Delegator: glmrDelegator, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
	})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = f.registry.Execute(f.ctx, types.StakingRequest{
		Asset:   glmr, Delegator: glmrDelegator, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
		Targets: []string{"c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.delegate(amount=50,candidate=c1)", lastCall(t, f.sender))

	_, err = f.registry.Execute(f.ctx, types.StakingRequest{
		Asset:   glmr, Delegator: glmrDelegator, Operation: types.OpRebond, Amount: sdkmath.NewInt(5),
		Targets: []string{"c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "parachainStaking.cancelDelegationRequest(candidate=c1)", lastCall(t, f.sender))

	_, err = f.registry.Execute(f.ctx, types.StakingRequest{Asset: astr, Delegator: astrDelegator, Operation: types.OpPayout})
	require.NoError(t, err)
	assert.Equal(t, "dappStaking.claimStakerRewards()", lastCall(t, f.sender))

	_, err = f.registry.Execute(f.ctx, types.StakingRequest{
		Asset: astr, Delegator: astrDelegator, Operation: types.OpConvertAsset, Amount: sdkmath.NewInt(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "assets.convert(amount=7,from=ASTR,to=WASTR)", lastCall(t, f.sender))

	// payouts must name the validator and era
	f.fund(t, ksm, "fee-reserve", 10)
	nominator := f.delegator(t, ksm, testutil.RandomAccount32Delegator())
	_, err = f.registry.Execute(f.ctx, types.StakingRequest{Asset: ksm, Delegator: nominator, Operation: types.OpPayout})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
	assert.Equal(t, "10", f.balance(t, ksm, "fee-reserve"))
}
