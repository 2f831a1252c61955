package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/memdb"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/services"
	"github.com/vtokenlabs/liquid-staking-service/internal/testutil"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/xcm"
)

const ksm = types.Asset("KSM")

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evs []types.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) eventTypes() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.GetEventType())
	}
	return out
}

type fixture struct {
	ctx       context.Context
	cfg       *config.Config
	store     *memdb.Store
	ledger    *ledger.Ledger
	sender    *xcm.MemorySender
	publisher *recordingPublisher
	svc       *services.Services
}

func setup(t *testing.T, policy config.RetryPolicy) *fixture {
	cfg := &config.Config{
		Db:      config.DbConfig{MaxPaginationLimit: 20},
		Runtime: *testutil.RuntimeConfig(),
		Vault:   *testutil.VaultConfig(testutil.PoolConfig(ksm.String())),
		Staking: config.StakingConfig{Agents: []config.AgentConfig{
			testutil.AgentConfig(ksm.String(), types.RelayStaking),
		}},
	}
	cfg.Runtime.RetryPolicy = policy
	store := memdb.New(cfg.Db)
	sender := xcm.NewMemorySender()
	pub := &recordingPublisher{}
	ctx := context.Background()
	svc, err := services.New(ctx, cfg, store, sender, pub)
	require.NoError(t, err)
	return &fixture{
		ctx:       ctx,
		cfg:       cfg,
		store:     store,
		ledger:    ledger.New(store),
		sender:    sender,
		publisher: pub,
		svc:       svc,
	}
}

func (f *fixture) fund(t *testing.T, asset types.Asset, who string, amount int64) {
	require.NoError(t, f.ledger.Deposit(f.ctx, asset, who, sdkmath.NewInt(amount)))
}

func (f *fixture) free(t *testing.T, asset types.Asset, who string) string {
	b, err := f.svc.Balance(f.ctx, asset, who)
	require.Nil(t, err)
	return b.Free
}

func (f *fixture) bond(t *testing.T) (types.Delegator, *services.QueryPublic) {
	d := testutil.RandomAccount32Delegator()
	_, err := f.svc.InitializeDelegator(f.ctx, ksm, d)
	require.Nil(t, err)
	res, err := f.svc.Stake(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
	})
	require.Nil(t, err)
	require.NotNil(t, res.Query)
	return d, res.Query
}

func TestMintAndRedeemPublishCommittedEvents(t *testing.T) {
	f := setup(t, config.RetryReplay)
	alice := testutil.RandomAccount()
	f.fund(t, ksm, alice, 100)

	minted, err := f.svc.Mint(f.ctx, ksm, alice, sdkmath.NewInt(100))
	require.Nil(t, err)
	assert.Equal(t, "100", minted.Minted)
	assert.Equal(t, "vKSM", minted.VToken)

	redeemed, err := f.svc.Redeem(f.ctx, ksm, alice, sdkmath.NewInt(40))
	require.Nil(t, err)
	assert.Equal(t, uint64(1), redeemed.UnlockId)

	pool, err := f.svc.Pool(f.ctx, ksm)
	require.Nil(t, err)
	assert.Equal(t, "60", pool.TokenPool)
	assert.Equal(t, "60", pool.VTokenIssuance)
	assert.Equal(t, "1.000000000000000000", pool.ExchangeRate)

	records, err := f.svc.UnlockingRecords(f.ctx, ksm, alice)
	require.Nil(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "era(5)", records[0].UnlockAt)

	assert.Equal(t, []types.EventType{types.MintedEventType, types.RedeemStartedEventType}, f.publisher.eventTypes())
}

func TestRejectedTransitionPublishesNothing(t *testing.T) {
	f := setup(t, config.RetryReplay)
	_, err := f.svc.Mint(f.ctx, ksm, testutil.RandomAccount(), sdkmath.NewInt(100))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode)
	assert.Equal(t, types.InsufficientFunds, err.ErrorCode)
	assert.Empty(t, f.publisher.eventTypes())
}

func TestSendFailureLeavesNoTrace(t *testing.T) {
	f := setup(t, config.RetryReplay)
	f.fund(t, ksm, "fee-reserve", 10)
	d := testutil.RandomAccount32Delegator()
	_, err := f.svc.InitializeDelegator(f.ctx, ksm, d)
	require.Nil(t, err)
	f.sender.FailWith(errors.New("connection refused"))

	_, err = f.svc.Stake(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: d, Operation: types.OpBond, Amount: sdkmath.NewInt(50),
	})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadGateway, err.StatusCode)
	assert.Equal(t, types.XcmSendError, err.ErrorCode)
	assert.Equal(t, "10", f.free(t, ksm, "fee-reserve"))

	queries, _, err := f.svc.Queries(f.ctx, "", "")
	require.Nil(t, err)
	assert.Empty(t, queries)
	assert.NotContains(t, f.publisher.eventTypes(), types.XcmSentEventType)
}

func TestResponseIsAppliedOnce(t *testing.T) {
	f := setup(t, config.RetryReplay)
	f.fund(t, ksm, "fee-reserve", 10)
	d, q := f.bond(t)

	resp := types.QueryResponse{QueryID: q.ID, Success: true}
	require.Nil(t, f.svc.NotifyQueryResponse(f.ctx, resp))
	require.Nil(t, f.svc.NotifyQueryResponse(f.ctx, resp))
	require.Nil(t, f.svc.NotifyQueryResponse(f.ctx, types.QueryResponse{QueryID: 999, Success: true}))

	l, err := f.svc.Delegator(f.ctx, ksm, d)
	require.Nil(t, err)
	assert.Equal(t, "50", l.Bonded)

	stored, err := f.svc.Query(f.ctx, q.ID)
	require.Nil(t, err)
	assert.Equal(t, types.QueryConfirmed.ToString(), stored.Status)
}

func TestMalformedRefreshResponseMarksLedgerDirty(t *testing.T) {
	f := setup(t, config.RetryReplay)
	f.fund(t, ksm, "fee-reserve", 10)
	d, q := f.bond(t)
	require.Nil(t, f.svc.NotifyQueryResponse(f.ctx, types.QueryResponse{QueryID: q.ID, Success: true}))

	res, err := f.svc.Stake(f.ctx, types.StakingRequest{Asset: ksm, Delegator: d, Operation: types.OpRefreshLedger})
	require.Nil(t, err)
	require.NotNil(t, res.Query)

	var resp types.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"snapshot":{}}`), &resp))
	resp.QueryID = res.Query.ID
	require.NotPanics(t, func() {
		require.Nil(t, f.svc.NotifyQueryResponse(f.ctx, resp))
	})

	l, err := f.svc.Delegator(f.ctx, ksm, d)
	require.Nil(t, err)
	assert.True(t, l.Dirty)
	assert.Contains(t, l.DirtyReason, "malformed response")
	assert.Equal(t, "50", l.Bonded)

	// the service keeps serving transitions
	require.Nil(t, f.svc.Tick(f.ctx))
}

func TestTickTimesOutQueriesAndMaturesUnlocks(t *testing.T) {
	f := setup(t, config.RetryReplay)
	f.fund(t, ksm, "fee-reserve", 10)
	alice := testutil.RandomAccount()
	f.fund(t, ksm, alice, 100)
	_, err := f.svc.Mint(f.ctx, ksm, alice, sdkmath.NewInt(100))
	require.Nil(t, err)
	_, err = f.svc.Redeem(f.ctx, ksm, alice, sdkmath.NewInt(40))
	require.Nil(t, err)
	_, q := f.bond(t)

	for i := 0; i < 9; i++ {
		require.Nil(t, f.svc.Tick(f.ctx))
	}
	stored, err := f.svc.Query(f.ctx, q.ID)
	require.Nil(t, err)
	assert.Equal(t, types.QueryPending.ToString(), stored.Status)

	require.Nil(t, f.svc.Tick(f.ctx))
	stored, err = f.svc.Query(f.ctx, q.ID)
	require.Nil(t, err)
	assert.Equal(t, types.QueryTimedOut.ToString(), stored.Status)
	height, err := f.svc.Height(f.ctx)
	require.Nil(t, err)
	assert.Equal(t, uint64(10), height)

	// maturity follows the time unit, not the remote outcome
	assert.Equal(t, "0", f.free(t, ksm, alice))
	require.Nil(t, f.svc.UpdateTimeUnit(f.ctx, ksm, types.NewTimeUnit(types.Era, 5)))
	assert.Equal(t, "40", f.free(t, ksm, alice))

	err = f.svc.UpdateTimeUnit(f.ctx, ksm, types.NewTimeUnit(types.Era, 3))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusConflict, err.StatusCode)
}

func TestRetryQuery(t *testing.T) {
	f := setup(t, config.RetryReplay)
	f.fund(t, ksm, "fee-reserve", 10)
	_, q := f.bond(t)

	_, err := f.svc.RetryQuery(f.ctx, q.ID)
	require.NotNil(t, err)
	assert.Equal(t, types.InvalidState, err.ErrorCode)

	require.Nil(t, f.svc.FailQuery(f.ctx, q.ID, "dropped by relayer"))
	retry, err := f.svc.RetryQuery(f.ctx, q.ID)
	require.Nil(t, err)
	assert.Equal(t, q.ID, retry.RetryOf)
	assert.Equal(t, q.Request.Amount.String(), retry.Request.Amount.String())
	assert.Len(t, f.sender.Sent(), 2)

	_, err = f.svc.RetryQuery(f.ctx, q.ID)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Equal(t, types.Conflict, err.ErrorCode)
}

func TestRetryDisabledByPolicy(t *testing.T) {
	f := setup(t, config.RetryDisabled)
	f.fund(t, ksm, "fee-reserve", 10)
	_, q := f.bond(t)
	require.Nil(t, f.svc.FailQuery(f.ctx, q.ID, ""))

	_, err := f.svc.RetryQuery(f.ctx, q.ID)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode)
	assert.Len(t, f.sender.Sent(), 1)
}

func TestErrorMapping(t *testing.T) {
	f := setup(t, config.RetryReplay)

	_, err := f.svc.Pool(f.ctx, "DOT")
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)

	_, err = f.svc.Redeem(f.ctx, ksm, testutil.RandomAccount(), sdkmath.NewInt(10))
	require.NotNil(t, err)
	assert.Equal(t, types.InvalidState, err.ErrorCode)

	_, err = f.svc.Stake(f.ctx, types.StakingRequest{
		Asset: ksm, Delegator: testutil.RandomAccount32Delegator(), Operation: types.OpUndelegate,
	})
	require.NotNil(t, err)
	assert.Equal(t, types.UnsupportedOperation, err.ErrorCode)

	_, _, err = f.svc.Queries(f.ctx, "", "not-a-token")
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestReconcileAgainstRemoteTotal(t *testing.T) {
	f := setup(t, config.RetryReplay)
	alice := testutil.RandomAccount()
	f.fund(t, ksm, alice, 1000)
	_, err := f.svc.Mint(f.ctx, ksm, alice, sdkmath.NewInt(1000))
	require.Nil(t, err)

	remote := sdkmath.NewInt(500)
	for i := 0; i < 2; i++ {
		_, err = f.svc.Reconcile(f.ctx, ksm, &remote)
		require.Nil(t, err)
	}
	res, err := f.svc.Reconcile(f.ctx, ksm, &remote)
	require.Nil(t, err)
	assert.True(t, res.Alerted)
	assert.Equal(t, uint32(3), res.Streak)
	assert.Equal(t, "1000", res.TokenPool)
	assert.Contains(t, f.publisher.eventTypes(), types.ExchangeRateDivergenceEventType)

	// with no remote total the confirmed ledgers are summed
	res, err = f.svc.Reconcile(f.ctx, ksm, nil)
	require.Nil(t, err)
	assert.Equal(t, "0", res.RemoteTotal)
}

type brokenMaturityStore struct {
	*memdb.Store
	broken map[types.Asset]bool
}

func (s *brokenMaturityStore) FindMaturedUnlockingRecords(
	ctx context.Context, asset types.Asset, now types.TimeUnit, limit int64,
) ([]types.UnlockingRecord, error) {
	if s.broken[asset] {
		return nil, errors.New("cursor closed")
	}
	return s.Store.FindMaturedUnlockingRecords(ctx, asset, now, limit)
}

func TestTickMaturesRemainingPoolsWhenOneFails(t *testing.T) {
	const dot = types.Asset("DOT")
	cfg := &config.Config{
		Db:      config.DbConfig{MaxPaginationLimit: 20},
		Runtime: *testutil.RuntimeConfig(),
		Vault:   *testutil.VaultConfig(testutil.PoolConfig(ksm.String()), testutil.PoolConfig(dot.String())),
	}
	store := &brokenMaturityStore{Store: memdb.New(cfg.Db), broken: map[types.Asset]bool{ksm: true, dot: true}}
	ctx := context.Background()
	svc, err := services.New(ctx, cfg, store, xcm.NewMemorySender(), &recordingPublisher{})
	require.NoError(t, err)
	f := &fixture{ctx: ctx, cfg: cfg, store: store.Store, ledger: ledger.New(store), svc: svc}

	alice := testutil.RandomAccount()
	for _, asset := range []types.Asset{dot, ksm} {
		f.fund(t, asset, alice, 100)
		_, err := svc.Mint(ctx, asset, alice, sdkmath.NewInt(100))
		require.Nil(t, err)
		_, err = svc.Redeem(ctx, asset, alice, sdkmath.NewInt(40))
		require.Nil(t, err)
		// the unit moves even though releasing the records fails
		require.NotNil(t, svc.UpdateTimeUnit(ctx, asset, types.NewTimeUnit(types.Era, 5)))
	}
	assert.Equal(t, "0", f.free(t, ksm, alice))

	// DOT sorts first and keeps failing
	store.broken = map[types.Asset]bool{dot: true}
	tickErr := svc.Tick(ctx)
	require.NotNil(t, tickErr)
	assert.Equal(t, http.StatusInternalServerError, tickErr.StatusCode)
	assert.Equal(t, "40", f.free(t, ksm, alice))
	assert.Equal(t, "0", f.free(t, dot, alice))

	store.broken = nil
	require.Nil(t, svc.Tick(ctx))
	assert.Equal(t, "40", f.free(t, dot, alice))
}
