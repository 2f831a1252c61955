package memdb

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

const ksm = types.Asset("KSM")

func newStore() *Store {
	return New(config.DbConfig{MaxPaginationLimit: 2})
}

func record(id uint64, owner string, era uint32) types.UnlockingRecord {
	return types.UnlockingRecord{
		ID:          id,
		Owner:       owner,
		Asset:       ksm,
		TokenAmount: sdkmath.NewInt(int64(id) * 10),
		UnlockAt:    types.NewTimeUnit(types.Era, era),
	}
}

func TestRunAtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.SaveBalance(ctx, ksm, "alice", sdkmath.NewInt(100)))

	boom := errors.New("boom")
	err := s.RunAtomic(ctx, func(ctx context.Context) error {
		require.NoError(t, s.SaveBalance(ctx, ksm, "alice", sdkmath.NewInt(1)))
		require.NoError(t, s.InsertUnlockingRecord(ctx, record(1, "alice", 3)))
		_, err := s.NextSequence(ctx, db.UnlockIdSequence)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	bal, err := s.FindBalance(ctx, ksm, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", bal.String())
	_, err = s.FindUnlockingRecord(ctx, 1)
	assert.True(t, db.IsNotFoundError(err))
	next, err := s.NextSequence(ctx, db.UnlockIdSequence)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)
}

func TestRunAtomicRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.SaveBalance(ctx, ksm, "alice", sdkmath.NewInt(100)))

	assert.Panics(t, func() {
		_ = s.RunAtomic(ctx, func(ctx context.Context) error {
			require.NoError(t, s.SaveBalance(ctx, ksm, "alice", sdkmath.NewInt(1)))
			panic("boom")
		})
	})

	bal, err := s.FindBalance(ctx, ksm, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", bal.String())
	// the lock was released
	require.NoError(t, s.RunAtomic(ctx, func(ctx context.Context) error { return nil }))
}

func TestRunAtomicNestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	err := s.RunAtomic(ctx, func(ctx context.Context) error {
		return s.RunAtomic(ctx, func(ctx context.Context) error {
			return s.SaveTotalIssuance(ctx, ksm.VToken(), sdkmath.NewInt(7))
		})
	})
	require.NoError(t, err)
	issuance, err := s.FindTotalIssuance(ctx, ksm.VToken())
	require.NoError(t, err)
	assert.Equal(t, "7", issuance.String())
}

func TestFindMaturedUnlockingRecordsInCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.InsertUnlockingRecord(ctx, record(1, "alice", 5)))
	require.NoError(t, s.InsertUnlockingRecord(ctx, record(2, "bob", 3)))
	require.NoError(t, s.InsertUnlockingRecord(ctx, record(3, "carol", 4)))
	require.NoError(t, s.InsertUnlockingRecord(ctx, record(4, "dave", 9)))

	matured, err := s.FindMaturedUnlockingRecords(ctx, ksm, types.NewTimeUnit(types.Era, 5), 0)
	require.NoError(t, err)
	require.Len(t, matured, 3)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{matured[0].ID, matured[1].ID, matured[2].ID})

	limited, err := s.FindMaturedUnlockingRecords(ctx, ksm, types.NewTimeUnit(types.Era, 5), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	err = s.DeleteUnlockingRecord(ctx, 2)
	require.NoError(t, err)
	err = s.DeleteUnlockingRecord(ctx, 2)
	assert.True(t, db.IsNotFoundError(err))
}

func TestInsertPoolDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	pool := types.Pool{Asset: ksm, TokenPool: sdkmath.ZeroInt()}
	require.NoError(t, s.InsertPool(ctx, pool))
	err := s.InsertPool(ctx, pool)
	assert.True(t, db.IsDuplicateKeyError(err))
}

func TestZeroBalanceIsRemoved(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.SaveBalance(ctx, ksm, "alice", sdkmath.NewInt(5)))
	require.NoError(t, s.SaveBalance(ctx, ksm, "alice", sdkmath.ZeroInt()))
	assert.Equal(t, 0, s.st.balances.Len())
}

func TestResolveQueryOnlyFromEligibleState(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	q := types.PendingQuery{ID: 1, Asset: ksm, Status: types.QueryPending, TimeoutAt: 10}
	require.NoError(t, s.InsertQuery(ctx, q))

	eligible := []types.QueryStatus{types.QueryPending}
	err := s.ResolveQuery(ctx, 1, eligible, types.QueryResolution{Status: types.QueryConfirmed, ResolvedAt: 5})
	require.NoError(t, err)

	err = s.ResolveQuery(ctx, 1, eligible, types.QueryResolution{Status: types.QueryFailed, ResolvedAt: 6})
	assert.True(t, db.IsNotFoundError(err))

	got, err := s.FindQuery(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.QueryConfirmed, got.Status)
	assert.Equal(t, uint64(5), got.ResolvedAt)
}

func TestFindExpiredQueriesEarliestTimeoutFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	for _, q := range []types.PendingQuery{
		{ID: 1, Asset: ksm, Status: types.QueryPending, TimeoutAt: 30},
		{ID: 2, Asset: ksm, Status: types.QueryPending, TimeoutAt: 10},
		{ID: 3, Asset: ksm, Status: types.QueryConfirmed, TimeoutAt: 5},
		{ID: 4, Asset: ksm, Status: types.QueryPending, TimeoutAt: 50},
	} {
		require.NoError(t, s.InsertQuery(ctx, q))
	}

	expired, err := s.FindExpiredQueries(ctx, 30, 0)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, uint64(2), expired[0].ID)
	assert.Equal(t, uint64(1), expired[1].ID)

	pending, err := s.CountPendingQueries(ctx, ksm)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending)
}

func TestFindQueriesPagination(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	for id := uint64(1); id <= 3; id++ {
		require.NoError(t, s.InsertQuery(ctx, types.PendingQuery{ID: id, Asset: ksm, Status: types.QueryPending}))
	}

	first, err := s.FindQueries(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, first.Data, 2)
	assert.Equal(t, uint64(3), first.Data[0].ID)
	require.NotEmpty(t, first.PaginationToken)

	second, err := s.FindQueries(ctx, "", first.PaginationToken)
	require.NoError(t, err)
	require.Len(t, second.Data, 1)
	assert.Equal(t, uint64(1), second.Data[0].ID)
	assert.Empty(t, second.PaginationToken)

	_, err = s.FindQueries(ctx, "", "not-a-token")
	assert.True(t, db.IsInvalidPaginationTokenError(err))
}

func TestDelegatorLedgerIsCopied(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	d, err := types.NewDelegator(types.DerivativeIndex, "0")
	require.NoError(t, err)
	l := types.NewDelegatorLedger(ksm, d, 1)
	require.NoError(t, s.InsertDelegatorLedger(ctx, l))

	got, err := s.FindDelegatorLedger(ctx, ksm, d)
	require.NoError(t, err)
	got.Targets = append(got.Targets, "validator-1")

	again, err := s.FindDelegatorLedger(ctx, ksm, d)
	require.NoError(t, err)
	assert.Empty(t, again.Targets)
}
