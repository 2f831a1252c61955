package memdb

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (m *Store) FindPool(ctx context.Context, asset types.Asset) (*types.Pool, error) {
	defer m.lock(ctx)()
	p, ok := m.st.pools.Get(types.Pool{Asset: asset})
	if !ok {
		return nil, notFound(asset.String(), "pool not found")
	}
	return &p, nil
}

func (m *Store) FindPools(ctx context.Context) ([]types.Pool, error) {
	defer m.lock(ctx)()
	pools := make([]types.Pool, 0, m.st.pools.Len())
	m.st.pools.Ascend(func(p types.Pool) bool {
		pools = append(pools, p)
		return true
	})
	return pools, nil
}

func (m *Store) InsertPool(ctx context.Context, pool types.Pool) error {
	defer m.lock(ctx)()
	if m.st.pools.Has(pool) {
		return duplicate(pool.Asset.String(), "pool already exists")
	}
	m.st.pools.ReplaceOrInsert(pool)
	return nil
}

func (m *Store) SavePool(ctx context.Context, pool types.Pool) error {
	defer m.lock(ctx)()
	m.st.pools.ReplaceOrInsert(pool)
	return nil
}

func (m *Store) InsertUnlockingRecord(ctx context.Context, record types.UnlockingRecord) error {
	defer m.lock(ctx)()
	if m.st.records.Has(record) {
		return duplicate(fmt.Sprint(record.ID), "unlocking record already exists")
	}
	m.st.records.ReplaceOrInsert(record)
	return nil
}

func (m *Store) FindUnlockingRecord(ctx context.Context, id uint64) (*types.UnlockingRecord, error) {
	defer m.lock(ctx)()
	r, ok := m.st.records.Get(types.UnlockingRecord{ID: id})
	if !ok {
		return nil, notFound(fmt.Sprint(id), "unlocking record not found")
	}
	return &r, nil
}

func (m *Store) FindUnlockingRecordsByOwner(
	ctx context.Context, asset types.Asset, owner string,
) ([]types.UnlockingRecord, error) {
	defer m.lock(ctx)()
	var out []types.UnlockingRecord
	m.st.records.Ascend(func(r types.UnlockingRecord) bool {
		if r.Asset == asset && r.Owner == owner {
			out = append(out, r)
		}
		return true
	})
	return out, nil
}

func (m *Store) CountUnlockingRecordsByOwner(ctx context.Context, asset types.Asset, owner string) (int64, error) {
	records, err := m.FindUnlockingRecordsByOwner(ctx, asset, owner)
	return int64(len(records)), err
}

func (m *Store) FindMaturedUnlockingRecords(
	ctx context.Context, asset types.Asset, now types.TimeUnit, limit int64,
) ([]types.UnlockingRecord, error) {
	defer m.lock(ctx)()
	var out []types.UnlockingRecord
	m.st.records.Ascend(func(r types.UnlockingRecord) bool {
		if r.Asset == asset && r.UnlockAt.Kind == now.Kind && r.UnlockAt.Value <= now.Value {
			out = append(out, r)
		}
		return limit <= 0 || int64(len(out)) < limit
	})
	return out, nil
}

func (m *Store) DeleteUnlockingRecord(ctx context.Context, id uint64) error {
	defer m.lock(ctx)()
	if _, ok := m.st.records.Delete(types.UnlockingRecord{ID: id}); !ok {
		return notFound(fmt.Sprint(id), "unlocking record not found")
	}
	return nil
}

func (m *Store) FindBalance(ctx context.Context, asset types.Asset, account string) (sdkmath.Int, error) {
	defer m.lock(ctx)()
	b, ok := m.st.balances.Get(balanceItem{asset: asset, account: account})
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return b.amount, nil
}

func (m *Store) SaveBalance(ctx context.Context, asset types.Asset, account string, amount sdkmath.Int) error {
	defer m.lock(ctx)()
	item := balanceItem{asset: asset, account: account, amount: amount}
	if amount.IsZero() {
		m.st.balances.Delete(item)
		return nil
	}
	m.st.balances.ReplaceOrInsert(item)
	return nil
}

func (m *Store) FindTotalIssuance(ctx context.Context, asset types.Asset) (sdkmath.Int, error) {
	defer m.lock(ctx)()
	v, ok := m.st.issuance[asset]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return v, nil
}

func (m *Store) SaveTotalIssuance(ctx context.Context, asset types.Asset, amount sdkmath.Int) error {
	defer m.lock(ctx)()
	m.st.issuance[asset] = amount
	return nil
}
