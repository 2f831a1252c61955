package memdb

import (
	"context"

	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (m *Store) FindDelegatorLedger(
	ctx context.Context, asset types.Asset, delegator types.Delegator,
) (*types.DelegatorLedger, error) {
	defer m.lock(ctx)()
	key := ledgerKey(asset, delegator)
	item, ok := m.st.ledgers.Get(ledgerItem{key: key})
	if !ok {
		return nil, notFound(key, "delegator ledger not found")
	}
	l := item.ledger.Clone()
	return &l, nil
}

func (m *Store) FindDelegatorLedgers(ctx context.Context, asset types.Asset) ([]types.DelegatorLedger, error) {
	defer m.lock(ctx)()
	var out []types.DelegatorLedger
	m.st.ledgers.Ascend(func(item ledgerItem) bool {
		if item.ledger.Asset == asset {
			out = append(out, item.ledger.Clone())
		}
		return true
	})
	return out, nil
}

func (m *Store) InsertDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error {
	defer m.lock(ctx)()
	key := ledgerKey(ledger.Asset, ledger.Delegator)
	if m.st.ledgers.Has(ledgerItem{key: key}) {
		return duplicate(key, "delegator ledger already exists")
	}
	m.st.ledgers.ReplaceOrInsert(ledgerItem{key: key, ledger: ledger.Clone()})
	return nil
}

func (m *Store) SaveDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error {
	defer m.lock(ctx)()
	key := ledgerKey(ledger.Asset, ledger.Delegator)
	if !m.st.ledgers.Has(ledgerItem{key: key}) {
		return notFound(key, "delegator ledger not found")
	}
	m.st.ledgers.ReplaceOrInsert(ledgerItem{key: key, ledger: ledger.Clone()})
	return nil
}

func (m *Store) DeleteDelegatorLedger(ctx context.Context, asset types.Asset, delegator types.Delegator) error {
	defer m.lock(ctx)()
	key := ledgerKey(asset, delegator)
	if _, ok := m.st.ledgers.Delete(ledgerItem{key: key}); !ok {
		return notFound(key, "delegator ledger not found")
	}
	return nil
}
