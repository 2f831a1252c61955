// Package memdb is an in-process DBClient backed by btrees. It serves the
// --in-memory mode and the unit tests of the packages above db.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/google/btree"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

const defaultTreeDegree = 2

type balanceItem struct {
	asset   types.Asset
	account string
	amount  sdkmath.Int
}

func (b balanceItem) Less(o balanceItem) bool {
	if b.asset != o.asset {
		return b.asset < o.asset
	}
	return b.account < o.account
}

type ledgerItem struct {
	key    string
	ledger types.DelegatorLedger
}

type state struct {
	pools     *btree.BTreeG[types.Pool]
	records   *btree.BTreeG[types.UnlockingRecord]
	balances  *btree.BTreeG[balanceItem]
	issuance  map[types.Asset]sdkmath.Int
	ledgers   *btree.BTreeG[ledgerItem]
	queries   *btree.BTreeG[types.PendingQuery]
	counters  map[string]uint64
	chainInfo types.ChainInfo
}

func newState() *state {
	return &state{
		pools: btree.NewG(defaultTreeDegree, func(a, b types.Pool) bool {
			return a.Asset < b.Asset
		}),
		records: btree.NewG(defaultTreeDegree, func(a, b types.UnlockingRecord) bool {
			return a.ID < b.ID
		}),
		balances: btree.NewG(defaultTreeDegree, balanceItem.Less),
		issuance: map[types.Asset]sdkmath.Int{},
		ledgers: btree.NewG(defaultTreeDegree, func(a, b ledgerItem) bool {
			return a.key < b.key
		}),
		queries: btree.NewG(defaultTreeDegree, func(a, b types.PendingQuery) bool {
			return a.ID < b.ID
		}),
		counters: map[string]uint64{},
	}
}

// snapshot is cheap: btree clones share nodes until written.
func (s *state) snapshot() *state {
	c := &state{
		pools:     s.pools.Clone(),
		records:   s.records.Clone(),
		balances:  s.balances.Clone(),
		issuance:  make(map[types.Asset]sdkmath.Int, len(s.issuance)),
		ledgers:   s.ledgers.Clone(),
		queries:   s.queries.Clone(),
		counters:  make(map[string]uint64, len(s.counters)),
		chainInfo: s.chainInfo,
	}
	for k, v := range s.issuance {
		c.issuance[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	return c
}

type atomicKey struct{}

type Store struct {
	mu  sync.Mutex
	cfg config.DbConfig
	st  *state

	unprocessable []model.UnprocessableMessageDocument
}

var _ db.DBClient = (*Store)(nil)

func New(cfg config.DbConfig) *Store {
	return &Store{cfg: cfg, st: newState()}
}

func (m *Store) Ping(ctx context.Context) error {
	return nil
}

// RunAtomic holds the store lock for the whole of fn and restores the
// previous state if fn fails or panics. The panic is passed on.
func (m *Store) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.inAtomic(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.st.snapshot()
	committed := false
	defer func() {
		if !committed {
			m.st = saved
		}
	}()
	if err := fn(context.WithValue(ctx, atomicKey{}, m)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (m *Store) inAtomic(ctx context.Context) bool {
	owner, ok := ctx.Value(atomicKey{}).(*Store)
	return ok && owner == m
}

// lock is a no-op inside RunAtomic, the lock is already held there.
func (m *Store) lock(ctx context.Context) func() {
	if m.inAtomic(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Store) NextSequence(ctx context.Context, name string) (uint64, error) {
	defer m.lock(ctx)()
	m.st.counters[name]++
	return m.st.counters[name], nil
}

func (m *Store) FindChainInfo(ctx context.Context) (*types.ChainInfo, error) {
	defer m.lock(ctx)()
	info := m.st.chainInfo
	return &info, nil
}

func (m *Store) SaveChainInfo(ctx context.Context, info types.ChainInfo) error {
	defer m.lock(ctx)()
	m.st.chainInfo = info
	return nil
}

func (m *Store) SaveUnprocessableMessage(ctx context.Context, messageBody, receipt, queueName string) error {
	defer m.lock(ctx)()
	m.unprocessable = append(m.unprocessable, *model.NewUnprocessableMessageDocument(messageBody, receipt, queueName))
	return nil
}

func (m *Store) FindUnprocessableMessages(ctx context.Context) ([]model.UnprocessableMessageDocument, error) {
	defer m.lock(ctx)()
	return append([]model.UnprocessableMessageDocument{}, m.unprocessable...), nil
}

func (m *Store) DeleteUnprocessableMessage(ctx context.Context, receipt interface{}) error {
	defer m.lock(ctx)()
	r, _ := receipt.(string)
	for i, msg := range m.unprocessable {
		if msg.Receipt == r {
			m.unprocessable = append(m.unprocessable[:i], m.unprocessable[i+1:]...)
			return nil
		}
	}
	return nil
}

func notFound(key, message string) error {
	return &db.NotFoundError{Key: key, Message: message}
}

func duplicate(key, message string) error {
	return &db.DuplicateKeyError{Key: key, Message: message}
}

func ledgerKey(asset types.Asset, d types.Delegator) string {
	return strings.Join([]string{asset.String(), d.Key()}, "|")
}

func sortQueriesByTimeout(qs []types.PendingQuery) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].TimeoutAt != qs[j].TimeoutAt {
			return qs[i].TimeoutAt < qs[j].TimeoutAt
		}
		return qs[i].ID < qs[j].ID
	})
}
