package db

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

const (
	UnlockIdSequence = "unlock_id"
	QueryIdSequence  = "query_id"
)

type DBClient interface {
	Ping(ctx context.Context) error
	// RunAtomic runs fn as one all-or-nothing transition. Every call made with
	// the ctx passed to fn is part of the transition. Nested calls join the
	// outer transition.
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
	// NextSequence returns the next value of a named counter, starting at 1.
	// Values are never reused.
	NextSequence(ctx context.Context, name string) (uint64, error)

	VaultStore
	BalanceStore
	LedgerStore
	QueryStore

	FindChainInfo(ctx context.Context) (*types.ChainInfo, error)
	SaveChainInfo(ctx context.Context, info types.ChainInfo) error

	SaveUnprocessableMessage(ctx context.Context, messageBody, receipt, queueName string) error
	FindUnprocessableMessages(ctx context.Context) ([]model.UnprocessableMessageDocument, error)
	DeleteUnprocessableMessage(ctx context.Context, receipt interface{}) error
}

// VaultStore keeps pools and the unlocking queue, keyed by asset and record id.
type VaultStore interface {
	FindPool(ctx context.Context, asset types.Asset) (*types.Pool, error)
	FindPools(ctx context.Context) ([]types.Pool, error)
	// InsertPool fails with DuplicateKeyError if the pool exists.
	InsertPool(ctx context.Context, pool types.Pool) error
	SavePool(ctx context.Context, pool types.Pool) error

	InsertUnlockingRecord(ctx context.Context, record types.UnlockingRecord) error
	FindUnlockingRecord(ctx context.Context, id uint64) (*types.UnlockingRecord, error)
	FindUnlockingRecordsByOwner(ctx context.Context, asset types.Asset, owner string) ([]types.UnlockingRecord, error)
	CountUnlockingRecordsByOwner(ctx context.Context, asset types.Asset, owner string) (int64, error)
	// FindMaturedUnlockingRecords returns records with unlock_at <= now, oldest
	// record id first, at most limit of them.
	FindMaturedUnlockingRecords(ctx context.Context, asset types.Asset, now types.TimeUnit, limit int64) ([]types.UnlockingRecord, error)
	// DeleteUnlockingRecord fails with NotFoundError if the record is gone.
	DeleteUnlockingRecord(ctx context.Context, id uint64) error
}

// BalanceStore is the storage behind the multi-asset ledger.
type BalanceStore interface {
	// FindBalance returns zero for unknown accounts.
	FindBalance(ctx context.Context, asset types.Asset, account string) (sdkmath.Int, error)
	SaveBalance(ctx context.Context, asset types.Asset, account string, amount sdkmath.Int) error
	FindTotalIssuance(ctx context.Context, asset types.Asset) (sdkmath.Int, error)
	SaveTotalIssuance(ctx context.Context, asset types.Asset, amount sdkmath.Int) error
}

// LedgerStore keeps delegator ledgers keyed by (asset, delegator).
type LedgerStore interface {
	FindDelegatorLedger(ctx context.Context, asset types.Asset, delegator types.Delegator) (*types.DelegatorLedger, error)
	FindDelegatorLedgers(ctx context.Context, asset types.Asset) ([]types.DelegatorLedger, error)
	InsertDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error
	SaveDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error
	DeleteDelegatorLedger(ctx context.Context, asset types.Asset, delegator types.Delegator) error
}

// QueryStore keeps pending and resolved queries keyed by query id.
type QueryStore interface {
	InsertQuery(ctx context.Context, query types.PendingQuery) error
	FindQuery(ctx context.Context, id uint64) (*types.PendingQuery, error)
	FindQueries(ctx context.Context, status types.QueryStatus, paginationToken string) (*DbResultMap[types.PendingQuery], error)
	// FindExpiredQueries returns pending queries with timeout_at <= height,
	// earliest timeout first.
	FindExpiredQueries(ctx context.Context, height uint64, limit int64) ([]types.PendingQuery, error)
	CountPendingQueriesByDelegator(ctx context.Context, asset types.Asset, delegator types.Delegator) (int64, error)
	CountPendingQueries(ctx context.Context, asset types.Asset) (int64, error)
	// ResolveQuery moves a query out of one of the eligible states. It fails
	// with NotFoundError if the query is absent or in another state.
	ResolveQuery(ctx context.Context, id uint64, eligiblePreviousStates []types.QueryStatus, resolution types.QueryResolution) error
	SaveLateResponse(ctx context.Context, id uint64, response types.QueryResponse) error
	SetRetriedBy(ctx context.Context, id, retriedBy uint64) error
}
