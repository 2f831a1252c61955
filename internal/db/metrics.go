package db

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/metrics"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

// DbWithMetrics records the latency of every DBClient call.
type DbWithMetrics struct {
	db DBClient
}

var _ DBClient = (*DbWithMetrics)(nil)

func NewDbWithMetrics(db DBClient) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.run("RunAtomic", func() error {
		return d.db.RunAtomic(ctx, fn)
	})
}

func (d *DbWithMetrics) NextSequence(ctx context.Context, name string) (result uint64, err error) {
	//nolint:errcheck
	d.run("NextSequence", func() error {
		result, err = d.db.NextSequence(ctx, name)
		return err
	})
	return
}

func (d *DbWithMetrics) FindChainInfo(ctx context.Context) (result *types.ChainInfo, err error) {
	//nolint:errcheck
	d.run("FindChainInfo", func() error {
		result, err = d.db.FindChainInfo(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveChainInfo(ctx context.Context, info types.ChainInfo) error {
	return d.run("SaveChainInfo", func() error {
		return d.db.SaveChainInfo(ctx, info)
	})
}

func (d *DbWithMetrics) SaveUnprocessableMessage(ctx context.Context, messageBody, receipt, queueName string) error {
	return d.run("SaveUnprocessableMessage", func() error {
		return d.db.SaveUnprocessableMessage(ctx, messageBody, receipt, queueName)
	})
}

func (d *DbWithMetrics) FindUnprocessableMessages(ctx context.Context) (result []model.UnprocessableMessageDocument, err error) {
	//nolint:errcheck
	d.run("FindUnprocessableMessages", func() error {
		result, err = d.db.FindUnprocessableMessages(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) DeleteUnprocessableMessage(ctx context.Context, receipt interface{}) error {
	return d.run("DeleteUnprocessableMessage", func() error {
		return d.db.DeleteUnprocessableMessage(ctx, receipt)
	})
}

func (d *DbWithMetrics) FindPool(ctx context.Context, asset types.Asset) (result *types.Pool, err error) {
	//nolint:errcheck
	d.run("FindPool", func() error {
		result, err = d.db.FindPool(ctx, asset)
		return err
	})
	return
}

func (d *DbWithMetrics) FindPools(ctx context.Context) (result []types.Pool, err error) {
	//nolint:errcheck
	d.run("FindPools", func() error {
		result, err = d.db.FindPools(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) InsertPool(ctx context.Context, pool types.Pool) error {
	return d.run("InsertPool", func() error {
		return d.db.InsertPool(ctx, pool)
	})
}

func (d *DbWithMetrics) SavePool(ctx context.Context, pool types.Pool) error {
	return d.run("SavePool", func() error {
		return d.db.SavePool(ctx, pool)
	})
}

func (d *DbWithMetrics) InsertUnlockingRecord(ctx context.Context, record types.UnlockingRecord) error {
	return d.run("InsertUnlockingRecord", func() error {
		return d.db.InsertUnlockingRecord(ctx, record)
	})
}

func (d *DbWithMetrics) FindUnlockingRecord(ctx context.Context, id uint64) (result *types.UnlockingRecord, err error) {
	//nolint:errcheck
	d.run("FindUnlockingRecord", func() error {
		result, err = d.db.FindUnlockingRecord(ctx, id)
		return err
	})
	return
}

func (d *DbWithMetrics) FindUnlockingRecordsByOwner(ctx context.Context, asset types.Asset, owner string) (result []types.UnlockingRecord, err error) {
	//nolint:errcheck
	d.run("FindUnlockingRecordsByOwner", func() error {
		result, err = d.db.FindUnlockingRecordsByOwner(ctx, asset, owner)
		return err
	})
	return
}

func (d *DbWithMetrics) CountUnlockingRecordsByOwner(ctx context.Context, asset types.Asset, owner string) (result int64, err error) {
	//nolint:errcheck
	d.run("CountUnlockingRecordsByOwner", func() error {
		result, err = d.db.CountUnlockingRecordsByOwner(ctx, asset, owner)
		return err
	})
	return
}

func (d *DbWithMetrics) FindMaturedUnlockingRecords(ctx context.Context, asset types.Asset, now types.TimeUnit, limit int64) (result []types.UnlockingRecord, err error) {
	//nolint:errcheck
	d.run("FindMaturedUnlockingRecords", func() error {
		result, err = d.db.FindMaturedUnlockingRecords(ctx, asset, now, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) DeleteUnlockingRecord(ctx context.Context, id uint64) error {
	return d.run("DeleteUnlockingRecord", func() error {
		return d.db.DeleteUnlockingRecord(ctx, id)
	})
}

func (d *DbWithMetrics) FindBalance(ctx context.Context, asset types.Asset, account string) (result sdkmath.Int, err error) {
	//nolint:errcheck
	d.run("FindBalance", func() error {
		result, err = d.db.FindBalance(ctx, asset, account)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveBalance(ctx context.Context, asset types.Asset, account string, amount sdkmath.Int) error {
	return d.run("SaveBalance", func() error {
		return d.db.SaveBalance(ctx, asset, account, amount)
	})
}

func (d *DbWithMetrics) FindTotalIssuance(ctx context.Context, asset types.Asset) (result sdkmath.Int, err error) {
	//nolint:errcheck
	d.run("FindTotalIssuance", func() error {
		result, err = d.db.FindTotalIssuance(ctx, asset)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveTotalIssuance(ctx context.Context, asset types.Asset, amount sdkmath.Int) error {
	return d.run("SaveTotalIssuance", func() error {
		return d.db.SaveTotalIssuance(ctx, asset, amount)
	})
}

func (d *DbWithMetrics) FindDelegatorLedger(ctx context.Context, asset types.Asset, delegator types.Delegator) (result *types.DelegatorLedger, err error) {
	//nolint:errcheck
	d.run("FindDelegatorLedger", func() error {
		result, err = d.db.FindDelegatorLedger(ctx, asset, delegator)
		return err
	})
	return
}

func (d *DbWithMetrics) FindDelegatorLedgers(ctx context.Context, asset types.Asset) (result []types.DelegatorLedger, err error) {
	//nolint:errcheck
	d.run("FindDelegatorLedgers", func() error {
		result, err = d.db.FindDelegatorLedgers(ctx, asset)
		return err
	})
	return
}

func (d *DbWithMetrics) InsertDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error {
	return d.run("InsertDelegatorLedger", func() error {
		return d.db.InsertDelegatorLedger(ctx, ledger)
	})
}

func (d *DbWithMetrics) SaveDelegatorLedger(ctx context.Context, ledger types.DelegatorLedger) error {
	return d.run("SaveDelegatorLedger", func() error {
		return d.db.SaveDelegatorLedger(ctx, ledger)
	})
}

func (d *DbWithMetrics) DeleteDelegatorLedger(ctx context.Context, asset types.Asset, delegator types.Delegator) error {
	return d.run("DeleteDelegatorLedger", func() error {
		return d.db.DeleteDelegatorLedger(ctx, asset, delegator)
	})
}

func (d *DbWithMetrics) InsertQuery(ctx context.Context, query types.PendingQuery) error {
	return d.run("InsertQuery", func() error {
		return d.db.InsertQuery(ctx, query)
	})
}

func (d *DbWithMetrics) FindQuery(ctx context.Context, id uint64) (result *types.PendingQuery, err error) {
	//nolint:errcheck
	d.run("FindQuery", func() error {
		result, err = d.db.FindQuery(ctx, id)
		return err
	})
	return
}

func (d *DbWithMetrics) FindQueries(ctx context.Context, status types.QueryStatus, paginationToken string) (result *DbResultMap[types.PendingQuery], err error) {
	//nolint:errcheck
	d.run("FindQueries", func() error {
		result, err = d.db.FindQueries(ctx, status, paginationToken)
		return err
	})
	return
}

func (d *DbWithMetrics) FindExpiredQueries(ctx context.Context, height uint64, limit int64) (result []types.PendingQuery, err error) {
	//nolint:errcheck
	d.run("FindExpiredQueries", func() error {
		result, err = d.db.FindExpiredQueries(ctx, height, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) CountPendingQueriesByDelegator(ctx context.Context, asset types.Asset, delegator types.Delegator) (result int64, err error) {
	//nolint:errcheck
	d.run("CountPendingQueriesByDelegator", func() error {
		result, err = d.db.CountPendingQueriesByDelegator(ctx, asset, delegator)
		return err
	})
	return
}

func (d *DbWithMetrics) CountPendingQueries(ctx context.Context, asset types.Asset) (result int64, err error) {
	//nolint:errcheck
	d.run("CountPendingQueries", func() error {
		result, err = d.db.CountPendingQueries(ctx, asset)
		return err
	})
	return
}

func (d *DbWithMetrics) ResolveQuery(ctx context.Context, id uint64, eligiblePreviousStates []types.QueryStatus, resolution types.QueryResolution) error {
	return d.run("ResolveQuery", func() error {
		return d.db.ResolveQuery(ctx, id, eligiblePreviousStates, resolution)
	})
}

func (d *DbWithMetrics) SaveLateResponse(ctx context.Context, id uint64, response types.QueryResponse) error {
	return d.run("SaveLateResponse", func() error {
		return d.db.SaveLateResponse(ctx, id, response)
	})
}

func (d *DbWithMetrics) SetRetriedBy(ctx context.Context, id, retriedBy uint64) error {
	return d.run("SetRetriedBy", func() error {
		return d.db.SetRetriedBy(ctx, id, retriedBy)
	})
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
