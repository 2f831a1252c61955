package memdb

import (
	"context"
	"fmt"
	"slices"

	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/model"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

func (m *Store) InsertQuery(ctx context.Context, query types.PendingQuery) error {
	defer m.lock(ctx)()
	if m.st.queries.Has(query) {
		return duplicate(fmt.Sprint(query.ID), "query already exists")
	}
	m.st.queries.ReplaceOrInsert(query)
	return nil
}

func (m *Store) FindQuery(ctx context.Context, id uint64) (*types.PendingQuery, error) {
	defer m.lock(ctx)()
	q, ok := m.st.queries.Get(types.PendingQuery{ID: id})
	if !ok {
		return nil, notFound(fmt.Sprint(id), "query not found")
	}
	return &q, nil
}

func (m *Store) FindQueries(
	ctx context.Context, status types.QueryStatus, paginationToken string,
) (*db.DbResultMap[types.PendingQuery], error) {
	defer m.lock(ctx)()
	var before uint64
	if paginationToken != "" {
		decoded, err := model.DecodePaginationToken[model.QueryPagination](paginationToken)
		if err != nil {
			return nil, &db.InvalidPaginationTokenError{
				Message: "Invalid pagination token",
			}
		}
		before = decoded.LastID
	}

	var out []types.PendingQuery
	m.st.queries.Descend(func(q types.PendingQuery) bool {
		if before != 0 && q.ID >= before {
			return true
		}
		if status == "" || q.Status == status {
			out = append(out, q)
		}
		return int64(len(out)) < m.cfg.MaxPaginationLimit
	})
	return db.ToResultMapWithPaginationToken(m.cfg, out, func(q types.PendingQuery) (string, error) {
		return model.BuildQueryPaginationToken(q.ID)
	})
}

func (m *Store) FindExpiredQueries(ctx context.Context, height uint64, limit int64) ([]types.PendingQuery, error) {
	defer m.lock(ctx)()
	var out []types.PendingQuery
	m.st.queries.Ascend(func(q types.PendingQuery) bool {
		if q.Status == types.QueryPending && q.TimeoutAt <= height {
			out = append(out, q)
		}
		return true
	})
	sortQueriesByTimeout(out)
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Store) CountPendingQueriesByDelegator(
	ctx context.Context, asset types.Asset, delegator types.Delegator,
) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	m.st.queries.Ascend(func(q types.PendingQuery) bool {
		if q.Status == types.QueryPending && q.Asset == asset && q.Delegator == delegator {
			n++
		}
		return true
	})
	return n, nil
}

func (m *Store) CountPendingQueries(ctx context.Context, asset types.Asset) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	m.st.queries.Ascend(func(q types.PendingQuery) bool {
		if q.Status == types.QueryPending && (asset == "" || q.Asset == asset) {
			n++
		}
		return true
	})
	return n, nil
}

func (m *Store) ResolveQuery(
	ctx context.Context, id uint64, eligiblePreviousStates []types.QueryStatus, resolution types.QueryResolution,
) error {
	defer m.lock(ctx)()
	q, ok := m.st.queries.Get(types.PendingQuery{ID: id})
	if !ok || !slices.Contains(eligiblePreviousStates, q.Status) {
		return notFound(fmt.Sprint(id), "query not found or not in an eligible state")
	}
	q.Status = resolution.Status
	q.ResolvedAt = resolution.ResolvedAt
	if resolution.Failure != "" {
		q.Failure = resolution.Failure
	}
	if resolution.LateResponse != nil {
		q.LateResponse = resolution.LateResponse
	}
	m.st.queries.ReplaceOrInsert(q)
	return nil
}

func (m *Store) SaveLateResponse(ctx context.Context, id uint64, response types.QueryResponse) error {
	return m.updateQuery(ctx, id, func(q *types.PendingQuery) {
		q.LateResponse = &response
	})
}

func (m *Store) SetRetriedBy(ctx context.Context, id, retriedBy uint64) error {
	return m.updateQuery(ctx, id, func(q *types.PendingQuery) {
		q.RetriedBy = retriedBy
	})
}

func (m *Store) updateQuery(ctx context.Context, id uint64, update func(q *types.PendingQuery)) error {
	defer m.lock(ctx)()
	q, ok := m.st.queries.Get(types.PendingQuery{ID: id})
	if !ok {
		return notFound(fmt.Sprint(id), "query not found")
	}
	update(&q)
	m.st.queries.ReplaceOrInsert(q)
	return nil
}
