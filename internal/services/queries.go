package services

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type QueryPublic struct {
	ID           uint64               `json:"id"`
	Asset        string               `json:"asset"`
	Delegator    string               `json:"delegator"`
	Operation    string               `json:"operation"`
	Destination  string               `json:"destination"`
	Status       string               `json:"status"`
	Request      types.StakingRequest `json:"request"`
	CreatedAt    uint64               `json:"created_at"`
	TimeoutAt    uint64               `json:"timeout_at"`
	ResolvedAt   uint64               `json:"resolved_at,omitempty"`
	Failure      string               `json:"failure,omitempty"`
	LateResponse *types.QueryResponse `json:"late_response,omitempty"`
	RetryOf      uint64               `json:"retry_of,omitempty"`
	RetriedBy    uint64               `json:"retried_by,omitempty"`
}

func fromPendingQuery(q types.PendingQuery) QueryPublic {
	return QueryPublic{
		ID:           q.ID,
		Asset:        q.Asset.String(),
		Delegator:    q.Delegator.Key(),
		Operation:    q.Kind.String(),
		Destination:  q.Destination,
		Status:       q.Status.ToString(),
		Request:      q.Mutation.Request,
		CreatedAt:    q.CreatedAt,
		TimeoutAt:    q.TimeoutAt,
		ResolvedAt:   q.ResolvedAt,
		Failure:      q.Failure,
		LateResponse: q.LateResponse,
		RetryOf:      q.RetryOf,
		RetriedBy:    q.RetriedBy,
	}
}

// NotifyQueryResponse is the inbound entry point for remote responses. It is
// idempotent: unknown and already resolved ids are ignored.
func (s *Services) NotifyQueryResponse(ctx context.Context, resp types.QueryResponse) *types.Error {
	return s.atomic(ctx, "notify_query_response", func(ctx context.Context) error {
		return s.engine.OnResponse(ctx, resp)
	})
}

func (s *Services) FailQuery(ctx context.Context, id uint64, reason string) *types.Error {
	return s.atomic(ctx, "manual_fail", func(ctx context.Context) error {
		return s.engine.ManualFail(ctx, id, reason)
	})
}

// RetryQuery re-sends the operation of a failed or timed out query under the
// configured retry policy.
func (s *Services) RetryQuery(ctx context.Context, id uint64) (*QueryPublic, *types.Error) {
	if s.cfg.Runtime.RetryPolicy != config.RetryReplay {
		return nil, toError(ctx, "retry_query",
			errorsmod.Wrapf(types.ErrRetryDisabled, "policy %s", s.cfg.Runtime.RetryPolicy))
	}
	var retry *types.PendingQuery
	if err := s.atomic(ctx, "retry_query", func(ctx context.Context) error {
		original, err := s.engine.Retryable(ctx, id)
		if err != nil {
			return err
		}
		if retry, err = s.agents.Replay(ctx, *original); err != nil {
			return err
		}
		return s.engine.LinkRetry(ctx, *original, retry.ID)
	}); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Uint64("queryId", id).Uint64("retryQueryId", retry.ID).Msg("query retried")
	pub := fromPendingQuery(*retry)
	return &pub, nil
}

func (s *Services) Query(ctx context.Context, id uint64) (*QueryPublic, *types.Error) {
	q, err := s.engine.Get(ctx, id)
	if err != nil {
		return nil, toError(ctx, "query", err)
	}
	pub := fromPendingQuery(*q)
	return &pub, nil
}

func (s *Services) Queries(
	ctx context.Context, status types.QueryStatus, paginationToken string,
) ([]QueryPublic, string, *types.Error) {
	res, err := s.engine.List(ctx, status, paginationToken)
	if err != nil {
		return nil, "", toError(ctx, "queries", err)
	}
	out := make([]QueryPublic, 0, len(res.Data))
	for _, q := range res.Data {
		out = append(out, fromPendingQuery(q))
	}
	return out, res.PaginationToken, nil
}
