package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vtokenlabs/liquid-staking-service/internal/agent"
	"github.com/vtokenlabs/liquid-staking-service/internal/clock"
	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db"
	"github.com/vtokenlabs/liquid-staking-service/internal/delegator"
	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/ledger"
	"github.com/vtokenlabs/liquid-staking-service/internal/observability/tracing"
	"github.com/vtokenlabs/liquid-staking-service/internal/query"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
	"github.com/vtokenlabs/liquid-staking-service/internal/vault"
	"github.com/vtokenlabs/liquid-staking-service/internal/xcm"
)

// Service layer contains the business logic and is used to interact with
// the database and other external clients (if any). Every state change runs
// as one atomic transition, one transition at a time.
type Services struct {
	DbClient db.DBClient
	cfg      *config.Config

	// serializes transitions
	mu         sync.Mutex
	ledger     *ledger.Ledger
	clock      *clock.Clock
	vault      *vault.Vault
	engine     *query.Engine
	delegators *delegator.Store
	agents     *agent.Registry
	publisher  events.Publisher
}

func New(
	ctx context.Context, cfg *config.Config, dbClient db.DBClient, sender xcm.Sender, publisher events.Publisher,
) (*Services, error) {
	l := ledger.New(dbClient)
	c := clock.New(dbClient)
	v := vault.New(dbClient, l, c, &cfg.Vault)
	dels := delegator.New(dbClient, l, c, v, &cfg.Runtime)
	engine := query.New(dbClient, l, c, dels, cfg.Runtime.DefaultQueryTimeout)
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	s := &Services{
		DbClient:   dbClient,
		cfg:        cfg,
		ledger:     l,
		clock:      c,
		vault:      v,
		engine:     engine,
		delegators: dels,
		agents:     agent.NewRegistry(&cfg.Staking, l, c, engine, dels, sender),
		publisher:  publisher,
	}
	if err := s.atomic(ctx, "ensure_pools", v.EnsurePools); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("error while registering vault pools")
		return nil, err
	}
	return s, nil
}

// DoHealthCheck checks the health of the services by ping the database.
func (s *Services) DoHealthCheck(ctx context.Context) error {
	return s.DbClient.Ping(ctx)
}

func (s *Services) SaveUnprocessableMessages(ctx context.Context, messageBody, receipt, queueName string) *types.Error {
	err := s.DbClient.SaveUnprocessableMessage(ctx, messageBody, receipt, queueName)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("error while saving unprocessable message")
		return types.NewErrorWithMsg(http.StatusInternalServerError, types.InternalServiceError, "error while saving unprocessable message")
	}
	return nil
}

// atomic runs fn as one transition. Events emitted inside fn are published
// once the transition has committed. A storage level retry of fn starts with
// an empty event list.
func (s *Services) atomic(ctx context.Context, name string, fn func(ctx context.Context) error) *types.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, rec := events.WithRecorder(ctx)
	_, err := tracing.WrapWithSpan(ctx, name, func() (struct{}, error) {
		return struct{}{}, s.DbClient.RunAtomic(ctx, func(ctx context.Context) error {
			rec.Reset()
			return fn(ctx)
		})
	})
	if err != nil {
		return toError(ctx, name, err)
	}

	if evs := rec.Events(); len(evs) > 0 {
		if err := s.publisher.Publish(ctx, evs); err != nil {
			// the transition is committed, the events can only be reported
			log.Ctx(ctx).Error().Err(err).Str("transition", name).Int("events", len(evs)).
				Msg("failed to publish committed events")
		}
	}
	return nil
}
