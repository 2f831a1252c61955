package api

import (
	"github.com/go-chi/chi"

	"github.com/vtokenlabs/liquid-staking-service/internal/api/middlewares"
)

func (a *Server) SetupRoutes(r chi.Router) {
	handlers := a.handlers
	r.Get("/healthcheck", registerHandler(handlers.HealthCheck))

	r.Get("/v1/pools", registerHandler(handlers.GetPools))
	r.Get("/v1/pools/{asset}", registerHandler(handlers.GetPool))
	r.Get("/v1/pools/{asset}/unlocks", registerHandler(handlers.GetUnlockingRecords))
	r.Get("/v1/balances", registerHandler(handlers.GetBalance))
	r.Post("/v1/mint", registerHandler(handlers.Mint))
	r.Post("/v1/redeem", registerHandler(handlers.Redeem))
	r.Post("/v1/rebond", registerHandler(handlers.Rebond))

	// inbound responses come from the relayer, which holds the admin token too
	r.Group(func(r chi.Router) {
		r.Use(middlewares.AdminTokenMiddleware(a.cfg.Server.AdminToken))

		r.Post("/v1/admin/pools/{asset}/reconcile", registerHandler(handlers.ReconcilePool))
		r.Post("/v1/admin/pools/{asset}/{setting}", registerHandler(handlers.UpdatePoolSetting))

		r.Post("/v1/delegators", registerHandler(handlers.InitializeDelegator))
		r.Get("/v1/delegators/{asset}", registerHandler(handlers.GetDelegators))
		r.Get("/v1/delegators/{asset}/{delegator}", registerHandler(handlers.GetDelegator))
		r.Delete("/v1/delegators/{asset}/{delegator}", registerHandler(handlers.RemoveDelegator))

		r.Post("/v1/staking/{operation}", registerHandler(handlers.Stake))
		r.Post("/v1/xcm/response", registerHandler(handlers.NotifyXcmResponse))

		r.Get("/v1/queries", registerHandler(handlers.GetQueries))
		r.Get("/v1/queries/{id}", registerHandler(handlers.GetQuery))
		r.Post("/v1/queries/{id}/fail", registerHandler(handlers.FailQuery))
		r.Post("/v1/queries/{id}/retry", registerHandler(handlers.RetryQuery))
	})
}
