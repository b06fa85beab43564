package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmolenaar/fundtracker/internal/api/handlers"
	custommiddleware "github.com/jmolenaar/fundtracker/internal/api/middleware"
	"github.com/jmolenaar/fundtracker/internal/config"
	"github.com/jmolenaar/fundtracker/internal/service"
)

// Services bundles everything the router needs. Flex may be nil when no
// fernet key is configured; the flex routes are then not mounted.
type Services struct {
	Portfolio   *service.PortfolioService
	Valuation   *service.ValuationService
	Fund        *service.FundService
	Transaction *service.TransactionService
	Dividend    *service.DividendService
	Flex        *service.FlexService
}

// NewRouter creates and configures the HTTP router.
func NewRouter(db *sql.DB, svcs Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.NewCORS(cfg.CORS.AllowedOrigins).Handler)
	r.Use(custommiddleware.APIKey(cfg.Auth.APIKey))

	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(db)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		portfolioHandler := handlers.NewPortfolioHandler(svcs.Portfolio, svcs.Valuation)
		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", portfolioHandler.List)
			r.Post("/", portfolioHandler.Create)
			r.Get("/summary", portfolioHandler.Summaries)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUID)
				r.Get("/", portfolioHandler.Get)
				r.Put("/", portfolioHandler.Update)
				r.Delete("/", portfolioHandler.Delete)
				r.Post("/archive", portfolioHandler.Archive)
				r.Get("/summary", portfolioHandler.Summary)
				r.Get("/history", portfolioHandler.History)
				r.Get("/holding-history", portfolioHandler.HoldingHistory)
				r.Get("/holdings", portfolioHandler.Holdings)
				r.Post("/rebuild", portfolioHandler.Rebuild)
			})
		})

		r.Route("/holdings", func(r chi.Router) {
			r.Post("/", portfolioHandler.AddHolding)
			r.With(custommiddleware.ValidateUUID).Delete("/{uuid}", portfolioHandler.RemoveHolding)
		})

		dividendHandler := handlers.NewDividendHandler(svcs.Dividend)
		r.Route("/funds", func(r chi.Router) {
			fundHandler := handlers.NewFundHandler(svcs.Fund)
			r.Get("/", fundHandler.List)
			r.Post("/", fundHandler.Create)
			r.Post("/sync", fundHandler.SyncAll)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUID)
				r.Get("/", fundHandler.Get)
				r.Put("/", fundHandler.Update)
				r.Delete("/", fundHandler.Delete)
				r.Get("/usage", fundHandler.Usage)
				r.Get("/prices", fundHandler.Prices)
				r.Post("/prices", fundHandler.SetPrice)
				r.Post("/sync", fundHandler.Sync)
				r.Post("/backfill", fundHandler.Backfill)
				r.Get("/dividends", dividendHandler.ListByFund)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(svcs.Transaction)
			r.Get("/", transactionHandler.List)
			r.Post("/", transactionHandler.Create)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUID)
				r.Get("/", transactionHandler.Get)
				r.Put("/", transactionHandler.Update)
				r.Delete("/", transactionHandler.Delete)
			})
		})

		r.Route("/dividends", func(r chi.Router) {
			r.Post("/", dividendHandler.Create)
			r.With(custommiddleware.ValidateUUID).Get("/portfolio/{uuid}", dividendHandler.ListByPortfolio)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUID)
				r.Put("/", dividendHandler.Update)
				r.Delete("/", dividendHandler.Delete)
			})
		})

		if svcs.Flex != nil {
			r.Route("/flex", func(r chi.Router) {
				flexHandler := handlers.NewFlexHandler(svcs.Flex)
				r.Get("/config", flexHandler.GetConfig)
				r.Post("/config", flexHandler.SaveConfig)
				r.Delete("/config", flexHandler.DeleteConfig)
				r.Post("/import", flexHandler.Import)
				r.Get("/inbox", flexHandler.Inbox)

				r.Route("/inbox/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUID)
					r.Get("/eligible", flexHandler.Eligible)
					r.Post("/allocate", flexHandler.Allocate)
					r.Post("/ignore", flexHandler.Ignore)
					r.Get("/allocations", flexHandler.Allocations)
				})
			})
		}
	})

	return r
}
