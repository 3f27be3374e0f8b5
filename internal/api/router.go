package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/market-backend/internal/api/handlers"
	"github.com/baharkarakas/market-backend/internal/config"
	"github.com/baharkarakas/market-backend/internal/metrics"
	"github.com/baharkarakas/market-backend/internal/middleware"
	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth        *services.AuthService
	Profile     *services.ProfileService
	Roles       *services.RoleService
	Bots        *services.BotService
	Blocks      *services.BlockService
	Marketplace *services.MarketplaceService
	Exchange    *services.ExchangeService
	Support     *services.SupportService
	Files       *services.FileService
	Newsletter  *services.NewsletterService
}

func NewRouter(cfg *config.Config, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-User-Id", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Identify(svc.Auth, cfg.IsDev()))

	authed := middleware.RequireAuth
	admin := middleware.RequireRole(svc.Roles, models.RoleOwner, models.RoleAdmin)
	staff := middleware.RequireRole(svc.Roles, models.StaffRoles...)

	auth := handlers.NewAuthHandler(svc.Auth)
	profile := handlers.NewProfileHandler(svc.Profile)
	roles := handlers.NewRoleHandler(svc.Roles)
	content := handlers.NewContentHandler(svc.Bots, svc.Blocks)
	market := handlers.NewMarketplaceHandler(svc.Marketplace)
	exchange := handlers.NewExchangeHandler(svc.Exchange)
	support := handlers.NewSupportHandler(svc.Support)
	files := handlers.NewFileHandler(svc.Files)
	news := handlers.NewNewsletterHandler(svc.Newsletter)

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())
	r.Get(services.UploadPrefix+"*", files.Serve)

	r.Route("/api", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/register", auth.Register)
		r.Route("/login", func(r chi.Router) {
			r.Post("/", auth.Login)
			r.Post("/refresh", auth.Refresh)
			r.Post("/2fa/verify-login", auth.VerifyLogin)
			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/change-password", auth.ChangePassword)
				r.Post("/2fa/generate", auth.GenerateTwoFactor)
				r.Post("/2fa/verify", auth.EnableTwoFactor)
				r.Post("/2fa/disable", auth.DisableTwoFactor)
				r.Get("/sessions", auth.Sessions)
				r.Delete("/sessions", auth.DeleteOtherSessions)
				r.Delete("/sessions/{id}", auth.DeleteSession)
			})
		})

		// ---------- profile ----------
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/profile", profile.Get)
			r.Put("/profile", profile.Update)
			r.Get("/balance", profile.Balance)
		})

		// ---------- roles & permissions ----------
		r.With(authed).Get("/roles", roles.List)
		r.With(authed).Get("/permissions", roles.Permissions)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/roles", roles.Create)
			r.Put("/roles", roles.Update)
			r.Delete("/roles", roles.Delete)
			r.Post("/roles/assign", roles.Assign)
			r.Delete("/roles/assign", roles.Unassign)
			r.Post("/permissions/assign", roles.Grant)
			r.Delete("/permissions/assign", roles.Revoke)
			r.Post("/permissions/overrides", roles.SetOverride)
			r.Delete("/permissions/overrides", roles.DeleteOverride)
		})

		// ---------- bots & blocks ----------
		r.Route("/bots", func(r chi.Router) {
			r.Use(authed)
			r.Get("/", content.ListBots)
			r.Post("/", content.CreateBot)
			r.Get("/{id}/nodes", content.Nodes)
			r.Post("/{id}/nodes", content.AddNode)
			r.Get("/{id}/connections", content.Connections)
			r.Post("/{id}/connections", content.Connect)
		})
		r.Route("/blocks", func(r chi.Router) {
			r.Get("/", content.ListBlocks)
			r.With(authed).Post("/", content.CreateBlock)
			r.With(authed).Put("/", content.UpdateBlock)
			r.With(authed).Delete("/{id}", content.DeleteBlock)
		})

		// ---------- marketplace ----------
		r.Route("/marketplace", func(r chi.Router) {
			r.Get("/", market.List)
			r.Get("/reviews", market.Reviews)
			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/", market.Create)
				r.Post("/purchase", market.Purchase)
				r.Get("/purchases", market.Purchases)
				r.Get("/earnings", market.Earnings)
				r.Post("/reviews", market.AddReview)
			})
			r.With(staff).Post("/{id}/moderate", market.Moderate)
		})

		// ---------- exchange ----------
		r.Route("/exchange", func(r chi.Router) {
			r.Get("/services", exchange.ListServices)
			r.Get("/orders", exchange.ListOrders)
			r.Get("/orders/{id}", exchange.GetOrder)
			r.Get("/proposals", exchange.ListProposals)
			r.Get("/reviews", exchange.Reviews)
			r.Get("/portfolio", exchange.Portfolio)
			r.Get("/skills", exchange.Skills)

			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/services", exchange.CreateService)

				r.Post("/orders", exchange.CreateOrder)
				r.Put("/orders", exchange.UpdateOrder)
				r.Delete("/orders", exchange.CancelOrder)

				r.Post("/proposals", exchange.SubmitProposal)
				r.Post("/proposals/accept", exchange.AcceptProposal)
				r.Post("/proposals/{id}/withdraw", exchange.WithdrawProposal)

				r.Get("/deals", exchange.ListDeals)
				r.Get("/deals/messages", exchange.DealMessages)
				r.Post("/deals/messages", exchange.PostDealMessage)
				r.Get("/deals/{id}", exchange.GetDeal)
				r.Post("/deals/{id}/complete", exchange.CompleteDeal)
				r.Post("/deals/{id}/cancel", exchange.CancelDeal)

				r.Post("/reviews", exchange.CreateReview)
				r.Post("/portfolio", exchange.AddPortfolioItem)
				r.Put("/skills", exchange.ReplaceSkills)
			})
		})

		// ---------- support ----------
		r.Route("/support", func(r chi.Router) {
			r.Use(authed)
			r.Get("/tickets", support.Tickets)
			r.Post("/tickets", support.CreateTicket)
			r.Put("/tickets", support.UpdateTicket)
			r.Post("/messages", support.AddMessage)
		})

		// ---------- files, newsletter, error reports ----------
		r.With(authed).Post("/files/upload", files.Upload)
		r.Post("/newsletter/subscribe", news.Subscribe)
		r.With(staff).Get("/newsletter/subscribers", news.Subscribers)
		r.Post("/error-report", news.ErrorReport)
	})

	return r
}
