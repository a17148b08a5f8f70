package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hireline/hireline/internal/middleware"
)

// RouterConfig carries the handlers and middleware settings the router
// needs. Nil domain handlers leave their routes unmounted.
type RouterConfig struct {
	Logger    *slog.Logger
	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Security  middleware.SecurityConfig
	CORS      middleware.CORSConfig

	Health       *HealthHandler
	Metrics      *MetricsHandler
	Users        *UserHandler
	Companies    *CompanyHandler
	Jobs         *JobHandler
	Analytics    *AnalyticsHandler
	Applications *ApplicationHandler
	Resumes      *ResumeHandler
	Folders      *FolderHandler
	Searches     *SearchHandler
	Emails       *EmailHandler
	Invoices     *InvoiceHandler
	APIKeys      *APIKeyHandler
	Admin        *AdminHandler
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := New()
	r := chi.NewRouter()

	maxBody := cfg.Security.MaxRequestBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxRequestBodySize
	}

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(maxBody))

	// Health endpoints (no auth required)
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	authRequired := middleware.Auth(cfg.Auth)
	rateLimited := middleware.RateLimitAPI(cfg.RateLimit)
	ids := middleware.RequireIDParams("id")

	r.Route("/api/v1", func(r chi.Router) {
		for _, app := range Apps {
			r.Get("/"+app+"/health", h.AppHealth(app))
		}

		if cfg.Users != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Use(middleware.RateLimitIP(cfg.RateLimit))
				r.Post("/register", cfg.Users.Register)
				r.Post("/login", cfg.Users.Login)
			})
		}

		// Job browsing is public; a credential, if sent, widens visibility.
		if cfg.Jobs != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(cfg.Auth))
				r.Use(rateLimited)
				r.Get("/jobs", cfg.Jobs.List)
				r.With(ids).Get("/jobs/{id}", cfg.Jobs.Get)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(authRequired)
			r.Use(rateLimited)

			read := middleware.RequireRead()
			write := middleware.RequireWrite()
			admin := middleware.RequireAdmin()

			if cfg.Users != nil {
				r.Route("/users", func(r chi.Router) {
					r.With(read).Get("/me", cfg.Users.Me)
					r.With(write).Patch("/me", cfg.Users.UpdateMe)
					r.With(read).Get("/me/profile", cfg.Users.GetProfile)
					r.With(write).Put("/me/profile", cfg.Users.UpdateProfile)

					r.With(admin).Get("/", cfg.Users.List)
					r.With(admin, ids).Get("/{id}", cfg.Users.Get)
					r.With(admin, ids).Patch("/{id}", cfg.Users.Update)
				})
			}

			if cfg.Companies != nil {
				r.Route("/companies", func(r chi.Router) {
					r.With(read).Get("/", cfg.Companies.List)
					r.With(write).Post("/", cfg.Companies.Create)
					r.With(read, ids).Get("/{id}", cfg.Companies.Get)
					r.With(write, ids).Patch("/{id}", cfg.Companies.Update)
					r.With(write, ids).Delete("/{id}", cfg.Companies.Delete)
				})
			}

			// Registered flat: a mounted /jobs subrouter would shadow the
			// public GET routes above.
			if cfg.Jobs != nil {
				r.With(write).Post("/jobs", cfg.Jobs.Create)
				r.With(write, ids).Patch("/jobs/{id}", cfg.Jobs.Update)
				r.With(write, ids).Delete("/jobs/{id}", cfg.Jobs.Delete)
				r.With(read, ids).Get("/jobs/{id}/applications", cfg.Jobs.Applications)
			}
			if cfg.Analytics != nil {
				r.With(read, ids).Get("/jobs/{id}/analytics", cfg.Analytics.GetJobAnalytics)
			}

			if cfg.Applications != nil {
				r.Route("/applications", func(r chi.Router) {
					r.With(read).Get("/", cfg.Applications.List)
					r.With(write).Post("/", cfg.Applications.Submit)
					r.With(read, ids).Get("/{id}", cfg.Applications.Get)
					r.With(write, ids).Post("/{id}/status", cfg.Applications.ChangeStatus)
				})
			}

			if cfg.Resumes != nil {
				r.Route("/resumes", func(r chi.Router) {
					r.With(read).Get("/", cfg.Resumes.List)
					r.With(write).Post("/", cfg.Resumes.Create)
					r.With(read, ids).Get("/{id}", cfg.Resumes.Get)
					r.With(write, ids).Patch("/{id}", cfg.Resumes.Update)
					r.With(write, ids).Delete("/{id}", cfg.Resumes.Delete)
				})
			}

			if cfg.Folders != nil {
				r.Route("/folders", func(r chi.Router) {
					r.With(read).Get("/", cfg.Folders.List)
					r.With(write).Post("/", cfg.Folders.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Use(ids)
						r.With(read).Get("/", cfg.Folders.Get)
						r.With(write).Patch("/", cfg.Folders.Update)
						r.With(write).Delete("/", cfg.Folders.Delete)
						r.With(read).Get("/jobs", cfg.Folders.ListJobs)
						r.With(write).Post("/jobs", cfg.Folders.AddJob)
						r.With(write, middleware.RequireIDParams("job_id")).Delete("/jobs/{job_id}", cfg.Folders.RemoveJob)
						r.With(write).Post("/move", cfg.Folders.MoveJobs)
					})
				})
			}

			if cfg.Searches != nil {
				r.With(read).Get("/searches/recent", cfg.Searches.RecentSearches)
				r.With(write).Delete("/searches/recent", cfg.Searches.ClearRecentSearches)
				r.Route("/alerts", func(r chi.Router) {
					r.With(read).Get("/", cfg.Searches.ListAlerts)
					r.With(write).Post("/", cfg.Searches.CreateAlert)
					r.With(read, ids).Get("/{id}", cfg.Searches.GetAlert)
					r.With(write, ids).Patch("/{id}", cfg.Searches.UpdateAlert)
					r.With(write, ids).Delete("/{id}", cfg.Searches.DeleteAlert)
				})
			}

			if cfg.Emails != nil {
				r.Route("/emails", func(r chi.Router) {
					r.With(read).Get("/", cfg.Emails.List)
					r.With(read, ids).Get("/{id}", cfg.Emails.Get)
					r.With(admin, ids).Post("/{id}/retry", cfg.Emails.Retry)
				})
			}

			if cfg.Invoices != nil {
				r.Route("/invoices", func(r chi.Router) {
					r.With(read).Get("/", cfg.Invoices.List)
					r.With(write).Post("/", cfg.Invoices.Create)
					r.With(read, ids).Get("/{id}", cfg.Invoices.Get)
					r.With(write, ids).Post("/{id}/pay", cfg.Invoices.Pay)
					r.With(write, ids).Post("/{id}/void", cfg.Invoices.Void)
				})
			}

			if cfg.APIKeys != nil {
				keyID := middleware.RequireIDParams("key_id")
				r.Route("/api-keys", func(r chi.Router) {
					r.With(read).Get("/", cfg.APIKeys.ListAPIKeys)
					r.With(write).Post("/", cfg.APIKeys.CreateAPIKey)
					r.With(write, keyID).Delete("/{key_id}", cfg.APIKeys.RevokeAPIKey)
					r.With(write, keyID).Post("/{key_id}/rotate", cfg.APIKeys.RotateAPIKey)
				})
			}

			if cfg.Admin != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Use(admin)
					r.Get("/stats", cfg.Admin.Stats)
					r.Get("/api-keys", cfg.Admin.ListAPIKeysByUser)
				})
			}
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
