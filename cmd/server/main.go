package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"trading_dashboard/internal/api"
	"trading_dashboard/internal/auth"
	"trading_dashboard/internal/config"
	"trading_dashboard/internal/database"
	"trading_dashboard/internal/format"
	"trading_dashboard/internal/handlers"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/middleware"
	"trading_dashboard/internal/repository"
	"trading_dashboard/internal/services"
	"trading_dashboard/web"
)

const sessionCleanupInterval = time.Hour

// App holds the application dependencies.
type App struct {
	config           *config.Config
	logger           *logger.Logger
	db               *database.DB
	router           *chi.Mux
	client           *api.Client
	sessionManager   *auth.SessionManager
	authMiddleware   *middleware.AuthMiddleware
	authHandler      *handlers.AuthHandler
	dashHandler      *handlers.DashboardHandler
	portfolioHandler *handlers.PortfolioHandler
}

func main() {
	// Load configuration
	cfg, err := config.New()
	if err != nil {
		logger.New("info", true).Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.IsDevelopment)

	// Initialize database
	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Str("path", cfg.DBPath).Msg("Database migrations completed")

	encryptor, err := auth.NewEncryptor(cfg.EncryptionSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid encryption secret")
	}

	// Parse templates
	templates, err := web.ParseTemplates(format.FuncMap())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	client := api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.GetTimeout()),
		api.WithRateLimit(cfg.API.RateLimit),
		api.WithLogger(log),
	)

	sessionManager := auth.NewSessionManager(db).
		WithDuration(time.Duration(cfg.SessionMaxAge) * time.Second)
	storage := repository.NewClientStorageRepository(db, encryptor)

	authMiddleware := middleware.NewAuthMiddleware(sessionManager, storage, client, log).
		WithSecureCookies(strings.HasPrefix(cfg.PublicURL, "https://"))

	// Create services
	accountService := services.NewAccountService(client, log)
	portfolioService := services.NewPortfolioService(client, log)
	viewService := services.NewPortfolioViewService(client, log)
	tradeService := services.NewTradeService(client, log)

	// Create application
	app := &App{
		config:         cfg,
		logger:         log,
		db:             db,
		client:         client,
		sessionManager: sessionManager,
		authMiddleware: authMiddleware,
		authHandler:    handlers.NewAuthHandler(templates, accountService, authMiddleware, sessionManager, log),
		dashHandler:    handlers.NewDashboardHandler(templates, portfolioService, sessionManager, log),
		portfolioHandler: handlers.NewPortfolioHandler(templates, viewService, tradeService, portfolioService,
			sessionManager, cfg.PublicURL, log),
	}

	// Setup router
	app.setupRouter()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.cleanSessions(ctx)

	// Create server
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", "http://"+cfg.Address()).Str("api", client.BaseURL()).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server stopped")
}

func (app *App) setupRouter() {
	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Compress(5))

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Health check
	r.Get("/health", app.handleHealth)

	// Everything below knows the browser session
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(app.authMiddleware.LoadSession)

		// Public routes (redirect if already authenticated)
		// Rate limited to prevent brute force attacks
		r.Group(func(r chi.Router) {
			r.Use(app.authMiddleware.RedirectIfAuthenticated)
			r.Use(middleware.LimitAuth)
			r.Get("/login", app.authHandler.LoginPage)
			r.Post("/login", app.authHandler.Login)
			r.Get("/register", app.authHandler.RegisterPage)
			r.Post("/register", app.authHandler.Register)
		})

		// Protected pages
		r.Group(func(r chi.Router) {
			r.Use(app.authMiddleware.RequireAuth)
			r.Get("/dashboard", app.dashHandler.Dashboard)
			r.Post("/portfolios", app.dashHandler.CreatePortfolio)
			r.Get("/portfolios/{id}", app.portfolioHandler.Detail)
			r.With(middleware.LimitStrict).Post("/portfolios/{id}/trades", app.portfolioHandler.SubmitTrade)
			r.With(middleware.SecureHeadersStrict).Get("/portfolios/{id}/qr.png", app.portfolioHandler.QRCode)
		})

		// JSON API
		r.Group(func(r chi.Router) {
			r.Use(middleware.SecureHeadersStrict)
			r.Use(middleware.LimitAPI)
			r.Use(app.authMiddleware.RequireAuthAPI)
			r.Get("/api/portfolios/{id}/view", app.portfolioHandler.ViewJSON)
		})

		// Logout (needs to be accessible when logged in)
		r.Post("/logout", app.authHandler.Logout)

		// Index route - redirect based on auth status
		r.Get("/", app.handleIndex)
	})

	app.router = r
}

// handleHealth returns the server health status.
func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := app.db.PingContext(r.Context()); err != nil {
		status = "degraded"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
	})
}

// handleIndex redirects to dashboard or login based on auth status.
func (app *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAuthenticated(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// cleanSessions periodically removes expired browser sessions and the
// tokens stored for them.
func (app *App) cleanSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.sessionManager.CleanExpired()
			if err != nil {
				app.logger.Warn().Err(err).Msg("cleaning expired sessions")
				continue
			}
			if n > 0 {
				app.logger.Info().Int64("removed", n).Msg("expired sessions cleaned")
			}
		}
	}
}
