package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/go-blog-api/internal/auth"
	"github.com/redmonkez12/go-blog-api/internal/config"
	"github.com/redmonkez12/go-blog-api/internal/httputil"
	"github.com/redmonkez12/go-blog-api/internal/logging"
	"github.com/redmonkez12/go-blog-api/internal/post"
	"github.com/redmonkez12/go-blog-api/internal/user"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	userHandler *user.Handler,
	postHandler *post.Handler,
	authMiddleware *auth.Middleware,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(Recover(logger, cfg.Server.IsDevelopment()))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.RespondError(w, "Route not found",
			fmt.Sprintf("Cannot %s %s", req.Method, req.URL.Path), http.StatusNotFound)
	})

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
	})

	// Profile routes (require authentication)
	r.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/me", userHandler.Me)
		r.Put("/me", userHandler.UpdateMe)
		r.Delete("/me", userHandler.DeleteMe)
	})

	// Post routes: reads are public (identity attached when present),
	// mutations require authentication
	r.Route("/posts", func(r chi.Router) {
		r.With(authMiddleware.OptionalAuth).Get("/", postHandler.List)
		r.With(authMiddleware.OptionalAuth).Get("/{id}", postHandler.Get)
		r.With(authMiddleware.RequireAuth).Post("/", postHandler.Create)
		r.With(authMiddleware.RequireAuth).Put("/{id}", postHandler.UpdateByID)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
