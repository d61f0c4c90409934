package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sharefun/internal/handler"
	"sharefun/internal/httputil"
	appmw "sharefun/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	FriendHandler *handler.FriendHandler
	FeedHandler   *handler.FeedHandler
	PostHandler   *handler.PostHandler
	MediaHandler  *handler.MediaHandler

	Authenticator appmw.TokenAuthenticator
	Metrics       *appmw.Metrics

	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	// CORSAllowedOrigins enables CORS for browser clients when non-empty.
	CORSAllowedOrigins []string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", appmw.TokenHeader},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.AuthRateLimitRPS > 0 {
				r.Use(appmw.RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst))
			}
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
		})
		// Logout carries its own token and succeeds for sessions that are already gone.
		r.Post("/logout", cfg.AuthHandler.Logout)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(appmw.AuthMiddleware(cfg.Authenticator))

		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Patch("/me", cfg.UserHandler.UpdateProfile)
		r.Post("/me/avatar", cfg.UserHandler.UploadAvatar)

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", cfg.UserHandler.Search)
			r.Get("/{id}", cfg.UserHandler.GetProfile)
			r.Get("/{id}/posts", cfg.PostHandler.GetUserPosts)
			r.Get("/{id}/friends", cfg.FriendHandler.ListUserFriends)
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", cfg.FriendHandler.ListOwnFriends)
			r.Delete("/{id}", cfg.FriendHandler.Unfriend)
			r.Get("/requests", cfg.FriendHandler.ListRequests)
			r.Post("/requests/{id}", cfg.FriendHandler.SendRequest)
			r.Delete("/requests/{id}", cfg.FriendHandler.CancelRequest)
			r.Post("/requests/{id}/respond", cfg.FriendHandler.Respond)
		})

		r.Get("/feed", cfg.FeedHandler.GetFeed)

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", cfg.PostHandler.Create)
			r.Post("/like", cfg.FeedHandler.Like)
			r.Post("/unlike", cfg.FeedHandler.Unlike)
			r.Get("/{id}", cfg.PostHandler.GetByID)
			r.Delete("/{id}", cfg.FeedHandler.DeletePost)
		})

		// Direct-to-R2 uploads
		r.Post("/media/posts/presign", cfg.MediaHandler.PresignPostUpload)
	})

	return r
}
