package router

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pasticeri/api/internal/auth"
	"github.com/pasticeri/api/internal/config"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/handler"
	mw "github.com/pasticeri/api/internal/middleware"
	"github.com/pasticeri/api/internal/service"
	"github.com/pasticeri/api/internal/storage"
	"github.com/pasticeri/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Public catalog and feed reads are open; everything else requires a token,
// and management endpoints require the ADMIN role.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, orders *service.OrderService, files storage.Storage) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Uploaded media is served straight from disk for the local backend.
	if local, ok := files.(*storage.LocalBackend); ok {
		fs := http.StripPrefix(storage.PublicPrefix, http.FileServer(http.Dir(local.Dir())))
		r.Get(storage.PublicPrefix+"*", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	// Auth routes (public)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authHandler := handler.NewAuthHandler(queries, pool, func(db database.DBTX) handler.AuthStore {
		return database.New(db)
	}, issuer, cfg.PublicBaseURL)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	maxUpload := cfg.Storage.MaxUploadBytes
	requireAuth := mw.Authenticate(cfg.JWTSecret)
	requireAdmin := mw.RequireAdmin()

	// Catalog: public reads, admin writes.
	productHandler := handler.NewProductHandler(queries, files, maxUpload)
	r.Route("/products", func(r chi.Router) {
		productHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			productHandler.RegisterAdminRoutes(r)
		})
	})

	// Feed: public reads, admin writes.
	feedHandler := handler.NewFeedHandler(queries, files, maxUpload)
	r.Route("/feed", func(r chi.Router) {
		feedHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			feedHandler.RegisterAdminRoutes(r)
		})
	})

	// Users
	userHandler := handler.NewUserHandler(queries)
	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		userHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			userHandler.RegisterAdminRoutes(r)
		})
	})

	// Orders
	orderHandler := handler.NewOrderHandler(orders, maxUpload)
	r.Route("/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCustomer())
			orderHandler.RegisterRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			orderHandler.RegisterAdminRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
