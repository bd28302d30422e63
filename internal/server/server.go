package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/readingjourney/readingjourney/internal/account"
	"github.com/readingjourney/readingjourney/internal/cover"
	"github.com/readingjourney/readingjourney/internal/email"
	"github.com/readingjourney/readingjourney/internal/handler"
	"github.com/readingjourney/readingjourney/internal/middleware"
	"github.com/readingjourney/readingjourney/internal/store"
	"github.com/readingjourney/readingjourney/internal/token"
	ws "github.com/readingjourney/readingjourney/internal/websocket"
)

type Server struct {
	db              *sql.DB
	hub             *ws.Hub
	authH           *handler.AuthHandler
	bookH           *handler.BookHandler
	userH           *handler.UserHandler
	sessionStore    *store.SessionStore
	redemptionStore *store.RedemptionStore
	rateLimiter     *middleware.RateLimiter
	logger          *slog.Logger
}

func New(db *sql.DB, tokens *token.Service, emailClient *email.Client, covers *cover.Storage, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	bookStore := store.NewBookStore(db)
	sessionStore := store.NewSessionStore(db)
	redemptionStore := store.NewRedemptionStore(db)

	workflow := account.NewWorkflow(tokens, userStore, redemptionStore, emailClient, logger.With("component", "account"))

	return &Server{
		db:              db,
		hub:             hub,
		authH:           handler.NewAuthHandler(userStore, sessionStore, workflow, logger.With("component", "auth")),
		bookH:           handler.NewBookHandler(bookStore, covers, hub, logger.With("component", "book")),
		userH:           handler.NewUserHandler(userStore, bookStore, sessionStore, covers, logger.With("component", "user")),
		sessionStore:    sessionStore,
		redemptionStore: redemptionStore,
		rateLimiter:     middleware.NewRateLimiter(),
		logger:          logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RedemptionStore returns the redemption store for cleanup tasks.
func (s *Server) RedemptionStore() *store.RedemptionStore {
	return s.redemptionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required). The unauthenticated write
	// endpoints are rate limited per client IP.
	outerMux.HandleFunc("POST /api/signup", s.rateLimitedHandler(s.authH.Signup))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /api/verify-email", s.authH.VerifyEmail)
	outerMux.HandleFunc("POST /api/resend-verification", s.rateLimitedHandler(s.authH.ResendVerification))
	outerMux.HandleFunc("POST /api/forgot-password", s.rateLimitedHandler(s.authH.ForgotPassword))
	outerMux.HandleFunc("POST /api/reset-password", s.rateLimitedHandler(s.authH.ResetPassword))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.logger.With("component", "auth_middleware"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	// Book API routes
	mux.HandleFunc("GET /api/books", s.bookH.List)
	mux.HandleFunc("POST /api/books", s.bookH.Create)
	mux.HandleFunc("GET /api/books/{id}", s.bookH.Get)
	mux.HandleFunc("PUT /api/books/{id}", s.bookH.Update)
	mux.HandleFunc("DELETE /api/books/{id}", s.bookH.Delete)
	mux.HandleFunc("POST /api/books/{id}/cover", s.bookH.UploadCover)
	mux.HandleFunc("GET /api/books/export", s.bookH.Export)
	mux.HandleFunc("POST /api/books/import", s.bookH.Import)

	// Profile API routes
	mux.HandleFunc("GET /api/profile", s.userH.Profile)
	mux.HandleFunc("PUT /api/profile", s.userH.UpdateProfile)
	mux.HandleFunc("PUT /api/profile/theme", s.userH.UpdateTheme)
	mux.HandleFunc("DELETE /api/profile", s.userH.DeleteAccount)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
