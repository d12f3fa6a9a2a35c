package handler

import (
	"net/http"

	"github.com/msomdec/authcore/internal/metrics"
	"github.com/msomdec/authcore/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. m may be nil.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, m *metrics.Metrics, cookieSecure bool) {
	authHandler := NewAuthHandler(auth, m, cookieSecure)

	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.HandleFunc("POST /api/auth/register", authHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authHandler.HandleLogin)
	mux.Handle("GET /api/auth/me", RequireAuth(auth, http.HandlerFunc(authHandler.HandleMe)))
}
