package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/authcore/internal/domain"
	"github.com/msomdec/authcore/internal/metrics"
	"github.com/msomdec/authcore/internal/service"
)

const (
	msgInvalidBody        = "Invalid request body."
	msgMissingFields      = "Name, email, and password are required."
	msgInvalidInput       = "Invalid registration details."
	msgDuplicateEmail     = "An account with that email already exists."
	msgInvalidCredentials = "Invalid email or password."
	msgServerFault        = "An unexpected error occurred. Please try again."
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth         *service.AuthService
	metrics      *metrics.Metrics
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler. m may be nil.
func NewAuthHandler(auth *service.AuthService, m *metrics.Metrics, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, metrics: m, cookieSecure: cookieSecure}
}

// HandleRegister processes a JSON registration request.
// POST /api/auth/register
// Request:  {"name":"...","email":"...","phone":"...","password":"..."}
// Response: 201 {"token":"...","user":{...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.metrics.RecordAuth(metrics.OperationRegister, metrics.OutcomeRejected)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.metrics.RecordAuth(metrics.OperationRegister, metrics.OutcomeRejected)
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			h.metrics.RecordAuth(metrics.OperationRegister, metrics.OutcomeRejected)
			writeError(w, http.StatusBadRequest, msgDuplicateEmail)
		case errors.Is(err, domain.ErrInvalidInput):
			h.metrics.RecordAuth(metrics.OperationRegister, metrics.OutcomeRejected)
			writeError(w, http.StatusBadRequest, msgInvalidInput)
		default:
			h.metrics.RecordAuth(metrics.OperationRegister, metrics.OutcomeError)
			slog.ErrorContext(r.Context(), "register user", "error", err)
			writeError(w, http.StatusInternalServerError, msgServerFault)
		}
		return
	}

	h.metrics.RecordAuth(metrics.OperationRegister, metrics.OutcomeSuccess)
	h.setAuthCookie(w, res.Token)
	writeJSON(w, http.StatusCreated, toAuthResponseDTO(res))
}

// HandleLogin processes a JSON login request. An unknown email and a wrong
// password produce the same response.
// POST /api/auth/login
// Request:  {"email":"...","password":"..."}
// Response: 200 {"token":"...","user":{...}}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		h.metrics.RecordAuth(metrics.OperationLogin, metrics.OutcomeRejected)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.metrics.RecordAuth(metrics.OperationLogin, metrics.OutcomeRejected)
			writeError(w, http.StatusBadRequest, msgInvalidCredentials)
			return
		}
		h.metrics.RecordAuth(metrics.OperationLogin, metrics.OutcomeError)
		slog.ErrorContext(r.Context(), "login user", "error", err)
		writeError(w, http.StatusInternalServerError, msgServerFault)
		return
	}

	h.metrics.RecordAuth(metrics.OperationLogin, metrics.OutcomeSuccess)
	h.setAuthCookie(w, res.Token)
	writeJSON(w, http.StatusOK, toAuthResponseDTO(res))
}

// HandleMe returns the currently authenticated user.
// GET /api/auth/me
// Response: {"user": {...}} or 401
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(service.TokenTTL.Seconds()),
	})
}
