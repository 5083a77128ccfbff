// Package authapi exposes the authentication endpoints and the bearer-token
// middleware.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"muse/cmd/identity"
	"muse/cmd/internal/auth/session"
)

const maxBodyBytes = 1 << 16

// SessionService is the slice of the session layer the handler needs.
type SessionService interface {
	Login(ctx context.Context, username, password string) (session.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, username, password string) (identity.User, error)
}

// Handler wires the HTTP auth endpoints to the session and identity services.
type Handler struct {
	log       *slog.Logger
	sessions  SessionService
	registrar Registrar

	// OnAuthFailure, when set, is invoked for each 401 served. Used for
	// metrics.
	OnAuthFailure func(op string)
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, sessions SessionService, registrar Registrar) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, sessions: sessions, registrar: registrar}
}

// Register wires the auth routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.handleLogout)
	mux.HandleFunc("POST /api/v1/auth/register", h.handleRegister)
}

func (h *Handler) authFailure(w http.ResponseWriter, op string) {
	if h.OnAuthFailure != nil {
		h.OnAuthFailure(op)
	}
	// One generic message for every auth failure: the response never reveals
	// which check rejected the request.
	writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials or token")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "username and password are required")
		return
	}

	pair, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrAuthentication) {
			h.authFailure(w, "login")
			return
		}
		h.log.Error("auth.login.error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "login failed")
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "refreshToken is required")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrAuthentication) || errors.Is(err, session.ErrUnauthorized) {
			h.authFailure(w, "refresh")
			return
		}
		h.log.Error("auth.refresh.error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

// handleLogout always answers 204: revoking an unknown token and revoking a
// live one are indistinguishable to the caller.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "refreshToken is required")
		return
	}

	if err := h.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		h.log.Error("auth.logout.error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "logout failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	u, err := h.registrar.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		case errors.Is(err, identity.ErrConflict):
			writeError(w, http.StatusConflict, "Conflict", "username already taken")
		default:
			h.log.Error("auth.register.error", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error", "registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{ID: u.ID, Username: u.Username})
}

func toTokenResponse(p session.TokenPair) tokenResponse {
	return tokenResponse{
		TokenType:    p.TokenType,
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
	}
}
