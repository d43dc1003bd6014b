package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"trackanalyzer/config"
	"trackanalyzer/core/auth"
	"trackanalyzer/gateway"
	"trackanalyzer/logger"
	"trackanalyzer/repository"
)

// contextKey is a private type for request context values.
type contextKey string

const identityKey contextKey = "identity"

// APIHandler carries the request handlers' shared dependencies.
type APIHandler struct {
	gw       *gateway.Gateway
	userRepo repository.UserRepository
	tokens   *auth.TokenIssuer
	cfg      *config.Config
}

// NewAPIHandler wires the handler set.
func NewAPIHandler(gw *gateway.Gateway, userRepo repository.UserRepository, tokens *auth.TokenIssuer, cfg *config.Config) *APIHandler {
	return &APIHandler{
		gw:       gw,
		userRepo: userRepo,
		tokens:   tokens,
		cfg:      cfg,
	}
}

// AuthMiddleware validates the bearer token, then resolves the claims
// against the user table under the bootstrap timeout. Requests without a
// valid token are rejected here; a valid token whose identity cannot be
// resolved in time proceeds with the anonymous identity in degraded mode
// (empty reads, rejected writes) rather than blocking or failing the
// request.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := h.tokens.Parse(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ident := auth.Bootstrap(r.Context(), func(ctx context.Context) (auth.Identity, error) {
			user, err := h.userRepo.GetByID(ctx, claims.UserID)
			if err != nil {
				return auth.Identity{}, err
			}
			if user == nil {
				return auth.Anonymous(), nil
			}
			return auth.Identity{
				UserID: user.ID,
				Email:  user.Email,
				State:  auth.Authenticated,
			}, nil
		}, h.cfg.IdentityBootstrapTimeout)

		if !ident.IsAuthenticated() {
			logger.Warn("Identity bootstrap degraded to anonymous",
				logger.Int64("claimedUserId", claims.UserID))
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// IdentityFromContext extracts the caller's identity set by AuthMiddleware.
// Returns the anonymous identity when none is present.
func IdentityFromContext(ctx context.Context) auth.Identity {
	if ident, ok := ctx.Value(identityKey).(auth.Identity); ok {
		return ident
	}
	return auth.Anonymous()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}
