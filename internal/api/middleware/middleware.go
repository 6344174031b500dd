package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"credvault/internal/auth"
	"credvault/internal/vault"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom extrait l'appelant authentifié du contexte de la requête
func IdentityFrom(ctx context.Context) (vault.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(vault.Identity)
	return identity, ok
}

// Logger est un middleware pour journaliser les requêtes
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("requête traitée",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		})
	}
}

// Recover est un middleware pour récupérer des paniques
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panique récupérée", "error", err, "stack", string(debug.Stack()))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// JWTAuth est un middleware pour l'authentification JWT. Il résout l'acteur
// et son rôle depuis le token et les injecte dans le contexte; le service du
// coffre les traite comme une entrée déjà authentifiée.
func JWTAuth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Autorisation requise", http.StatusUnauthorized)
				return
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				http.Error(w, "Format d'autorisation invalide", http.StatusUnauthorized)
				return
			}

			userID, role, err := authService.VerifyToken(tokenParts[1])
			if err != nil {
				http.Error(w, "Token invalide", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, vault.Identity{
				ActorID: userID,
				Role:    role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity injecte une identité dans le contexte (utilisé par les tests)
func WithIdentity(ctx context.Context, identity vault.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
