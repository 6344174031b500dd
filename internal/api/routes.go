package api

import (
	"log/slog"

	"github.com/gorilla/mux"

	"credvault/internal/api/handlers"
	"credvault/internal/api/middleware"
	"credvault/internal/audit"
	"credvault/internal/auth"
	"credvault/internal/vault"
)

// ConfigureRoutes configure les routes de l'API
func ConfigureRoutes(
	router *mux.Router,
	vaultService *vault.Service,
	auditService *audit.Service,
	authService *auth.Service,
	logger *slog.Logger,
) {
	// Middleware pour toutes les routes
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recover(logger))

	// Gestionnaires
	credentialsHandler := handlers.NewCredentialsHandler(vaultService, auditService)
	revealsHandler := handlers.NewRevealsHandler(vaultService)
	authHandler := handlers.NewAuthHandler(authService)

	// Routes d'authentification (non protégées)
	router.HandleFunc("/api/v1/auth/login", authHandler.Login).Methods("POST")
	router.HandleFunc("/api/v1/auth/register", authHandler.Register).Methods("POST")

	// Routes API protégées
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.JWTAuth(authService))

	// Routes pour les identifiants
	apiRouter.HandleFunc("/clients/{clientID}/credentials",
		credentialsHandler.List).Methods("GET")
	apiRouter.HandleFunc("/clients/{clientID}/credentials",
		credentialsHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/clients/{clientID}/credentials/{id}",
		credentialsHandler.Update).Methods("PUT")
	apiRouter.HandleFunc("/credentials/{id}",
		credentialsHandler.Delete).Methods("DELETE")
	apiRouter.HandleFunc("/credentials/{id}/audit",
		credentialsHandler.AuditHistory).Methods("GET")

	// Routes pour les sessions de révélation
	apiRouter.HandleFunc("/credentials/{id}/reveal",
		revealsHandler.Reveal).Methods("POST")
	apiRouter.HandleFunc("/reveals/{sessionID}",
		revealsHandler.State).Methods("GET")
	apiRouter.HandleFunc("/reveals/{sessionID}/copied",
		revealsHandler.MarkCopied).Methods("POST")
	apiRouter.HandleFunc("/reveals/{sessionID}",
		revealsHandler.Close).Methods("DELETE")
}
