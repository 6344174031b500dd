package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"credvault/internal/api"
	"credvault/internal/audit"
	"credvault/internal/auth"
	"credvault/internal/config"
	"credvault/internal/secretstore"
	mysqldb "credvault/internal/storage/mysql"
	"credvault/internal/vault"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Charger la configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("erreur de chargement de la configuration", "error", err)
		os.Exit(1)
	}

	// Initialiser la base de données
	db, err := mysqldb.NewConnection(cfg.Database)
	if err != nil {
		logger.Error("erreur de connexion à la base de données", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialiser le client Vault (ciphertext au repos)
	kvClient, err := secretstore.NewKVClient(&secretstore.KVConfig{
		Address:   cfg.Vault.Address,
		Token:     cfg.Vault.Token,
		Namespace: cfg.Vault.Namespace,
		Mount:     cfg.Vault.Mount,
	})
	if err != nil {
		logger.Error("erreur de connexion à Vault", "error", err)
		os.Exit(1)
	}

	// Initialiser les services
	store := secretstore.NewVaultStore(kvClient, mysqldb.NewCredentialsRepository(db))
	auditService := audit.NewService(mysqldb.NewAuditRepository(db))
	sessions := vault.NewSessionManager(cfg.Reveal)
	vaultService := vault.NewService(store, auditService, sessions, logger)
	authService := auth.NewService(db, cfg.JWT.Secret, cfg.JWT.Expiration)

	// Configurer le routeur
	router := mux.NewRouter()
	api.ConfigureRoutes(router, vaultService, auditService, authService, logger)

	// Configurer le serveur HTTP
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Démarrer le serveur dans une goroutine
	go func() {
		logger.Info("serveur démarré", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("erreur de démarrage du serveur", "error", err)
			os.Exit(1)
		}
	}()

	// Attendre le signal d'arrêt
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	// Arrêt gracieux: purger d'abord tout plaintext résident
	logger.Info("arrêt du serveur")
	sessions.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("erreur lors de l'arrêt du serveur", "error", err)
		os.Exit(1)
	}

	logger.Info("serveur arrêté")
}
