package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Config contient toutes les configurations de l'application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Vault    VaultConfig
	JWT      JWTConfig
	Reveal   RevealConfig
}

// ServerConfig contient la configuration du serveur HTTP
type ServerConfig struct {
	Address string
	Port    int
}

// DatabaseConfig contient la configuration de la base de données
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// VaultConfig contient la configuration du backend Vault (chiffrement au repos)
type VaultConfig struct {
	Address   string
	Token     string
	Namespace string
	Mount     string
}

// JWTConfig contient la configuration JWT
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Refresh    time.Duration
}

// RevealConfig contient les fenêtres du cycle de vie des révélations.
// Les délais sont des échéances dures démarrées à la révélation, jamais
// prolongées par l'activité de l'utilisateur.
type RevealConfig struct {
	DisplayWindow   time.Duration
	ClipboardWindow time.Duration
	SessionTTL      time.Duration
}

// Load charge la configuration depuis les variables d'environnement
func Load() (*Config, error) {
	// Charger le fichier .env s'il existe
	_ = godotenv.Load()

	config := &Config{}

	// Configuration du serveur
	config.Server.Address = getEnv("SERVER_ADDRESS", "0.0.0.0:8080")
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("SERVER_PORT invalide: %w", err)
	}
	config.Server.Port = port

	// Configuration de la base de données
	config.Database.Host = getEnv("DB_HOST", "localhost")
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "3306"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT invalide: %w", err)
	}
	config.Database.Port = dbPort
	config.Database.User = getEnv("DB_USER", "root")
	config.Database.Password = getEnv("DB_PASSWORD", "")
	config.Database.DBName = getEnv("DB_NAME", "credvault")

	// Configuration de Vault
	config.Vault.Address = getEnv("VAULT_ADDR", "http://localhost:8200")
	config.Vault.Token = getEnv("VAULT_TOKEN", "")
	config.Vault.Namespace = getEnv("VAULT_NAMESPACE", "")
	config.Vault.Mount = getEnv("VAULT_MOUNT", "secret")

	// Configuration JWT
	config.JWT.Secret = getEnv("JWT_SECRET", "")
	jwtExp, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS invalide: %w", err)
	}
	config.JWT.Expiration = time.Duration(jwtExp) * time.Hour
	config.JWT.Refresh = 7 * 24 * time.Hour

	// Fenêtres de révélation
	config.Reveal.DisplayWindow, err = getEnvMillis("REVEAL_DISPLAY_WINDOW_MS", 30000)
	if err != nil {
		return nil, err
	}
	config.Reveal.ClipboardWindow, err = getEnvMillis("REVEAL_CLIPBOARD_WINDOW_MS", 20000)
	if err != nil {
		return nil, err
	}
	config.Reveal.SessionTTL, err = getEnvMillis("REVEAL_SESSION_TTL_MS", 120000)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate vérifie la cohérence de la configuration chargée
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.JWT.Secret == "" {
		result = multierror.Append(result, fmt.Errorf("JWT_SECRET est requis"))
	}
	if c.Vault.Address == "" {
		result = multierror.Append(result, fmt.Errorf("VAULT_ADDR est requis"))
	}
	if c.Reveal.DisplayWindow <= 0 {
		result = multierror.Append(result, fmt.Errorf("REVEAL_DISPLAY_WINDOW_MS doit être positif"))
	}
	if c.Reveal.ClipboardWindow <= 0 {
		result = multierror.Append(result, fmt.Errorf("REVEAL_CLIPBOARD_WINDOW_MS doit être positif"))
	}
	if c.Reveal.SessionTTL < c.Reveal.DisplayWindow {
		result = multierror.Append(result, fmt.Errorf("REVEAL_SESSION_TTL_MS doit couvrir la fenêtre d'affichage"))
	}

	return result.ErrorOrNil()
}

// getEnv récupère une variable d'environnement ou renvoie une valeur par défaut
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvMillis lit une durée exprimée en millisecondes
func getEnvMillis(key string, defaultValue int) (time.Duration, error) {
	ms, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("%s invalide: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
