package mysql

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"

	"credvault/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// NewConnection établit une nouvelle connexion à la base de données MySQL.
// Le ping initial est réessayé avec un backoff exponentiel borné, le temps
// que la base démarre.
func NewConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("erreur d'ouverture de la connexion: %w", err)
	}

	// Configurer le pool de connexions
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Vérifier la connexion
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(db.Ping, policy); err != nil {
		db.Close()
		return nil, fmt.Errorf("erreur de ping à la base de données: %w", err)
	}

	return db, nil
}
