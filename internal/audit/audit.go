// Package audit fournit le journal d'audit append-only du coffre.
// Chaque action de mutation ou de divulgation y écrit une entrée de manière
// synchrone; l'échec de l'écriture fait échouer l'opération entière.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"credvault/internal/models"
)

// Logger est le contrat consommé par le service du coffre
type Logger interface {
	// Append écrit une entrée. Les entrées ne sont jamais rétractées.
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// Store est le contrat de persistance (implémenté par le repository MySQL)
type Store interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditEntry, error)
}

// Service implémente Logger au-dessus du store, en estampillant chaque
// entrée d'un identifiant et d'un horodatage
type Service struct {
	store Store
	now   func() time.Time
}

// NewService crée un nouveau service d'audit
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Append valide, estampille et persiste une entrée d'audit
func (s *Service) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ActorID == "" {
		return fmt.Errorf("entrée d'audit sans acteur")
	}
	if entry.Action == "" || entry.EntityType == "" || entry.EntityID == "" {
		return fmt.Errorf("entrée d'audit incomplète")
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	return s.store.Append(ctx, entry)
}

// History retourne les entrées d'une entité, les plus récentes en premier
func (s *Service) History(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditEntry, error) {
	return s.store.ListByEntity(ctx, entityType, entityID, limit)
}
