/*************************************************************************/
/*                                                                       */
/*   Ce fichier implémente le repository MySQL du journal d'audit        */
/*   Journal strictement append-only: aucune requête UPDATE ni DELETE    */
/*   n'existe ici, une entrée écrite ne peut être rétractée              */
/*                                                                       */
/*************************************************************************/

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"credvault/internal/models"
)

// AuditRepository gère l'écriture du journal d'audit dans MySQL
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository crée un nouveau repository pour le journal d'audit
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

type auditRow struct {
	ID           string         `db:"id"`
	ActorID      string         `db:"actor_id"`
	Action       string         `db:"action"`
	EntityType   string         `db:"entity_type"`
	EntityID     string         `db:"entity_id"`
	Description  string         `db:"description"`
	MetadataJSON sql.NullString `db:"metadata"`
	Timestamp    time.Time      `db:"timestamp"`
}

// Append écrit une entrée d'audit. L'échec de cette écriture doit faire
// échouer l'opération appelante: pas de divulgation sans trace.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	row := auditRow{
		ID:          entry.ID,
		ActorID:     entry.ActorID,
		Action:      string(entry.Action),
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Description: entry.Description,
		Timestamp:   entry.Timestamp,
	}
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("métadonnées d'audit non sérialisables: %w", err)
		}
		row.MetadataJSON = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO audit_log (
			id, actor_id, action, entity_type, entity_id,
			description, metadata, timestamp
		) VALUES (
			:id, :actor_id, :action, :entity_type, :entity_id,
			:description, :metadata, :timestamp
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, row)
	return err
}

// ListByEntity retourne les entrées d'audit d'une entité, les plus récentes
// en premier. Sert uniquement à la consultation côté administration.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, actor_id, action, entity_type, entity_id,
		       description, metadata, timestamp
		FROM audit_log
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, entityType, entityID, limit); err != nil {
		return nil, err
	}

	entries := make([]models.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.AuditEntry{
			ID:          row.ID,
			ActorID:     row.ActorID,
			Action:      models.Action(row.Action),
			EntityType:  row.EntityType,
			EntityID:    row.EntityID,
			Description: row.Description,
			Timestamp:   row.Timestamp,
		}
		if row.MetadataJSON.Valid && row.MetadataJSON.String != "" {
			if err := json.Unmarshal([]byte(row.MetadataJSON.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("métadonnées d'audit illisibles pour %s: %w", row.ID, err)
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
