/*************************************************************************/
/*                                                                       */
/*   Ce fichier implémente le repository MySQL des identifiants          */
/*   Il ne persiste que les métadonnées — jamais la moindre valeur       */
/*   secrète, qui vit exclusivement dans le backend Vault                */
/*                                                                       */
/*************************************************************************/

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"credvault/internal/models"
)

// CredentialsRepository gère l'index des métadonnées d'identifiants dans MySQL
type CredentialsRepository struct {
	db *sqlx.DB
}

// NewCredentialsRepository crée un nouveau repository pour les identifiants
func NewCredentialsRepository(db *sqlx.DB) *CredentialsRepository {
	return &CredentialsRepository{
		db: db,
	}
}

// credentialRow est la représentation en base d'une métadonnée.
// Le champ extra est stocké en JSON.
type credentialRow struct {
	ID              string         `db:"id"`
	ClientID        string         `db:"client_id"`
	ProjectID       sql.NullString `db:"project_id"`
	Category        string         `db:"categoria"`
	Platform        string         `db:"plataforma"`
	LoginIdentifier string         `db:"usuario_login"`
	ExtraJSON       sql.NullString `db:"extra"`
	UpdatedAt       time.Time      `db:"updated_at"`
	UpdatedBy       string         `db:"updated_by"`
}

func (r credentialRow) toModel() (models.CredentialMetadata, error) {
	meta := models.CredentialMetadata{
		ID:              r.ID,
		ClientID:        r.ClientID,
		ProjectID:       r.ProjectID.String,
		Category:        models.Category(r.Category),
		Platform:        r.Platform,
		LoginIdentifier: r.LoginIdentifier,
		UpdatedAt:       r.UpdatedAt,
		UpdatedBy:       r.UpdatedBy,
	}
	if r.ExtraJSON.Valid && r.ExtraJSON.String != "" {
		if err := json.Unmarshal([]byte(r.ExtraJSON.String), &meta.Extra); err != nil {
			return meta, fmt.Errorf("extra illisible pour l'identifiant %s: %w", r.ID, err)
		}
	}
	return meta, nil
}

func toRow(meta *models.CredentialMetadata) (credentialRow, error) {
	row := credentialRow{
		ID:              meta.ID,
		ClientID:        meta.ClientID,
		Category:        string(meta.Category),
		Platform:        meta.Platform,
		LoginIdentifier: meta.LoginIdentifier,
		UpdatedAt:       meta.UpdatedAt,
		UpdatedBy:       meta.UpdatedBy,
	}
	if meta.ProjectID != "" {
		row.ProjectID = sql.NullString{String: meta.ProjectID, Valid: true}
	}
	if len(meta.Extra) > 0 {
		raw, err := json.Marshal(meta.Extra)
		if err != nil {
			return row, fmt.Errorf("extra non sérialisable: %w", err)
		}
		row.ExtraJSON = sql.NullString{String: string(raw), Valid: true}
	}
	return row, nil
}

// Upsert insère ou met à jour les métadonnées d'un identifiant
func (r *CredentialsRepository) Upsert(ctx context.Context, meta *models.CredentialMetadata) error {
	row, err := toRow(meta)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO credential_metadata (
			id, client_id, project_id, categoria, plataforma,
			usuario_login, extra, updated_at, updated_by
		) VALUES (
			:id, :client_id, :project_id, :categoria, :plataforma,
			:usuario_login, :extra, :updated_at, :updated_by
		)
		ON DUPLICATE KEY UPDATE
			categoria = VALUES(categoria),
			plataforma = VALUES(plataforma),
			usuario_login = VALUES(usuario_login),
			extra = VALUES(extra),
			updated_at = VALUES(updated_at),
			updated_by = VALUES(updated_by)
	`

	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

// GetByID récupère les métadonnées d'un identifiant par son ID
func (r *CredentialsRepository) GetByID(ctx context.Context, id string) (*models.CredentialMetadata, error) {
	query := `
		SELECT id, client_id, project_id, categoria, plataforma,
		       usuario_login, extra, updated_at, updated_by
		FROM credential_metadata
		WHERE id = ?
	`

	var row credentialRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Pas d'erreur, juste pas de résultat
		}
		return nil, err
	}

	meta, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListByScope liste les métadonnées d'un scope client, éventuellement
// restreintes à un projet. Un scope sans résultat retourne une liste vide.
func (r *CredentialsRepository) ListByScope(ctx context.Context, scope models.Scope) ([]models.CredentialMetadata, error) {
	query := `
		SELECT id, client_id, project_id, categoria, plataforma,
		       usuario_login, extra, updated_at, updated_by
		FROM credential_metadata
		WHERE client_id = ?
	`
	args := []interface{}{scope.ClientID}

	if scope.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, scope.ProjectID)
	}
	query += " ORDER BY plataforma, usuario_login"

	var rows []credentialRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	result := make([]models.CredentialMetadata, 0, len(rows))
	for _, row := range rows {
		meta, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, meta)
	}

	return result, nil
}

// Delete supprime les métadonnées d'un identifiant.
// Retourne false si aucune ligne n'existait.
func (r *CredentialsRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM credential_metadata WHERE id = ?", id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
