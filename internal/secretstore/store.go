// Package secretstore implémente le collaborateur "Secret Store" du coffre:
// le ciphertext vit dans Vault KV v2, l'index des métadonnées non secrètes
// dans MySQL. Le plaintext ne sort que par Reveal.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"credvault/internal/models"
)

// ErrNotFound signale un identifiant inconnu du store
var ErrNotFound = errors.New("identifiant non trouvé")

// SaveRequest décrit une création ou une mise à jour d'identifiant.
// Secret à nil sur une mise à jour signifie "conserver le secret actuel".
type SaveRequest struct {
	ExistingID      string
	Scope           models.Scope
	Category        models.Category
	Platform        string
	LoginIdentifier string
	Secret          *models.SecretPayload
	Extra           map[string]string
	UpdatedBy       string
}

// Store est le contrat du Secret Store consommé par le service du coffre
type Store interface {
	// Save persiste un identifiant et retourne son ID
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// GetMetadata liste les métadonnées d'un scope, sans champ secret
	GetMetadata(ctx context.Context, scope models.Scope) ([]models.CredentialMetadata, error)
	// GetByID retourne les métadonnées d'un identifiant, ErrNotFound sinon
	GetByID(ctx context.Context, id string) (*models.CredentialMetadata, error)
	// Reveal déchiffre et retourne le payload secret
	Reveal(ctx context.Context, id, motivo string) (*models.SecretPayload, error)
	// Delete supprime l'identifiant, ciphertext compris
	Delete(ctx context.Context, id string) error
}

// MetadataRepository est le contrat de l'index MySQL des métadonnées
type MetadataRepository interface {
	Upsert(ctx context.Context, meta *models.CredentialMetadata) error
	GetByID(ctx context.Context, id string) (*models.CredentialMetadata, error)
	ListByScope(ctx context.Context, scope models.Scope) ([]models.CredentialMetadata, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// VaultStore compose le client Vault KV et l'index de métadonnées
type VaultStore struct {
	kv   *KVClient
	meta MetadataRepository
	now  func() time.Time
}

// NewVaultStore crée un nouveau Secret Store adossé à Vault et MySQL
func NewVaultStore(kv *KVClient, meta MetadataRepository) *VaultStore {
	return &VaultStore{
		kv:   kv,
		meta: meta,
		now:  time.Now,
	}
}

// secretPath construit le chemin KV d'un identifiant
func secretPath(clientID, credentialID string) string {
	return fmt.Sprintf("clients/%s/credentials/%s", clientID, credentialID)
}

// Save persiste un identifiant: le payload secret part dans Vault, les
// métadonnées dans l'index MySQL. Sur une mise à jour sans secret fourni,
// le ciphertext existant reste intact.
func (s *VaultStore) Save(ctx context.Context, req *SaveRequest) (string, error) {
	meta := &models.CredentialMetadata{
		ID:              req.ExistingID,
		ClientID:        req.Scope.ClientID,
		ProjectID:       req.Scope.ProjectID,
		Category:        req.Category,
		Platform:        req.Platform,
		LoginIdentifier: req.LoginIdentifier,
		Extra:           models.NormalizeExtra(req.Extra),
		UpdatedAt:       s.now().UTC(),
		UpdatedBy:       req.UpdatedBy,
	}

	created := req.ExistingID == ""
	if created {
		meta.ID = uuid.New().String()
	} else {
		existing, err := s.meta.GetByID(ctx, req.ExistingID)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return "", ErrNotFound
		}
		// Le scope est immuable: le chemin du ciphertext en dépend
		meta.ClientID = existing.ClientID
		if meta.ProjectID == "" {
			meta.ProjectID = existing.ProjectID
		}
	}

	if req.Secret != nil {
		if err := s.kv.Put(ctx, secretPath(meta.ClientID, meta.ID), req.Secret); err != nil {
			return "", err
		}
	}

	if err := s.meta.Upsert(ctx, meta); err != nil {
		if created && req.Secret != nil {
			// L'index a refusé la ligne: ne pas laisser un ciphertext orphelin
			_ = s.kv.Delete(ctx, secretPath(meta.ClientID, meta.ID))
		}
		return "", err
	}

	return meta.ID, nil
}

// GetMetadata liste les métadonnées d'un scope. Jamais de champ secret.
func (s *VaultStore) GetMetadata(ctx context.Context, scope models.Scope) ([]models.CredentialMetadata, error) {
	return s.meta.ListByScope(ctx, scope)
}

// GetByID retourne les métadonnées d'un identifiant
func (s *VaultStore) GetByID(ctx context.Context, id string) (*models.CredentialMetadata, error) {
	meta, err := s.meta.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrNotFound
	}
	return meta, nil
}

// Reveal déchiffre le payload secret d'un identifiant via Vault
func (s *VaultStore) Reveal(ctx context.Context, id, motivo string) (*models.SecretPayload, error) {
	meta, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.kv.Get(ctx, secretPath(meta.ClientID, meta.ID))
}

// Delete supprime le ciphertext puis la ligne d'index
func (s *VaultStore) Delete(ctx context.Context, id string) error {
	meta, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, secretPath(meta.ClientID, meta.ID)); err != nil {
		return err
	}

	deleted, err := s.meta.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	return nil
}
