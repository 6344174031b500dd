// Package vault est le point de passage obligé de tout accès aux
// identifiants: contrôle de rôle, justification obligatoire à la révélation,
// audit synchrone et cycle de vie des sessions de révélation.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"

	"credvault/internal/audit"
	"credvault/internal/authz"
	"credvault/internal/models"
	"credvault/internal/secretstore"
)

// Identity est l'appelant authentifié, résolu en amont par la source
// d'identité. Le service la traite comme une entrée déjà vérifiée.
type Identity struct {
	ActorID string
	Role    authz.Role
}

// Service médiatise tout accès au Secret Store. Aucun plaintext ne franchit
// sa frontière sans révélation justifiée et auditée.
type Service struct {
	store    secretstore.Store
	audit    audit.Logger
	sessions *SessionManager
	logger   *slog.Logger
}

// NewService crée le service du coffre
func NewService(store secretstore.Store, auditLog audit.Logger, sessions *SessionManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		audit:    auditLog,
		sessions: sessions,
		logger:   logger,
	}
}

// SaveInput décrit une création ou mise à jour d'identifiant.
// Secret à nil sur une mise à jour signifie "conserver le secret actuel".
type SaveInput struct {
	ExistingID      string
	Scope           models.Scope
	Category        string
	Platform        string
	LoginIdentifier string
	Secret          *models.SecretPayload
	Extra           map[string]string
}

// ListMetadata liste les métadonnées d'un scope, sans jamais inclure de
// champ secret. Un scope inconnu ou vide retourne une liste vide: l'absence
// n'est pas distinguable, pour ne pas révéler l'existence de scopes
// inaccessibles.
func (s *Service) ListMetadata(ctx context.Context, scope models.Scope, caller Identity) ([]models.CredentialMetadata, error) {
	if !authz.Authorize(caller.Role, authz.ActionView) {
		return nil, fmt.Errorf("%w: consultation des identifiants", ErrUnauthorized)
	}
	if scope.IsZero() {
		return nil, fmt.Errorf("%w: client_id requis", ErrValidation)
	}

	metas, err := s.store.GetMetadata(ctx, scope)
	if err != nil {
		s.logger.Error("échec de lecture des métadonnées", "client_id", scope.ClientID, "error", err)
		return nil, upstreamError(err)
	}

	if metas == nil {
		metas = []models.CredentialMetadata{}
	}
	return metas, nil
}

// Save crée ou met à jour un identifiant, puis écrit l'entrée d'audit
// correspondante. L'opération est atomique du point de vue de l'appelant:
// un échec de l'audit sur une création annule la création.
func (s *Service) Save(ctx context.Context, in SaveInput, caller Identity) (string, error) {
	if !authz.Authorize(caller.Role, authz.ActionEdit) {
		return "", fmt.Errorf("%w: édition des identifiants", ErrUnauthorized)
	}

	var fields *multierror.Error
	if in.Scope.IsZero() {
		fields = multierror.Append(fields, fmt.Errorf("client_id requis"))
	}
	if strings.TrimSpace(in.Platform) == "" {
		fields = multierror.Append(fields, fmt.Errorf("plataforma requise"))
	}
	if strings.TrimSpace(in.LoginIdentifier) == "" {
		fields = multierror.Append(fields, fmt.Errorf("usuario_login requis"))
	}
	created := in.ExistingID == ""
	if created && (in.Secret == nil || in.Secret.IsZero()) {
		fields = multierror.Append(fields, fmt.Errorf("senha requise à la création"))
	}
	if err := validationError(fields); err != nil {
		return "", err
	}

	category := models.ParseCategory(in.Category)

	id, err := s.store.Save(ctx, &secretstore.SaveRequest{
		ExistingID:      in.ExistingID,
		Scope:           in.Scope,
		Category:        category,
		Platform:        in.Platform,
		LoginIdentifier: in.LoginIdentifier,
		Secret:          in.Secret,
		Extra:           in.Extra,
		UpdatedBy:       caller.ActorID,
	})
	if err != nil {
		if errors.Is(err, secretstore.ErrNotFound) {
			return "", ErrNotFound
		}
		s.logger.Error("échec d'écriture du secret", "credential_id", in.ExistingID, "error", err)
		return "", upstreamError(err)
	}

	action := models.ActionUpdate
	description := fmt.Sprintf("Mise à jour de l'identifiant %s", in.Platform)
	if created {
		action = models.ActionCreate
		description = fmt.Sprintf("Création de l'identifiant %s", in.Platform)
	}

	err = s.audit.Append(ctx, &models.AuditEntry{
		ActorID:     caller.ActorID,
		Action:      action,
		EntityType:  models.EntityCredential,
		EntityID:    id,
		Description: description,
		Metadata: map[string]string{
			"categoria":  string(category),
			"plataforma": in.Platform,
		},
	})
	if err != nil {
		s.logger.Error("échec d'écriture de l'audit", "credential_id", id, "action", string(action), "error", err)
		if created {
			// Pas de secret stocké sans trace: annuler la création
			if delErr := s.store.Delete(ctx, id); delErr != nil {
				s.logger.Error("échec de l'annulation après audit raté", "credential_id", id, "error", delErr)
			}
		}
		return "", upstreamError(err)
	}

	return id, nil
}

// Reveal déchiffre un identifiant et ouvre une session de révélation.
// Ordre strict: autorisation, justification, déchiffrement, audit, et
// seulement alors le plaintext. Une révélation non auditée n'a pas lieu.
func (s *Service) Reveal(ctx context.Context, credentialID, justification string, caller Identity) (*RevealSession, error) {
	if !authz.Authorize(caller.Role, authz.ActionReveal) {
		return nil, fmt.Errorf("%w: révélation des identifiants", ErrUnauthorized)
	}

	// Rejet avant tout appel amont: pas de justification, pas de lecture
	if strings.TrimSpace(justification) == "" {
		return nil, fmt.Errorf("%w: motivo requis", ErrValidation)
	}
	if credentialID == "" {
		return nil, fmt.Errorf("%w: identifiant requis", ErrValidation)
	}

	meta, err := s.store.GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, secretstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstreamError(err)
	}

	payload, err := s.store.Reveal(ctx, credentialID, justification)
	if err != nil {
		if errors.Is(err, secretstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("échec du déchiffrement", "credential_id", credentialID, "error", err)
		return nil, upstreamError(err)
	}

	// L'entrée d'audit précède la remise du plaintext. Si elle échoue, le
	// plaintext est abandonné: divulgation sans trace vaut refus.
	err = s.audit.Append(ctx, &models.AuditEntry{
		ActorID:     caller.ActorID,
		Action:      models.ActionReveal,
		EntityType:  models.EntityCredential,
		EntityID:    credentialID,
		Description: fmt.Sprintf("Révélation de l'identifiant %s", meta.Platform),
		Metadata: map[string]string{
			"motivo":     justification,
			"categoria":  string(meta.Category),
			"plataforma": meta.Platform,
		},
	})
	if err != nil {
		s.logger.Error("échec d'écriture de l'audit de révélation", "credential_id", credentialID, "error", err)
		return nil, upstreamError(err)
	}

	session := s.sessions.Create(credentialID, caller.ActorID, justification, payload)
	s.logger.Info("identifiant révélé",
		"credential_id", credentialID,
		"session_id", session.ID,
		"actor_id", caller.ActorID,
	)

	return session, nil
}

// Delete supprime un identifiant et journalise la suppression
func (s *Service) Delete(ctx context.Context, credentialID string, caller Identity) error {
	if !authz.Authorize(caller.Role, authz.ActionDelete) {
		return fmt.Errorf("%w: suppression des identifiants", ErrUnauthorized)
	}
	if credentialID == "" {
		return fmt.Errorf("%w: identifiant requis", ErrValidation)
	}

	meta, err := s.store.GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, secretstore.ErrNotFound) {
			return ErrNotFound
		}
		return upstreamError(err)
	}

	if err := s.store.Delete(ctx, credentialID); err != nil {
		if errors.Is(err, secretstore.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("échec de suppression", "credential_id", credentialID, "error", err)
		return upstreamError(err)
	}

	err = s.audit.Append(ctx, &models.AuditEntry{
		ActorID:     caller.ActorID,
		Action:      models.ActionDelete,
		EntityType:  models.EntityCredential,
		EntityID:    credentialID,
		Description: fmt.Sprintf("Suppression de l'identifiant %s", meta.Platform),
		Metadata: map[string]string{
			"categoria":  string(meta.Category),
			"plataforma": meta.Platform,
		},
	})
	if err != nil {
		s.logger.Error("échec d'écriture de l'audit de suppression", "credential_id", credentialID, "error", err)
		return upstreamError(err)
	}

	return nil
}

// Session retourne une session de révélation appartenant à l'appelant.
// Une session inconnue, expirée ou appartenant à un autre acteur est
// indistinctement introuvable.
func (s *Service) Session(sessionID string, caller Identity) (*RevealSession, error) {
	session, ok := s.sessions.Get(sessionID, caller.ActorID)
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// MarkCopied signale une copie du secret vers le presse-papiers et démarre
// la fenêtre de purge correspondante
func (s *Service) MarkCopied(sessionID string, caller Identity) (*RevealSession, error) {
	session, err := s.Session(sessionID, caller)
	if err != nil {
		return nil, err
	}
	if !session.MarkCopied() {
		return nil, fmt.Errorf("%w: la session n'est plus visible", ErrValidation)
	}
	return session, nil
}

// CloseSession ferme la vue: le plaintext est purgé immédiatement, sans
// attendre les timers. L'entrée d'audit déjà écrite n'est jamais rétractée.
func (s *Service) CloseSession(sessionID string, caller Identity) error {
	session, err := s.Session(sessionID, caller)
	if err != nil {
		return err
	}
	s.sessions.Remove(session.ID)
	return nil
}
