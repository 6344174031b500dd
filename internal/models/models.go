package models

import (
	"time"
)

// Scope délimite la partition client/projet à laquelle appartient un identifiant.
// ProjectID est optionnel: vide signifie "tous les projets du client".
type Scope struct {
	ClientID  string `json:"client_id"`
	ProjectID string `json:"project_id,omitempty"`
}

// IsZero indique si le scope est vide (aucun client)
func (s Scope) IsZero() bool {
	return s.ClientID == ""
}

// CredentialMetadata contient les champs non secrets d'un identifiant.
// Les noms JSON suivent le contrat du portail client (categoria, plataforma,
// usuario_login). Le secret n'apparaît jamais ici.
type CredentialMetadata struct {
	ID              string            `json:"id" db:"id"`
	ClientID        string            `json:"client_id" db:"client_id"`
	ProjectID       string            `json:"project_id,omitempty" db:"project_id"`
	Category        Category          `json:"categoria" db:"categoria"`
	Platform        string            `json:"plataforma" db:"plataforma"`
	LoginIdentifier string            `json:"usuario_login" db:"usuario_login"`
	Extra           map[string]string `json:"extra,omitempty" db:"-"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
	UpdatedBy       string            `json:"updated_by" db:"updated_by"`
}

// SecretPayload représente la partie secrète d'un identifiant: le mot de
// passe et d'éventuels secrets auxiliaires (clés API, tokens). Ne transite
// que dans une réponse de révélation, jamais dans les métadonnées.
type SecretPayload struct {
	Password string            `json:"senha_plain" mapstructure:"senha"`
	Secrets  map[string]string `json:"secrets_plain,omitempty" mapstructure:"secrets"`
}

// IsZero indique si le payload ne contient aucun secret
func (p SecretPayload) IsZero() bool {
	return p.Password == "" && len(p.Secrets) == 0
}

// Action est le type d'une action journalisée dans l'audit
type Action string

// Actions auditées
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionReveal Action = "reveal"
)

// EntityCredential est le type d'entité des identifiants dans le journal d'audit
const EntityCredential = "credential"

// AuditEntry représente une entrée du journal d'audit (append-only)
type AuditEntry struct {
	ID          string            `json:"id" db:"id"`
	ActorID     string            `json:"actor_id" db:"actor_id"`
	Action      Action            `json:"action" db:"action"`
	EntityType  string            `json:"entity_type" db:"entity_type"`
	EntityID    string            `json:"entity_id" db:"entity_id"`
	Description string            `json:"description" db:"description"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"-"`
	Timestamp   time.Time         `json:"timestamp" db:"timestamp"`
}
