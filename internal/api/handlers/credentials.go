package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"credvault/internal/api/middleware"
	"credvault/internal/audit"
	"credvault/internal/authz"
	"credvault/internal/models"
	"credvault/internal/vault"
)

// CredentialsHandler gère les routes liées aux identifiants
type CredentialsHandler struct {
	vaultService *vault.Service
	auditService *audit.Service
}

// NewCredentialsHandler crée un nouveau gestionnaire d'identifiants
func NewCredentialsHandler(vaultService *vault.Service, auditService *audit.Service) *CredentialsHandler {
	return &CredentialsHandler{
		vaultService: vaultService,
		auditService: auditService,
	}
}

// credentialRequest est le corps de création/mise à jour d'un identifiant.
// senha absent sur une mise à jour signifie "conserver le secret actuel".
type credentialRequest struct {
	ProjectID       string            `json:"project_id"`
	Category        string            `json:"categoria"`
	Platform        string            `json:"plataforma"`
	LoginIdentifier string            `json:"usuario_login"`
	Password        string            `json:"senha"`
	Secrets         map[string]string `json:"secrets"`
	Extra           map[string]string `json:"extra"`
}

func (r *credentialRequest) secret() *models.SecretPayload {
	if r.Password == "" && len(r.Secrets) == 0 {
		return nil
	}
	return &models.SecretPayload{
		Password: r.Password,
		Secrets:  r.Secrets,
	}
}

// List liste les métadonnées des identifiants d'un client
func (h *CredentialsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}

	scope := models.Scope{
		ClientID:  mux.Vars(r)["clientID"],
		ProjectID: r.URL.Query().Get("project"),
	}

	metas, err := h.vaultService.ListMetadata(r.Context(), scope, caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metas)
}

// Create crée un nouvel identifiant
func (h *CredentialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

// Update met à jour un identifiant existant
func (h *CredentialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, mux.Vars(r)["id"])
}

func (h *CredentialsHandler) save(w http.ResponseWriter, r *http.Request, existingID string) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}

	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "données invalides"})
		return
	}

	id, err := h.vaultService.Save(r.Context(), vault.SaveInput{
		ExistingID: existingID,
		Scope: models.Scope{
			ClientID:  mux.Vars(r)["clientID"],
			ProjectID: req.ProjectID,
		},
		Category:        req.Category,
		Platform:        req.Platform,
		LoginIdentifier: req.LoginIdentifier,
		Secret:          req.secret(),
		Extra:           req.Extra,
	}, caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if existingID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{"id": id})
}

// Delete supprime un identifiant
func (h *CredentialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}

	if err := h.vaultService.Delete(r.Context(), mux.Vars(r)["id"], caller); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuditHistory retourne le journal d'audit d'un identifiant.
// Réservé aux rôles de gestion: le journal contient les justifications.
func (h *CredentialsHandler) AuditHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}
	if !authz.Authorize(caller.Role, authz.ActionDelete) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "accès non autorisé: consultation de l'audit"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.auditService.History(r.Context(), models.EntityCredential, mux.Vars(r)["id"], limit)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "service temporairement indisponible, réessayez"})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
