package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"credvault/internal/api/middleware"
	"credvault/internal/models"
	"credvault/internal/vault"
)

// RevealsHandler gère le cycle de vie des sessions de révélation
type RevealsHandler struct {
	vaultService *vault.Service
}

// NewRevealsHandler crée un nouveau gestionnaire de révélations
func NewRevealsHandler(vaultService *vault.Service) *RevealsHandler {
	return &RevealsHandler{
		vaultService: vaultService,
	}
}

type revealRequest struct {
	Justification string `json:"motivo"`
}

// revealResponse est la seule réponse de l'API qui transporte du plaintext.
// La couche de présentation reçoit les comptes à rebours, jamais les timers.
type revealResponse struct {
	SessionID            string            `json:"session_id"`
	Password             string            `json:"senha_plain"`
	Secrets              map[string]string `json:"secrets_plain,omitempty"`
	Visible              bool              `json:"visible"`
	DisplayRemainingMS   int64             `json:"display_remaining_ms"`
	ClipboardWindowMS    int64             `json:"clipboard_window_ms"`
	ClipboardRemainingMS int64             `json:"clipboard_remaining_ms"`
}

// Reveal déchiffre un identifiant et ouvre une session de révélation
func (h *RevealsHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}

	var req revealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "données invalides"})
		return
	}

	session, err := h.vaultService.Reveal(r.Context(), mux.Vars(r)["id"], req.Justification, caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload, ok := session.Plaintext()
	if !ok {
		// La fenêtre s'est refermée entre la révélation et la réponse
		payload = &models.SecretPayload{}
	}

	state := session.State()
	writeJSON(w, http.StatusOK, revealResponse{
		SessionID:            state.SessionID,
		Password:             payload.Password,
		Secrets:              payload.Secrets,
		Visible:              state.Visible,
		DisplayRemainingMS:   state.DisplayRemainingMS,
		ClipboardWindowMS:    state.ClipboardWindowMS,
		ClipboardRemainingMS: state.ClipboardRemainingMS,
	})
}

// State retourne l'état courant d'une session pour les comptes à rebours
func (h *RevealsHandler) State(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}

	session, err := h.vaultService.Session(mux.Vars(r)["sessionID"], caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session.State())
}

// MarkCopied signale une copie vers le presse-papiers et démarre la fenêtre
// de purge correspondante
func (h *RevealsHandler) MarkCopied(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}

	session, err := h.vaultService.MarkCopied(mux.Vars(r)["sessionID"], caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session.State())
}

// Close ferme la vue et purge le plaintext immédiatement
func (h *RevealsHandler) Close(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Autorisation requise", http.StatusUnauthorized)
		return
	}

	if err := h.vaultService.CloseSession(mux.Vars(r)["sessionID"], caller); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
