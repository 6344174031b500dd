package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"credvault/internal/vault"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON sérialise une réponse JSON
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeServiceError mappe la taxonomie d'erreurs du coffre sur les statuts
// HTTP. Les échecs d'autorisation et de validation sont spécifiques; les
// défaillances amont restent génériques, la cause est journalisée côté
// serveur uniquement.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vault.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, vault.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, vault.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "identifiant non trouvé"})
	case errors.Is(err, vault.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "service temporairement indisponible, réessayez"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "erreur interne"})
	}
}
