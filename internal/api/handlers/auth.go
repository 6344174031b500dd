package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"credvault/internal/auth"
)

// AuthHandler gère les routes liées à l'authentification
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler crée un nouveau gestionnaire d'authentification
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// UserRegistration représente les données pour l'inscription
type UserRegistration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Login gère la connexion d'un utilisateur
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "données invalides"})
		return
	}

	token, err := h.authService.Authenticate(r.Context(), &creds)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "identifiants invalides"})
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "erreur d'authentification"})
		}
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Register gère l'inscription d'un nouvel utilisateur
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg UserRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "données invalides"})
		return
	}
	if reg.Email == "" || reg.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email et mot de passe requis"})
		return
	}

	userID, err := h.authService.RegisterUser(r.Context(), &auth.Credentials{
		Email:    reg.Email,
		Password: reg.Password,
	}, reg.FirstName, reg.LastName)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "l'utilisateur existe déjà"})
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "erreur d'inscription"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": userID})
}
