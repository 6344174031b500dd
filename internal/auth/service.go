package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"credvault/internal/authz"
)

// Erreurs du service d'authentification
var (
	ErrInvalidCredentials = errors.New("identifiants invalides")
	ErrUserExists         = errors.New("l'utilisateur existe déjà")
	ErrInvalidToken       = errors.New("token invalide")
	ErrTokenExpired       = errors.New("token expiré")
)

// Service fournit des fonctionnalités d'authentification.
// C'est la source de rôle du coffre: le token embarque l'acteur et son rôle,
// que le middleware résout avant tout appel au service du coffre.
type Service struct {
	db        *sqlx.DB
	jwtSecret string
	jwtExpiry time.Duration
}

// Credentials représente les identifiants d'un utilisateur
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse représente la réponse avec le token JWT
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
}

// NewService crée un nouveau service d'authentification
func NewService(db *sqlx.DB, jwtSecret string, jwtExpiry time.Duration) *Service {
	return &Service{
		db:        db,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// Authenticate vérifie les identifiants d'un utilisateur et génère un token JWT
func (s *Service) Authenticate(ctx context.Context, creds *Credentials) (*TokenResponse, error) {
	var row struct {
		ID             string `db:"id"`
		HashedPassword string `db:"hashed_password"`
		Role           string `db:"role"`
	}

	query := "SELECT id, hashed_password, role FROM users WHERE email = ?"
	err := s.db.GetContext(ctx, &row, query, creds.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Vérifier le mot de passe
	if err := bcrypt.CompareHashAndPassword([]byte(row.HashedPassword), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(row.ID, row.Role)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    row.ID,
		Role:      row.Role,
	}, nil
}

// RegisterUser enregistre un nouvel utilisateur.
// Le rôle par défaut est viewer: l'élévation est une décision d'administration.
func (s *Service) RegisterUser(ctx context.Context, creds *Credentials, firstName, lastName string) (string, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", creds.Email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	userID := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, hashed_password, first_name, last_name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())",
		userID, creds.Email, hashedPassword, firstName, lastName, string(authz.RoleViewer),
	)
	if err != nil {
		return "", err
	}

	return userID, nil
}

// TokenFor génère un token pour un acteur et un rôle donnés.
// L'émission normale passe par Authenticate; ceci sert à l'outillage.
func (s *Service) TokenFor(userID, role string) (string, error) {
	token, _, err := s.generateToken(userID, role)
	return token, err
}

// VerifyToken vérifie un token JWT et retourne l'acteur et son rôle
func (s *Service) VerifyToken(tokenString string) (string, authz.Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrTokenExpired
		}
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", "", ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok {
		return "", "", ErrInvalidToken
	}

	return userID, authz.Role(role), nil
}

// generateToken génère un nouveau token JWT portant l'acteur et son rôle
func (s *Service) generateToken(userID, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signedToken, expiresAt, nil
}
