package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"credvault/internal/auth"
	"credvault/internal/authz"
)

func protectedHandler(t *testing.T, wantActor string, wantRole authz.Role) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			t.Error("identity missing from context")
		}
		if identity.ActorID != wantActor || identity.Role != wantRole {
			t.Errorf("identity = %+v, want %s/%s", identity, wantActor, wantRole)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTAuth(t *testing.T) {
	authService := auth.NewService(nil, "test-secret", time.Hour)
	token, err := authService.TokenFor("user-1", "gestor")
	if err != nil {
		t.Fatalf("TokenFor failed: %v", err)
	}

	handler := JWTAuth(authService)(protectedHandler(t, "user-1", authz.RoleGestor))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/clients/C1/credentials", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
