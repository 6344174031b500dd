package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"credvault/internal/api/middleware"
	"credvault/internal/audit"
	"credvault/internal/authz"
	"credvault/internal/config"
	"credvault/internal/models"
	"credvault/internal/secretstore"
	"credvault/internal/vault"
)

// fakeBackend implements both the Secret Store and the audit store in
// memory, so the handlers can be exercised over real HTTP round-trips.
type fakeBackend struct {
	mu      sync.Mutex
	nextID  int
	metas   map[string]*models.CredentialMetadata
	secrets map[string]*models.SecretPayload
	entries []models.AuditEntry
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		metas:   make(map[string]*models.CredentialMetadata),
		secrets: make(map[string]*models.SecretPayload),
	}
}

func (f *fakeBackend) Save(ctx context.Context, req *secretstore.SaveRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := req.ExistingID
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("cred-%d", f.nextID)
	} else if _, ok := f.metas[id]; !ok {
		return "", secretstore.ErrNotFound
	}

	f.metas[id] = &models.CredentialMetadata{
		ID:              id,
		ClientID:        req.Scope.ClientID,
		ProjectID:       req.Scope.ProjectID,
		Category:        req.Category,
		Platform:        req.Platform,
		LoginIdentifier: req.LoginIdentifier,
		Extra:           req.Extra,
		UpdatedAt:       time.Now(),
		UpdatedBy:       req.UpdatedBy,
	}
	if req.Secret != nil {
		f.secrets[id] = req.Secret
	}
	return id, nil
}

func (f *fakeBackend) GetMetadata(ctx context.Context, scope models.Scope) ([]models.CredentialMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.CredentialMetadata
	for _, m := range f.metas {
		if m.ClientID == scope.ClientID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetByID(ctx context.Context, id string) (*models.CredentialMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.metas[id]
	if !ok {
		return nil, secretstore.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeBackend) Reveal(ctx context.Context, id, motivo string) (*models.SecretPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	secret, ok := f.secrets[id]
	if !ok {
		return nil, secretstore.ErrNotFound
	}
	copied := *secret
	return &copied, nil
}

func (f *fakeBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.metas[id]; !ok {
		return secretstore.ErrNotFound
	}
	delete(f.metas, id)
	delete(f.secrets, id)
	return nil
}

// audit.Store implementation
func (f *fakeBackend) Append(ctx context.Context, entry *models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeBackend) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.AuditEntry
	for _, e := range f.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// identityMiddleware injects a fixed identity, standing in for JWTAuth.
func identityMiddleware(identity vault.Identity) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), identity)))
		})
	}
}

func newTestRouter(identity vault.Identity) (*mux.Router, *fakeBackend) {
	backend := newFakeBackend()
	auditService := audit.NewService(backend)
	sessions := vault.NewSessionManager(config.RevealConfig{
		DisplayWindow:   30 * time.Second,
		ClipboardWindow: 20 * time.Second,
		SessionTTL:      2 * time.Minute,
	})
	vaultService := vault.NewService(backend, auditService, sessions, nil)

	credentialsHandler := NewCredentialsHandler(vaultService, auditService)
	revealsHandler := NewRevealsHandler(vaultService)

	router := mux.NewRouter()
	router.Use(identityMiddleware(identity))
	router.HandleFunc("/api/v1/clients/{clientID}/credentials", credentialsHandler.List).Methods("GET")
	router.HandleFunc("/api/v1/clients/{clientID}/credentials", credentialsHandler.Create).Methods("POST")
	router.HandleFunc("/api/v1/clients/{clientID}/credentials/{id}", credentialsHandler.Update).Methods("PUT")
	router.HandleFunc("/api/v1/credentials/{id}", credentialsHandler.Delete).Methods("DELETE")
	router.HandleFunc("/api/v1/credentials/{id}/audit", credentialsHandler.AuditHistory).Methods("GET")
	router.HandleFunc("/api/v1/credentials/{id}/reveal", revealsHandler.Reveal).Methods("POST")
	router.HandleFunc("/api/v1/reveals/{sessionID}", revealsHandler.State).Methods("GET")
	router.HandleFunc("/api/v1/reveals/{sessionID}/copied", revealsHandler.MarkCopied).Methods("POST")
	router.HandleFunc("/api/v1/reveals/{sessionID}", revealsHandler.Close).Methods("DELETE")

	return router, backend
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createCredential(t *testing.T, router *mux.Router) string {
	t.Helper()

	rec := doJSON(t, router, "POST", "/api/v1/clients/C1/credentials", credentialRequest{
		Category:        "social",
		Platform:        "Instagram",
		LoginIdentifier: "@brand",
		Password:        "s3cr3t",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp["id"]
}

func TestListNeverExposesSecretFields(t *testing.T) {
	router, _ := newTestRouter(vault.Identity{ActorID: "u1", Role: authz.RoleEditor})
	createCredential(t, router)

	rec := doJSON(t, router, "GET", "/api/v1/clients/C1/credentials", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}

	body := rec.Body.String()
	for _, forbidden := range []string{"senha", "secrets_plain", "secretPayload"} {
		if strings.Contains(body, forbidden) {
			t.Errorf("metadata response leaks %q: %s", forbidden, body)
		}
	}
	if !strings.Contains(body, `"plataforma":"Instagram"`) {
		t.Errorf("metadata response missing platform: %s", body)
	}
}

func TestRevealFlow(t *testing.T) {
	router, backend := newTestRouter(vault.Identity{ActorID: "u1", Role: authz.RoleEditor})
	id := createCredential(t, router)

	rec := doJSON(t, router, "POST", "/api/v1/credentials/"+id+"/reveal", revealRequest{
		Justification: "rotating password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reveal returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp revealResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode reveal response: %v", err)
	}
	if resp.Password != "s3cr3t" {
		t.Errorf("senha_plain = %q, want s3cr3t", resp.Password)
	}
	if !resp.Visible || resp.SessionID == "" {
		t.Errorf("unexpected session state: %+v", resp)
	}
	if resp.DisplayRemainingMS <= 0 || resp.DisplayRemainingMS > 30000 {
		t.Errorf("display_remaining_ms out of range: %d", resp.DisplayRemainingMS)
	}

	// State polling
	rec = doJSON(t, router, "GET", "/api/v1/reveals/"+resp.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state returned %d", rec.Code)
	}

	// Clipboard copy starts its own countdown
	rec = doJSON(t, router, "POST", "/api/v1/reveals/"+resp.SessionID+"/copied", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("copied returned %d", rec.Code)
	}
	var state vault.SessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ClipboardRemainingMS <= 0 || state.ClipboardRemainingMS > 20000 {
		t.Errorf("clipboard_remaining_ms out of range: %d", state.ClipboardRemainingMS)
	}

	// Closing the view discards the session but keeps the audit trail
	rec = doJSON(t, router, "DELETE", "/api/v1/reveals/"+resp.SessionID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close returned %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/v1/reveals/"+resp.SessionID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("closed session state returned %d, want 404", rec.Code)
	}

	entries, _ := backend.ListByEntity(context.Background(), models.EntityCredential, id, 0)
	reveals := 0
	for _, e := range entries {
		if e.Action == models.ActionReveal {
			reveals++
			if e.Metadata["motivo"] != "rotating password" {
				t.Errorf("reveal audit entry missing motivo: %+v", e.Metadata)
			}
		}
	}
	if reveals != 1 {
		t.Errorf("expected exactly 1 reveal audit entry, got %d", reveals)
	}
}

func TestRevealErrorMapping(t *testing.T) {
	editorRouter, _ := newTestRouter(vault.Identity{ActorID: "u1", Role: authz.RoleEditor})
	id := createCredential(t, editorRouter)

	// Blank justification → 400
	rec := doJSON(t, editorRouter, "POST", "/api/v1/credentials/"+id+"/reveal", revealRequest{Justification: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank motivo returned %d, want 400", rec.Code)
	}

	// Unknown credential → 404
	rec = doJSON(t, editorRouter, "POST", "/api/v1/credentials/missing/reveal", revealRequest{Justification: "checking"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown credential returned %d, want 404", rec.Code)
	}

	// Viewer → 403
	viewerRouter, _ := newTestRouter(vault.Identity{ActorID: "u2", Role: authz.RoleViewer})
	rec = doJSON(t, viewerRouter, "POST", "/api/v1/credentials/"+id+"/reveal", revealRequest{Justification: "checking"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer reveal returned %d, want 403", rec.Code)
	}
}

func TestUpdateWithoutSecretKeepsIt(t *testing.T) {
	router, backend := newTestRouter(vault.Identity{ActorID: "u1", Role: authz.RoleEditor})
	id := createCredential(t, router)

	rec := doJSON(t, router, "PUT", "/api/v1/clients/C1/credentials/"+id, credentialRequest{
		Category:        "social",
		Platform:        "Instagram",
		LoginIdentifier: "@brand-updated",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}

	if backend.secrets[id].Password != "s3cr3t" {
		t.Error("update without senha must keep the stored secret")
	}
	if backend.metas[id].LoginIdentifier != "@brand-updated" {
		t.Error("update must apply the new login identifier")
	}
}

func TestAuditHistoryManagerOnly(t *testing.T) {
	editorRouter, _ := newTestRouter(vault.Identity{ActorID: "u1", Role: authz.RoleEditor})
	id := createCredential(t, editorRouter)

	rec := doJSON(t, editorRouter, "GET", "/api/v1/credentials/"+id+"/audit", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("editor audit history returned %d, want 403", rec.Code)
	}

	gestorRouter, _ := newTestRouter(vault.Identity{ActorID: "u2", Role: authz.RoleGestor})
	gid := createCredential(t, gestorRouter)
	rec = doJSON(t, gestorRouter, "GET", "/api/v1/credentials/"+gid+"/audit", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("gestor audit history returned %d, want 200", rec.Code)
	}
}

func TestDeleteMapping(t *testing.T) {
	router, _ := newTestRouter(vault.Identity{ActorID: "u1", Role: authz.RoleGestor})
	id := createCredential(t, router)

	rec := doJSON(t, router, "DELETE", "/api/v1/credentials/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete returned %d, want 204", rec.Code)
	}

	rec = doJSON(t, router, "DELETE", "/api/v1/credentials/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete returned %d, want 404", rec.Code)
	}
}
