package vault

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"credvault/internal/config"
	"credvault/internal/models"
)

// RevealSession matérialise une révélation en cours: le plaintext en mémoire
// volatile et ses échéances, figées à la construction. Jamais persistée.
//
// Cycle de vie: Revealed(visible) → Revealed(hidden) → Expired. Les échéances
// sont des murs d'horloge fixés au moment de la révélation; aucune activité
// de l'utilisateur ne les prolonge.
type RevealSession struct {
	mu sync.Mutex

	ID            string
	CredentialID  string
	ActorID       string
	Justification string
	RequestedAt   time.Time

	displayDeadline   time.Time
	expiresAt         time.Time
	clipboardWindow   time.Duration
	clipboardDeadline time.Time // zéro tant qu'aucune copie n'a eu lieu

	plaintext *models.SecretPayload
	expired   bool

	now       func() time.Time
	hideTimer *time.Timer
}

// SessionState est l'instantané exposé à la couche de présentation pour
// afficher les comptes à rebours sans posséder la logique des timers
type SessionState struct {
	SessionID            string `json:"session_id"`
	CredentialID         string `json:"credential_id"`
	Visible              bool   `json:"visible"`
	DisplayRemainingMS   int64  `json:"display_remaining_ms"`
	ClipboardWindowMS    int64  `json:"clipboard_window_ms"`
	ClipboardRemainingMS int64  `json:"clipboard_remaining_ms"`
}

// Visible indique si le plaintext est encore considéré "à l'écran".
// Calculé contre l'échéance, pas contre le timer: la visibilité ne peut
// jamais survivre à la fenêtre d'affichage, même si le timer tarde.
func (s *RevealSession) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleLocked()
}

func (s *RevealSession) visibleLocked() bool {
	return !s.expired && s.plaintext != nil && s.now().Before(s.displayDeadline)
}

// Plaintext retourne une copie du payload secret tant que la session est
// visible. Copie et non référence: le timer de masquage peut purger le
// tampon interne pendant que l'appelant sérialise sa réponse.
func (s *RevealSession) Plaintext() (*models.SecretPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visibleLocked() {
		return nil, false
	}

	copied := models.SecretPayload{Password: s.plaintext.Password}
	if len(s.plaintext.Secrets) > 0 {
		copied.Secrets = make(map[string]string, len(s.plaintext.Secrets))
		for k, v := range s.plaintext.Secrets {
			copied.Secrets[k] = v
		}
	}
	return &copied, true
}

// MarkCopied démarre (ou redémarre) la fenêtre presse-papiers. Timer
// indépendant de la fenêtre d'affichage: l'utilisateur peut copier puis
// quitter la vue, le presse-papiers doit quand même être purgé.
func (s *RevealSession) MarkCopied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.visibleLocked() {
		return false
	}

	s.clipboardDeadline = s.now().Add(s.clipboardWindow)
	return true
}

// RemainingDisplay retourne le temps d'affichage restant (0 si écoulé)
func (s *RevealSession) RemainingDisplay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired || s.plaintext == nil {
		return 0
	}
	return remaining(s.now(), s.displayDeadline)
}

// RemainingClipboard retourne le temps restant avant purge du presse-papiers
// (0 si aucune copie n'a eu lieu ou si la fenêtre est écoulée)
func (s *RevealSession) RemainingClipboard() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipboardDeadline.IsZero() {
		return 0
	}
	return remaining(s.now(), s.clipboardDeadline)
}

// State retourne l'instantané de la session pour la couche de présentation
func (s *RevealSession) State() SessionState {
	return SessionState{
		SessionID:            s.ID,
		CredentialID:         s.CredentialID,
		Visible:              s.Visible(),
		DisplayRemainingMS:   s.RemainingDisplay().Milliseconds(),
		ClipboardWindowMS:    s.clipboardWindow.Milliseconds(),
		ClipboardRemainingMS: s.RemainingClipboard().Milliseconds(),
	}
}

// hide purge le plaintext de la mémoire. La transition est irréversible:
// seule une nouvelle révélation, avec une nouvelle justification et une
// nouvelle entrée d'audit, peut remontrer le secret.
func (s *RevealSession) hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zeroLocked()
}

// Close purge immédiatement le plaintext et termine la session, sans
// attendre les timers. L'entrée d'audit déjà écrite reste acquise.
func (s *RevealSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.zeroLocked()
	s.expired = true
	if s.hideTimer != nil {
		s.hideTimer.Stop()
	}
}

func (s *RevealSession) zeroLocked() {
	if s.plaintext == nil {
		return
	}
	s.plaintext.Password = ""
	for k := range s.plaintext.Secrets {
		s.plaintext.Secrets[k] = ""
		delete(s.plaintext.Secrets, k)
	}
	s.plaintext = nil
}

func remaining(now, deadline time.Time) time.Duration {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// SessionManager possède les sessions de révélation en cours et leurs
// timers. Chaque révélation produit sa propre session: deux révélations
// concurrentes du même identifiant sont deux sessions indépendantes,
// chacune avec sa propre horloge.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*RevealSession
	cfg      config.RevealConfig
	now      func() time.Time
}

// NewSessionManager crée un gestionnaire de sessions de révélation
func NewSessionManager(cfg config.RevealConfig) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*RevealSession),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Create ouvre une session pour un plaintext fraîchement révélé et arme
// ses échéances: masquage à la fenêtre d'affichage, destruction au TTL.
func (m *SessionManager) Create(credentialID, actorID, justification string, payload *models.SecretPayload) *RevealSession {
	now := m.now()
	session := &RevealSession{
		ID:              uuid.New().String(),
		CredentialID:    credentialID,
		ActorID:         actorID,
		Justification:   justification,
		RequestedAt:     now,
		displayDeadline: now.Add(m.cfg.DisplayWindow),
		expiresAt:       now.Add(m.cfg.SessionTTL),
		clipboardWindow: m.cfg.ClipboardWindow,
		plaintext:       payload,
		now:             m.now,
	}

	session.hideTimer = time.AfterFunc(m.cfg.DisplayWindow, session.hide)
	time.AfterFunc(m.cfg.SessionTTL, func() {
		m.Remove(session.ID)
	})

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session
}

// Get retourne une session si elle existe encore et appartient à l'acteur.
// Les sessions ne sont jamais partagées entre appelants.
func (m *SessionManager) Get(id, actorID string) (*RevealSession, bool) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || session.ActorID != actorID {
		return nil, false
	}
	if m.now().After(session.expiresAt) {
		// Le timer de TTL n'est pas encore passé: la session est quand
		// même terminale, l'échéance fait foi
		m.Remove(id)
		return nil, false
	}
	return session, true
}

// Remove termine et retire une session (TTL atteint ou fermeture de la vue)
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		session.Close()
	}
}

// Shutdown purge toutes les sessions restantes (arrêt du service)
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*RevealSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// Len retourne le nombre de sessions en cours
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
