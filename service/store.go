package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jeevijay-developers/riskmarshal-office/config"
	"github.com/jeevijay-developers/riskmarshal-office/model"
)

// SessionStore is an in-memory store for intake sessions. Sessions are
// transient by contract: one page lifetime on the operator side, no
// persistence across restarts.
type SessionStore struct {
	sessions    map[string]*model.Session
	mu          sync.RWMutex
	maxSessions int // Maximum sessions to keep, 0 = unlimited
}

var (
	globalStore *SessionStore
	storeOnce   sync.Once
)

// InitSessionStore initializes the global session store with configuration
func InitSessionStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		maxSessions := cfg.MaxSessions
		if maxSessions < 0 {
			maxSessions = 0
		}
		globalStore = NewSessionStore(maxSessions)
		slog.Info("session store initialized", "max_sessions", maxSessions)
	})
}

// GetSessionStore returns the global session store
func GetSessionStore() *SessionStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = NewSessionStore(100)
	}
	return globalStore
}

func NewSessionStore(maxSessions int) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*model.Session),
		maxSessions: maxSessions,
	}
}

// Create starts a fresh session in the upload stage for an agency.
func (s *SessionStore) Create(agency string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		Agency:    agency,
		Stage:     model.StageUpload,
		InFlight:  make(map[string]bool),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session

	s.cleanupIfNeeded()
	return session
}

func (s *SessionStore) Save(session *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = time.Now()
	if session.InFlight == nil {
		session.InFlight = make(map[string]bool)
	}
	s.sessions[session.ID] = session

	s.cleanupIfNeeded()
}

func (s *SessionStore) Get(id string) *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *SessionStore) GetByAgency(agency string) []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Session
	for _, sess := range s.sessions {
		if sess.Agency == agency {
			result = append(result, sess)
		}
	}
	return result
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// TryBegin marks an action as in flight for the session. Returns false
// when the session is unknown or the same action is already running, so
// overlapping submissions of upload/save/notify are rejected instead of
// racing.
func (s *SessionStore) TryBegin(id, action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	if sess.InFlight == nil {
		sess.InFlight = make(map[string]bool)
	}
	if sess.InFlight[action] {
		return false
	}
	sess.InFlight[action] = true
	return true
}

// End clears the in-flight flag for an action
func (s *SessionStore) End(id, action string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok && sess.InFlight != nil {
		delete(sess.InFlight, action)
	}
}

// cleanupIfNeeded removes oldest sessions if store exceeds maxSessions
// Must be called with lock held
func (s *SessionStore) cleanupIfNeeded() {
	if s.maxSessions <= 0 {
		return // Unlimited
	}

	if len(s.sessions) <= s.maxSessions {
		return
	}

	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	removeCount := len(sessions) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old session",
			"session_id", sessions[i].ID,
			"created_at", sessions[i].CreatedAt,
		)
		delete(s.sessions, sessions[i].ID)
	}
}

// Count returns the number of sessions in the store
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
