package interview

import (
	"strings"
	"sync"
	"time"

	"github.com/jonathan/mock-interviewer/internal/llm"
)

// State is a read-only snapshot of a session
type State struct {
	ClientID   string        `json:"client_id"`
	Phase      Phase         `json:"phase"`
	ResumeText *string       `json:"-"`
	Skills     []string      `json:"skills"`
	TargetRole *string       `json:"target_role,omitempty"`
	History    []llm.Message `json:"history"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// HasResume reports whether setup stored a resume.
func (s State) HasResume() bool {
	return s.ResumeText != nil
}

// Session holds one client's interview. Fields are mutated only through
// commit, which the orchestrator calls while holding the turn lock.
type Session struct {
	clientID string

	// turnMu serialises whole turns, including the generation call
	turnMu sync.Mutex

	mu         sync.RWMutex
	phase      Phase
	resumeText *string
	skills     []string
	targetRole *string
	history    []llm.Message
	closed     bool
	createdAt  time.Time
	updatedAt  time.Time
}

func newSession(clientID string, now time.Time) *Session {
	return &Session{
		clientID:  clientID,
		phase:     PhaseIntroduction,
		createdAt: now,
		updatedAt: now,
	}
}

// ClientID returns the id the session belongs to.
func (s *Session) ClientID() string {
	return s.clientID
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Closed reports whether the session was removed from its store.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// State returns a deep copy of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		ClientID:   s.clientID,
		Phase:      s.phase,
		ResumeText: copyString(s.resumeText),
		TargetRole: copyString(s.targetRole),
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
	if s.skills != nil {
		state.Skills = append([]string(nil), s.skills...)
	}
	if s.history != nil {
		state.History = append([]llm.Message(nil), s.history...)
	}
	return state
}

// commit applies fn atomically. It fails with ErrSessionClosed once the
// session is closed so late results never reach a removed session.
func (s *Session) commit(fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	fn(s)
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// appendTurn records a user utterance followed by the model reply.
func (s *Session) appendTurn(user, model string) {
	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Text: user},
		llm.Message{Role: llm.RoleModel, Text: model},
	)
}

// advance moves to the next phase. The caller holds mu.
func (s *Session) advance() (Phase, bool) {
	next, ok := Advance(s.phase)
	if ok {
		s.phase = next
	}
	return next, ok
}

// parseSkills splits a comma separated list, dropping empty entries.
func parseSkills(text string) []string {
	var skills []string
	for _, token := range strings.Split(text, ",") {
		if skill := strings.TrimSpace(token); skill != "" {
			skills = append(skills, skill)
		}
	}
	return skills
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
