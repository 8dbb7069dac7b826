// Package sessions owns every chat session: history, titles, archival, and
// the active-session selection.
package sessions

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mentor/internal/domain"
	"mentor/internal/observability"
)

// GreetingText opens every new session. It stays UI-only: the history
// serializer drops the greeting before any backend call.
const GreetingText = "¡Hola! Soy tu asistente senior experto en TANDEM, COBOL, GUARDIAN 90 y entornos bancarios. " +
	"¿En qué te puedo ayudar hoy? Puedes preguntarme cualquier duda o usar la cámara para mostrarme tu código."

const defaultTitle = "Nueva conversación"

// maxTitleLen is the truncation point when deriving a title from the first
// user message.
const maxTitleLen = 30

// Store keeps all sessions, newest first, and persists the full list after
// every mutation.
type Store struct {
	mu    sync.RWMutex
	state domain.StateStore
	log   *slog.Logger
	now   func() time.Time
	newID func() string

	chats    []*domain.Session
	activeID domain.SessionID
}

// NewStore loads the session list from the durable store. Missing or
// malformed state reinitializes to a single fresh session. The first
// non-archived session becomes active.
func NewStore(ctx context.Context, state domain.StateStore) *Store {
	s := &Store{
		state: state,
		log:   observability.Component("sessions"),
		now:   time.Now,
		newID: uuid.NewString,
	}

	raw, ok, err := state.Load(ctx, domain.StateKeySessions)
	if err != nil {
		s.log.Error("failed to load sessions, starting fresh", "error", err)
	}
	if ok && err == nil {
		var stored []*domain.Session
		if jsonErr := json.Unmarshal(raw, &stored); jsonErr != nil {
			s.log.Warn("discarding malformed stored sessions", "error", jsonErr)
		} else {
			s.chats = stored
		}
	}

	if len(s.chats) == 0 {
		s.createLocked(ctx)
	} else {
		s.activeID = s.chats[0].ID
		for _, c := range s.chats {
			if !c.IsArchived {
				s.activeID = c.ID
				break
			}
		}
	}
	return s
}

func (s *Store) greeting() domain.Message {
	return domain.Message{
		ID:   domain.GreetingMessageID,
		Role: domain.RoleModel,
		Text: GreetingText,
	}
}

// NewChat creates a session with the synthetic greeting, prepends it to the
// list, and makes it active.
func (s *Store) NewChat(ctx context.Context) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(ctx).Clone()
}

func (s *Store) createLocked(ctx context.Context) *domain.Session {
	chat := &domain.Session{
		ID:        domain.SessionID(s.newID()),
		Title:     defaultTitle,
		Messages:  []domain.Message{s.greeting()},
		UpdatedAt: s.now(),
	}
	s.chats = append([]*domain.Session{chat}, s.chats...)
	s.activeID = chat.ID
	s.flush(ctx)
	return chat
}

// Get returns a snapshot of one session.
func (s *Store) Get(id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat := s.find(id)
	if chat == nil {
		return nil, domain.ErrSessionNotFound
	}
	return chat.Clone(), nil
}

// List returns snapshots of all sessions in list order (newest first),
// archived included.
func (s *Store) List() []*domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Session, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c.Clone())
	}
	return out
}

// ActiveID returns the currently selected session.
func (s *Store) ActiveID() domain.SessionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// SetActive selects a session.
func (s *Store) SetActive(id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) == nil {
		return domain.ErrSessionNotFound
	}
	s.activeID = id
	return nil
}

// Append adds a message to a session, bumps UpdatedAt, and on the first real
// user message derives the title from a truncated prefix of its text.
func (s *Store) Append(ctx context.Context, id domain.SessionID, msg domain.Message) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.find(id)
	if chat == nil {
		return nil, domain.ErrSessionNotFound
	}

	if msg.Role == domain.RoleUser && len(chat.Messages) == 1 && strings.TrimSpace(msg.Text) != "" {
		chat.Title = deriveTitle(msg.Text)
	}
	chat.Messages = append(chat.Messages, msg)
	chat.UpdatedAt = s.now()
	s.flush(ctx)
	return chat.Clone(), nil
}

func deriveTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxTitleLen {
		return text
	}
	return string(runes[:maxTitleLen]) + "..."
}

// Archive marks a session archived, keeping it in the list. If it was the
// active session, the first remaining non-archived session takes over; with
// none left a fresh session is created. Returns the active session id.
func (s *Store) Archive(ctx context.Context, id domain.SessionID) (domain.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.find(id)
	if chat == nil {
		return "", domain.ErrSessionNotFound
	}
	chat.IsArchived = true
	s.reselectLocked(ctx, id)
	s.flush(ctx)
	return s.activeID, nil
}

// Delete removes a session permanently. Active-session replacement follows
// the same rule as Archive. Returns the active session id.
func (s *Store) Delete(ctx context.Context, id domain.SessionID) (domain.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) == nil {
		return "", domain.ErrSessionNotFound
	}
	kept := s.chats[:0]
	for _, c := range s.chats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.chats = kept
	s.reselectLocked(ctx, id)
	s.flush(ctx)
	return s.activeID, nil
}

// reselectLocked picks a deterministic replacement when the session `gone`
// was active: the first remaining non-archived session, or a fresh one.
func (s *Store) reselectLocked(ctx context.Context, gone domain.SessionID) {
	if s.activeID != gone {
		return
	}
	for _, c := range s.chats {
		if c.ID != gone && !c.IsArchived {
			s.activeID = c.ID
			return
		}
	}
	s.createLocked(ctx)
}

// SetSettings replaces a session's skill override settings. The skill list is
// copied so the session never aliases the caller's slice.
func (s *Store) SetSettings(ctx context.Context, id domain.SessionID, settings domain.ChatSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.find(id)
	if chat == nil {
		return domain.ErrSessionNotFound
	}
	chat.Settings = &domain.ChatSettings{
		UseGlobalSkills: settings.UseGlobalSkills,
		Skills:          domain.CloneSkills(settings.Skills),
	}
	s.flush(ctx)
	return nil
}

// SetSkillActive toggles one skill inside a session's override set. A session
// that has not diverged yet first snapshots the given global skills.
func (s *Store) SetSkillActive(ctx context.Context, id domain.SessionID, skillID string, active bool, globals []domain.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.find(id)
	if chat == nil {
		return domain.ErrSessionNotFound
	}
	if chat.Settings == nil {
		chat.Settings = &domain.ChatSettings{
			UseGlobalSkills: true,
			Skills:          domain.CloneSkills(globals),
		}
	}
	for i := range chat.Settings.Skills {
		if chat.Settings.Skills[i].ID == skillID {
			chat.Settings.Skills[i].IsActive = active
			break
		}
	}
	s.flush(ctx)
	return nil
}

func (s *Store) find(id domain.SessionID) *domain.Session {
	for _, c := range s.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// flush persists the whole list. Fire-and-forget: failures are logged and the
// in-memory mutation stands. Callers must hold the write lock.
func (s *Store) flush(ctx context.Context) {
	raw, err := json.Marshal(s.chats)
	if err != nil {
		s.log.Error("failed to encode sessions", "error", err)
		return
	}
	if err := s.state.Save(ctx, domain.StateKeySessions, raw); err != nil {
		s.log.Error("failed to persist sessions", "error", err)
	}
}
