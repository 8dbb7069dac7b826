package domain

import "time"

// Skill is a named, prioritized instruction fragment that shapes how the
// assistant answers. Skills are toggled and reordered, never created or
// deleted at runtime.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PromptText  string `json:"prompt_text"`
	IsActive    bool   `json:"is_active"`
	Priority    int    `json:"priority"`
}

// CloneSkills returns an independent copy of a skill list. Sessions keep a
// snapshot of the global skills once they diverge, never a reference.
func CloneSkills(skills []Skill) []Skill {
	out := make([]Skill, len(skills))
	copy(out, skills)
	return out
}

// ChatSettings is the optional per-session skill override. When
// UseGlobalSkills is true the session defers entirely to the global registry
// and Skills is not consulted.
type ChatSettings struct {
	UseGlobalSkills bool    `json:"use_global_skills"`
	Skills          []Skill `json:"skills"`
}

// Message is one entry in a session timeline. Immutable once appended.
// Images hold encoded JPEG payloads in capture order.
type Message struct {
	ID         MessageID `json:"id"`
	Role       Role      `json:"role"`
	Text       string    `json:"text,omitempty"`
	Images     [][]byte  `json:"images,omitempty"`
	UsedSkills []string  `json:"used_skills,omitempty"`
}

// Session is one independent conversation with the assistant.
type Session struct {
	ID         SessionID     `json:"id"`
	Title      string        `json:"title"`
	Messages   []Message     `json:"messages"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Settings   *ChatSettings `json:"settings,omitempty"`
	IsArchived bool          `json:"is_archived,omitempty"`
}

// Clone returns a snapshot of the session safe to hand to readers while the
// store keeps mutating the original.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	if s.Settings != nil {
		out.Settings = &ChatSettings{
			UseGlobalSkills: s.Settings.UseGlobalSkills,
			Skills:          CloneSkills(s.Settings.Skills),
		}
	}
	return &out
}
