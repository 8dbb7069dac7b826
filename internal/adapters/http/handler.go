package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"mentor/internal/app/chat"
	"mentor/internal/app/dialect"
	"mentor/internal/app/memory"
	"mentor/internal/app/sessions"
	"mentor/internal/app/skills"
	"mentor/internal/auth"
	"mentor/internal/domain"
)

type Server struct {
	chat     *chat.Service
	sessions *sessions.Store
	registry *skills.Registry
	memory   *memory.Store
	dialect  *dialect.Service

	auth        *auth.Manager
	accessToken string
}

func NewServer(
	chatSvc *chat.Service,
	sessionStore *sessions.Store,
	registry *skills.Registry,
	memoryStore *memory.Store,
	dialectSvc *dialect.Service,
	authMgr *auth.Manager,
	accessToken string,
) http.Handler {
	s := &Server{
		chat:        chatSvc,
		sessions:    sessionStore,
		registry:    registry,
		memory:      memoryStore,
		dialect:     dialectSvc,
		auth:        authMgr,
		accessToken: accessToken,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/session", s.handleAuthSession)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/chats", s.handleListChats)
	api.HandleFunc("POST /api/chats", s.handleCreateChat)
	api.HandleFunc("GET /api/chats/{id}", s.handleGetChat)
	api.HandleFunc("POST /api/chats/{id}/messages", s.handleSendMessage)
	api.HandleFunc("POST /api/chats/{id}/activate", s.handleActivateChat)
	api.HandleFunc("POST /api/chats/{id}/archive", s.handleArchiveChat)
	api.HandleFunc("DELETE /api/chats/{id}", s.handleDeleteChat)
	api.HandleFunc("PUT /api/chats/{id}/settings", s.handleSetChatSettings)
	api.HandleFunc("POST /api/chats/{id}/skills/{skillID}", s.handleToggleChatSkill)

	api.HandleFunc("GET /api/skills", s.handleListSkills)
	api.HandleFunc("POST /api/skills/{id}/active", s.handleToggleSkill)
	api.HandleFunc("POST /api/skills/move", s.handleMoveSkill)

	api.HandleFunc("GET /api/memory", s.handleGetMemory)

	api.HandleFunc("GET /api/dialect", s.handleGetDialect)
	api.HandleFunc("PUT /api/dialect/examples", s.handleSetDialectExamples)
	api.HandleFunc("POST /api/dialect/generate", s.handleGenerateDialect)

	// Everything under /api/ except the auth endpoints requires the cookie;
	// the more specific auth patterns above win over this subtree.
	mux.Handle("/api/", s.requireAuth(api))

	return chainMiddlewares(mux, withLogging, withCORS, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type loginRequest struct {
	Token string `json:"token"`
}

type chatSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UpdatedAt  time.Time `json:"updated_at"`
	IsArchived bool      `json:"is_archived"`
}

type messageResponse struct {
	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Text       string   `json:"text,omitempty"`
	Images     []string `json:"images,omitempty"`
	UsedSkills []string `json:"used_skills,omitempty"`
}

type chatResponse struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Messages   []messageResponse `json:"messages"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Settings   *settingsPayload  `json:"settings,omitempty"`
	IsArchived bool              `json:"is_archived"`
}

type settingsPayload struct {
	UseGlobalSkills bool           `json:"use_global_skills"`
	Skills          []domain.Skill `json:"skills"`
}

type listChatsResponse struct {
	Chats    []chatSummary `json:"chats"`
	ActiveID string        `json:"active_id"`
}

type sendMessageRequest struct {
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"` // base64, optionally as data URLs
}

type sendMessageResponse struct {
	UserMessage   messageResponse `json:"user_message"`
	ModelMessage  messageResponse `json:"model_message"`
	Title         string          `json:"title"`
	MemoryUpdated bool            `json:"memory_updated"`
	Failed        bool            `json:"failed,omitempty"`
}

type activeChatResponse struct {
	ActiveID string `json:"active_id"`
}

type toggleRequest struct {
	IsActive bool `json:"is_active"`
}

type moveSkillRequest struct {
	Index     int `json:"index"`
	Direction int `json:"direction"`
}

type dialectResponse struct {
	Examples string `json:"examples"`
	Pack     string `json:"pack"`
}

type dialectExamplesRequest struct {
	Examples string `json:"examples"`
}

// ─────────────────────────────────────────────
// Auth handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if s.accessToken == "" || req.Token != s.accessToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token inválido"})
		return
	}

	http.SetCookie(w, auth.Cookie(s.auth.Issue()))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	// Any verification failure is "not authenticated", never an error.
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": s.auth.Authenticated(r)})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, auth.ClearCookie())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ─────────────────────────────────────────────
// Chat handlers
// ─────────────────────────────────────────────

func (s *Server) handleListChats(w http.ResponseWriter, _ *http.Request) {
	chats := s.sessions.List()
	out := make([]chatSummary, 0, len(chats))
	for _, c := range chats {
		out = append(out, chatSummary{
			ID:         string(c.ID),
			Title:      c.Title,
			UpdatedAt:  c.UpdatedAt,
			IsArchived: c.IsArchived,
		})
	}
	writeJSON(w, http.StatusOK, listChatsResponse{
		Chats:    out,
		ActiveID: string(s.sessions.ActiveID()),
	})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.NewChat(r.Context())
	writeJSON(w, http.StatusCreated, toChatResponse(c))
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	c, err := s.sessions.Get(domain.SessionID(r.PathValue("id")))
	if err != nil {
		notFoundOrError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(c))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	images, err := decodeImages(req.Images)
	if err != nil {
		badRequest(w, "invalid image payload")
		return
	}

	out, err := s.chat.Send(r.Context(), chat.SendInput{
		SessionID: domain.SessionID(r.PathValue("id")),
		Text:      req.Text,
		Images:    images,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptySubmission) {
			badRequest(w, "text or images are required")
			return
		}
		notFoundOrError(w, r, err)
		return
	}

	session, err := s.sessions.Get(domain.SessionID(r.PathValue("id")))
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:   toMessageResponse(out.UserMessage),
		ModelMessage:  toMessageResponse(out.ModelMessage),
		Title:         session.Title,
		MemoryUpdated: out.MemoryUpdated,
		Failed:        out.Failed,
	})
}

func (s *Server) handleActivateChat(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SetActive(domain.SessionID(r.PathValue("id"))); err != nil {
		notFoundOrError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activeChatResponse{ActiveID: string(s.sessions.ActiveID())})
}

func (s *Server) handleArchiveChat(w http.ResponseWriter, r *http.Request) {
	activeID, err := s.sessions.Archive(r.Context(), domain.SessionID(r.PathValue("id")))
	if err != nil {
		notFoundOrError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activeChatResponse{ActiveID: string(activeID)})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	activeID, err := s.sessions.Delete(r.Context(), domain.SessionID(r.PathValue("id")))
	if err != nil {
		notFoundOrError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activeChatResponse{ActiveID: string(activeID)})
}

func (s *Server) handleSetChatSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	err := s.sessions.SetSettings(r.Context(), domain.SessionID(r.PathValue("id")), domain.ChatSettings{
		UseGlobalSkills: req.UseGlobalSkills,
		Skills:          req.Skills,
	})
	if err != nil {
		notFoundOrError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleToggleChatSkill(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	err := s.sessions.SetSkillActive(
		r.Context(),
		domain.SessionID(r.PathValue("id")),
		r.PathValue("skillID"),
		req.IsActive,
		s.registry.ListOrdered(),
	)
	if err != nil {
		notFoundOrError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ─────────────────────────────────────────────
// Skill / memory / dialect handlers
// ─────────────────────────────────────────────

func (s *Server) handleListSkills(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.Skill{"skills": s.registry.ListOrdered()})
}

func (s *Server) handleToggleSkill(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	s.registry.SetActive(r.Context(), r.PathValue("id"), req.IsActive)
	writeJSON(w, http.StatusOK, map[string][]domain.Skill{"skills": s.registry.ListOrdered()})
}

func (s *Server) handleMoveSkill(w http.ResponseWriter, r *http.Request) {
	var req moveSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	s.registry.Move(r.Context(), req.Index, req.Direction)
	writeJSON(w, http.StatusOK, map[string][]domain.Skill{"skills": s.registry.ListOrdered()})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"memory": s.memory.Text()})
}

func (s *Server) handleGetDialect(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dialectResponse{
		Examples: s.dialect.Examples(),
		Pack:     s.dialect.Pack(),
	})
}

func (s *Server) handleSetDialectExamples(w http.ResponseWriter, r *http.Request) {
	var req dialectExamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	s.dialect.SetExamples(r.Context(), req.Examples)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGenerateDialect(w http.ResponseWriter, r *http.Request) {
	pack, err := s.dialect.Generate(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoExamples) {
			badRequest(w, "no dialect examples provided")
			return
		}
		// Prior pack is retained; the front-end shows this as an alert.
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Error al generar el Dialect Pack."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pack": pack})
}

// ─────────────────────────────────────────────
// Conversion helpers
// ─────────────────────────────────────────────

func toChatResponse(c *domain.Session) chatResponse {
	msgs := make([]messageResponse, 0, len(c.Messages))
	for _, m := range c.Messages {
		msgs = append(msgs, toMessageResponse(m))
	}

	out := chatResponse{
		ID:         string(c.ID),
		Title:      c.Title,
		Messages:   msgs,
		UpdatedAt:  c.UpdatedAt,
		IsArchived: c.IsArchived,
	}
	if c.Settings != nil {
		out.Settings = &settingsPayload{
			UseGlobalSkills: c.Settings.UseGlobalSkills,
			Skills:          c.Settings.Skills,
		}
	}
	return out
}

func toMessageResponse(m domain.Message) messageResponse {
	var images []string
	for _, img := range m.Images {
		images = append(images, base64.StdEncoding.EncodeToString(img))
	}
	return messageResponse{
		ID:         string(m.ID),
		Role:       string(m.Role),
		Text:       m.Text,
		Images:     images,
		UsedSkills: m.UsedSkills,
	}
}

// decodeImages accepts raw base64 payloads or full data URLs.
func decodeImages(raw []string) ([][]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([][]byte, 0, len(raw))
	for _, img := range raw {
		if _, after, ok := strings.Cut(img, "base64,"); ok {
			img = after
		}
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, _ error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func notFoundOrError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.NotFound(w, r)
		return
	}
	internalError(w, err)
}
