// Package chat drives one user turn end to end: compose the instruction,
// serialize the history, call the backend, run the optional memory tool
// round-trip, and merge the final message back into the session.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"mentor/internal/app/dialect"
	"mentor/internal/app/memory"
	"mentor/internal/app/sessions"
	"mentor/internal/app/skills"
	"mentor/internal/domain"
	"mentor/internal/observability"
)

// Fixed user-visible strings. A turn never ends with a blank or missing model
// message: empty backend text and transport failures are both substituted.
const (
	emptyReplyFallback = "Lo siento, no pude generar una respuesta."
	memoryUpdatedAck   = "Memoria global actualizada."
	backendErrorText   = "Hubo un error al procesar tu solicitud. Por favor, intenta de nuevo."
)

type Service struct {
	llm      domain.LLMClient
	sessions *sessions.Store
	registry *skills.Registry
	memory   *memory.Store
	dialect  *dialect.Service
	now      func() time.Time
	newID    func() string
}

func NewService(
	llm domain.LLMClient,
	sessionStore *sessions.Store,
	registry *skills.Registry,
	memoryStore *memory.Store,
	dialectSvc *dialect.Service,
) *Service {
	return &Service{
		llm:      llm,
		sessions: sessionStore,
		registry: registry,
		memory:   memoryStore,
		dialect:  dialectSvc,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type SendInput struct {
	SessionID domain.SessionID
	Text      string
	Images    [][]byte
}

type SendOutput struct {
	UserMessage  domain.Message
	ModelMessage domain.Message
	// MemoryUpdated reports that the backend invoked the memory tool this turn.
	MemoryUpdated bool
	// Failed reports that a backend call failed and ModelMessage carries the
	// fixed error text instead of a real answer.
	Failed bool
}

// Send runs one user turn. A submission with no text and no images is
// rejected with ErrEmptySubmission and no state change. Backend failures do
// not return an error: the user's message is preserved and the turn completes
// with the fixed error message appended.
func (s *Service) Send(ctx context.Context, in SendInput) (*SendOutput, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Images) == 0 {
		return nil, domain.ErrEmptySubmission
	}

	// History snapshot before the optimistic append: the new message rides as
	// the trailing user turn, not as part of the serialized history.
	session, err := s.sessions.Get(in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("session_id", session.ID)

	machine := newTurn()
	if err := machine.advance(stateComposing); err != nil {
		return nil, err
	}

	userMsg := domain.Message{
		ID:     domain.MessageID(s.newID()),
		Role:   domain.RoleUser,
		Text:   in.Text,
		Images: in.Images,
	}
	if _, err := s.sessions.Append(ctx, session.ID, userMsg); err != nil {
		return nil, err
	}

	// One skill-source resolution per turn: UsedSkills provenance and the
	// composed instruction must agree even if a toggle lands mid-turn.
	skillList := s.skillSource(session)
	activeSkills := ActiveOrdered(skillList)
	instruction := ComposeInstruction(SystemInstruction, skillList, s.dialect.Pack(), s.memory.Text())

	turns := append(SerializeHistory(session.Messages), NewUserTurn(userMsg))

	if err := machine.advance(stateAwaitingPrimary); err != nil {
		return nil, err
	}
	log.Info("primary backend call", "turns", len(turns), "active_skills", len(activeSkills))

	res, err := s.llm.GenerateContent(ctx, domain.GenerateRequest{
		SystemInstruction: instruction,
		Turns:             turns,
		EnableMemoryTool:  true,
	})
	if err != nil {
		log.Error("primary backend call failed", "error", err)
		return s.fail(ctx, machine, session.ID, userMsg)
	}

	finalText := res.Text
	memoryUpdated := false

	if res.Call != nil && res.Call.Name == domain.MemoryToolName {
		if err := machine.advance(stateAwaitingTool); err != nil {
			return nil, err
		}

		// A malformed invocation (missing or non-string argument) must not
		// pollute the memory blob with a blank bullet.
		if info, ok := res.Call.Args[domain.MemoryToolArg].(string); ok && info != "" {
			s.memory.Append(ctx, info)
			memoryUpdated = true
		}
		log.Info("memory tool invoked", "memory_updated", memoryUpdated)

		// The already-composed instruction is resubmitted on purpose: the
		// in-flight turn is not re-composed against the just-updated memory.
		followTurns := append(turns,
			domain.Turn{Role: domain.RoleModel, Parts: []domain.Part{{FunctionCall: res.Call}}},
			domain.Turn{Role: domain.RoleUser, Parts: []domain.Part{{FunctionResponse: &domain.FunctionResponse{
				Name:     res.Call.Name,
				Response: map[string]any{"success": true},
			}}}},
		)

		followRes, err := s.llm.GenerateContent(ctx, domain.GenerateRequest{
			SystemInstruction: instruction,
			Turns:             followTurns,
		})
		if err != nil {
			log.Error("tool follow-up call failed", "error", err)
			return s.fail(ctx, machine, session.ID, userMsg)
		}

		// Only one tool round-trip per turn: a second call in the follow-up is
		// not processed, its text (if any) is still the final answer.
		finalText = followRes.Text
		if finalText == "" {
			finalText = memoryUpdatedAck
		}
	} else if finalText == "" {
		finalText = emptyReplyFallback
	}

	modelMsg := domain.Message{
		ID:   domain.MessageID(s.newID()),
		Role: domain.RoleModel,
		Text: finalText,
	}
	if len(activeSkills) > 0 {
		names := make([]string, len(activeSkills))
		for i, sk := range activeSkills {
			names[i] = sk.Name
		}
		modelMsg.UsedSkills = names
	}

	if _, err := s.sessions.Append(ctx, session.ID, modelMsg); err != nil {
		return nil, err
	}
	if err := machine.advance(stateDone); err != nil {
		return nil, err
	}
	log.Info("turn completed", "memory_updated", memoryUpdated)

	return &SendOutput{
		UserMessage:   userMsg,
		ModelMessage:  modelMsg,
		MemoryUpdated: memoryUpdated,
	}, nil
}

// fail ends the turn with the fixed error message. The user's own message is
// already in the session and stays there.
func (s *Service) fail(ctx context.Context, machine *turnMachine, id domain.SessionID, userMsg domain.Message) (*SendOutput, error) {
	if err := machine.advance(stateFailed); err != nil {
		return nil, err
	}
	errMsg := domain.Message{
		ID:   domain.MessageID(s.newID()),
		Role: domain.RoleModel,
		Text: backendErrorText,
	}
	if _, err := s.sessions.Append(ctx, id, errMsg); err != nil {
		return nil, err
	}
	return &SendOutput{
		UserMessage:  userMsg,
		ModelMessage: errMsg,
		Failed:       true,
	}, nil
}

// skillSource resolves where this turn's skills come from: the session's
// override snapshot when it has diverged, the global registry otherwise.
func (s *Service) skillSource(session *domain.Session) []domain.Skill {
	if session.Settings != nil && !session.Settings.UseGlobalSkills {
		return domain.CloneSkills(session.Settings.Skills)
	}
	return s.registry.ListOrdered()
}
