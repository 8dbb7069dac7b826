package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mentor/internal/adapters/llm"
	memstore "mentor/internal/adapters/storage/memory"
	"mentor/internal/app/chat"
	"mentor/internal/app/dialect"
	"mentor/internal/app/memory"
	"mentor/internal/app/sessions"
	"mentor/internal/app/skills"
	"mentor/internal/domain"
)

type fixture struct {
	llm      *llm.MockLLM
	sessions *sessions.Store
	registry *skills.Registry
	memory   *memory.Store
	svc      *chat.Service
	chatID   domain.SessionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	state := memstore.NewStateStore()
	mock := llm.NewMockLLM()
	registry := skills.NewRegistry(ctx, state)
	memoryStore := memory.NewStore(ctx, state)
	sessionStore := sessions.NewStore(ctx, state)
	dialectSvc := dialect.NewService(ctx, state, mock)

	return &fixture{
		llm:      mock,
		sessions: sessionStore,
		registry: registry,
		memory:   memoryStore,
		svc:      chat.NewService(mock, sessionStore, registry, memoryStore, dialectSvc),
		chatID:   sessionStore.ActiveID(),
	}
}

func TestSendRejectsEmptySubmission(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "   "})
	if !errors.Is(err, domain.ErrEmptySubmission) {
		t.Fatalf("expected ErrEmptySubmission, got %v", err)
	}

	session, err := f.sessions.Get(f.chatID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(session.Messages) != 1 {
		t.Fatalf("rejected submission must not change the session, got %d messages", len(session.Messages))
	}
}

func TestSendPlainReply(t *testing.T) {
	f := newFixture(t)
	f.llm.Enqueue(llm.MockResponse{Result: &domain.GenerateResult{Text: "Claro, usa FUP INFO."}})

	out, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "¿Cómo veo un archivo?"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if out.ModelMessage.Text != "Claro, usa FUP INFO." {
		t.Fatalf("unexpected model text %q", out.ModelMessage.Text)
	}
	if out.MemoryUpdated || out.Failed {
		t.Fatalf("unexpected flags: %+v", out)
	}

	session, _ := f.sessions.Get(f.chatID)
	if len(session.Messages) != 3 {
		t.Fatalf("expected greeting + user + model, got %d messages", len(session.Messages))
	}
	if len(f.llm.Requests) != 1 {
		t.Fatalf("expected a single backend call, got %d", len(f.llm.Requests))
	}
	if !f.llm.Requests[0].EnableMemoryTool {
		t.Fatalf("primary call must advertise the memory tool")
	}
}

func TestSendHistoryExcludesGreetingAndLiveMessage(t *testing.T) {
	f := newFixture(t)
	f.llm.Enqueue(llm.MockResponse{Result: &domain.GenerateResult{Text: "ok"}})

	if _, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "primera"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Greeting dropped; the live message is the only turn.
	req := f.llm.Requests[0]
	if len(req.Turns) != 1 {
		t.Fatalf("expected exactly the live turn, got %d turns", len(req.Turns))
	}
	if req.Turns[0].Role != domain.RoleUser || req.Turns[0].Parts[0].Text != "primera" {
		t.Fatalf("unexpected live turn: %+v", req.Turns[0])
	}
}

func TestSendEmptyReplyFallback(t *testing.T) {
	f := newFixture(t)
	f.llm.Enqueue(llm.MockResponse{Result: &domain.GenerateResult{}})

	out, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "hola"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if out.ModelMessage.Text != "Lo siento, no pude generar una respuesta." {
		t.Fatalf("expected fixed fallback, got %q", out.ModelMessage.Text)
	}
}

func TestSendMemoryToolRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.llm.Enqueue(
		llm.MockResponse{Result: &domain.GenerateResult{Call: &domain.FunctionCall{
			Name: domain.MemoryToolName,
			Args: map[string]any{domain.MemoryToolArg: "el usuario prefiere COBOL 85"},
		}}},
		llm.MockResponse{Result: &domain.GenerateResult{Text: "Listo."}},
	)

	out, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "recuerda que uso COBOL 85"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !out.MemoryUpdated {
		t.Fatalf("expected MemoryUpdated")
	}
	if out.ModelMessage.Text != "Listo." {
		t.Fatalf("unexpected final text %q", out.ModelMessage.Text)
	}
	if f.memory.Text() != "- el usuario prefiere COBOL 85" {
		t.Fatalf("unexpected memory blob %q", f.memory.Text())
	}

	if len(f.llm.Requests) != 2 {
		t.Fatalf("expected primary plus follow-up, got %d calls", len(f.llm.Requests))
	}
	primary, followUp := f.llm.Requests[0], f.llm.Requests[1]
	if followUp.EnableMemoryTool {
		t.Fatalf("follow-up must not advertise the tool")
	}
	if followUp.SystemInstruction != primary.SystemInstruction {
		t.Fatalf("follow-up must reuse the already-composed instruction")
	}
	if len(followUp.Turns) != len(primary.Turns)+2 {
		t.Fatalf("follow-up must append the call and response turns, got %d vs %d",
			len(followUp.Turns), len(primary.Turns))
	}

	callTurn := followUp.Turns[len(followUp.Turns)-2]
	if callTurn.Role != domain.RoleModel || callTurn.Parts[0].FunctionCall == nil {
		t.Fatalf("missing function call turn: %+v", callTurn)
	}
	respTurn := followUp.Turns[len(followUp.Turns)-1]
	if respTurn.Role != domain.RoleUser || respTurn.Parts[0].FunctionResponse == nil {
		t.Fatalf("missing function response turn: %+v", respTurn)
	}
	if ok, _ := respTurn.Parts[0].FunctionResponse.Response["success"].(bool); !ok {
		t.Fatalf("function response must report success")
	}

	session, _ := f.sessions.Get(f.chatID)
	if len(session.Messages) != 3 {
		t.Fatalf("tool round-trip must still yield exactly one model message, got %d messages", len(session.Messages))
	}
}

func TestSendEmptyFollowUpGetsAck(t *testing.T) {
	f := newFixture(t)
	f.llm.Enqueue(
		llm.MockResponse{Result: &domain.GenerateResult{Call: &domain.FunctionCall{
			Name: domain.MemoryToolName,
			Args: map[string]any{domain.MemoryToolArg: "dato"},
		}}},
		llm.MockResponse{Result: &domain.GenerateResult{}},
	)

	out, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "guarda esto"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if out.ModelMessage.Text != "Memoria global actualizada." {
		t.Fatalf("expected memory ack, got %q", out.ModelMessage.Text)
	}
}

func TestSendMalformedMemoryToolArgs(t *testing.T) {
	for _, args := range []map[string]any{
		nil,
		{},
		{domain.MemoryToolArg: 42},
		{domain.MemoryToolArg: ""},
	} {
		f := newFixture(t)
		f.llm.Enqueue(
			llm.MockResponse{Result: &domain.GenerateResult{Call: &domain.FunctionCall{
				Name: domain.MemoryToolName,
				Args: args,
			}}},
			llm.MockResponse{Result: &domain.GenerateResult{Text: "ok"}},
		)

		out, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "hola"})
		if err != nil {
			t.Fatalf("Send failed for args %v: %v", args, err)
		}
		if f.memory.Text() != "" {
			t.Fatalf("malformed args %v wrote to memory: %q", args, f.memory.Text())
		}
		if out.MemoryUpdated {
			t.Fatalf("malformed args %v must not report a memory update", args)
		}
		if out.ModelMessage.Text != "ok" {
			t.Fatalf("follow-up answer lost for args %v: %q", args, out.ModelMessage.Text)
		}
	}
}

func TestSendInstructionMatchesUsedSkills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registry.SetActive(ctx, "fup_expert", true)
	f.registry.SetActive(ctx, "tacl_dialect", true)
	f.llm.Enqueue(llm.MockResponse{Result: &domain.GenerateResult{Text: "ok"}})

	out, err := f.svc.Send(ctx, chat.SendInput{SessionID: f.chatID, Text: "hola"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Both come from the same per-turn skill resolution: every skill credited
	// on the message must have contributed to the instruction, in order.
	if len(out.ModelMessage.UsedSkills) != 2 ||
		out.ModelMessage.UsedSkills[0] != "Experto FUP" ||
		out.ModelMessage.UsedSkills[1] != "TACL Dialecto Interno" {
		t.Fatalf("unexpected used skills %v", out.ModelMessage.UsedSkills)
	}
	instr := f.llm.Requests[0].SystemInstruction
	fupAt := strings.Index(instr, "mentor experto en FUP")
	dialectAt := strings.Index(instr, "Dialect Pack de TACL")
	if fupAt < 0 || dialectAt < 0 || fupAt > dialectAt {
		t.Fatalf("instruction skills disagree with used skills: %q", instr)
	}
}

func TestSendBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.llm.Enqueue(llm.MockResponse{Err: errors.New("backend unavailable")})

	out, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: f.chatID, Text: "hola"})
	if err != nil {
		t.Fatalf("backend failure must not surface as an error, got %v", err)
	}
	if !out.Failed {
		t.Fatalf("expected Failed flag")
	}
	if out.ModelMessage.Text != "Hubo un error al procesar tu solicitud. Por favor, intenta de nuevo." {
		t.Fatalf("unexpected error text %q", out.ModelMessage.Text)
	}
	if f.memory.Text() != "" {
		t.Fatalf("failed turn must not touch memory")
	}

	session, _ := f.sessions.Get(f.chatID)
	if len(session.Messages) != 3 {
		t.Fatalf("user message and error message must both be kept, got %d messages", len(session.Messages))
	}
	if session.Messages[1].Text != "hola" {
		t.Fatalf("user message lost on failure: %+v", session.Messages[1])
	}
}

func TestSendRecordsUsedSkills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registry.SetActive(ctx, "fup_expert", true)
	f.llm.Enqueue(llm.MockResponse{Result: &domain.GenerateResult{Text: "FUP DUP origen, destino"}})

	out, err := f.svc.Send(ctx, chat.SendInput{SessionID: f.chatID, Text: "duplica un archivo"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(out.ModelMessage.UsedSkills) != 1 || out.ModelMessage.UsedSkills[0] != "Experto FUP" {
		t.Fatalf("unexpected used skills %v", out.ModelMessage.UsedSkills)
	}
}

func TestSendUsesSessionSkillOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registry.SetActive(ctx, "fup_expert", true)

	err := f.sessions.SetSettings(ctx, f.chatID, domain.ChatSettings{
		UseGlobalSkills: false,
		Skills: []domain.Skill{
			{ID: "local", Name: "Local", PromptText: "SOLO LOCAL", IsActive: true, Priority: 1},
		},
	})
	if err != nil {
		t.Fatalf("SetSettings failed: %v", err)
	}

	f.llm.Enqueue(llm.MockResponse{Result: &domain.GenerateResult{Text: "ok"}})
	out, err := f.svc.Send(ctx, chat.SendInput{SessionID: f.chatID, Text: "hola"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(out.ModelMessage.UsedSkills) != 1 || out.ModelMessage.UsedSkills[0] != "Local" {
		t.Fatalf("override skills not used: %v", out.ModelMessage.UsedSkills)
	}
	// The global fup_expert skill must not leak into the instruction.
	instr := f.llm.Requests[0].SystemInstruction
	if !strings.Contains(instr, "SOLO LOCAL") {
		t.Fatalf("override prompt missing from instruction: %q", instr)
	}
	if strings.Contains(instr, "mentor experto en FUP") {
		t.Fatalf("global skill leaked into overridden session: %q", instr)
	}
}

func TestSendUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Send(context.Background(), chat.SendInput{SessionID: "missing", Text: "hola"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
