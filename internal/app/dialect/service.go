// Package dialect turns a corpus of pasted TACL snippets into a derived
// reference document (the "dialect pack") through one backend call. The pack
// feeds the dialect skill's placeholder at prompt-composition time.
package dialect

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"mentor/internal/domain"
	"mentor/internal/observability"
)

const generatePrompt = `Analiza los siguientes ejemplos de código TACL interno y genera un "Dialect Pack". El Dialect Pack debe contener un glosario, reglas de sintaxis/semántica observadas, y patrones comunes. Formatea la salida en Markdown claro y conciso.

Ejemplos:
`

// Service holds the examples corpus and the generated pack, persisting each
// under its own state key.
type Service struct {
	mu    sync.RWMutex
	state domain.StateStore
	llm   domain.LLMClient
	log   *slog.Logger

	examples string
	pack     string
}

func NewService(ctx context.Context, state domain.StateStore, llm domain.LLMClient) *Service {
	s := &Service{
		state: state,
		llm:   llm,
		log:   observability.Component("dialect"),
	}

	if raw, ok, err := state.Load(ctx, domain.StateKeyDialectExamples); err != nil {
		s.log.Error("failed to load dialect examples", "error", err)
	} else if ok {
		s.examples = string(raw)
	}
	if raw, ok, err := state.Load(ctx, domain.StateKeyDialectPack); err != nil {
		s.log.Error("failed to load dialect pack", "error", err)
	} else if ok {
		s.pack = string(raw)
	}
	return s
}

func (s *Service) Examples() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.examples
}

func (s *Service) Pack() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pack
}

// SetExamples replaces the examples corpus.
func (s *Service) SetExamples(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.examples = text
	if err := s.state.Save(ctx, domain.StateKeyDialectExamples, []byte(text)); err != nil {
		s.log.Error("failed to persist dialect examples", "error", err)
	}
}

// Generate derives a fresh dialect pack from the examples corpus, replacing
// the previous pack in full. An empty corpus is rejected; on backend failure
// (or an empty result) the previous pack is left untouched.
func (s *Service) Generate(ctx context.Context) (string, error) {
	s.mu.RLock()
	examples := s.examples
	s.mu.RUnlock()

	if strings.TrimSpace(examples) == "" {
		return "", domain.ErrNoExamples
	}

	text, err := s.llm.GenerateText(ctx, generatePrompt+examples)
	if err != nil {
		s.log.Error("dialect pack generation failed", "error", err)
		return "", err
	}
	if text == "" {
		s.log.Warn("dialect pack generation returned empty text, keeping previous pack")
		return s.Pack(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pack = text
	if err := s.state.Save(ctx, domain.StateKeyDialectPack, []byte(text)); err != nil {
		s.log.Error("failed to persist dialect pack", "error", err)
	}
	return text, nil
}
