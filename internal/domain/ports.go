package domain

import (
	"context"
	"errors"
)

// LLMClient defines how the core application talks to the generative backend.
type LLMClient interface {
	// GenerateContent issues one multi-turn call, optionally advertising the
	// memory-update tool.
	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// GenerateText issues a single-shot prompt with no history or tools.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// StateStore is the scoped key-value persistence surface. Each logical key is
// read once at startup and rewritten after every relevant mutation.
type StateStore interface {
	// Load returns the stored value and whether the key exists.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// The five logical state keys.
const (
	StateKeySessions        = "chats"
	StateKeyMemory          = "global_memory"
	StateKeySkills          = "global_skills"
	StateKeyDialectExamples = "dialect_examples"
	StateKeyDialectPack     = "dialect_pack"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptySubmission = errors.New("submission has no text and no images")
	ErrNoExamples      = errors.New("no dialect examples provided")
)
