package memory_test

import (
	"context"
	"testing"

	memstore "mentor/internal/adapters/storage/memory"
	"mentor/internal/app/memory"
)

func TestMemoryStartsEmpty(t *testing.T) {
	s := memory.NewStore(context.Background(), memstore.NewStateStore())
	if s.Text() != "" {
		t.Fatalf("expected empty memory, got %q", s.Text())
	}
}

func TestMemoryAppendFormatsBullets(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(ctx, memstore.NewStateStore())

	if got := s.Append(ctx, "usa COBOL 85"); got != "- usa COBOL 85" {
		t.Fatalf("unexpected first append %q", got)
	}
	if got := s.Append(ctx, "terminal WIN6530"); got != "- usa COBOL 85\n- terminal WIN6530" {
		t.Fatalf("unexpected second append %q", got)
	}
}

func TestMemoryPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	state := memstore.NewStateStore()

	s := memory.NewStore(ctx, state)
	s.Append(ctx, "dato recurrente")

	reloaded := memory.NewStore(ctx, state)
	if reloaded.Text() != "- dato recurrente" {
		t.Fatalf("memory not restored: %q", reloaded.Text())
	}
}
