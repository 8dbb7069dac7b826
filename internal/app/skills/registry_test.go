package skills_test

import (
	"context"
	"testing"

	memstore "mentor/internal/adapters/storage/memory"
	"mentor/internal/app/skills"
)

func TestRegistryDefaults(t *testing.T) {
	ctx := context.Background()
	r := skills.NewRegistry(ctx, memstore.NewStateStore())

	list := r.ListOrdered()
	if len(list) != 2 {
		t.Fatalf("expected 2 built-in skills, got %d", len(list))
	}
	if list[0].ID != "fup_expert" || list[1].ID != "tacl_dialect" {
		t.Fatalf("unexpected default order: %s, %s", list[0].ID, list[1].ID)
	}
	for _, s := range list {
		if s.IsActive {
			t.Fatalf("built-in skill %s must start inactive", s.ID)
		}
	}
}

func TestRegistrySetActive(t *testing.T) {
	ctx := context.Background()
	r := skills.NewRegistry(ctx, memstore.NewStateStore())

	r.SetActive(ctx, "fup_expert", true)
	list := r.ListOrdered()
	if !list[0].IsActive {
		t.Fatalf("fup_expert not activated")
	}
	if list[1].IsActive {
		t.Fatalf("tacl_dialect flipped unexpectedly")
	}
}

func TestRegistrySetActiveUnknownID(t *testing.T) {
	ctx := context.Background()
	r := skills.NewRegistry(ctx, memstore.NewStateStore())

	before := r.ListOrdered()
	r.SetActive(ctx, "no_such_skill", true)
	after := r.ListOrdered()

	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("unknown id mutated the registry: %+v vs %+v", before[i], after[i])
		}
	}
}

func TestRegistryMoveSwapsPriorities(t *testing.T) {
	ctx := context.Background()
	r := skills.NewRegistry(ctx, memstore.NewStateStore())

	r.Move(ctx, 1, -1)
	list := r.ListOrdered()
	if list[0].ID != "tacl_dialect" || list[1].ID != "fup_expert" {
		t.Fatalf("move did not swap order: %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].Priority >= list[1].Priority {
		t.Fatalf("priorities not swapped: %d, %d", list[0].Priority, list[1].Priority)
	}
}

func TestRegistryMoveOutOfRange(t *testing.T) {
	ctx := context.Background()
	r := skills.NewRegistry(ctx, memstore.NewStateStore())
	before := r.ListOrdered()

	r.Move(ctx, 0, -1)
	r.Move(ctx, 1, 1)
	r.Move(ctx, 5, -1)

	after := r.ListOrdered()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("out-of-range move mutated the registry")
		}
	}
}

func TestRegistryPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	state := memstore.NewStateStore()

	r := skills.NewRegistry(ctx, state)
	r.SetActive(ctx, "tacl_dialect", true)
	r.Move(ctx, 1, -1)

	reloaded := skills.NewRegistry(ctx, state)
	list := reloaded.ListOrdered()
	if list[0].ID != "tacl_dialect" || !list[0].IsActive {
		t.Fatalf("state not restored after reload: %+v", list)
	}
}
