package memory_test

import (
	"context"
	"testing"

	"mentor/internal/adapters/storage/memory"
)

func TestStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStateStore()

	if _, ok, err := s.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing key must report ok=false, got ok=%v err=%v", ok, err)
	}

	if err := s.Save(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, ok, err := s.Load(ctx, "k")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("unexpected load: %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Save(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, _, _ = s.Load(ctx, "k")
	if string(got) != "v2" {
		t.Fatalf("overwrite not visible: %q", got)
	}
}

func TestStateStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStateStore()

	in := []byte("abc")
	s.Save(ctx, "k", in)
	in[0] = 'x'

	got, _, _ := s.Load(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliases caller slice: %q", got)
	}

	got[0] = 'y'
	again, _, _ := s.Load(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("loaded value aliases internal state: %q", again)
	}
}
