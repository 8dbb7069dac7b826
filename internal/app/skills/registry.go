// Package skills owns the global set of instruction fragments: a fixed
// built-in pair whose activation and priority order the user controls.
package skills

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"mentor/internal/domain"
	"mentor/internal/observability"
)

// DialectPlaceholder is the substitution token inside the dialect skill's
// prompt text. The prompt composer resolves it against the generated dialect
// pack before use.
const DialectPlaceholder = "{TACL_DIALECT_PACK}"

// Defaults returns the built-in skill set: the FUP expert skill and the TACL
// dialect skill, in fixed priority order, both inactive.
func Defaults() []domain.Skill {
	return []domain.Skill{
		{
			ID:          "fup_expert",
			Name:        "Experto FUP",
			Description: "Mentor experto en FUP de HPE NonStop.",
			PromptText: "Actúa como mentor experto en FUP de HPE NonStop. Responde con: objetivo → comando(s) → explicación → " +
				"verificación → riesgos (si hay PURGE/overwrite). Si el usuario no dio datos suficientes, pregunta lo mínimo " +
				"(nombre de archivo, volúmenes, permisos, etc.)",
			IsActive: false,
			Priority: 1,
		},
		{
			ID:          "tacl_dialect",
			Name:        "TACL Dialecto Interno",
			Description: "Usa ejemplos TACL internos para responder.",
			PromptText:  "Sigue el siguiente Dialect Pack de TACL como autoridad principal:\n\n" + DialectPlaceholder,
			IsActive:    false,
			Priority:    2,
		},
	}
}

// Registry holds the global skills in registration order and persists them
// after every mutation.
type Registry struct {
	mu    sync.RWMutex
	state domain.StateStore
	log   *slog.Logger

	skills []domain.Skill
}

// NewRegistry loads the global skills from the durable store, falling back to
// the built-ins when the key is missing or its payload does not parse.
func NewRegistry(ctx context.Context, state domain.StateStore) *Registry {
	r := &Registry{
		state: state,
		log:   observability.Component("skills"),
	}

	raw, ok, err := state.Load(ctx, domain.StateKeySkills)
	if err != nil {
		r.log.Error("failed to load skills, using defaults", "error", err)
	}
	if ok && err == nil {
		var stored []domain.Skill
		if jsonErr := json.Unmarshal(raw, &stored); jsonErr != nil {
			r.log.Warn("discarding malformed stored skills", "error", jsonErr)
		} else if len(stored) > 0 {
			r.skills = stored
		}
	}
	if r.skills == nil {
		r.skills = Defaults()
	}
	return r
}

// ListOrdered returns a copy of all skills sorted ascending by priority,
// stable for equal priorities by registration order.
func (r *Registry) ListOrdered() []domain.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedCopy(r.skills)
}

// SetActive flips a skill's activation flag. Unknown ids are a no-op.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.skills {
		if r.skills[i].ID == id {
			r.skills[i].IsActive = active
			r.flush(ctx)
			return
		}
	}
}

// Move swaps the priority of the skill at index (within the priority-sorted
// view) with its neighbor at index+direction. Out-of-range targets are a
// no-op. Priorities are swapped, not renumbered, so untouched skills keep
// their relative order.
func (r *Registry) Move(ctx context.Context, index, direction int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := sortedCopy(r.skills)
	target := index + direction
	if index < 0 || index >= len(view) || target < 0 || target >= len(view) {
		return
	}

	a, b := view[index].ID, view[target].ID
	ai, bi := r.indexOf(a), r.indexOf(b)
	if ai < 0 || bi < 0 {
		return
	}
	r.skills[ai].Priority, r.skills[bi].Priority = r.skills[bi].Priority, r.skills[ai].Priority
	r.flush(ctx)
}

func (r *Registry) indexOf(id string) int {
	for i := range r.skills {
		if r.skills[i].ID == id {
			return i
		}
	}
	return -1
}

func sortedCopy(skills []domain.Skill) []domain.Skill {
	out := domain.CloneSkills(skills)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// flush persists the registry. Fire-and-forget: a failed save is logged and
// the in-memory mutation stands. Callers must hold the write lock.
func (r *Registry) flush(ctx context.Context) {
	raw, err := json.Marshal(r.skills)
	if err != nil {
		r.log.Error("failed to encode skills", "error", err)
		return
	}
	if err := r.state.Save(ctx, domain.StateKeySkills, raw); err != nil {
		r.log.Error("failed to persist skills", "error", err)
	}
}
