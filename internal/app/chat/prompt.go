package chat

import (
	"sort"
	"strings"

	"mentor/internal/app/skills"
	"mentor/internal/domain"
)

// SystemInstruction is the base identity prompt for every turn.
const SystemInstruction = `Eres un desarrollador senior de mainframe y consultor experto especializado en WIN6530, TANDEM (NonStop), GUARDIAN 90, COBOL, TACL, OSS, y entornos bancarios. Tienes un profundo conocimiento de cómo se comunican los programas en estos entornos y cómo operan. Tu objetivo es actuar como un "libro viviente" y asistente profesional personal. Cuando el usuario pregunte cómo hacer algo, proporciona una guía clara, precisa y práctica. Ofrece consejos, mejores prácticas e instrucciones paso a paso. Si el usuario proporciona una imagen de código, analízala, traduce/explica qué está haciendo y ofrece consejos o enseñanza basados en el contexto. Sé siempre profesional, alentador y altamente técnico. Responde en español.

REGLA DE PRIORIDAD: Al responder, usa primero el contexto del chat actual. Solo si ayuda, complementa con la memoria global compartida, sin desplazar el hilo actual.`

const (
	skillsHeader = "SKILLS ACTIVAS:"
	memoryHeader = "MEMORIA GLOBAL (conocimientos recurrentes del usuario):"

	noDialectPackFallback = "No hay dialect pack definido."
)

// ActiveOrdered filters a skill list to the active ones, sorted ascending by
// priority (stable for ties). The input is never mutated.
func ActiveOrdered(list []domain.Skill) []domain.Skill {
	var out []domain.Skill
	for _, s := range list {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// ComposeInstruction builds the effective system instruction for one turn:
// base instruction, then the active-skills block, then the global-memory
// block, each only when non-empty. Pure: identical inputs yield an identical
// string.
func ComposeInstruction(base string, skillList []domain.Skill, dialectPack, memory string) string {
	var fragments []string
	for _, s := range ActiveOrdered(skillList) {
		fragments = append(fragments, resolvePromptText(s.PromptText, dialectPack))
	}

	blocks := []string{base}
	if len(fragments) > 0 {
		blocks = append(blocks, skillsHeader+"\n"+strings.Join(fragments, "\n\n"))
	}
	if memory != "" {
		blocks = append(blocks, memoryHeader+"\n"+memory)
	}
	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

// resolvePromptText substitutes the dialect pack into prompt texts that carry
// the placeholder token, falling back to a fixed notice when no pack exists.
func resolvePromptText(promptText, dialectPack string) string {
	if !strings.Contains(promptText, skills.DialectPlaceholder) {
		return promptText
	}
	pack := dialectPack
	if pack == "" {
		pack = noDialectPackFallback
	}
	return strings.ReplaceAll(promptText, skills.DialectPlaceholder, pack)
}
