package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"mentor/internal/config"
	"mentor/internal/domain"
)

// GeminiClient implements domain.LLMClient over the Gemini API or Vertex AI,
// depending on which credentials the config carries.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient prefers an API key (Gemini API backend); without one it
// falls back to Vertex AI with the configured project and location.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	var clientCfg *genai.ClientConfig
	switch {
	case cfg.GeminiAPIKey != "":
		clientCfg = &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		}
	case cfg.GCPProjectID != "":
		clientCfg = &genai.ClientConfig{
			Project:  cfg.GCPProjectID,
			Location: cfg.GCPLocation,
			Backend:  genai.BackendVertexAI,
		}
	default:
		return nil, fmt.Errorf("no Gemini API key and no GCP project configured")
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: cfg.ModelName,
	}, nil
}

// GenerateContent implements domain.LLMClient. Empty result text is returned
// as-is; the orchestrator owns the fallback strings.
func (c *GeminiClient) GenerateContent(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	contents := toContents(req.Turns)

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
	}
	if req.EnableMemoryTool {
		genCfg.Tools = []*genai.Tool{memoryTool()}
	}

	res, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	out := &domain.GenerateResult{Text: res.Text()}
	if calls := res.FunctionCalls(); len(calls) > 0 {
		out.Call = &domain.FunctionCall{
			Name: calls[0].Name,
			Args: calls[0].Args,
		}
	}
	return out, nil
}

// GenerateText implements the single-shot call used by the dialect
// synthesizer: no history, no system instruction, no tools.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	res, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate text: %w", err)
	}
	return res.Text(), nil
}

func toContents(turns []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		parts := make([]*genai.Part, 0, len(t.Parts))
		for _, p := range t.Parts {
			parts = append(parts, toPart(p))
		}
		contents = append(contents, genai.NewContentFromParts(parts, toRole(t.Role)))
	}
	return contents
}

func toRole(r domain.Role) genai.Role {
	if r == domain.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func toPart(p domain.Part) *genai.Part {
	switch {
	case p.Inline != nil:
		return &genai.Part{InlineData: &genai.Blob{
			MIMEType: p.Inline.MIMEType,
			Data:     p.Inline.Data,
		}}
	case p.FunctionCall != nil:
		return &genai.Part{FunctionCall: &genai.FunctionCall{
			Name: p.FunctionCall.Name,
			Args: p.FunctionCall.Args,
		}}
	case p.FunctionResponse != nil:
		return &genai.Part{FunctionResponse: &genai.FunctionResponse{
			Name:     p.FunctionResponse.Name,
			Response: p.FunctionResponse.Response,
		}}
	default:
		return genai.NewPartFromText(p.Text)
	}
}

// memoryTool is the one tool the backend may invoke: persist a fact to the
// global memory before answering.
func memoryTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name: domain.MemoryToolName,
			Description: "Guarda información importante sobre el usuario o su entorno de trabajo " +
				"(ej. configuraciones recurrentes, preferencias, perfil) en la memoria global compartida entre todos los chats.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					domain.MemoryToolArg: {
						Type:        genai.TypeString,
						Description: "La información a guardar en la memoria global.",
					},
				},
				Required: []string{domain.MemoryToolArg},
			},
		}},
	}
}
