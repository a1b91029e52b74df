package vision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures a Gemini backend. Either APIKey (Gemini API) or
// Project (Vertex AI) must resolve to a non-empty value.
type GeminiConfig struct {
	// APIKey for the Gemini API. Falls back to GEMINI_API_KEY, then
	// GOOGLE_API_KEY.
	APIKey string

	// Project and Location select the Vertex AI backend when Project is set.
	Project  string
	Location string

	// Model overrides DefaultGeminiModel.
	Model string

	// Temperature for every request. Nil keeps the model default.
	Temperature *float32
}

// Gemini is a Backend served by Google's Gemini models.
type Gemini struct {
	models      *genai.Models
	model       string
	temperature *float32
}

// NewGemini creates a Gemini backend. It returns ErrMissingCredentials when
// neither an API key nor a Vertex AI project is available.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.Project != "":
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		if cc.Location == "" {
			cc.Location = "us-central1"
		}
	default:
		key := firstNonEmpty(cfg.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: set GEMINI_API_KEY or a Vertex AI project", ErrMissingCredentials)
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = key
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("vision: creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: client.Models, model: model, temperature: cfg.Temperature}, nil
}

// Model implements Backend.
func (g *Gemini) Model() string { return g.model }

// Generate implements Backend.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	var parts []*genai.Part
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, req.imageMIME()))
	}
	if req.Text != "" {
		parts = append(parts, genai.NewPartFromText(req.Text))
	}

	cfg := &genai.GenerateContentConfig{Temperature: g.temperature}
	if req.Instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("vision: gemini generate: %w", err)
	}
	return geminiText(resp)
}

// geminiText concatenates the non-thought text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("vision: gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
