// Package provider implements the generative backend on the Google Gemini
// API.
package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"kanad/internal/domain"
)

// Gemini drives text streaming, structured roadmap generation, and image
// generation through one genai client.
type Gemini struct {
	client     *genai.Client
	imageModel string
	jsonModel  string
	logger     *slog.Logger
}

// Config for the Gemini provider.
type Config struct {
	APIKey     string
	ImageModel string
	JSONModel  string
	Logger     *slog.Logger
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{
		client:     client,
		imageModel: cfg.ImageModel,
		jsonModel:  cfg.JSONModel,
		logger:     logger,
	}, nil
}

// systemInstruction builds the assistant persona around the user context
// and the task line the orchestrator supplies.
func systemInstruction(user domain.UserContext, task string) string {
	return fmt.Sprintf(`You are KANAD, a multilingual research assistant inspired by Acharya Kanad's atomic philosophy.

User Profile:
- Role: %s
- Language: %s

Your personality is modern, scientific, and encouraging. You make complex knowledge accessible.

Current Task Context: %s

ALWAYS respond in the requested language: %s.`, user.Role, user.Language, task, user.Language)
}

func buildContents(req domain.StreamRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.InlineData != nil {
			parts = append(parts, genai.NewPartFromBytes(p.InlineData, p.InlineMIME))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	return contents
}

// GenerateStream issues a streaming generation call and forwards each
// response as a chunk. Closes out before returning.
func (g *Gemini) GenerateStream(ctx context.Context, req domain.StreamRequest, out chan<- domain.StreamChunk) error {
	defer close(out)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(req.User, req.System), genai.RoleUser),
	}
	if req.UseSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, buildContents(req), config) {
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		chunk := domain.StreamChunk{Text: resp.Text()}
		if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
			for _, gc := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
				if gc.Web != nil && gc.Web.URI != "" && gc.Web.Title != "" {
					chunk.Sources = append(chunk.Sources, domain.GroundingSource{
						URI:   gc.Web.URI,
						Title: gc.Web.Title,
					})
				}
			}
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// roadmapSchema constrains the structured-roadmap response to a three-level
// tree: root, modules, concepts.
func roadmapSchema() *genai.Schema {
	concept := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString, Description: "Topic/Concept"},
			"description": {Type: genai.TypeString},
		},
	}
	module := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString, Description: "Phase/Module Name (Short Keyword)"},
			"description": {Type: genai.TypeString, Description: "Brief subtext (optional)"},
			"children":    {Type: genai.TypeArray, Items: concept},
		},
		Required: []string{"name", "children"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString, Description: "Root Topic (Short)"},
			"description": {Type: genai.TypeString},
			"children":    {Type: genai.TypeArray, Items: module},
		},
		Required: []string{"name", "children"},
	}
}

// GenerateRoadmap produces a roadmap tree via schema-constrained JSON
// output. Returns nil when the model produced no usable text.
func (g *Gemini) GenerateRoadmap(ctx context.Context, subject, level string, user domain.UserContext) (*domain.RoadmapNode, error) {
	prompt := fmt.Sprintf(`Generate a JSON structure for a Mind Map about %q (%s).
Crucial: Use short, concise keywords for 'name' fields, not full sentences.
Structure: Root -> Modules -> Concepts.`, subject, level)

	resp, err := g.client.Models.GenerateContent(ctx, g.jsonModel,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   roadmapSchema(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini roadmap: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, nil
	}
	var node domain.RoadmapNode
	if err := json.Unmarshal([]byte(text), &node); err != nil {
		return nil, fmt.Errorf("parse roadmap JSON: %w", err)
	}
	return &node, nil
}

// GenerateImage asks the image model for a mind-map visualization and
// returns the first inline image as a data URI, or "" when none came back.
func (g *Gemini) GenerateImage(ctx context.Context, prompt string, user domain.UserContext) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel,
		genai.Text(fmt.Sprintf("Create a clean, colorful, scientific mind map visualization about: %s. White background, clear text nodes.", prompt)),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("gemini image: %w", err)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return fmt.Sprintf("data:%s;base64,%s",
					part.InlineData.MIMEType,
					base64.StdEncoding.EncodeToString(part.InlineData.Data)), nil
			}
		}
	}
	return "", nil
}
