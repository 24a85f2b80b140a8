package idea

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	geminiUserRole     = "user"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider for the given model.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// GenerateIdea implements idea generation using Gemini's API with a
// response schema for structured output.
func (p *GeminiProvider) GenerateIdea(ctx context.Context, request *Request) (*ProviderIdea, error) {
	startTime := time.Now()
	log.Printf("🎵 GEMINI IDEA REQUEST STARTED (Model: %s)", p.model)

	transaction := sentry.StartTransaction(ctx, "gemini.idea")
	defer transaction.Finish()
	transaction.SetTag("model", p.model)
	transaction.SetTag("provider", providerNameGemini)

	contents := []*genai.Content{
		{
			Role:  geminiUserRole,
			Parts: []*genai.Part{{Text: "Text Input: " + request.Text}},
		},
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: ideaSystemPrompt}},
		},
		ResponseMIMEType: mimeTypeJSON,
		ResponseSchema:   geminiIdeaSchema(),
	}

	span := transaction.StartChild("gemini.api_call")
	apiStartTime := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI IDEA REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if len(result.Candidates) == 0 {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("no candidates in Gemini response")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("no parts in Gemini response")
	}

	textOutput := cleanJSONOutput(candidate.Content.Parts[0].Text)
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini response did not include any output text")
	}

	var out ProviderIdea
	if err := json.Unmarshal([]byte(textOutput), &out); err != nil {
		log.Printf("❌ Failed to parse idea JSON: %v", err)
		log.Printf("Raw output (first %d chars): %s", maxOutputTrunc, truncate(textOutput, maxOutputTrunc))
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}

	if result.UsageMetadata != nil {
		log.Printf("📊 GEMINI USAGE: input=%d, output=%d, total=%d",
			result.UsageMetadata.PromptTokenCount,
			result.UsageMetadata.CandidatesTokenCount,
			result.UsageMetadata.TotalTokenCount)
	}
	log.Printf("✅ GEMINI IDEA COMPLETED in %v (style=%q)", time.Since(startTime), out.Style)
	transaction.SetTag("success", "true")
	return &out, nil
}

// geminiIdeaSchema mirrors ideaOutputSchema in Gemini's schema type.
func geminiIdeaSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"tempo": {Type: genai.TypeNumber},
			"key":   {Type: genai.TypeString},
			"style": {Type: genai.TypeString},
		},
		Required: []string{"tempo", "key", "style"},
	}
}
