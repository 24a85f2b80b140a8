package idea

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/ankits1802/finetune-api/internal/observability"
)

const (
	providerNameOpenAI = "openai"
	openaiSchemaName   = "MusicalIdea"
	maxOutputTrunc     = 200
)

// OpenAIProvider implements the Provider interface using OpenAI's
// Responses API with structured JSON output.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider for the given model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client: &client,
		model:  model,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// GenerateIdea implements idea generation using OpenAI's Responses API
func (p *OpenAIProvider) GenerateIdea(ctx context.Context, request *Request) (*ProviderIdea, error) {
	startTime := time.Now()
	log.Printf("🎵 OPENAI IDEA REQUEST STARTED (Model: %s)", p.model)

	transaction := sentry.StartTransaction(ctx, "openai.idea")
	defer transaction.Finish()
	transaction.SetTag("model", p.model)
	transaction.SetTag("provider", providerNameOpenAI)

	params := responses.ResponseNewParams{
		Model: p.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					"Text Input: "+request.Text,
					responses.EasyInputMessageRoleUser,
				),
			},
		},
		Instructions: openai.String(ideaSystemPrompt),
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(
				openaiSchemaName,
				ideaOutputSchema(),
			),
		},
	}

	span := transaction.StartChild("openai.api_call")
	apiStartTime := time.Now()
	resp, err := p.client.Responses.New(ctx, params)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI IDEA REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	textOutput := cleanJSONOutput(resp.OutputText())
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai response did not include any output text")
	}

	var out ProviderIdea
	if err := json.Unmarshal([]byte(textOutput), &out); err != nil {
		log.Printf("❌ Failed to parse idea JSON: %v", err)
		log.Printf("Raw output (first %d chars): %s", maxOutputTrunc, truncate(textOutput, maxOutputTrunc))
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}

	cost := observability.CalculateOpenAICost(p.model, resp.Usage)
	transaction.SetTag("cost_usd", observability.FormatCost(cost))

	log.Printf("✅ OPENAI IDEA COMPLETED in %v (tokens=%d, cost=%s, style=%q)",
		time.Since(startTime), resp.Usage.TotalTokens, observability.FormatCost(cost), out.Style)
	transaction.SetTag("success", "true")
	return &out, nil
}

// cleanJSONOutput strips markdown code fences that some models wrap
// around JSON output.
func cleanJSONOutput(text string) string {
	cleaned := strings.TrimPrefix(text, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
