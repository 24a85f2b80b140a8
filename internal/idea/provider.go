package idea

import "context"

// Request carries the text the user wants turned into music.
type Request struct {
	Text string `json:"text"`
}

// ProviderIdea is the raw structured output of a model call: the musical
// characteristics only. The fingerprint is attached locally by the Client
// and is never trusted from a remote service.
type ProviderIdea struct {
	Tempo float64 `json:"tempo"`
	Key   string  `json:"key"`
	Style string  `json:"style"`
}

// Provider defines the interface for idea-generation backends.
// All providers MUST support structured output (JSON Schema) so the
// response parses reliably; a test double can be substituted without
// touching the retry or pipeline logic.
type Provider interface {
	// GenerateIdea asks the model to translate text into musical
	// characteristics.
	GenerateIdea(ctx context.Context, request *Request) (*ProviderIdea, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// MusicalIdea is the validated result handed to the composition pipeline.
// Immutable once produced; Fingerprint is a deterministic function of the
// input text only, independent of the model call's randomness.
type MusicalIdea struct {
	TempoBPM    float64 `json:"tempo"`
	Key         string  `json:"key"`
	Style       string  `json:"style"`
	Fingerprint string  `json:"fingerprint"`
}
