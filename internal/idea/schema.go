package idea

const (
	// Tempo bounds the model is asked to stay inside; out-of-range
	// values are clamped rather than retried.
	TempoMin = 60
	TempoMax = 180
)

const ideaSystemPrompt = `You are a creative musical assistant. Analyze the mood, themes, and rhythm of the text you are given and translate it into musical characteristics.

Provide a tempo in beats per minute (BPM) between 60 and 180.
Suggest a musical key (e.g., C Major, F# minor).
Describe a musical style in a few words (e.g., "energetic electronic", "gentle acoustic folk", "cinematic orchestral").`

// ideaOutputSchema returns the JSON schema for the model's structured
// output. Every field is required; a response missing any of them is
// treated like any other failure and retried.
func ideaOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tempo": map[string]any{
				"type":        "number",
				"minimum":     TempoMin,
				"maximum":     TempoMax,
				"description": "The suggested tempo in BPM, between 60 and 180.",
			},
			"key": map[string]any{
				"type":        "string",
				"description": `The suggested musical key, e.g., "C Major", "A minor".`,
			},
			"style": map[string]any{
				"type":        "string",
				"description": `A descriptive musical style, e.g., "upbeat pop", "somber piano ballad".`,
			},
		},
		"required":             []string{"tempo", "key", "style"},
		"additionalProperties": false,
	}
}
