package idea

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFactory_ByName(t *testing.T) {
	factory := NewProviderFactory("openai-key", "gemini-key")

	openai, err := factory.GetProvider(context.Background(), "gpt-5-mini", "openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", openai.Name())

	gemini, err := factory.GetProvider(context.Background(), "gemini-2.5-flash", "gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini", gemini.Name())

	_, err = factory.GetProvider(context.Background(), "gpt-5-mini", "mystery")
	assert.Error(t, err)
}

func TestProviderFactory_ByModelPrefix(t *testing.T) {
	factory := NewProviderFactory("openai-key", "gemini-key")

	tests := []struct {
		model string
		want  string
	}{
		{"gemini-2.5-flash", "gemini"},
		{"gpt-5-mini", "openai"},
		{"gpt-4o", "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, err := factory.GetProvider(context.Background(), tt.model, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestProviderFactory_MissingKeys(t *testing.T) {
	factory := NewProviderFactory("", "")

	_, err := factory.GetProvider(context.Background(), "gpt-5-mini", "openai")
	assert.Error(t, err)

	_, err = factory.GetProvider(context.Background(), "gemini-2.5-flash", "gemini")
	assert.Error(t, err)
}
