package idea

import (
	"context"
	"fmt"
)

// MockProvider implements the Provider interface for testing.
type MockProvider struct {
	GenerateIdeaFunc func(ctx context.Context, request *Request) (*ProviderIdea, error)
	NameValue        string

	Calls []*Request
}

func (m *MockProvider) GenerateIdea(ctx context.Context, request *Request) (*ProviderIdea, error) {
	m.Calls = append(m.Calls, request)
	if m.GenerateIdeaFunc != nil {
		return m.GenerateIdeaFunc(ctx, request)
	}
	return nil, fmt.Errorf("GenerateIdeaFunc not set")
}

func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}
