package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider answers offline by summarizing the numbered fact lines of
// the prompt. It never fails.
type MockProvider struct{}

// NewMockProvider creates a mock generator
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return "mock"
}

// IsAvailable always reports true
func (p *MockProvider) IsAvailable(context.Context) bool {
	return true
}

// Generate implements Generator
func (p *MockProvider) Generate(_ context.Context, prompt string) (string, error) {
	var factLines []string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "[") {
			factLines = append(factLines, strings.TrimSpace(line))
		}
	}

	if len(factLines) == 0 {
		return "I found relevant information from web sources. Please check the citations below for details [1][2][3].", nil
	}

	lead := "Information available from trusted sources"
	if head, _, ok := strings.Cut(factLines[0], "|"); ok {
		lead = strings.TrimSpace(head)
	}
	return fmt.Sprintf("Based on the %d sources found, here's what I learned: %s. "+
		"The evidence suggests this is well-documented across multiple reliable websites [1][2][3]. "+
		"For more detailed information, please refer to the cited sources below.", len(factLines), lead), nil
}

// GenerateStream delivers the whole mock answer as one chunk
func (p *MockProvider) GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) error {
	answer, err := p.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return onChunk(answer)
}
