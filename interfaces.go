package labeler

import (
	"context"

	"github.com/FrenchMajesty/comment-labeler/adapters"
)

// Classifier sends one composed prompt to a hosted completion service and returns its raw reply
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

var (
	_ Classifier = (*adapters.OpenAIClassifier)(nil)
	_ Classifier = (*adapters.AnthropicClassifier)(nil)
)
