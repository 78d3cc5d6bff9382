package doccrawl

import "context"

// TokenCounter counts tokens in text for a specific model.
// It is used only for run statistics; chunk boundaries are measured in characters.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
