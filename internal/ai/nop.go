package ai

import (
	"context"

	"github.com/amishk599/jobscout/internal/model"
)

// UnavailableProvider stands in when no API key is configured. Every call
// fails with model.ErrNoCredential, which sends the pipeline down its
// unscored path.
type UnavailableProvider struct{}

// Complete always returns model.ErrNoCredential.
func (UnavailableProvider) Complete(context.Context, string) (string, error) {
	return "", model.ErrNoCredential
}
