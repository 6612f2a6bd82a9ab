package gemini

import (
	"context"
	"errors"
	"testing"
)

func TestValidateAPIKey_MissingKeyFailsBeforeNetwork(t *testing.T) {
	err := ValidateAPIKey(context.Background(), "", "primary-model")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
