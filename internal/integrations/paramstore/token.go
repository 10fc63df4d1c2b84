package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TokenSuffix is appended to the parameter prefix to locate the model API key.
const TokenSuffix = "/llm-api-key"

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// TokenName joins a parameter prefix with TokenSuffix.
func TokenName(prefix string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/") + TokenSuffix
}

// ResolveToken reads name from the store and extracts the "token" field.
func ResolveToken(ctx context.Context, g Getter, name string) (string, error) {
	if g == nil {
		return "", errors.New("paramstore: getter must not be nil")
	}
	raw, err := g.GetParameter(ctx, name)
	if err != nil {
		return "", err
	}
	return ParseToken(raw)
}

// ParseToken extracts the trimmed "token" field from a stored JSON value.
func ParseToken(raw string) (string, error) {
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", errors.New("paramstore: token is empty")
	}
	return strings.TrimSpace(tp.Token), nil
}
