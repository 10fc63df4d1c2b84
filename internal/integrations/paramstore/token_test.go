package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	val   string
	err   error
	names []string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.names = append(f.names, name)
	return f.val, f.err
}

func TestTokenName(t *testing.T) {
	require.Equal(t, "/rental-assistant/llm-api-key", TokenName("/rental-assistant"))
	require.Equal(t, "/rental-assistant/llm-api-key", TokenName(" /rental-assistant/ "))
}

func TestResolveToken_HappyPath(t *testing.T) {
	g := &fakeGetter{val: `{"token":" AIza-test "}`}
	tok, err := ResolveToken(context.Background(), g, "/p/llm-api-key")
	require.NoError(t, err)
	require.Equal(t, "AIza-test", tok)
	require.Equal(t, []string{"/p/llm-api-key"}, g.names)
}

func TestResolveToken_Errors(t *testing.T) {
	cases := []struct {
		name    string
		getter  Getter
		wantErr string
	}{
		{"nil getter", nil, "must not be nil"},
		{"getter error", &fakeGetter{err: errors.New("access denied")}, "access denied"},
		{"not json", &fakeGetter{val: "plain-token"}, "unmarshal"},
		{"empty token", &fakeGetter{val: `{"token":"  "}`}, "token is empty"},
		{"missing field", &fakeGetter{val: `{"key":"v"}`}, "token is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveToken(context.Background(), tc.getter, "p")
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestClientSatisfiesGetter(t *testing.T) {
	var _ Getter = (*Client)(nil)
}

func TestParseToken(t *testing.T) {
	tok, err := ParseToken(`{"token":"k"}`)
	require.NoError(t, err)
	require.Equal(t, "k", tok)

	_, err = ParseToken(`[]`)
	require.ErrorContains(t, err, "unmarshal")
}
