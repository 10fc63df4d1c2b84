package sentiment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVader_Score(t *testing.T) {
	v := NewVader()

	require.Greater(t, v.Score("I love this washer, it is absolutely wonderful and great!"), 0.5)
	require.Less(t, v.Score("This is terrible, awful and I hate it. Worst fridge ever."), -0.5)

	neutral := v.Score("what washers do you have")
	require.GreaterOrEqual(t, neutral, -0.5)
	require.LessOrEqual(t, neutral, 0.5)
}

func TestVader_ScoreWithinRange(t *testing.T) {
	v := NewVader()
	for _, text := range []string{"ok", "GREAT GREAT GREAT!!!", "no no no terrible horrible"} {
		s := v.Score(text)
		require.GreaterOrEqual(t, s, -1.0, text)
		require.LessOrEqual(t, s, 1.0, text)
	}
}
