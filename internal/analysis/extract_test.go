package analysis_test

import (
	"testing"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/analysis"
	"github.com/stretchr/testify/require"
)

func TestExtractFragmentsProseWrapped(t *testing.T) {
	text := `Here is the result: [{"summary":"a","sentiment":0.5,"bias":"Left","reason":"r"}] Thanks!`

	fragments, err := analysis.ExtractFragments(text)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	require.Equal(t, "a", fragments[0].Summary)
	require.NotNil(t, fragments[0].Sentiment)
	require.Equal(t, 0.5, *fragments[0].Sentiment)
	require.Equal(t, "Left", fragments[0].Bias)
	require.Equal(t, "r", fragments[0].Reason)
}

func TestExtractFragmentsNestedBrackets(t *testing.T) {
	text := `[{"summary":"has [brackets] inside","sentiment":0,"bias":"Center","reason":"x"}]`

	fragments, err := analysis.ExtractFragments(text)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	require.Equal(t, "has [brackets] inside", fragments[0].Summary)
	require.Equal(t, "Center", fragments[0].Bias)
}

func TestExtractFragmentsUnbalancedBracketInString(t *testing.T) {
	// Known limitation: the scan closes at the "]" inside the string.
	text := `[{"summary":"stray ] bracket","sentiment":0,"bias":"Center","reason":"x"}]`

	_, err := analysis.ExtractFragments(text)
	require.ErrorIs(t, err, analysis.ErrMalformedJSON)
}

func TestExtractFragmentsWrappedInObject(t *testing.T) {
	text := `{"articles":[{"summary":"s","sentiment":-0.2,"bias":"Right","reason":"r"},{"summary":"t"}]}`

	fragments, err := analysis.ExtractFragments(text)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	require.Equal(t, -0.2, *fragments[0].Sentiment)
	require.Equal(t, "t", fragments[1].Summary)
	require.Nil(t, fragments[1].Sentiment)
}

func TestExtractFragmentsFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "no bracket", text: "I could not analyze these articles.", want: analysis.ErrNoArrayFound},
		{name: "empty text", text: "", want: analysis.ErrNoArrayFound},
		{name: "unterminated", text: `[{"summary":"cut off`, want: analysis.ErrMalformedJSON},
		{name: "invalid json", text: `[{summary: 'single quotes'}]`, want: analysis.ErrMalformedJSON},
		{name: "empty array", text: "Result: [] done", want: analysis.ErrEmptyOrInvalidShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fragments, err := analysis.ExtractFragments(tt.text)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, fragments)
		})
	}
}

func TestExtractFragmentsWrongFieldTypes(t *testing.T) {
	text := `[{"summary":42,"sentiment":"high","bias":["Left"],"reason":null}, "not an object"]`

	fragments, err := analysis.ExtractFragments(text)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	for _, f := range fragments {
		require.Empty(t, f.Summary)
		require.Nil(t, f.Sentiment)
		require.Empty(t, f.Bias)
		require.Empty(t, f.Reason)
	}
}
