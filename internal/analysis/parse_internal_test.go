package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"plain":        `{"a":1}`,
		"fenced":       "```json\n{\"a\":1}\n```",
		"bare fence":   "```\n{\"a\":1}\n```",
		"with prose":   "Sure! {\"a\":1} Hope this helps.",
		"nested":       `{"a":{"b":2}}`,
		"padded fence": "  ```json\n{\"a\":1}\n```  ",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := ExtractJSON(in)
			require.NoError(t, err)
			assert.Equal(t, '{', rune(out[0]))
			assert.Equal(t, '}', rune(out[len(out)-1]))
		})
	}

	_, err := ExtractJSON("no object here")
	assert.Error(t, err)
}

func TestParseReport_RequiresSummaryOrPatterns(t *testing.T) {
	_, err := parseReport(`{"riskAssessment":"fine","overallRiskScore":10}`)
	assert.True(t, errors.Is(err, ErrEmptyReport))

	_, err = parseReport(`{"summary":"   "}`)
	assert.True(t, errors.Is(err, ErrEmptyReport))

	rep, err := parseReport(`{"fraudPatterns":[{}]}`)
	require.NoError(t, err)
	assert.Len(t, rep.FraudPatterns, 1)
	assert.Nil(t, rep.Summary)
}
