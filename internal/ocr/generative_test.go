package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldArray(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Result
		wantErr bool
	}{
		{
			name: "plain",
			raw:  `[{"text":"Main St 1","confidence":0.93},{"text":"","confidence":0}]`,
			want: []Result{{Text: "Main St 1", Confidence: 0.93}, {}},
		},
		{
			name: "fenced",
			raw:  "```json\n[{\"text\":\"a\",\"confidence\":0.5},{\"text\":\"b\",\"confidence\":0.6}]\n```",
			want: []Result{{Text: "a", Confidence: 0.5}, {Text: "b", Confidence: 0.6}},
		},
		{
			name: "short array",
			raw:  `[{"text":"a","confidence":0.5}]`,
			want: []Result{{Text: "a", Confidence: 0.5}, {}},
		},
		{
			name: "long array",
			raw:  `[{"text":"a"},{"text":"b"},{"text":"c"}]`,
			want: []Result{{Text: "a"}, {Text: "b"}},
		},
		{
			name: "bad element",
			raw:  `[{"text":42,"confidence":0.5},{"text":"b","confidence":0.7}]`,
			want: []Result{{}, {Text: "b", Confidence: 0.7}},
		},
		{
			name:    "not json",
			raw:     "Sorry, I cannot read this image.",
			want:    []Result{{}, {}},
			wantErr: true,
		},
		{
			name:    "object instead of array",
			raw:     `{"text":"a","confidence":1}`,
			want:    []Result{{}, {}},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFieldArray(tc.raw, 2)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrRecognitionEngineFailure)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBatchResultsDegrades(t *testing.T) {
	got := BatchResults("chatGpt", "<html>", 3, 0.01)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, Result{Price: 0.01}, r)
	}
}

func TestPricing(t *testing.T) {
	p := TokenPricing{Prompt: 5.0 / 1e6, Completion: 20.0 / 1e6}
	assert.InDelta(t, 1000*5.0/1e6+200*20.0/1e6, p.Cost(1000, 200), 1e-12)

	assert.InDelta(t, 0.25, SplitPrice(1, 4), 1e-12)
	assert.Zero(t, SplitPrice(1, 0))
	assert.Zero(t, SplitPrice(-1, 3))
}

func TestBatchPrompt(t *testing.T) {
	p := BatchPrompt(7)
	assert.Contains(t, p, "contains 7 cropped text fields")
	assert.Contains(t, p, "Return only the JSON array.")
}
