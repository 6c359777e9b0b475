package attribution

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangesFromLines(t *testing.T) {
	cases := []struct {
		name  string
		lines []int
		want  []LineRange
	}{
		{"empty", nil, nil},
		{"single", []int{5}, []LineRange{Single(5)}},
		{"consecutive", []int{1, 2, 3}, []LineRange{Span(1, 3)}},
		{"gap", []int{1, 2, 5}, []LineRange{Span(1, 2), Single(5)}},
		{"unsorted with dup", []int{7, 3, 4, 3, 9, 8}, []LineRange{Span(3, 4), Span(7, 9)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, RangesFromLines(tc.lines))
		})
	}
}

func TestLineRangeJSON(t *testing.T) {
	data, err := json.Marshal([]LineRange{Single(4), Span(7, 9)})
	require.NoError(t, err)
	require.JSONEq(t, `[4,[7,9]]`, string(data))

	var parsed []LineRange
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Equal(t, []LineRange{Single(4), Span(7, 9)}, parsed)
}

func TestLineRangeJSONRejectsInverted(t *testing.T) {
	var r LineRange
	require.Error(t, json.Unmarshal([]byte(`[9,7]`), &r))
}

func TestRoundTripLinesRanges(t *testing.T) {
	lines := []int{1, 2, 3, 10, 12, 13}
	require.Equal(t, lines, LinesFromRanges(RangesFromLines(lines)))
	require.Equal(t, 6, CountLines(RangesFromLines(lines)))
}
