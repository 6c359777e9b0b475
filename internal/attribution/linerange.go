package attribution

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LineRange is a closed variant: either a single line or an inclusive span.
// It serializes compactly as a JSON number for a single line and as a
// two-element array for a span.
type LineRange struct {
	Start int
	End   int
}

// Single returns a one-line range.
func Single(line int) LineRange {
	return LineRange{Start: line, End: line}
}

// Span returns an inclusive range.
func Span(start, end int) LineRange {
	return LineRange{Start: start, End: end}
}

// Count returns the number of lines covered.
func (r LineRange) Count() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

func (r LineRange) MarshalJSON() ([]byte, error) {
	if r.Start == r.End {
		return json.Marshal(r.Start)
	}
	return json.Marshal([2]int{r.Start, r.End})
}

func (r *LineRange) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		r.Start, r.End = single, single
		return nil
	}
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("line range must be a number or [start,end]: %s", data)
	}
	if pair[1] < pair[0] {
		return fmt.Errorf("invalid line range [%d,%d]", pair[0], pair[1])
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// RangesFromLines compacts a set of line numbers into sorted ranges, merging
// consecutive lines. Duplicates are dropped.
func RangesFromLines(lines []int) []LineRange {
	if len(lines) == 0 {
		return nil
	}
	sorted := make([]int, len(lines))
	copy(sorted, lines)
	sort.Ints(sorted)

	var ranges []LineRange
	start, end := sorted[0], sorted[0]
	for _, line := range sorted[1:] {
		if line == end || line == end+1 {
			if line == end+1 {
				end = line
			}
			continue
		}
		ranges = append(ranges, LineRange{Start: start, End: end})
		start, end = line, line
	}
	ranges = append(ranges, LineRange{Start: start, End: end})
	return ranges
}

// LinesFromRanges expands ranges back into individual line numbers.
func LinesFromRanges(ranges []LineRange) []int {
	var lines []int
	for _, r := range ranges {
		for i := r.Start; i <= r.End; i++ {
			lines = append(lines, i)
		}
	}
	return lines
}

// CountLines sums the line counts of all ranges.
func CountLines(ranges []LineRange) int {
	total := 0
	for _, r := range ranges {
		total += r.Count()
	}
	return total
}
