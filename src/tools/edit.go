package tools

import (
	"sort"
	"strconv"
	"strings"
)

type lineRange struct {
	key        string
	start, end int
}

// ApplyLineEdits replaces 1-based inclusive line ranges ("3-7" or "5") with
// new text. Ranges are applied bottom-up against the original numbering.
// Starts below 1 are clamped to 1 and ends past the last line to the last
// line; unparsable or inverted ranges are skipped. The result is joined with
// "\n" and carries no trailing newline.
func ApplyLineEdits(original string, edits map[string]string) string {
	lines := splitLines(original)

	ranges := make([]lineRange, 0, len(edits))
	for k := range edits {
		start, end, ok := parseRange(k)
		if !ok {
			continue
		}
		ranges = append(ranges, lineRange{key: k, start: start, end: end})
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].start != ranges[j].start {
			return ranges[i].start > ranges[j].start
		}
		return ranges[i].end > ranges[j].end
	})

	result := append([]string(nil), lines...)
	for _, r := range ranges {
		startIdx := max(r.start-1, 0)
		endIdx := min(r.end-1, len(lines)-1)
		if startIdx > endIdx || endIdx >= len(result) {
			continue
		}
		replacement := splitLines(edits[r.key])
		tail := append([]string(nil), result[endIdx+1:]...)
		result = append(append(result[:startIdx], replacement...), tail...)
	}
	return strings.Join(result, "\n")
}

func parseRange(s string) (int, int, bool) {
	s = strings.TrimSpace(s)
	if a, b, found := strings.Cut(s, "-"); found {
		start, err1 := strconv.Atoi(strings.TrimSpace(a))
		end, err2 := strconv.Atoi(strings.TrimSpace(b))
		return start, end, err1 == nil && err2 == nil
	}
	n, err := strconv.Atoi(s)
	return n, n, err == nil
}

// splitLines splits on line breaks without producing a trailing empty
// element for a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
