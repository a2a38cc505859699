package gateway

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NoFeedback replaces a missing feedback field.
const NoFeedback = "No feedback provided."

const evaluationFields = 7

var numberRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseEvaluation reads "listening|eq|tone|helpfulness|clarity|user|staff".
// It never fails: missing or unreadable scores become 0 and missing feedback
// becomes NoFeedback, both setting LowConfidence. Scores are clamped to
// [0,100].
func ParseEvaluation(raw string) ConversationEvaluation {
	line := evaluationLine(raw)
	parts := strings.SplitN(line, "|", evaluationFields)

	var out ConversationEvaluation
	if len(parts) < evaluationFields {
		out.LowConfidence = true
	}

	scores := []*int{&out.Listening, &out.EQ, &out.Tone, &out.Helpfulness, &out.Clarity}
	for i, dst := range scores {
		if i >= len(parts) {
			continue
		}
		v, ok := parseScore(parts[i])
		if !ok {
			out.LowConfidence = true
		}
		*dst = v
	}

	texts := []*string{&out.UserFeedback, &out.StaffFeedback}
	for i, dst := range texts {
		idx := len(scores) + i
		if idx < len(parts) {
			*dst = strings.TrimSpace(parts[idx])
		}
		if *dst == "" {
			*dst = NoFeedback
			out.LowConfidence = true
		}
	}
	return out
}

// evaluationLine finds where the delimited record starts and folds any
// following lines into it, so a multi-line staff description survives.
// A delimited line that opens with a score wins over one that does not, which
// skips a header row naming the columns.
func evaluationLine(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")
	lines := strings.Split(raw, "\n")
	start := -1
	for i, l := range lines {
		if !strings.Contains(l, "|") {
			continue
		}
		first, _, _ := strings.Cut(l, "|")
		if numberRegex.MatchString(first) {
			start = i
			break
		}
		if start < 0 {
			start = i
		}
	}
	if start < 0 {
		return raw
	}
	return strings.TrimSpace(strings.Join(lines[start:], " "))
}

func parseScore(field string) (int, bool) {
	m := numberRegex.FindString(field)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	v := int(math.Round(f))
	switch {
	case v < 0:
		return 0, true
	case v > 100:
		return 100, true
	}
	return v, true
}
