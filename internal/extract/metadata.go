package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Marks outside this range are treated as unrelated numerals such as
// question or page numbers.
const (
	MinMarks = 1
	MaxMarks = 50
)

var (
	// CO and L tokens need no trailing boundary and may follow a digit, so
	// decoder-glued runs such as "CO3L1" still split into both fields.
	courseOutcomeRe = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])CO(\d+)`)
	levelRe         = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])L(\d+)`)
	bareNumberRe    = regexp.MustCompile(`\b(\d+)\b`)

	// metadataRunRe matches CO/L tokens joined by nothing, whitespace or a
	// "/", "|" or "," separator. Group 1 is the preceding character, which
	// is kept.
	metadataRunRe = regexp.MustCompile(`(?i)(^|[^A-Za-z])(?:CO\d+|L\d+)(?:[\s/|,]*(?:CO\d+|L\d+))*`)

	// Lines that carry only grading metadata when a layout wraps it below
	// the question text.
	metadataLineRe = regexp.MustCompile(`(?i)^(?:CO|L)\d+`)
	shortNumberRe  = regexp.MustCompile(`^\d{1,3}$`)

	trailingNumberRe = regexp.MustCompile(`(?:^|\s)\d{1,2}$`)
	headerRunRe      = regexp.MustCompile(`(?i)(?:\bsl\s*#|\bsl\.?\s*no\.?|\bs\.\s*no\.?)?\s*\bquestion\s+co\s+level\s+marks\b`)
)

// extractMetadata fills any unset metadata field of c from search. Fields
// already set are never overwritten, so the earliest evidence wins.
func extractMetadata(c *candidate, search string) {
	if search == "" {
		return
	}
	if c.courseOutcome == "" {
		if m := courseOutcomeRe.FindStringSubmatch(search); m != nil {
			c.courseOutcome = m[1]
		}
	}
	if c.level == "" {
		if m := levelRe.FindStringSubmatch(search); m != nil {
			c.level = m[1]
		}
	}
	if c.marks == 0 {
		c.marks = findMarks(search)
	}
}

// findMarks returns the first word-bounded number in [MinMarks, MaxMarks],
// or 0 when there is none. Digits glued to letters (CO1, L2) are not
// word-bounded and so never count.
func findMarks(search string) int {
	for _, m := range bareNumberRe.FindAllStringSubmatch(search, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= MinMarks && n <= MaxMarks {
			return n
		}
	}
	return 0
}

// isMetadataLine reports whether a continuation line holds grading metadata
// rather than question prose.
func isMetadataLine(line string) bool {
	return metadataLineRe.MatchString(line) || shortNumberRe.MatchString(line)
}

// CleanText removes grading metadata from question prose: CO and level
// tokens, a trailing one- or two-digit marks value, and any table-header run
// that leaked into the span. Whitespace is collapsed and the result trimmed.
func CleanText(text string) string {
	text = headerRunRe.ReplaceAllString(text, " ")
	text = metadataRunRe.ReplaceAllString(text, "${1} ")
	text = CollapseWhitespace(text)
	text = trailingNumberRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
