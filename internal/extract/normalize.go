package extract

import (
	"regexp"
	"strings"
)

var (
	lineEndReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n")
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// NormalizeLines splits text into trimmed, non-empty lines in document
// order. CRLF, bare CR and the form-feed page separator all count as line
// breaks.
func NormalizeLines(text string) []string {
	raw := strings.Split(lineEndReplacer.Replace(text), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// CollapseWhitespace folds every run of whitespace, line breaks included,
// into a single space.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
