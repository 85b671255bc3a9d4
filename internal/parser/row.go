package parser

import (
	"strconv"
	"strings"
)

// rowLine renders one table row as a single text line. A numeric first
// cell becomes the "N." serial so the row reads like a numbered question.
func rowLine(cells []string) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.Join(strings.Fields(c), " ")
		if c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if serial, ok := serialCell(parts[0]); ok && len(parts) > 1 {
		return serial + ". " + strings.Join(parts[1:], " ")
	}
	return strings.Join(parts, " ")
}

// serialCell accepts "3", "3." and "3)".
func serialCell(s string) (string, bool) {
	s = strings.TrimRight(s, ".)")
	if s == "" {
		return "", false
	}
	if _, err := strconv.Atoi(s); err != nil {
		return "", false
	}
	return s, true
}

// listLine renders an ordered-list item as "N. text".
func listLine(n int, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strconv.Itoa(n) + ". " + text
}
