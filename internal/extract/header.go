package extract

import (
	"regexp"
	"strings"
)

// headerKeywords is the vocabulary of table-header and title-page words.
// One of them alone can appear in ordinary question prose; several on the
// same line almost always mean document furniture.
var headerKeywords = []string{
	// serial-number column markers
	"sl#", "sl.no", "s.no",
	// column labels
	"question", "co", "level", "marks",
	// institutional title words
	"department", "faculty", "module", "semester", "institute",
}

var headerKeywordRes = compileKeywords(headerKeywords)

func compileKeywords(words []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		pat := `(?i)\b` + regexp.QuoteMeta(w)
		if isWordByte(w[len(w)-1]) {
			pat += `\b`
		}
		res = append(res, regexp.MustCompile(pat))
	}
	return res
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// HeaderKeywordCount returns how many header keywords occur in line as whole
// tokens, ignoring case.
func HeaderKeywordCount(line string) int {
	n := 0
	for _, re := range headerKeywordRes {
		n += len(re.FindAllStringIndex(line, -1))
	}
	return n
}

// IsHeaderLine reports whether line should be skipped as header furniture.
// A threshold below 1 falls back to the default of 2.
func IsHeaderLine(line string, threshold int) bool {
	if threshold < 1 {
		threshold = DefaultHeaderThreshold
	}
	if strings.TrimSpace(line) == "" {
		return false
	}
	return HeaderKeywordCount(line) >= threshold
}
