package extract

import (
	"regexp"
	"strings"
)

var (
	// numberedLineRe anchors a question at the start of a physical line.
	numberedLineRe = regexp.MustCompile(`^(\d+)\.\s*(.+)$`)

	// fallbackMarkerRe finds inline question numbers in text that has lost
	// its line structure. The marker must open the text or follow
	// whitespace so that tokens like "g1)" or "v2." are not split on.
	fallbackMarkerRe = regexp.MustCompile(`(?:^|\s)(\d+)[.)]`)
)

// segmentLines is the primary, line-anchored segmenter. It makes a single
// pass with at most one open candidate and returns the accepted questions
// plus the number of candidates opened.
func (e *Extractor) segmentLines(lines []string) ([]ExtractedQuestion, int) {
	var (
		out    []ExtractedQuestion
		seen   int
		cur    *candidate
		header = make([]bool, len(lines))
	)
	for i, line := range lines {
		header[i] = IsHeaderLine(line, e.opts.HeaderThreshold)
	}

	closeCurrent := func() {
		if cur == nil {
			return
		}
		if text := CleanText(cur.text); len(text) > e.opts.MinTextLen {
			out = append(out, cur.finalize(text))
		}
		cur = nil
	}

	for i, line := range lines {
		if header[i] {
			continue
		}

		if m := numberedLineRe.FindStringSubmatch(line); m != nil {
			closeCurrent()
			seen++
			cur = &candidate{serial: m[1], text: strings.TrimSpace(m[2])}
			extractMetadata(cur, cur.text)
			extractMetadata(cur, e.lookahead(lines, header, i))
			continue
		}

		if cur == nil {
			continue
		}
		if isMetadataLine(line) {
			extractMetadata(cur, line)
			continue
		}
		if cur.text != "" && len(line) > 5 {
			cur.text += " " + line
			extractMetadata(cur, line)
		}
	}
	closeCurrent()

	return out, seen
}

// lookahead joins up to Lookahead lines after lines[i] into a metadata-only
// search buffer. It stops at the next numbered question so metadata never
// leaks backwards from a later question, and skips header lines.
func (e *Extractor) lookahead(lines []string, header []bool, i int) string {
	var buf []string
	for j := i + 1; j < len(lines) && j <= i+e.opts.Lookahead; j++ {
		if numberedLineRe.MatchString(lines[j]) {
			break
		}
		if header[j] {
			continue
		}
		buf = append(buf, lines[j])
	}
	return strings.Join(buf, " ")
}

// segmentFallback splits undifferentiated text on inline question numbers.
// Each span runs from one marker to the next (or the end of text) and must
// clear the stricter MinFallbackTextLen after cleaning.
func (e *Extractor) segmentFallback(text string) ([]ExtractedQuestion, int) {
	flat := CollapseWhitespace(text)
	locs := fallbackMarkerRe.FindAllStringSubmatchIndex(flat, -1)

	var out []ExtractedQuestion
	for k, loc := range locs {
		end := len(flat)
		if k+1 < len(locs) {
			end = locs[k+1][0]
		}
		span := strings.TrimSpace(flat[loc[1]:end])

		c := &candidate{serial: flat[loc[2]:loc[3]], text: span}
		extractMetadata(c, span)
		if cleaned := CleanText(span); len(cleaned) > e.opts.MinFallbackTextLen {
			out = append(out, c.finalize(cleaned))
		}
	}
	return out, len(locs)
}
