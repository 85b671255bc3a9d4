package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/qbank/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if available.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "qbank-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if (err != nil || strings.TrimSpace(text) == "") && p.FallbackPdftotext {
		if alt, altErr := extractPdftotext(tmpPath); altErr == nil {
			text, err = alt, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, filepath.Ext(filename)),
	}

	// Pages are separated by form feeds in both extractors.
	pages := stripRunningLines(splitPages(text))
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: page,
			Page: i + 1,
		})
	}

	if len(tree.Children) == 0 && strings.TrimSpace(text) != "" {
		tree.Children = []*doctree.DocNode{{Text: strings.TrimSpace(text), Page: 1}}
	}

	return tree, nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}

var (
	// pageNumberRe matches page furniture such as "Page 3", "Page 3 of 10",
	// "3 / 10" or "- 3 -". A bare number is left alone since it may be marks.
	pageNumberRe = regexp.MustCompile(`(?i)^(?:page\s*\d+(?:\s*(?:of|/)\s*\d+)?|\d+\s*(?:of|/)\s*\d+|-\s*\d+\s*-)$`)
	wordRe       = regexp.MustCompile(`[A-Za-z]{4,}`)
	serialLineRe = regexp.MustCompile(`^\d+[.)]\s`)
)

// stripRunningLines removes page-number lines and running headers or
// footers: a first or last line of a page that recurs at a page edge on at
// least half the pages (two at minimum). Lines without a real word and
// numbered question lines never count as running, so a wrapped "CO1 L2 08"
// at the foot of several pages survives.
func stripRunningLines(pages []string) []string {
	counts := make(map[string]int)
	nonEmpty := 0
	for _, p := range pages {
		first, last := edgeLines(p)
		if first == "" {
			continue
		}
		nonEmpty++
		counts[first]++
		if last != first {
			counts[last]++
		}
	}

	need := max((nonEmpty+1)/2, 2)
	running := make(map[string]bool)
	for k, n := range counts {
		if n >= need && wordRe.MatchString(k) && !serialLineRe.MatchString(k) {
			running[k] = true
		}
	}

	out := make([]string, len(pages))
	for i, p := range pages {
		lines := strings.Split(p, "\n")
		kept := lines[:0]
		for _, l := range lines {
			k := lineKey(l)
			if running[k] || pageNumberRe.MatchString(k) {
				continue
			}
			kept = append(kept, l)
		}
		out[i] = strings.Join(kept, "\n")
	}
	return out
}

// edgeLines returns the normalized first and last non-blank lines of a page.
func edgeLines(page string) (first, last string) {
	for _, l := range strings.Split(page, "\n") {
		k := lineKey(l)
		if k == "" {
			continue
		}
		if first == "" {
			first = k
		}
		last = k
	}
	return first, last
}

func lineKey(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
