package parser

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/qbank/internal/doctree"
)

const utf8BOM = "\ufeff"

// TextParser handles plain text. Blank lines separate paragraphs and a form
// feed starts a new page, so pdftotext output saved as .txt keeps its page
// numbers. Lines inside a paragraph are preserved because the question
// segmenter works line by line.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, filepath.Ext(filename)),
	}

	page := 1
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: strings.Join(current, "\n"),
			Page: page,
		})
		current = current[:0]
	}
	add := func(line string) {
		if strings.TrimSpace(line) == "" {
			flush()
			return
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, utf8BOM)
			first = false
		}
		for {
			i := strings.IndexByte(line, '\f')
			if i < 0 {
				break
			}
			add(line[:i])
			flush()
			page++
			line = line[i+1:]
		}
		add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return tree, nil
}
