package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestRowLine(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  string
	}{
		{"numeric serial", []string{"1", "Define algorithm.", "CO1", "L2", "08"}, "1. Define algorithm. CO1 L2 08"},
		{"dotted serial", []string{"2.", "Explain recursion.", "CO2"}, "2. Explain recursion. CO2"},
		{"paren serial", []string{"3)", "What is a stack?"}, "3. What is a stack?"},
		{"header row", []string{"SL#", "Question", "CO", "Level", "Marks"}, "SL# Question CO Level Marks"},
		{"empty cells skipped", []string{"", " 4 ", "", "Define  a\nqueue."}, "4. Define a queue."},
		{"serial alone", []string{"5"}, "5"},
		{"all empty", []string{"", "  "}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := rowLine(tc.cells); got != tc.want {
				t.Errorf("rowLine(%q) = %q, want %q", tc.cells, got, tc.want)
			}
		})
	}
}

func TestCSVParser_RowsBecomeLines(t *testing.T) {
	input := "SL#,Question,CO,Level,Marks\n" +
		"1,Define algorithm.,CO1,L2,08\n" +
		"2,\"Explain recursion, with an example.\",CO2,L3,10\n" +
		",,,,\n" +
		"3,What is a stack?,CO3\n"

	p := &CSVParser{}
	tree, err := p.Parse(strings.NewReader(input), "bank.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "bank" {
		t.Errorf("expected title %q, got %q", "bank", tree.Title)
	}

	want := "SL# Question CO Level Marks\n" +
		"1. Define algorithm. CO1 L2 08\n" +
		"2. Explain recursion, with an example. CO2 L3 10\n" +
		"3. What is a stack? CO3"
	if got := tree.Text(); got != want {
		t.Errorf("expected text:\n%s\ngot:\n%s", want, got)
	}
}

func TestCSVParser_Batches(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 45; i++ {
		sb.WriteString("1,q\n")
	}
	tree, err := (&CSVParser{}).Parse(strings.NewReader(sb.String()), "many.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(tree.Children))
	}
	if tree.Children[1].Page != 21 {
		t.Errorf("expected second batch to start at row 21, got %d", tree.Children[1].Page)
	}
}

func TestHTMLParser_TablesAndOrderedLists(t *testing.T) {
	input := `<html><head><title>DSA Bank</title><style>td{}</style></head><body>
<h1>Module-1 Question Bank</h1>
<table>
  <tr><th>SL#</th><th>Question</th><th>CO</th><th>Level</th><th>Marks</th></tr>
  <tr><td>1</td><td>Define algorithm.</td><td>CO1</td><td>L2</td><td>08</td></tr>
  <tr><td>2.</td><td>Explain   <b>recursion</b>.</td><td>CO2</td><td>L3</td><td>10</td></tr>
</table>
<ol start="3">
  <li>What is a stack? CO3 L1 05</li>
  <li>What is a queue?</li>
</ol>
<ul><li>Answer any five.</li></ul>
</body></html>`

	p := &HTMLParser{}
	tree, err := p.Parse(strings.NewReader(input), "bank.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "DSA Bank" {
		t.Errorf("expected title from <title>, got %q", tree.Title)
	}

	want := "Module-1 Question Bank\n" +
		"SL# Question CO Level Marks\n" +
		"1. Define algorithm. CO1 L2 08\n" +
		"2. Explain recursion. CO2 L3 10\n" +
		"3. What is a stack? CO3 L1 05\n" +
		"4. What is a queue?\n" +
		"Answer any five."
	if got := tree.Text(); got != want {
		t.Errorf("expected text:\n%s\ngot:\n%s", want, got)
	}
}

func TestHTMLParser_NoHeadings(t *testing.T) {
	input := `<body><p>1. Define a heap.</p><p>2. Define a trie.</p></body>`
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "plain.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "plain" {
		t.Errorf("expected title %q, got %q", "plain", tree.Title)
	}
	if got := tree.Text(); got != "1. Define a heap.\n2. Define a trie." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestMarkdownParser_OrderedListsAndTables(t *testing.T) {
	input := "# Module 1\n\n" +
		"1. Define algorithm. CO1 L2 08\n" +
		"2. Explain recursion. CO2 L3 10\n\n" +
		"| SL# | Question | CO | Level | Marks |\n" +
		"|-----|----------|----|-------|-------|\n" +
		"| 3 | What is a stack? | CO3 | L1 | 5 |\n\n" +
		"- unordered note\n"

	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "bank.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 top-level child, got %d", len(tree.Children))
	}
	text := tree.Children[0].Text
	for _, want := range []string{
		"1. Define algorithm. CO1 L2 08\n2. Explain recursion. CO2 L3 10",
		"SL# Question CO Level Marks\n3. What is a stack? CO3 L1 5",
		"unordered note",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got %q", want, text)
		}
	}
	if strings.Contains(text, "Define algorithm.Define algorithm.") {
		t.Errorf("paragraph text duplicated: %q", text)
	}
}

func TestMarkdownParser_ListStart(t *testing.T) {
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader("7. seventh\n8. eighth\n"), "start.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tree.Text(); got != "7. seventh\n8. eighth" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		opts     Options
		want     ErrorKind
	}{
		{"unsupported", []byte("x"), "bank.xlsx", Options{}, KindUnsupportedType},
		{"no extension", []byte("x"), "README", Options{}, KindUnsupportedType},
		{"too large", []byte("0123456789"), "bank.txt", Options{MaxBytes: 5}, KindTooLarge},
		{"corrupt docx", []byte("not a zip archive"), "bank.docx", Options{}, KindDecodeFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data, tc.filename, tc.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Kind != tc.want {
				t.Errorf("expected kind %q, got %q", tc.want, de.Kind)
			}
			if KindOf(err) != tc.want {
				t.Errorf("KindOf = %q, want %q", KindOf(err), tc.want)
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	text, err := DecodeText([]byte("1. Define algorithm.\nCO1 L2 08\n\n2. Explain recursion."), "Bank.TXT", Options{MaxBytes: 1024})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1. Define algorithm.\nCO1 L2 08\n2. Explain recursion."
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

func TestKindOf_OtherErrors(t *testing.T) {
	if KindOf(errors.New("boom")) != "" {
		t.Error("expected empty kind for a plain error")
	}
	if KindOf(nil) != "" {
		t.Error("expected empty kind for nil")
	}
}

func TestIsSupportedExtension(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.txt", "d.md", "e.markdown", "f.csv", "g.html", "h.htm"} {
		if !IsSupportedExtension(name) {
			t.Errorf("expected %q to be supported", name)
		}
	}
	for _, name := range []string{"a.doc", "b.xlsx", "c"} {
		if IsSupportedExtension(name) {
			t.Errorf("expected %q to be unsupported", name)
		}
	}
}
