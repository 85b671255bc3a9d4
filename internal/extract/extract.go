// Package extract recovers structured exam questions from the plain text of
// a question-bank document.
//
// Extraction runs in two stages. The primary segmenter walks the document
// line by line and opens a question at every "N." line. Only when it finds
// nothing does a fallback segmenter split the whitespace-collapsed text on
// inline "N." or "N)" markers. Everything below the top level is
// best-effort: missing metadata is defaulted and short spans are dropped.
// The single hard failure is ErrNoQuestionTable.
package extract

import "errors"

// ErrNoQuestionTable means no question boundary was found anywhere in the
// text. Callers should ask for a different or reformatted document.
var ErrNoQuestionTable = errors.New("could not find a question table in the document; ensure it contains numbered questions")

// Strategy names the segmenter that produced a result.
type Strategy string

const (
	StrategyLine     Strategy = "line"
	StrategyFallback Strategy = "fallback"
)

// Tunables with their defaults.
const (
	DefaultHeaderThreshold    = 2
	DefaultMinTextLen         = 0
	DefaultMinFallbackTextLen = 10
	DefaultLookahead          = 2
)

// Options tunes the heuristics. Zero values select the defaults.
type Options struct {
	// HeaderThreshold is how many header keywords mark a line as furniture.
	HeaderThreshold int
	// MinTextLen: a line-segmented question is kept only if its cleaned
	// text is longer than this.
	MinTextLen int
	// MinFallbackTextLen is the stricter length bar for fallback spans.
	MinFallbackTextLen int
	// Lookahead is how many following lines are searched for metadata.
	Lookahead int
}

func (o Options) withDefaults() Options {
	if o.HeaderThreshold <= 0 {
		o.HeaderThreshold = DefaultHeaderThreshold
	}
	if o.MinTextLen < 0 {
		o.MinTextLen = DefaultMinTextLen
	}
	if o.MinFallbackTextLen <= 0 {
		o.MinFallbackTextLen = DefaultMinFallbackTextLen
	}
	if o.Lookahead <= 0 {
		o.Lookahead = DefaultLookahead
	}
	return o
}

// Result is the outcome of one extraction run.
type Result struct {
	Questions []ExtractedQuestion
	Strategy  Strategy
	// Candidates counts every span a segmenter opened, kept or not.
	Candidates int
	// Dropped counts candidates rejected by the length threshold.
	Dropped int
}

// Extractor holds tuned options. It carries no other state; a value may be
// reused or copied freely.
type Extractor struct {
	opts Options
}

// New returns an Extractor using opts, with zero fields defaulted.
func New(opts Options) Extractor {
	return Extractor{opts: opts.withDefaults()}
}

// Parse segments text into questions. The fallback segmenter runs only when
// the line segmenter accepts nothing. ErrNoQuestionTable is returned when
// neither segmenter finds a single candidate.
func (e Extractor) Parse(text string) (Result, error) {
	qs, seen := e.segmentLines(NormalizeLines(text))
	if len(qs) > 0 {
		return Result{Questions: qs, Strategy: StrategyLine, Candidates: seen, Dropped: seen - len(qs)}, nil
	}

	fqs, fseen := e.segmentFallback(text)
	res := Result{
		Questions:  fqs,
		Strategy:   StrategyFallback,
		Candidates: seen + fseen,
		Dropped:    seen + fseen - len(fqs),
	}
	if res.Candidates == 0 {
		return Result{}, ErrNoQuestionTable
	}
	if res.Questions == nil {
		res.Questions = []ExtractedQuestion{}
	}
	return res, nil
}

// ParseQuestions extracts questions from text with default options.
func ParseQuestions(text string) ([]ExtractedQuestion, error) {
	res, err := New(Options{}).Parse(text)
	if err != nil {
		return nil, err
	}
	return res.Questions, nil
}
