package extract

import "time"

// Difficulty is the coarse tier derived from a question's cognitive level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Defaults applied when a question carries no recognizable metadata.
const (
	DefaultCourseOutcome = "1"
	DefaultLevel         = "2"
	DefaultMarks         = 8
	DefaultSubject       = "Computer Science"
)

// ExtractedQuestion is one question recovered from the source text, with
// its grading metadata separated from the prose.
type ExtractedQuestion struct {
	SerialNumber  string `json:"serial_number" yaml:"serial_number"`
	Text          string `json:"text" yaml:"text"`
	CourseOutcome string `json:"course_outcome" yaml:"course_outcome"`
	Level         string `json:"level" yaml:"level"`
	Marks         int    `json:"marks" yaml:"marks"`
}

// Question is the classified record handed back to callers.
type Question struct {
	ID         string     `json:"id" yaml:"id"`
	Text       string     `json:"text" yaml:"text"`
	Module     int        `json:"module" yaml:"module"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Marks      int        `json:"marks" yaml:"marks"`
	Subject    string     `json:"subject" yaml:"subject"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
}

// candidate is a question span still being accumulated. Optional metadata
// fields stay empty (or zero) until the first match sets them.
type candidate struct {
	serial        string
	text          string
	courseOutcome string
	level         string
	marks         int
}

// finalize applies defaults and produces the immutable record.
func (c *candidate) finalize(text string) ExtractedQuestion {
	eq := ExtractedQuestion{
		SerialNumber:  c.serial,
		Text:          text,
		CourseOutcome: c.courseOutcome,
		Level:         c.level,
		Marks:         c.marks,
	}
	if eq.CourseOutcome == "" {
		eq.CourseOutcome = DefaultCourseOutcome
	}
	if eq.Level == "" {
		eq.Level = DefaultLevel
	}
	if eq.Marks == 0 {
		eq.Marks = DefaultMarks
	}
	return eq
}
