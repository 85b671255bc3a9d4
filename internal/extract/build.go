package extract

import (
	"fmt"
	"time"
)

// Builder turns extracted questions into classified Question records.
type Builder struct {
	Subject string
	// Clock supplies the generation timestamp. Defaults to time.Now.
	Clock func() time.Time
}

// Build converts eqs in order. IDs come from position, not from the source
// serial numbers, so duplicated or skipped serials never collide. Every
// question in one call shares the same CreatedAt.
func (b Builder) Build(eqs []ExtractedQuestion) []Question {
	subject := b.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	clock := b.Clock
	if clock == nil {
		clock = time.Now
	}
	now := clock()

	out := make([]Question, 0, len(eqs))
	for i, eq := range eqs {
		marks := eq.Marks
		if marks < MinMarks || marks > MaxMarks {
			marks = DefaultMarks
		}
		out = append(out, Question{
			ID:         fmt.Sprintf("extracted_%d", i+1),
			Text:       eq.Text,
			Module:     ModuleForCO(eq.CourseOutcome),
			Difficulty: DifficultyForLevel(eq.Level),
			Marks:      marks,
			Subject:    subject,
			CreatedAt:  now,
		})
	}
	return out
}

// ConvertToQuestions classifies eqs under subject, stamped with the current
// time. An empty subject uses DefaultSubject.
func ConvertToQuestions(eqs []ExtractedQuestion, subject string) []Question {
	return Builder{Subject: subject}.Build(eqs)
}
