package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/qbank/internal/extract"
	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/store"
)

// ExtractionStore is the persistence the worker needs. *store.Store
// satisfies it.
type ExtractionStore interface {
	FindByHash(ctx context.Context, userID, contentHash string) (*store.Extraction, error)
	SaveExtraction(ctx context.Context, e *store.Extraction) error
}

// Worker processes a single document job.
type Worker struct {
	store          ExtractionStore
	extractor      extract.Extractor
	stats          *extract.RunStats
	decodeOpts     parser.Options
	defaultSubject string
	log            *slog.Logger
}

func NewWorker(st ExtractionStore, ex extract.Extractor, stats *extract.RunStats, decodeOpts parser.Options, defaultSubject string, log *slog.Logger) *Worker {
	return &Worker{
		store:          st,
		extractor:      ex,
		stats:          stats,
		decodeOpts:     decodeOpts,
		defaultSubject: defaultSubject,
		log:            log,
	}
}

// Process runs the full extraction pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "user_id", job.UserID, "filename", job.Filename)

	// Phase 1: Decode
	job.SetStatus(StatusDecoding, "decoding")
	text, err := parser.DecodeText(job.FileData(), job.Filename, w.decodeOpts)
	job.SetFileData(nil)
	if err != nil {
		log.Error("decode failed", "error", err)
		kind := string(parser.KindOf(err))
		if kind == "" {
			kind = string(parser.KindDecodeFailed)
		}
		job.Fail(kind, "decoding", err.Error())
		return
	}

	// Compute content hash from the decoded text.
	hash := ContentHashHex([]byte(text))
	job.SetContentHash(hash)

	// Phase 1.5: Dedup check
	if w.store != nil {
		existing, err := w.store.FindByHash(ctx, job.UserID, hash)
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_extraction_id", existing.ID)
			job.SetResult(extract.Result{Strategy: existing.Strategy, Candidates: len(existing.Questions) + existing.Dropped, Dropped: existing.Dropped}, existing.Questions)
			job.SetExtractionID(existing.ID)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 2: Extract
	job.SetStatus(StatusExtracting, "extracting")
	subject := job.Subject
	if subject == "" {
		subject = w.defaultSubject
	}
	res, questions, err := Extract(w.extractor, w.stats, text, subject)
	if err != nil {
		log.Warn("no question table", "error", err, "text_len", len(text))
		job.Fail(KindNoQuestionTable, "extracting", err.Error())
		return
	}
	job.SetResult(res, questions)
	log.Info("extraction complete",
		"questions", len(questions),
		"strategy", res.Strategy,
		"candidates", res.Candidates,
		"dropped", res.Dropped,
	)

	// Phase 3: Store
	if w.store == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}
	job.SetStatus(StatusStoring, "storing")
	// The ID is fixed before the first attempt so a retry after a lost
	// commit acknowledgement cannot insert a second row.
	e := &store.Extraction{
		ID:          uuid.NewString(),
		UserID:      job.UserID,
		Filename:    job.Filename,
		Subject:     subject,
		ContentHash: hash,
		Strategy:    res.Strategy,
		Dropped:     res.Dropped,
		Questions:   questions,
	}
	err = withRetry(ctx, func() error {
		return w.store.SaveExtraction(ctx, e)
	})
	if err != nil {
		log.Error("store failed", "error", err)
		job.Fail(KindStoreFailed, "storing", fmt.Sprintf("store: %s", err))
		return
	}
	job.SetExtractionID(e.ID)
	log.Info("storage complete", "extraction_id", e.ID)
	job.SetStatus(StatusCompleted, "done")
}

// Extract runs one timed extraction over decoded text and records it in
// stats. The only error is extract.ErrNoQuestionTable.
func Extract(ex extract.Extractor, stats *extract.RunStats, text, subject string) (extract.Result, []extract.Question, error) {
	start := time.Now()
	res, err := ex.Parse(text)
	if stats != nil {
		stats.Record(time.Since(start), res, err)
	}
	if err != nil {
		return res, nil, err
	}
	return res, extract.ConvertToQuestions(res.Questions, subject), nil
}
