package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/qbank/internal/config"
	"github.com/dgallion1/qbank/internal/extract"
	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/store"
)

const bankText = `Department of Computer Science
SL# Question CO Level Marks
1. Define algorithm. CO1 L2 08
2. Explain recursion with an example. CO2 L3 10
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestWorker(st ExtractionStore, stats *extract.RunStats) *Worker {
	return NewWorker(st, extract.New(extract.Options{}), stats, parser.Options{MaxBytes: 1 << 20}, "Computer Science", quietLogger())
}

// fakeStore scripts store behaviour for failure paths.
type fakeStore struct {
	mu       sync.Mutex
	findErr  error
	saveErrs []error
	saves    int
	ids      []string
}

func (f *fakeStore) FindByHash(ctx context.Context, userID, contentHash string) (*store.Extraction, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SaveExtraction(ctx context.Context, e *store.Extraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.ids = append(f.ids, e.ID)
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return err
		}
	}
	if e.ID == "" {
		e.ID = "saved-id"
	}
	return nil
}

// lostAckStore commits through the real store but reports failure for the
// first failures calls, as when a reply is lost after commit.
type lostAckStore struct {
	*store.Store
	failures int
	ids      []string
}

func (s *lostAckStore) SaveExtraction(ctx context.Context, e *store.Extraction) error {
	s.ids = append(s.ids, e.ID)
	if err := s.Store.SaveExtraction(ctx, e); err != nil {
		return err
	}
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset after commit")
	}
	return nil
}

func TestWorker_ProcessStoresExtraction(t *testing.T) {
	st := openStore(t)
	stats := extract.NewRunStats(time.Hour)
	w := newTestWorker(st, stats)

	job := NewJob("u1", "bank.txt", "", []byte(bankText))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.ExtractionID == "" || snap.ContentHash == "" {
		t.Fatalf("expected extraction id and content hash, got %+v", snap)
	}
	if snap.Progress.Strategy != extract.StrategyLine || snap.Progress.Questions != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if job.FileData() != nil {
		t.Error("expected file data to be released after decoding")
	}

	qs := job.Questions()
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].ID != "extracted_1" || qs[0].Text != "Define algorithm." || qs[0].Marks != 8 || qs[0].Difficulty != extract.DifficultyMedium {
		t.Errorf("unexpected first question %+v", qs[0])
	}
	if qs[1].Text != "Explain recursion with an example." || qs[1].Marks != 10 || qs[1].Difficulty != extract.DifficultyHard {
		t.Errorf("unexpected second question %+v", qs[1])
	}
	if qs[0].Subject != "Computer Science" {
		t.Errorf("expected default subject, got %q", qs[0].Subject)
	}

	saved, err := st.GetExtraction(context.Background(), snap.ExtractionID)
	if err != nil {
		t.Fatalf("get stored extraction: %v", err)
	}
	if len(saved.Questions) != 2 || saved.UserID != "u1" || saved.Filename != "bank.txt" {
		t.Errorf("unexpected stored extraction %+v", saved)
	}

	if got := stats.Snapshot(); got.Runs != 1 || got.Questions != 2 {
		t.Errorf("expected one recorded run with 2 questions, got %+v", got)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	st := openStore(t)
	w := newTestWorker(st, nil)

	first := NewJob("u1", "bank.txt", "", []byte(bankText))
	w.Process(context.Background(), first)
	second := NewJob("u1", "copy.txt", "", []byte(bankText))
	w.Process(context.Background(), second)

	s1, s2 := first.Snapshot(), second.Snapshot()
	if s2.Status != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %s", s2.Status)
	}
	if s2.ExtractionID != s1.ExtractionID {
		t.Errorf("expected duplicate to point at %s, got %s", s1.ExtractionID, s2.ExtractionID)
	}
	if len(second.Questions()) != 2 {
		t.Errorf("expected duplicate job to expose the stored questions, got %d", len(second.Questions()))
	}

	other := NewJob("u2", "bank.txt", "", []byte(bankText))
	w.Process(context.Background(), other)
	if got := other.Snapshot().Status; got != StatusCompleted {
		t.Errorf("expected other user's upload to be extracted, got %s", got)
	}
}

func TestWorker_DecodeFailures(t *testing.T) {
	w := newTestWorker(nil, nil)
	tests := []struct {
		name     string
		filename string
		data     []byte
		kind     parser.ErrorKind
	}{
		{"unsupported", "bank.xlsx", []byte("x"), parser.KindUnsupportedType},
		{"too large", "bank.txt", make([]byte, 2<<20), parser.KindTooLarge},
		{"corrupt", "bank.docx", []byte("not a zip"), parser.KindDecodeFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job := NewJob("u1", tc.filename, "", tc.data)
			w.Process(context.Background(), job)
			snap := job.Snapshot()
			if snap.Status != StatusFailed || snap.Phase != "decoding" {
				t.Fatalf("expected failed in decoding, got %s/%s", snap.Status, snap.Phase)
			}
			if snap.Progress.ErrorKind != string(tc.kind) {
				t.Errorf("expected kind %q, got %q", tc.kind, snap.Progress.ErrorKind)
			}
		})
	}
}

func TestWorker_NoQuestionTable(t *testing.T) {
	stats := extract.NewRunStats(time.Hour)
	w := newTestWorker(openStore(t), stats)

	job := NewJob("u1", "notes.txt", "", []byte("Meeting notes without any numbered items at all."))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Progress.ErrorKind != KindNoQuestionTable {
		t.Fatalf("expected no_question_table failure, got %s/%q", snap.Status, snap.Progress.ErrorKind)
	}
	if got := stats.Snapshot(); got.Failed != 1 {
		t.Errorf("expected failed run to be recorded, got %+v", got)
	}
}

func TestWorker_StoreFailureIsReported(t *testing.T) {
	fs := &fakeStore{saveErrs: []error{context.Canceled}}
	w := newTestWorker(fs, nil)

	job := NewJob("u1", "bank.txt", "", []byte(bankText))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Progress.ErrorKind != KindStoreFailed {
		t.Fatalf("expected store_failed, got %s/%q", snap.Status, snap.Progress.ErrorKind)
	}
	if fs.saves != 1 {
		t.Errorf("expected non-retryable error to stop after 1 attempt, got %d", fs.saves)
	}
	if len(job.Questions()) != 2 {
		t.Error("expected extracted questions to stay on the job when storing fails")
	}
}

func TestWorker_StoreRetriesTransientErrors(t *testing.T) {
	fs := &fakeStore{saveErrs: []error{errors.New("database is locked"), nil}}
	w := newTestWorker(fs, nil)

	job := NewJob("u1", "bank.txt", "", []byte(bankText))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.ExtractionID == "" {
		t.Fatalf("expected completion after retry, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if fs.saves != 2 {
		t.Errorf("expected 2 save attempts, got %d", fs.saves)
	}
	if fs.ids[0] != fs.ids[1] || fs.ids[1] != snap.ExtractionID {
		t.Errorf("expected every attempt to reuse the extraction ID, got %q (job %q)", fs.ids, snap.ExtractionID)
	}
}

func TestWorker_RetryAfterLostCommitStoresOnce(t *testing.T) {
	st := &lostAckStore{Store: openStore(t), failures: 1}
	w := newTestWorker(st, nil)

	job := NewJob("u1", "bank.txt", "", []byte(bankText))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completion, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if len(st.ids) != 2 || st.ids[0] != st.ids[1] {
		t.Fatalf("expected 2 attempts with one ID, got %q", st.ids)
	}

	rows, err := st.ListExtractions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != snap.ExtractionID {
		t.Errorf("expected exactly one stored row %q, got %d rows", snap.ExtractionID, len(rows))
	}
}

func TestWorker_DedupLookupErrorProceeds(t *testing.T) {
	fs := &fakeStore{findErr: errors.New("connection refused")}
	w := newTestWorker(fs, nil)

	job := NewJob("u1", "bank.txt", "Algorithms", []byte(bankText))
	w.Process(context.Background(), job)

	if got := job.Snapshot().Status; got != StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	if got := job.Questions()[0].Subject; got != "Algorithms" {
		t.Errorf("expected job subject to win over default, got %q", got)
	}
}

func TestWorker_NoStore(t *testing.T) {
	w := newTestWorker(nil, nil)
	job := NewJob("u1", "bank.txt", "", []byte(bankText))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.ExtractionID != "" {
		t.Fatalf("expected completed without extraction id, got %+v", snap)
	}
}

func TestRetry_IsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if IsRetryable(context.Canceled) || IsRetryable(context.DeadlineExceeded) {
		t.Error("context errors are not retryable")
	}
	if !IsRetryable(errors.New("database is locked")) {
		t.Error("expected plain errors to be retryable")
	}
}

func TestRetry_BackoffBounds(t *testing.T) {
	for attempt, lo := range map[int]time.Duration{0: 100 * time.Millisecond, 1: 200 * time.Millisecond, 10: 2 * time.Second} {
		d := Backoff(attempt)
		if d < lo || d >= lo+lo/2 {
			t.Errorf("Backoff(%d) = %v, want in [%v, %v)", attempt, d, lo, lo+lo/2)
		}
	}
}

func testConfig() config.Config {
	return config.Config{
		DefaultSubject:         "Computer Science",
		WorkerCount:            2,
		MaxQueueSize:           10,
		MaxUploadBytes:         1 << 20,
		JobTTL:                 time.Hour,
		HeaderKeywordThreshold: 2,
		MinFallbackText:        10,
	}
}

func waitDone(t *testing.T, o *Orchestrator, id string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := o.GetJob(id).Snapshot(); snap.Done() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobSnapshot{}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	stats := extract.NewRunStats(time.Hour)
	o := NewOrchestrator(testConfig(), openStore(t), stats, quietLogger())
	o.Start(context.Background())
	defer o.Stop()

	ok := NewJob("u1", "bank.txt", "", []byte(bankText))
	bad := NewJob("u1", "notes.txt", "", []byte("nothing numbered here"))
	for _, j := range []*Job{ok, bad} {
		if err := o.Submit(j); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if snap := waitDone(t, o, ok.ID); snap.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", snap.Status)
	}
	if snap := waitDone(t, o, bad.ID); snap.Progress.ErrorKind != KindNoQuestionTable {
		t.Errorf("expected no_question_table, got %q", snap.Progress.ErrorKind)
	}
	if got := o.Stats().Snapshot().Runs; got != 2 {
		t.Errorf("expected 2 recorded runs, got %d", got)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, nil, nil, quietLogger())
	defer o.Stop()

	if err := o.Submit(NewJob("u1", "a.txt", "", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job := NewJob("u1", "b.txt", "", nil)
	err := o.Submit(job)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	snap := o.GetJob(job.ID).Snapshot()
	if snap.Status != StatusFailed || snap.Progress.ErrorKind != KindQueueFull {
		t.Errorf("expected queue_full failure, got %s/%q", snap.Status, snap.Progress.ErrorKind)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_ExtractText(t *testing.T) {
	stats := extract.NewRunStats(time.Hour)
	o := NewOrchestrator(testConfig(), nil, stats, quietLogger())

	res, qs, err := o.ExtractText(bankText, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != extract.StrategyLine || len(qs) != 2 {
		t.Fatalf("expected 2 line-segmented questions, got %d via %s", len(qs), res.Strategy)
	}
	if qs[0].Subject != "Computer Science" {
		t.Errorf("expected configured default subject, got %q", qs[0].Subject)
	}

	_, _, err = o.ExtractText("", "Networks")
	if !errors.Is(err, extract.ErrNoQuestionTable) {
		t.Errorf("expected ErrNoQuestionTable, got %v", err)
	}
	if got := stats.Snapshot(); got.Runs != 2 || got.Failed != 1 {
		t.Errorf("expected 2 runs with 1 failure, got %+v", got)
	}
}
