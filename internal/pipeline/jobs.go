package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/qbank/internal/extract"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusDecoding   JobStatus = "decoding"
	StatusExtracting JobStatus = "extracting"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Failure kinds reported alongside StatusFailed. Decode failures use the
// parser's kinds.
const (
	KindNoQuestionTable = "no_question_table"
	KindStoreFailed     = "store_failed"
	KindQueueFull       = "queue_full"
)

// Job tracks the state of a single document extraction.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	UserID   string `json:"user_id"`
	Filename string `json:"filename"`
	Subject  string `json:"subject"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash  string    `json:"content_hash,omitempty"`
	ExtractionID string    `json:"extraction_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData  []byte
	questions []extract.Question
	errors    []string
}

// Progress reports what the extraction found.
type Progress struct {
	Strategy   extract.Strategy `json:"strategy,omitempty"`
	Candidates int              `json:"candidates"`
	Questions  int              `json:"questions"`
	Dropped    int              `json:"dropped"`
	ErrorKind  string           `json:"error_kind,omitempty"`
	Errors     []string         `json:"errors"`
}

// NewJob returns a queued job for an uploaded document.
func NewJob(userID, filename, subject string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filename:  filename,
		Subject:   subject,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with a machine-readable kind.
func (j *Job) Fail(kind, phase, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, msg)
	j.Progress.Errors = j.errors
	j.Progress.ErrorKind = kind
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetResult records the extraction outcome and the classified questions.
func (j *Job) SetResult(res extract.Result, questions []extract.Question) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Strategy = res.Strategy
	j.Progress.Candidates = res.Candidates
	j.Progress.Dropped = res.Dropped
	j.Progress.Questions = len(questions)
	j.questions = questions
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the decoded text.
func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// SetExtractionID links the job to its stored extraction.
func (j *Job) SetExtractionID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ExtractionID = id
	j.UpdatedAt = time.Now()
}

// Questions returns a copy of the classified questions, nil until the job
// has extracted.
func (j *Job) Questions() []extract.Question {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.questions == nil {
		return nil
	}
	out := make([]extract.Question, len(j.questions))
	copy(out, j.questions)
	return out
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	UserID       string    `json:"user_id"`
	Filename     string    `json:"filename"`
	Subject      string    `json:"subject"`
	Status       JobStatus `json:"status"`
	Phase        string    `json:"phase"`
	ContentHash  string    `json:"content_hash,omitempty"`
	ExtractionID string    `json:"extraction_id,omitempty"`
	Progress     Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:           j.ID,
		UserID:       j.UserID,
		Filename:     j.Filename,
		Subject:      j.Subject,
		Status:       j.Status,
		Phase:        j.Phase,
		ContentHash:  j.ContentHash,
		ExtractionID: j.ExtractionID,
		Progress:     p,
	}
}

// Done reports whether the job reached a terminal status.
func (s JobSnapshot) Done() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusDupSkipped:
		return true
	}
	return false
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
