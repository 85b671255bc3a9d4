package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/qbank/internal/config"
	"github.com/dgallion1/qbank/internal/extract"
	"github.com/dgallion1/qbank/internal/parser"
)

// ErrQueueFull is returned by Submit when no worker can take the job.
var ErrQueueFull = errors.New("job queue is full")

// Orchestrator manages the document extraction pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	store     ExtractionStore
	stats     *extract.RunStats
	extractor extract.Extractor
	log       *slog.Logger
	cfg       config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. st may be nil, in which case
// results live only on the job.
func NewOrchestrator(cfg config.Config, st ExtractionStore, stats *extract.RunStats, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		store: st,
		stats: stats,
		extractor: extract.New(extract.Options{
			HeaderThreshold:    cfg.HeaderKeywordThreshold,
			MinFallbackTextLen: cfg.MinFallbackText,
		}),
		log: log,
		cfg: cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	decodeOpts := parser.Options{
		MaxBytes:          o.cfg.MaxUploadBytes,
		FallbackPdftotext: o.cfg.PDFFallbackPdftotext,
	}
	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.extractor, o.stats, decodeOpts, o.cfg.DefaultSubject, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		err := fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
		job.Fail(KindQueueFull, "queue_full", err.Error())
		return err
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// ExtractText runs a synchronous extraction with the pipeline's tuning and
// stats. An empty subject selects the configured default.
func (o *Orchestrator) ExtractText(text, subject string) (extract.Result, []extract.Question, error) {
	if subject == "" {
		subject = o.cfg.DefaultSubject
	}
	return Extract(o.extractor, o.stats, text, subject)
}

// Stats returns the rolling extraction stats, or nil if none are kept.
func (o *Orchestrator) Stats() *extract.RunStats {
	return o.stats
}
