package extract

import (
	"sort"
	"sync"
	"time"
)

type runSample struct {
	timestamp  time.Time
	durationMs int64
	questions  int
	fallback   bool
	failed     bool
}

// StatsSnapshot aggregates extraction runs inside the rolling window.
type StatsSnapshot struct {
	Runs         int     `json:"runs"`
	Failed       int     `json:"failed"`
	FallbackRuns int     `json:"fallback_runs"`
	Questions    int     `json:"questions"`
	MinMs        int64   `json:"min_ms"`
	MaxMs        int64   `json:"max_ms"`
	AvgMs        float64 `json:"avg_ms"`
	P50Ms        float64 `json:"p50_ms"`
	P95Ms        float64 `json:"p95_ms"`
	P99Ms        float64 `json:"p99_ms"`
	AvgQuestions float64 `json:"avg_questions"`
}

// RunStats tracks recent extraction runs within a rolling window. It is safe
// for concurrent use by the worker pool.
type RunStats struct {
	mu      sync.Mutex
	samples []runSample
	maxAge  time.Duration
}

func NewRunStats(maxAge time.Duration) *RunStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RunStats{
		samples: make([]runSample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds a run. err is the error Parse returned, if any.
func (s *RunStats) Record(d time.Duration, res Result, err error) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, runSample{
		timestamp:  now,
		durationMs: ms,
		questions:  len(res.Questions),
		fallback:   err == nil && res.Strategy == StrategyFallback,
		failed:     err != nil,
	})
}

func (s *RunStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	snap := StatsSnapshot{Runs: len(s.samples)}
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		snap.Questions += sm.questions
		if sm.failed {
			snap.Failed++
		}
		if sm.fallback {
			snap.FallbackRuns++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	snap.AvgQuestions = float64(snap.Questions) / float64(len(values))
	return snap
}

func (s *RunStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
