package bench

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Errors returned by Run.
var (
	ErrClockUnavailable = errors.New("timing source unavailable")
	ErrNoIterations     = errors.New("iterations must be positive")
)

// A ProgressReporter is told when an iteration starts and when it ends.
type ProgressReporter interface {
	IncrementInProgress(amount uint64)
	MoveInProgressToFinished(amount uint64)
}

// Result is the timing of one Run.
type Result struct {
	Iterations int
	Frequency  uint64
	Total      time.Duration
	Average    time.Duration
	AvgSeconds float64
}

// Harness times operations with a Clock.
type Harness struct {
	clock    Clock
	progress ProgressReporter
	lock     sync.Locker
}

// NewHarness creates a harness reading clock.
func NewHarness(clock Clock) *Harness {
	return &Harness{clock: clock}
}

// WithProgress reports each finished iteration to p.
func (h *Harness) WithProgress(p ProgressReporter) *Harness {
	h.progress = p
	return h
}

// WithLock makes each timed call hold l, together with the clock reads
// around it.
func (h *Harness) WithLock(l sync.Locker) *Harness {
	h.lock = l
	return h
}

// Run calls op iterations times and returns the average time per call. If
// the clock fails, no timing is reported.
func (h *Harness) Run(op func(), iterations int) (Result, error) {
	if iterations <= 0 {
		return Result{}, fmt.Errorf("%d: %w", iterations, ErrNoIterations)
	}

	freq, err := h.clock.Frequency()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrClockUnavailable, err)
	}

	if freq == 0 {
		return Result{}, fmt.Errorf("%w: zero frequency", ErrClockUnavailable)
	}

	var ticks uint64
	for i := 0; i < iterations; i++ {
		t, err := h.timeOnce(op)
		if err != nil {
			return Result{}, err
		}

		ticks += t
	}

	seconds := float64(ticks) / float64(freq)
	avg := seconds / float64(iterations)

	return Result{
		Iterations: iterations,
		Frequency:  freq,
		Total:      time.Duration(math.Round(seconds * float64(time.Second))),
		Average:    time.Duration(math.Round(avg * float64(time.Second))),
		AvgSeconds: avg,
	}, nil
}

func (h *Harness) timeOnce(op func()) (uint64, error) {
	if h.lock != nil {
		h.lock.Lock()
		defer h.lock.Unlock()
	}

	if h.progress != nil {
		h.progress.IncrementInProgress(1)
		defer h.progress.MoveInProgressToFinished(1)
	}

	start, err := h.clock.Ticks()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrClockUnavailable, err)
	}

	op()

	end, err := h.clock.Ticks()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrClockUnavailable, err)
	}

	return end - start, nil
}

// A Case is a named operation to time.
type Case struct {
	Name string
	Op   func()
}

// CaseResult is the timing of one Case.
type CaseResult struct {
	Name string
	Result
}

// RunAll times every case in order. It stops at the first failure.
func (h *Harness) RunAll(cases []Case, iterations int) ([]CaseResult, error) {
	results := make([]CaseResult, 0, len(cases))

	for _, c := range cases {
		r, err := h.Run(c.Op, iterations)
		if err != nil {
			return results, fmt.Errorf("case %s: %w", c.Name, err)
		}

		results = append(results, CaseResult{Name: c.Name, Result: r})
	}

	return results, nil
}
