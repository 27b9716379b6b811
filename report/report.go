// Package report implements the ReportAggregator and TimingCollector
// (spec §4.8): collecting each Step's finalize() contribution in
// pipeline order, and per-(stage, block) timing samples, for a single
// machine-readable payload emitted at shutdown.
//
// No direct teacher analogue collects exactly this shape, but the
// "accumulate structured per-unit records, marshal once at the end"
// pattern follows markduplicates' metrics collection
// (markduplicates/metrics.go accumulates per-library counters across a
// run and emits one JSON document at Close); the payload schema itself
// is original to this repo.
package report

import "time"

// Fragment is one Step's finalize() contribution: a stage label and an
// open-ended, string-keyed set of values the Step chooses to report.
// The value shape is intentionally uninterpreted by the aggregator —
// payload schema is a Step concern, not a framework one.
type Fragment struct {
	StageLabel string
	Values     map[string]interface{}
}

// Aggregator collects Fragments in the pipeline's stage order and
// exposes them for a single final marshal.
type Aggregator struct {
	fragments []Fragment
}

// NewAggregator constructs an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add appends a stage's finalize() contribution, or does nothing if f
// is nil (a Step may choose not to report anything).
func (a *Aggregator) Add(f *Fragment) {
	if f == nil {
		return
	}
	a.fragments = append(a.fragments, *f)
}

// Fragments returns the collected fragments in stage order.
func (a *Aggregator) Fragments() []Fragment {
	return a.fragments
}

// TimingSample is one (stage, block) timing observation.
type TimingSample struct {
	StageIndex int
	BlockNo    uint64
	StepType   string
	Wall       time.Duration
	CPU        time.Duration
}

// TimingCollector records TimingSamples and aggregates them by
// StepType at shutdown. Recording is best-effort: a full channel drops
// the sample rather than block the pipeline (timing must never add
// backpressure to the data path).
type TimingCollector struct {
	ch   chan TimingSample
	done chan struct{}

	totals map[string]*StepTiming
}

// StepTiming is one step type's aggregated timing across the run.
type StepTiming struct {
	Count int
	Wall  time.Duration
	CPU   time.Duration
}

// NewTimingCollector starts a collector with the given sample buffer
// depth.
func NewTimingCollector(bufferDepth int) *TimingCollector {
	t := &TimingCollector{
		ch:     make(chan TimingSample, bufferDepth),
		done:   make(chan struct{}),
		totals: make(map[string]*StepTiming),
	}
	go t.run()
	return t
}

func (t *TimingCollector) run() {
	defer close(t.done)
	for s := range t.ch {
		agg, ok := t.totals[s.StepType]
		if !ok {
			agg = &StepTiming{}
			t.totals[s.StepType] = agg
		}
		agg.Count++
		agg.Wall += s.Wall
		agg.CPU += s.CPU
	}
}

// Record submits a sample, dropping it silently if the collector's
// buffer is full.
func (t *TimingCollector) Record(s TimingSample) {
	select {
	case t.ch <- s:
	default:
	}
}

// Close stops accepting samples and waits for the aggregator goroutine
// to drain, returning the final per-step-type totals.
func (t *TimingCollector) Close() map[string]*StepTiming {
	close(t.ch)
	<-t.done
	return t.totals
}
