package stage

import (
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/syncqueue"
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/report"
)

// DefaultChannelDepth is the default bound on inter-stage channels,
// giving each stage limited backpressure over its upstream.
const DefaultChannelDepth = 50

// StepConfig pairs a Step with its static configuration: how many
// parallel workers to run it with (ignored if the Step needs serial
// execution) and the cumulative DemultiplexView it should see.
type StepConfig struct {
	Step        Step
	Label       string // step type label recorded alongside timing samples
	ThreadCount int
	View        *demux.DemultiplexView
}

// StageFabric builds, for each configured Step in order, either a
// single serial worker or a pool of ThreadCount parallel workers, and
// wires them into a pipeline with bounded channels between stages.
type StageFabric struct {
	info     InputInfo
	steps    []StepConfig
	timing   *report.TimingCollector
	channelN int
	errOnce  errors.Once
}

// NewStageFabric constructs a fabric for the given Steps, recording
// timing samples into timing (may be nil to disable timing).
func NewStageFabric(info InputInfo, steps []StepConfig, timing *report.TimingCollector) *StageFabric {
	return &StageFabric{info: info, steps: steps, timing: timing, channelN: DefaultChannelDepth}
}

// Run wires the configured Steps into a pipeline reading from in and
// returns the final stage's output channel. The returned channel is
// closed once every stage has drained (including after premature
// termination propagates).
func (f *StageFabric) Run(in <-chan *combined.Numbered) <-chan *combined.Numbered {
	cur := in
	for i, cfg := range f.steps {
		if cfg.Step.NeedsSerial() {
			cur = f.runSerial(i, cfg, cur)
		} else {
			cur = f.runParallel(i, cfg, cur)
		}
	}
	return cur
}

// Err returns the first fatal error encountered by any stage, if any.
func (f *StageFabric) Err() error {
	return f.errOnce.Err()
}

func (f *StageFabric) runSerial(stageIdx int, cfg StepConfig, in <-chan *combined.Numbered) <-chan *combined.Numbered {
	out := make(chan *combined.Numbered, f.channelN)
	go func() {
		defer close(out)
		for nb := range in {
			start := time.Now()
			newBlk, cont, err := cfg.Step.Apply(nb.Block, f.info, nb.BlockNo, cfg.View)
			f.recordTiming(stageIdx, cfg.Label, nb.BlockNo, time.Since(start))
			if err != nil {
				f.errOnce.Set(errors.E(err, "stage: apply"))
				return
			}
			if !cont {
				newBlk.IsFinal = true
			}
			out <- &combined.Numbered{BlockNo: nb.BlockNo, Block: newBlk, ExpectedReadCount: nb.ExpectedReadCount}
			if !cont {
				// Premature termination: stop pulling more input.
				// Nothing signals the upstream producer; once the
				// channel buffer it sends into is full, its next send
				// blocks and that goroutine is left blocked.
				return
			}
			if newBlk.IsFinal {
				return
			}
		}
	}()
	return out
}

// runParallel runs cfg.ThreadCount workers pulling from in and applying
// cfg.Step concurrently, reassembling results in block_no order via an
// OrderedQueue before forwarding, exactly the reader/display-thread
// split cmd/bio-pamtool/cmd/view.go uses for per-shard fan-in.
func (f *StageFabric) runParallel(stageIdx int, cfg StepConfig, in <-chan *combined.Numbered) <-chan *combined.Numbered {
	out := make(chan *combined.Numbered, f.channelN)
	threadCount := cfg.ThreadCount
	if threadCount < 1 {
		threadCount = 1
	}
	parallelStep, ok := cfg.Step.(ParallelStep)
	if !ok {
		// A non-serial Step with no Clone is only safe with one worker;
		// the single instance never sees concurrent Apply calls.
		threadCount = 1
	}

	type result struct {
		nb  *combined.Numbered
		err error
	}
	oq := syncqueue.NewOrderedQueue(1 << 20)
	var wg sync.WaitGroup

	for w := 0; w < threadCount; w++ {
		worker := cfg.Step
		if ok && threadCount > 1 {
			worker = parallelStep.Clone()
		}
		wg.Add(1)
		go func(worker Step) {
			defer wg.Done()
			for nb := range in {
				// Block numbers are 1-origin and contiguous, so
				// BlockNo-1 is the OrderedQueue's 0-based index.
				idx := int(nb.BlockNo - 1)

				start := time.Now()
				newBlk, cont, err := worker.Apply(nb.Block, f.info, nb.BlockNo, cfg.View)
				f.recordTiming(stageIdx, cfg.Label, nb.BlockNo, time.Since(start))
				if !cont {
					// Only serial steps may terminate early (spec §4.5); a
					// parallel step returning false is a framework misuse.
					err = errors.New("stage: parallel step returned do_continue=false")
				}
				res := result{err: err}
				if err == nil {
					res.nb = &combined.Numbered{BlockNo: nb.BlockNo, Block: newBlk, ExpectedReadCount: nb.ExpectedReadCount}
				}
				if insertErr := oq.Insert(idx, res); insertErr != nil {
					f.errOnce.Set(insertErr)
					return
				}
			}
		}(worker)
	}
	go func() {
		wg.Wait()
		if err := oq.Close(nil); err != nil {
			f.errOnce.Set(err)
		}
	}()

	go func() {
		defer close(out)
		for {
			val, ok, err := oq.Next()
			if err != nil {
				f.errOnce.Set(err)
				return
			}
			if !ok {
				return
			}
			res := val.(result)
			if res.err != nil {
				f.errOnce.Set(res.err)
				return
			}
			out <- res.nb
			if res.nb.Block.IsFinal {
				return
			}
		}
	}()
	return out
}

func (f *StageFabric) recordTiming(stageIdx int, label string, blockNo uint64, wall time.Duration) {
	if f.timing == nil {
		return
	}
	f.timing.Record(report.TimingSample{StageIndex: stageIdx, BlockNo: blockNo, StepType: label, Wall: wall})
}
