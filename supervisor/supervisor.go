// Package supervisor implements the Supervisor (spec §4.9): a staged
// builder with five explicit phases, each consuming the handle its
// predecessor returns, so the type system forbids skipping or
// reordering a phase (e.g. starting output before demultiplex is
// planned does not type-check).
//
// Grounded on the overall "construct, wire channels, run to
// completion, join" shape of cmd/bio-fusion/main.go and
// cmd/bio-pileup/main.go, formalized into phase types. Internal
// progress is logged with v.io/x/lib/vlog, the same logger
// encoding/bam/shardedbam.go and encoding/pam/sharder.go use.
package supervisor

import (
	"context"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/combiner"
	"github.com/grailbio/fqproc/config"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/fastaio"
	"github.com/grailbio/fqproc/fastqio"
	"github.com/grailbio/fqproc/output"
	"github.com/grailbio/fqproc/report"
	"github.com/grailbio/fqproc/stage"
	"github.com/grailbio/fqproc/steps"
	"v.io/x/lib/vlog"
)

// Result is what Phase5.Join returns: the run's accumulated errors (if
// any), per-step-type timing aggregates, and report fragments, per
// spec §4.8/§4.9.
type Result struct {
	Errors    []string
	Timings   map[string]*report.StepTiming
	Fragments []report.Fragment
}

// builtStep is one pipeline position's compiled Step plus the static
// configuration StartStages needs to run it.
type builtStep struct {
	step        stage.Step
	label       string
	threadCount int
}

// Phase1 is returned by New; its only operation is PlanDemultiplex.
type Phase1 struct {
	cfg *config.Config
}

// New begins building a run from a validated Config (spec.md §6's
// config.Validate must already have been called by the caller, per the
// ConfigError taxonomy in spec §7 — Phase1 does not re-validate
// structure, only demultiplex-specific compilation).
func New(cfg *config.Config) *Phase1 {
	return &Phase1{cfg: cfg}
}

// Phase2 is returned by PlanDemultiplex; its only operation is
// StartInputs.
type Phase2 struct {
	cfg       *config.Config
	info      stage.InputInfo
	built     []builtStep
	stepViews []*demux.DemultiplexView // view visible to Apply at each pipeline position
	finalView *demux.DemultiplexView   // cumulative view after every demux step
}

// PlanDemultiplex builds every configured Step, calls Init on each in
// pipeline order (collecting any demux.StepSpec a demultiplexing Step
// returns), compiles the full demux.DemultiplexScheme from those specs,
// and binds it back onto the Steps that need it, per spec §4.4/§4.9.
func (p *Phase1) PlanDemultiplex(outDir string, allowOverwrite bool) (*Phase2, error) {
	cfg := p.cfg
	sep := cfg.Options.Separator
	if sep == "" {
		sep = demux.DefaultSeparator
	}
	info := stage.InputInfo{SegmentOrder: segmentOrder(cfg.Input)}

	built := make([]builtStep, len(cfg.Steps))
	type demuxPos struct {
		pipelineIdx int
		specIdx     int
	}
	var specs []demux.StepSpec
	var demuxPositions []demuxPos

	for i, sc := range cfg.Steps {
		step, err := steps.Build(sc.Type, sc.Args)
		if err != nil {
			return nil, errors.E(err, "supervisor: plan_demultiplex: build step", sc.Type)
		}
		threadCount := sc.ThreadCount
		if threadCount < 1 {
			threadCount = cfg.Options.ThreadCount
		}
		if threadCount < 1 {
			threadCount = 1
		}
		spec, err := step.Init(info, cfg.Output.Prefix, outDir, sep, nil, allowOverwrite)
		if err != nil {
			return nil, errors.E(err, "supervisor: plan_demultiplex: init step", sc.Type)
		}
		built[i] = builtStep{step: step, label: sc.Type, threadCount: threadCount}
		if spec != nil {
			demuxPositions = append(demuxPositions, demuxPos{pipelineIdx: i, specIdx: len(specs)})
			specs = append(specs, *spec)
		}
	}

	var scheme *demux.DemultiplexScheme
	if len(specs) > 0 {
		var err error
		scheme, err = demux.Plan(specs, sep)
		if err != nil {
			return nil, errors.E(err, "supervisor: plan_demultiplex: compile scheme")
		}
		for _, dp := range demuxPositions {
			if dstep, ok := built[dp.pipelineIdx].step.(stage.DemultiplexStep); ok {
				dstep.BindScheme(scheme, dp.specIdx)
			}
		}
	}

	stepViews := make([]*demux.DemultiplexView, len(built))
	var currentView *demux.DemultiplexView
	demuxIdx := 0
	for i := range built {
		stepViews[i] = currentView
		if demuxIdx < len(demuxPositions) && demuxPositions[demuxIdx].pipelineIdx == i {
			currentView = scheme.ViewAfter(demuxPositions[demuxIdx].specIdx)
			demuxIdx++
		}
	}
	vlog.VI(1).Infof("supervisor: planned %d steps, %d demultiplex stages", len(built), len(demuxPositions))

	return &Phase2{cfg: cfg, info: info, built: built, stepViews: stepViews, finalView: currentView}, nil
}

// Phase3 is returned by StartInputs; its only operation is StartStages.
type Phase3 struct {
	cfg       *config.Config
	info      stage.InputInfo
	built     []builtStep
	stepViews []*demux.DemultiplexView
	finalView *demux.DemultiplexView

	in      <-chan *combined.Numbered
	errOnce *errors.Once
}

// StartInputs opens every configured source file, constructs one
// BlockParser per segment (or one shared parser in interleaved mode)
// wired through combiner.SegmentCombiner, and starts a goroutine
// feeding CombinedBlocks onto a channel, per spec §4.2/§4.3.
func (p *Phase2) StartInputs(ctx context.Context) (*Phase3, error) {
	cfg := p.cfg
	order := p.info.SegmentOrder
	comb, err := buildCombiner(cfg, order)
	if err != nil {
		return nil, errors.E(err, "supervisor: start_inputs")
	}

	out := make(chan *combined.Numbered, stage.DefaultChannelDepth)
	var errOnce errors.Once
	go func() {
		defer close(out)
		for {
			nb, ok, err := comb.Next(ctx)
			if err != nil {
				vlog.Errorf("supervisor: input: %v", err)
				errOnce.Set(err)
				return
			}
			if !ok {
				return
			}
			out <- nb
			if nb.Block.IsFinal {
				return
			}
		}
	}()

	return &Phase3{
		cfg: cfg, info: p.info, built: p.built, stepViews: p.stepViews, finalView: p.finalView,
		in: out, errOnce: &errOnce,
	}, nil
}

// Phase4 is returned by StartStages; its only operation is
// StartOutput.
type Phase4 struct {
	cfg       *config.Config
	finalView *demux.DemultiplexView
	built     []builtStep

	out     <-chan *combined.Numbered
	fabric  *stage.StageFabric
	timing  *report.TimingCollector
	agg     *report.Aggregator
	errOnce *errors.Once
}

// StartStages wires every planned Step into a stage.StageFabric and
// starts it pulling from the input channel, per spec §4.6.
func (p *Phase3) StartStages(timing *report.TimingCollector) (*Phase4, error) {
	stepConfigs := make([]stage.StepConfig, len(p.built))
	for i, b := range p.built {
		stepConfigs[i] = stage.StepConfig{
			Step:        b.step,
			Label:       b.label,
			ThreadCount: b.threadCount,
			View:        p.stepViews[i],
		}
	}
	fabric := stage.NewStageFabric(p.info, stepConfigs, timing)
	out := fabric.Run(p.in)
	vlog.VI(1).Infof("supervisor: started %d stages", len(stepConfigs))
	return &Phase4{
		cfg: p.cfg, finalView: p.finalView, built: p.built, out: out, fabric: fabric,
		timing: timing, agg: report.NewAggregator(), errOnce: p.errOnce,
	}, nil
}

// Phase5 is returned by StartOutput; its only operation is Join.
type Phase5 struct {
	built []builtStep

	done chan struct{}
	mux  *output.Multiplexer

	timing  *report.TimingCollector
	agg     *report.Aggregator
	errOnce *errors.Once
	fabric  *stage.StageFabric
}

// StartOutput constructs the output.Multiplexer from the run's
// demultiplex view and drains the stage fabric's output channel into
// it, per spec §4.7.
func (p *Phase4) StartOutput(ctx context.Context, dir string, allowOverwrite bool) (*Phase5, error) {
	cfg := p.cfg
	codec, err := parseCodec(cfg.Output.Codec)
	if err != nil {
		return nil, errors.E(err, "supervisor: start_output")
	}
	format, err := parseFormat(cfg.Output.Format)
	if err != nil {
		return nil, errors.E(err, "supervisor: start_output")
	}
	prefix := cfg.Output.Prefix
	if dir != "" {
		prefix = dir + "/" + prefix
	}
	mux, err := output.New(ctx, output.Config{
		Prefix:         prefix,
		Format:         format,
		Codec:          codec,
		ChunkSizeReads: cfg.Output.ChunkSizeReads,
		AllowOverwrite: allowOverwrite,
		SegmentOrder:   segmentOrder(cfg.Input),
		Interleave:     cfg.Output.Interleave,
		View:           p.finalView,
	})
	if err != nil {
		return nil, errors.E(err, "supervisor: start_output")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for nb := range p.out {
			if err := mux.Write(nb); err != nil {
				vlog.Errorf("supervisor: output: %v", err)
				p.errOnce.Set(err)
				return
			}
		}
	}()

	return &Phase5{
		built: p.built, done: done, mux: mux, timing: p.timing, agg: p.agg, errOnce: p.errOnce, fabric: p.fabric,
	}, nil
}

// Join waits for the pipeline to drain, finalizes every Step and the
// output sinks, and returns the run's accumulated errors, timings, and
// report fragments, per spec §4.9's Phase5.
func (p *Phase5) Join() Result {
	<-p.done

	var errs []string
	if err := p.errOnce.Err(); err != nil {
		errs = append(errs, err.Error())
	}
	if p.fabric != nil {
		if err := p.fabric.Err(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, b := range p.built {
		frag, err := b.step.Finalize(nil)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		p.agg.Add(frag)
	}
	if err := p.mux.Finish(); err != nil {
		errs = append(errs, err.Error())
	}

	var timings map[string]*report.StepTiming
	if p.timing != nil {
		timings = p.timing.Close()
	}
	if len(errs) > 0 {
		vlog.Errorf("supervisor: run finished with %d error(s)", len(errs))
	}
	return Result{Errors: errs, Timings: timings, Fragments: p.agg.Fragments()}
}

func segmentOrder(in config.Input) []string {
	if len(in.SegmentOrder) > 0 {
		return in.SegmentOrder
	}
	names := make([]string, 0, len(in.Segments))
	for name := range in.Segments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseCodec(s string) (output.Codec, error) {
	switch s {
	case "", "raw":
		return output.Raw, nil
	case "gzip":
		return output.Gzip, nil
	case "zstd":
		return output.Zstd, nil
	default:
		return 0, errors.E("supervisor: unrecognized output codec", s)
	}
}

func parseFormat(s string) (output.Format, error) {
	switch s {
	case "", "fastq":
		return output.FASTQ, nil
	case "fasta":
		return output.FASTA, nil
	case "bam":
		return output.BAM, nil
	default:
		return 0, errors.E("supervisor: unrecognized output format", s)
	}
}

func buildCombiner(cfg *config.Config, order []string) (*combiner.SegmentCombiner, error) {
	blockSize := cfg.Input.BlockSize
	fasta := cfg.Input.Format == "fasta"

	if cfg.Input.Mode == "interleaved" {
		src, err := newArenaSource(cfg.Input.Files, blockSize, cfg.Input.StrictFinalNewline, cfg.Input.AcceptCRLF, fasta)
		if err != nil {
			return nil, err
		}
		return combiner.NewInterleaved(order, src), nil
	}

	sources := make([]combiner.ArenaSource, len(order))
	for i, name := range order {
		src, err := newArenaSource(cfg.Input.Segments[name], blockSize, cfg.Input.StrictFinalNewline, cfg.Input.AcceptCRLF, fasta)
		if err != nil {
			return nil, errors.E(err, "supervisor: segment", name)
		}
		sources[i] = src
	}
	return combiner.NewSegmented(order, sources), nil
}

func newArenaSource(paths []string, blockSize int, strictFinalNewline, acceptCRLF, fasta bool) (combiner.ArenaSource, error) {
	if fasta {
		srcs := make([]fastaio.Source, len(paths))
		for i, path := range paths {
			srcs[i] = fastaio.Source{ID: path, Path: path}
		}
		return fastaio.NewBlockParser(srcs, fastaio.Options{BlockSize: blockSize}), nil
	}
	srcs := make([]fastqio.Source, len(paths))
	for i, path := range paths {
		srcs[i] = fastqio.Source{ID: path, Path: path}
	}
	return fastqio.NewBlockParser(srcs, fastqio.Options{
		BlockSize:          blockSize,
		StrictFinalNewline: strictFinalNewline,
		AllowCRLF:          acceptCRLF,
	}), nil
}
