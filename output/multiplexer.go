package output

import (
	"context"
	"sort"
	"strings"

	baseerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/fqproc/combined"
	"github.com/grailbio/fqproc/demux"
)

// noBucketName is used when no demultiplex step ran, so every read goes
// to a single bucket.
const noBucketName = "all"

// Config configures one OutputMultiplexer instance.
type Config struct {
	Prefix         string
	Format         Format
	Codec          Codec
	ChunkSizeReads int
	AllowOverwrite bool
	SegmentOrder   []string
	// Interleave, if non-empty, names the segments (in emission order)
	// to merge into one file per bucket instead of one file per segment.
	Interleave []string
	// View is the cumulative DemultiplexView after the last demultiplex
	// Step in the pipeline, or nil if none ran.
	View *demux.DemultiplexView
}

// Multiplexer is the OutputMultiplexer of spec §4.7: it receives
// NumberedBlocks in any order, rebuffers to restore strictly increasing
// block_no order, and routes each read to the sink named by its
// demultiplex bucket.
type Multiplexer struct {
	ctx context.Context
	cfg Config

	sinks map[string]map[string]*rotatingSink // bucket -> label -> sink

	pending     map[uint64]*combined.Numbered
	nextBlockNo uint64
}

// New constructs a Multiplexer, eagerly creating and opening the backing
// file of one rotatingSink per (bucket, segment-or-interleave-label)
// tuple, per spec §4.7. Every sink is framed even if no read is ever
// routed to it, so empty input (or head(n=0)) still produces zero-record,
// correctly-framed output files rather than none at all.
func New(ctx context.Context, cfg Config) (*Multiplexer, error) {
	m := &Multiplexer{
		ctx:         ctx,
		cfg:         cfg,
		sinks:       map[string]map[string]*rotatingSink{},
		pending:     map[uint64]*combined.Numbered{},
		nextBlockNo: 1,
	}
	interleaveLabel := ""
	if len(cfg.Interleave) > 0 {
		interleaveLabel = strings.Join(cfg.Interleave, "+")
	}
	for _, bucket := range bucketNames(cfg.View) {
		byLabel := map[string]*rotatingSink{}
		if interleaveLabel != "" {
			sink := newRotatingSink(ctx, cfg.Prefix, bucket, interleaveLabel, cfg.Format, cfg.Codec, cfg.ChunkSizeReads, cfg.AllowOverwrite)
			if err := sink.open(); err != nil {
				return nil, err
			}
			byLabel[interleaveLabel] = sink
		} else {
			for _, seg := range cfg.SegmentOrder {
				sink := newRotatingSink(ctx, cfg.Prefix, bucket, seg, cfg.Format, cfg.Codec, cfg.ChunkSizeReads, cfg.AllowOverwrite)
				if err := sink.open(); err != nil {
					return nil, err
				}
				byLabel[seg] = sink
			}
		}
		m.sinks[bucket] = byLabel
	}
	return m, nil
}

func bucketNames(view *demux.DemultiplexView) []string {
	if view == nil {
		return []string{noBucketName}
	}
	seen := map[string]bool{}
	var names []string
	for _, namePtr := range view.TagToName {
		if namePtr == nil || seen[*namePtr] {
			continue
		}
		seen[*namePtr] = true
		names = append(names, *namePtr)
	}
	sort.Strings(names)
	return names
}

// Write submits nb, buffering it if it arrives ahead of nextBlockNo and
// flushing every now-contiguous block in order.
func (m *Multiplexer) Write(nb *combined.Numbered) error {
	m.pending[nb.BlockNo] = nb
	for {
		ready, ok := m.pending[m.nextBlockNo]
		if !ok {
			return nil
		}
		delete(m.pending, m.nextBlockNo)
		m.nextBlockNo++
		if err := m.writeBlock(ready.Block); err != nil {
			return err
		}
	}
}

func (m *Multiplexer) writeBlock(blk *combined.Block) error {
	n := blk.ReadCount()
	for i := 0; i < n; i++ {
		bucket, ok := m.routeRead(blk, i)
		if !ok {
			continue
		}
		byLabel := m.sinks[bucket]
		if byLabel == nil {
			continue
		}
		if len(m.cfg.Interleave) > 0 {
			label := strings.Join(m.cfg.Interleave, "+")
			for _, seg := range m.cfg.Interleave {
				if err := byLabel[label].write(blk.Segments[seg].View(i)); err != nil {
					return err
				}
			}
			continue
		}
		for _, seg := range blk.SegmentOrder {
			if err := byLabel[seg].write(blk.Segments[seg].View(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Multiplexer) routeRead(blk *combined.Block, i int) (string, bool) {
	if m.cfg.View == nil {
		return noBucketName, true
	}
	var tag uint64
	if blk.OutputTag != nil {
		tag = blk.OutputTag[i]
	}
	return m.cfg.View.Resolve(tag)
}

// Finish flushes and closes every open sink, per spec §4.7's finish()
// contract, and returns the first error encountered across all of them.
func (m *Multiplexer) Finish() error {
	var once baseerrors.Once
	for _, byLabel := range m.sinks {
		for _, sink := range byLabel {
			once.Set(sink.finish())
		}
	}
	return once.Err()
}
