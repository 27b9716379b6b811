package demux_test

import (
	"testing"

	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestPlanTwoStepComposition(t *testing.T) {
	scheme, err := demux.Plan([]demux.StepSpec{
		{Names: []string{"A", "B"}},
		{Names: []string{"X", "Y"}},
	}, "_")
	assert.NoError(t, err)
	expect.EQ(t, scheme.NumSteps(), 2)

	tagA, ok := scheme.Resolve(0, "A")
	assert.True(t, ok, "A should resolve")
	tagB, ok := scheme.Resolve(0, "B")
	assert.True(t, ok, "B should resolve")
	expect.True(t, tagA != tagB, "distinct names must get distinct tags")

	tagX, ok := scheme.Resolve(1, "X")
	assert.True(t, ok, "X should resolve")
	tagY, ok := scheme.Resolve(1, "Y")
	assert.True(t, ok, "Y should resolve")

	view := scheme.ViewAfter(1)
	name, ok := view.Resolve(tagA | tagX)
	assert.True(t, ok, "A_X should resolve")
	expect.EQ(t, name, "A_X")

	name, ok = view.Resolve(tagB | tagY)
	assert.True(t, ok, "B_Y should resolve")
	expect.EQ(t, name, "B_Y")
}

func TestPlanNoBarcodeDropped(t *testing.T) {
	scheme, err := demux.Plan([]demux.StepSpec{
		{Names: []string{"A", "B"}, IncludeNoBarcode: false},
	}, "_")
	assert.NoError(t, err)
	view := scheme.ViewAfter(0)
	_, ok := view.Resolve(0)
	expect.False(t, ok)
}

func TestPlanNoBarcodeIncluded(t *testing.T) {
	scheme, err := demux.Plan([]demux.StepSpec{
		{Names: []string{"A", "B"}, IncludeNoBarcode: true},
	}, "_")
	assert.NoError(t, err)
	view := scheme.ViewAfter(0)
	name, ok := view.Resolve(0)
	assert.True(t, ok, "no-barcode should resolve when included")
	expect.EQ(t, name, "no-barcode")
}

func TestPlanDisjointBitWindows(t *testing.T) {
	scheme, err := demux.Plan([]demux.StepSpec{
		{Names: []string{"A", "B", "C"}},
		{Names: []string{"X", "Y"}},
	}, "_")
	assert.NoError(t, err)
	tagC, _ := scheme.Resolve(0, "C")
	tagX, _ := scheme.Resolve(1, "X")
	expect.EQ(t, tagC&tagX, uint64(0))
}

func TestPlanOverflow(t *testing.T) {
	var specs []demux.StepSpec
	for i := 0; i < 7; i++ {
		specs = append(specs, demux.StepSpec{Names: make([]string, 1<<20)})
	}
	_, err := demux.Plan(specs, "_")
	expect.NotNil(t, err)
	_, ok := err.(*demux.DemultiplexOverflow)
	assert.True(t, ok, "expected *demux.DemultiplexOverflow, got %T", err)
}
