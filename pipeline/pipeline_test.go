package pipeline_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavemotion/pipeline/pipeline"
	"github.com/weavemotion/pipeline/stage"
	"github.com/weavemotion/pipeline/stagetest"
)

// These integration tests port the original implementation's
// test/test_serial.cpp fixtures (ConnectConnect.SuccSucc/FailSucc,
// Pruning.PropagatorFailure/PruningMultiForward/ConnectConnectForward,
// Pruning.PropagateInsideContainerBoundaries) into the six concrete
// end-to-end scenarios enumerated in spec.md §8.

func solutionCosts(sols []stage.Solution) []float64 {
	costs := make([]float64, len(sols))
	for i, s := range sols {
		costs[i] = s.Cost()
	}
	return costs
}

func TestSuccSucc(t *testing.T) {
	p := pipeline.New("succ-succ")
	p.Add(stagetest.NewGenerator("GEN1", 1, 2, 3))
	p.Add(stagetest.NewConnect("CON1", false))
	p.Add(stagetest.NewGenerator("GEN2", 10, 20))
	p.Add(stagetest.NewConnect("CON2", false))
	p.Add(stagetest.NewGenerator("GEN3"))

	require.NoError(t, p.Init(context.Background(), nil))
	res, err := p.Plan(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, []float64{11, 12, 13, 21, 22, 23}, solutionCosts(res.Solutions))
}

func TestFailSucc(t *testing.T) {
	p := pipeline.New("fail-succ")
	p.Add(stagetest.NewGenerator("GEN1"))
	p.Add(stagetest.NewConnect("CON1", true, math.Inf(1)))
	p.Add(stagetest.NewGenerator("GEN2"))
	p.Add(stagetest.NewConnect("CON2", false))
	p.Add(stagetest.NewGenerator("GEN3"))
	p.Add(stagetest.NewForwardDummy("FWD"))

	require.NoError(t, p.Init(context.Background(), nil))
	res, err := p.Plan(context.Background(), 0)
	require.NoError(t, err)

	assert.Empty(t, res.Solutions)
}

func TestPropagatorFailurePrunesUpstream(t *testing.T) {
	back := stagetest.NewBackwardMockup("BW1")

	p := pipeline.New("propagator-failure")
	p.Add(back)
	p.Add(stagetest.NewGenerator("GEN1", 0))
	p.Add(stagetest.NewForwardMockup("FW1", 1, math.Inf(1)))

	require.NoError(t, p.Init(context.Background(), nil))
	res, err := p.Plan(context.Background(), 0)
	require.NoError(t, err)

	assert.Empty(t, res.Solutions)
	assert.Equal(t, 0, back.Calls())
}

func TestPruningMultiForward(t *testing.T) {
	p := pipeline.New("multi-forward")
	p.Add(stagetest.NewBackwardMockup("BW1"))
	p.Add(stagetest.NewBackwardMockup("BW2"))
	p.Add(stagetest.NewGenerator("GEN1", 0))
	// spawns two solutions for the one incoming state
	p.Add(stagetest.NewForwardMockup("FW1", 2, 0, 0))
	// the second branch fails to extend
	p.Add(stagetest.NewForwardMockup("FW2", 1, 0, math.Inf(1)))

	require.NoError(t, p.Init(context.Background(), nil))
	res, err := p.Plan(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, res.Solutions, 1)
	assert.Equal(t, float64(0), res.Solutions[0].Cost())
}

func TestConnectConnectForward(t *testing.T) {
	con1 := stagetest.NewConnect("CON1", false, math.Inf(1), 0)
	con2 := stagetest.NewConnect("CON2", false)

	p := pipeline.New("connect-connect-forward")
	p.Add(stagetest.NewGenerator("GEN1"))
	p.Add(con1)
	p.Add(stagetest.NewGenerator("GEN2", 0, 10, 20))
	p.Add(stagetest.NewForwardMockup("FW1", 1))
	p.Add(con2)
	p.Add(stagetest.NewGenerator("GEN3", 1, 2, 3))

	require.NoError(t, p.Init(context.Background(), nil))
	res, err := p.Plan(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, []float64{11, 12, 13, 21, 22, 23}, solutionCosts(res.Solutions))
	assert.Equal(t, 3, con1.Calls())
	assert.Equal(t, 6, con2.Calls())
}

func TestContainerTransparentPruning(t *testing.T) {
	con := stagetest.NewConnect("CON1", false)

	inner := stage.NewSerialContainer("inner")
	inner.Add(con)
	inner.Add(stagetest.NewGenerator("GEN2", 0))

	p := pipeline.New("container-transparent-pruning")
	p.Add(stagetest.NewBackwardMockup("BW1", math.Inf(1)))
	p.Add(stagetest.NewGenerator("GEN1", 0))
	p.Add(inner)

	require.NoError(t, p.Init(context.Background(), nil))
	_, err := p.Plan(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 0, con.Calls())
}

// The original test suite documents this as
// Pruning.DISABLED_PropagateOutsideContainerBoundaries: a failure *inside*
// a SerialContainer pruning compute *outside* it. spec.md §9 leaves this
// unimplemented ("a known partially-implemented case"), so this stays a
// skipped placeholder rather than a silently dropped case.
func TestPropagateOutsideContainerBoundaries(t *testing.T) {
	t.Skip("spec.md §9: failure inside a container pruning compute outside it is a known, unimplemented extension")
}
