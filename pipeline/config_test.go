package pipeline_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavemotion/pipeline/pipeline"
	"github.com/weavemotion/pipeline/stage"
)

// A Connector only bridges states that already exist on both its Starts and
// Ends interfaces (spec.md §4.4) — it never generates new states itself —
// so, as in the original implementation's ConnectConnect fixtures, the
// chain must be flanked by Generators on both sides of the connector.
const sampleYAML = `
name: demo
stages:
  - name: approach
    kind: generator
    source: approach-poses
  - name: lift
    kind: propagator
    direction: forward
    propagate: lift-clear
  - name: grasp
    kind: connector
    planners: [arm]
  - name: place
    kind: generator
    source: place-poses
`

func testRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	reg.Sources["approach-poses"] = &fixedSource{costs: []float64{0, 1}}
	reg.Sources["place-poses"] = &fixedSource{costs: []float64{0}}
	reg.Propagate["lift-clear"] = func(ctx context.Context, from *stage.State) []stage.PropagationResult {
		return []stage.PropagationResult{{Scene: from.Scene().Diff(nil), Cost: 1}}
	}
	reg.Planners["arm"] = func(ctx context.Context, from, to stage.Scene) (stage.Trajectory, float64, string) {
		return to, 0, ""
	}
	return reg
}

type fixedScene struct{}

func (fixedScene) Diff(delta any) stage.Scene { return fixedScene{} }

type fixedSource struct {
	costs []float64
	next  int
}

func (s *fixedSource) HasNext() bool { return s.next < len(s.costs) }
func (s *fixedSource) Next() (stage.Scene, float64) {
	c := s.costs[s.next]
	s.next++
	return fixedScene{}, c
}

func TestLoadYAMLParsesValidDocument(t *testing.T) {
	spec, err := pipeline.LoadYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "demo", spec.Name)
	require.Len(t, spec.Stages, 4)
	assert.Equal(t, "generator", spec.Stages[0].Kind)
}

func TestLoadYAMLRejectsUnknownKind(t *testing.T) {
	doc := `
name: bad
stages:
  - name: x
    kind: teleporter
`
	_, err := pipeline.LoadYAML(strings.NewReader(doc))
	require.Error(t, err)
	var pe *stage.PlanError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, stage.ErrorTypeConfiguration, pe.Type)
}

func TestLoadYAMLRejectsMissingRequiredField(t *testing.T) {
	doc := `
name: bad
stages:
  - kind: generator
    source: poses
`
	_, err := pipeline.LoadYAML(strings.NewReader(doc))
	require.Error(t, err)
}

func TestLoadYAMLRejectsConnectorWithoutPlanners(t *testing.T) {
	doc := `
name: bad
stages:
  - name: c
    kind: connector
`
	_, err := pipeline.LoadYAML(strings.NewReader(doc))
	require.Error(t, err)
}

func TestPipelineSpecBuildAndPlan(t *testing.T) {
	spec, err := pipeline.LoadYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	p, err := spec.Build(testRegistry())
	require.NoError(t, err)
	require.NoError(t, p.Init(context.Background(), nil))

	res, err := p.Plan(context.Background(), 0)
	require.NoError(t, err)

	costs := make([]float64, len(res.Solutions))
	for i, sol := range res.Solutions {
		costs[i] = sol.Cost()
	}
	// approach's own candidate cost (0 or 1) plus lift's fixed cost of 1;
	// grasp and place never add their own.
	assert.Equal(t, []float64{1, 2}, costs)
}

func TestPipelineSpecBuildFailsOnUnregisteredSource(t *testing.T) {
	spec, err := pipeline.LoadYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	reg := testRegistry()
	delete(reg.Sources, "approach-poses")
	_, err = spec.Build(reg)
	require.Error(t, err)
	var pe *stage.PlanError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, stage.ErrorTypeConfiguration, pe.Type)
}
