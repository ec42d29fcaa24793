// Command pipelinedemo is a small operator-facing CLI over package
// pipeline's declarative YAML loader, in the same vein as the ops-tooling
// surface (cmd/gibson, trellis, rigrun) every repo in the retrieval pack
// carries alongside its library core. It never substitutes for the Go API:
// it demonstrates it against a built-in sample registry of named
// sources/planners, since a YAML document can describe stage topology but
// not the Go functions a real Generator/Connector ultimately calls.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weavemotion/pipeline/pipeline"
	"github.com/weavemotion/pipeline/stage"
)

var rootCmd = &cobra.Command{
	Use:   "pipelinedemo",
	Short: "Load and run a declarative pipeline YAML document",
}

var (
	pipelineFile string
	planTimeout  time.Duration
)

var validateCmd = &cobra.Command{
	Use:   "validate -f pipeline.yaml",
	Short: "Parse and validate a pipeline YAML document without running it",
	RunE:  runValidate,
}

var planCmd = &cobra.Command{
	Use:   "plan -f pipeline.yaml",
	Short: "Load a pipeline YAML document, run it against the sample registry, and print ranked solutions",
	RunE:  runPlan,
}

func init() {
	for _, c := range []*cobra.Command{validateCmd, planCmd} {
		c.Flags().StringVarP(&pipelineFile, "file", "f", "", "pipeline YAML file path (required)")
		c.MarkFlagRequired("file")
	}
	planCmd.Flags().DurationVar(&planTimeout, "timeout", 0, "soft deadline for the scheduling loop (0 means none)")
	rootCmd.AddCommand(validateCmd, planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	f, err := os.Open(pipelineFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", pipelineFile, err)
	}
	defer f.Close()

	spec, err := pipeline.LoadYAML(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d stage(s)\n", spec.Name, len(spec.Stages))
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	f, err := os.Open(pipelineFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", pipelineFile, err)
	}
	defer f.Close()

	spec, err := pipeline.LoadYAML(f)
	if err != nil {
		return err
	}

	p, err := spec.Build(sampleRegistry())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.Init(ctx, nil); err != nil {
		return err
	}

	res, err := p.Plan(ctx, planTimeout)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rounds=%d deadline_exceeded=%v solutions=%d\n", res.Rounds, res.DeadlineExceeded, len(res.Solutions))
	for i, sol := range res.Solutions {
		fmt.Fprintf(out, "  %d: cost=%.3f\n", i, sol.Cost())
	}
	return nil
}

// sampleRegistry wires the names a demo pipeline.yaml is expected to
// reference: a generator source yielding three candidate scenes at
// increasing cost, a forward propagator that advances one hop at cost 1,
// and a planner group "arm" that always connects at cost 0. Real callers
// of package pipeline register their own robot/scene-specific functions
// instead of this stand-in.
func sampleRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	reg.Sources["demo-poses"] = &demoSource{costs: []float64{0, 1, 2}}
	reg.Propagate["lift-clear"] = func(ctx context.Context, from *stage.State) []stage.PropagationResult {
		return []stage.PropagationResult{{Scene: from.Scene().Diff(nil), Cost: 1}}
	}
	reg.Planners["arm"] = func(ctx context.Context, from, to stage.Scene) (stage.Trajectory, float64, string) {
		return to, 0, ""
	}
	reg.CostTerms["none"] = func(stage.Solution) (float64, string) { return 0, "" }
	return reg
}

type demoScene struct{ generation int }

func (s *demoScene) Diff(delta any) stage.Scene { return &demoScene{generation: s.generation + 1} }

type demoSource struct {
	costs []float64
	next  int
}

func (s *demoSource) HasNext() bool { return s.next < len(s.costs) }

func (s *demoSource) Next() (stage.Scene, float64) {
	cost := s.costs[s.next]
	s.next++
	return &demoScene{}, cost
}
