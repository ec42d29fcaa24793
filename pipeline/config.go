// Declarative YAML pipeline assembly, in the same spirit as the teacher
// corpus's internal/workflow/yaml.go: a human-authored document describes
// stage topology and properties; a Registry supplies the actual planning
// functions (scene sources, propagation/plan functions) a YAML document
// cannot itself express, since the stage graph carries no wire format or
// persisted state (spec.md §6).
//
// # YAML Structure Example
//
//	name: pick-and-place
//	stages:
//	  - name: approach
//	    kind: generator
//	    source: approach-poses
//	  - name: grasp
//	    kind: connector
//	    merge_mode: SEQUENTIAL
//	    planners: [arm, gripper]
//	  - name: retreat
//	    kind: propagator
//	    direction: forward
//	    propagate: lift-clear
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/weavemotion/pipeline/stage"
)

// StageSpec is the YAML representation of one stage in a pipeline or
// container's child list.
type StageSpec struct {
	Name      string      `yaml:"name" validate:"required"`
	Kind      string      `yaml:"kind" validate:"required,oneof=generator propagator connector container"`
	Source    string      `yaml:"source,omitempty" validate:"required_if=Kind generator"`
	Direction string      `yaml:"direction,omitempty" validate:"omitempty,oneof=forward backward both"`
	Propagate string      `yaml:"propagate,omitempty"`
	Planners  []string    `yaml:"planners,omitempty" validate:"required_if=Kind connector,omitempty,min=1,dive,required"`
	MergeMode string      `yaml:"merge_mode,omitempty" validate:"omitempty,oneof=PARALLEL SEQUENTIAL"`
	CostTerm  string      `yaml:"cost_term,omitempty"`
	Timeout   string      `yaml:"timeout,omitempty"`
	Children  []StageSpec `yaml:"children,omitempty" validate:"omitempty,dive"`
}

// PipelineSpec is the top-level document LoadYAML parses.
type PipelineSpec struct {
	Name   string      `yaml:"name" validate:"required"`
	Stages []StageSpec `yaml:"stages" validate:"required,min=1,dive"`
}

// Registry supplies the named, code-side building blocks a PipelineSpec
// refers to by name: a YAML document can say "use the source named
// approach-poses" but cannot itself define what that source does.
type Registry struct {
	Sources   map[string]stage.Source
	Propagate map[string]stage.PropagateFunc
	Planners  map[string]stage.PlanFunc
	CostTerms map[string]stage.CostTerm
}

// NewRegistry constructs an empty Registry ready for its maps to be
// populated by the caller before Build.
func NewRegistry() *Registry {
	return &Registry{
		Sources:   make(map[string]stage.Source),
		Propagate: make(map[string]stage.PropagateFunc),
		Planners:  make(map[string]stage.PlanFunc),
		CostTerms: make(map[string]stage.CostTerm),
	}
}

var specValidator = validator.New()

// LoadYAML parses and validates a pipeline document from r. Validation
// failures are returned as a *stage.PlanError with ErrorTypeConfiguration,
// matching spec.md §7's "configuration and init errors are returned
// synchronously."
func LoadYAML(r io.Reader) (*PipelineSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, stage.WrapError(stage.ErrorTypeConfiguration, "reading pipeline yaml", err)
	}

	var spec PipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, stage.WrapError(stage.ErrorTypeConfiguration, "parsing pipeline yaml", err)
	}

	if err := specValidator.Struct(&spec); err != nil {
		return nil, formatValidationError(err)
	}
	return &spec, nil
}

func formatValidationError(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return stage.WrapError(stage.ErrorTypeConfiguration, "validating pipeline spec", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed validation %q", fe.Namespace(), fe.Tag()))
	}
	return stage.NewError(stage.ErrorTypeConfiguration, "invalid pipeline spec: "+strings.Join(msgs, "; "))
}

// Build materializes spec into a runnable Pipeline, resolving every named
// source/propagate/planner/cost_term reference against reg. Stages are
// added in document order; nested container specs become nested
// *stage.SerialContainer children, matching §4.6's arbitrary-depth nesting.
func (spec *PipelineSpec) Build(reg *Registry, opts ...Option) (*Pipeline, error) {
	p := New(spec.Name, opts...)
	for _, ss := range spec.Stages {
		s, err := buildStage(ss, reg)
		if err != nil {
			return nil, err
		}
		p.Add(s)
	}
	return p, nil
}

func buildStage(ss StageSpec, reg *Registry) (stage.Stage, error) {
	switch ss.Kind {
	case "generator":
		return buildGenerator(ss, reg)
	case "propagator":
		return buildPropagator(ss, reg)
	case "connector":
		return buildConnector(ss, reg)
	case "container":
		return buildContainer(ss, reg)
	default:
		return nil, stage.NewConfigurationError("stage " + ss.Name + ": unknown kind " + ss.Kind)
	}
}

func buildGenerator(ss StageSpec, reg *Registry) (stage.Stage, error) {
	src, ok := reg.Sources[ss.Source]
	if !ok {
		return nil, stage.NewConfigurationError("stage " + ss.Name + ": no registered source named " + ss.Source)
	}
	g := stage.NewGenerator(ss.Name, src)
	return g, applyCommonProperties(g, ss, reg)
}

func buildPropagator(ss StageSpec, reg *Registry) (stage.Stage, error) {
	fn, ok := reg.Propagate[ss.Propagate]
	if !ok {
		return nil, stage.NewConfigurationError("stage " + ss.Name + ": no registered propagate function named " + ss.Propagate)
	}

	var p *stage.Propagator
	switch ss.Direction {
	case "backward":
		p = stage.NewBackwardPropagator(ss.Name, fn)
	case "both":
		p = stage.NewEitherWayPropagator(ss.Name, fn, fn)
	default:
		p = stage.NewForwardPropagator(ss.Name, fn)
	}
	return p, applyCommonProperties(p, ss, reg)
}

func buildConnector(ss StageSpec, reg *Registry) (stage.Stage, error) {
	planners := make(map[string]stage.PlanFunc, len(ss.Planners))
	for _, name := range ss.Planners {
		fn, ok := reg.Planners[name]
		if !ok {
			return nil, stage.NewConfigurationError("stage " + ss.Name + ": no registered planner named " + name)
		}
		planners[name] = fn
	}
	c := stage.NewConnector(ss.Name, planners)
	if ss.MergeMode == string(stage.MergeSequential) {
		if err := c.SetProperty("merge_mode", stage.MergeSequential); err != nil {
			return nil, err
		}
	}
	return c, applyCommonProperties(c, ss, reg)
}

func buildContainer(ss StageSpec, reg *Registry) (stage.Stage, error) {
	c := stage.NewSerialContainer(ss.Name)
	for _, child := range ss.Children {
		built, err := buildStage(child, reg)
		if err != nil {
			return nil, err
		}
		c.Add(built)
	}
	return c, applyCommonProperties(c, ss, reg)
}

func applyCommonProperties(s stage.Stage, ss StageSpec, reg *Registry) error {
	if ss.Timeout != "" {
		d, err := time.ParseDuration(ss.Timeout)
		if err != nil {
			return stage.WrapError(stage.ErrorTypeConfiguration, "stage "+ss.Name+": invalid timeout", err)
		}
		if d <= 0 {
			return stage.NewConfigurationError("stage " + ss.Name + ": timeout must be positive")
		}
		if err := s.SetProperty("timeout", d); err != nil {
			return err
		}
	}
	if ss.CostTerm != "" {
		ct, ok := reg.CostTerms[ss.CostTerm]
		if !ok {
			return stage.NewConfigurationError("stage " + ss.Name + ": no registered cost_term named " + ss.CostTerm)
		}
		if err := s.SetProperty("cost_term", ct); err != nil {
			return err
		}
	}
	return nil
}
