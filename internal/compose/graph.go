package compose

import (
	"fmt"
	"strings"
)

// Step is one node of a filter graph: named inputs, a filter expression,
// and the label it produces. Inputs are either stream references ("0:v")
// or labels produced by an earlier step; source filters (color=...) take
// no inputs.
type Step struct {
	Inputs []string
	Filter string
	Output string
}

// Graph is an ordered list of filter steps. Building the graph as typed
// steps keeps well-formedness checkable independent of string formatting;
// serialization to ffmpeg syntax happens only at the boundary.
type Graph struct {
	steps []Step
}

// Add appends a step producing output from the given filter and inputs.
func (g *Graph) Add(filter, output string, inputs ...string) {
	g.steps = append(g.steps, Step{Inputs: inputs, Filter: filter, Output: output})
}

// Steps returns the ordered step list.
func (g *Graph) Steps() []Step {
	cp := make([]Step, len(g.steps))
	copy(cp, g.steps)
	return cp
}

// FinalOutput returns the label produced by the last step, or "".
func (g *Graph) FinalOutput() string {
	if len(g.steps) == 0 {
		return ""
	}
	return g.steps[len(g.steps)-1].Output
}

// Validate checks that every label referenced as a step input was produced
// by a preceding step, and that no label is produced twice. Stream
// references are source nodes and always valid.
func (g *Graph) Validate() error {
	defined := make(map[string]struct{}, len(g.steps))
	for i, step := range g.steps {
		if strings.TrimSpace(step.Output) == "" {
			return fmt.Errorf("filter graph: step %d has no output label", i)
		}
		if strings.TrimSpace(step.Filter) == "" {
			return fmt.Errorf("filter graph: step %d (%s) has no filter", i, step.Output)
		}
		for _, input := range step.Inputs {
			if isStreamRef(input) {
				continue
			}
			if _, ok := defined[input]; !ok {
				return fmt.Errorf("filter graph: step %d (%s) references undefined label %q", i, step.Output, input)
			}
		}
		if _, ok := defined[step.Output]; ok {
			return fmt.Errorf("filter graph: label %q produced twice", step.Output)
		}
		defined[step.Output] = struct{}{}
	}
	return nil
}

// FilterComplex serializes the graph to ffmpeg filter_complex syntax.
func (g *Graph) FilterComplex() string {
	parts := make([]string, 0, len(g.steps))
	for _, step := range g.steps {
		var b strings.Builder
		for _, input := range step.Inputs {
			b.WriteByte('[')
			b.WriteString(input)
			b.WriteByte(']')
		}
		b.WriteString(step.Filter)
		b.WriteByte('[')
		b.WriteString(step.Output)
		b.WriteByte(']')
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ";")
}

// isStreamRef reports whether the label addresses an input stream
// ("0:v", "2:a") rather than a graph-internal node.
func isStreamRef(label string) bool {
	return strings.ContainsRune(label, ':')
}
