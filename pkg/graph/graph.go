// Package graph holds the static transition table that drives every turn.
//
// The table is keyed by (from state, condition). A pair with no edge is a
// programming error surfaced as *TransitionError, never a silent no-op.
package graph

import (
	"errors"
	"fmt"

	"github.com/aretw0/bookflow/pkg/domain"
)

// Edge is a single labelled transition.
type Edge struct {
	From domain.State     `json:"from"`
	On   domain.Condition `json:"on"`
	To   domain.State     `json:"to"`
}

// TransitionError reports a (state, condition) pair missing from the table.
type TransitionError struct {
	From domain.State
	On   domain.Condition
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition from %s on %s", e.From, e.On)
}

func (e *TransitionError) Unwrap() error {
	return domain.ErrUnknownTransition
}

// Graph is an immutable transition table.
type Graph struct {
	table map[domain.State]map[domain.Condition]domain.State
	edges []Edge
}

// DefaultEdges is the bookstore turn graph.
var DefaultEdges = []Edge{
	{domain.StateValidateInput, domain.CondValidInput, domain.StateLoadContext},
	{domain.StateValidateInput, domain.CondMissingData, domain.StateAskInput},
	{domain.StateAskInput, domain.CondUserResponded, domain.StateValidateInput},
	{domain.StateLoadContext, domain.CondContextLoaded, domain.StateApplyAction},
	{domain.StateLoadContext, domain.CondActionFailed, domain.StateBuildResponse},
	{domain.StateApplyAction, domain.CondActionCompleted, domain.StatePersist},
	{domain.StateApplyAction, domain.CondActionFailed, domain.StateBuildResponse},
	{domain.StatePersist, domain.CondPersisted, domain.StateBuildResponse},
	{domain.StatePersist, domain.CondActionFailed, domain.StateBuildResponse},
	{domain.StateBuildResponse, domain.CondResponseBuilt, domain.StateDone},
}

// New builds a graph from edges and validates it.
func New(edges ...Edge) (*Graph, error) {
	g := &Graph{table: make(map[domain.State]map[domain.Condition]domain.State)}
	for _, e := range edges {
		out, ok := g.table[e.From]
		if !ok {
			out = make(map[domain.Condition]domain.State)
			g.table[e.From] = out
		}
		if prev, dup := out[e.On]; dup {
			return nil, fmt.Errorf("duplicate edge %s --%s--> %s (already %s)", e.From, e.On, e.To, prev)
		}
		out[e.On] = e.To
		g.edges = append(g.edges, e)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Default returns the bookstore graph. It panics if DefaultEdges is malformed.
func Default() *Graph {
	g, err := New(DefaultEdges...)
	if err != nil {
		panic(err)
	}
	return g
}

// Next returns the target of the edge (from, on).
func (g *Graph) Next(from domain.State, on domain.Condition) (domain.State, error) {
	if to, ok := g.table[from][on]; ok {
		return to, nil
	}
	return "", &TransitionError{From: from, On: on}
}

// Edges returns the table in declaration order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Outgoing returns the edges leaving from.
func (g *Graph) Outgoing(from domain.State) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the structural invariants of the table.
func (g *Graph) Validate() error {
	var errs []error
	for _, e := range g.edges {
		if !e.From.Valid() {
			errs = append(errs, fmt.Errorf("unknown source state %q", e.From))
		}
		if !e.To.Valid() {
			errs = append(errs, fmt.Errorf("unknown target state %q", e.To))
		}
		if !e.On.Valid() {
			errs = append(errs, fmt.Errorf("condition %q is not in the closed set", e.On))
		}
	}
	for _, s := range domain.States {
		n := len(g.table[s])
		switch {
		case s.Terminal() && n > 0:
			errs = append(errs, fmt.Errorf("terminal state %s has outgoing edges", s))
		case !s.Terminal() && n == 0:
			errs = append(errs, fmt.Errorf("state %s has no outgoing edge", s))
		}
	}
	return errors.Join(errs...)
}
