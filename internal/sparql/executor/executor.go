// Package executor evaluates an optimized algebra.Plan against a quad
// store, generalizing the teacher's five-plan-kind Executor
// (internal/sparql/executor/executor.go in the original tree) to the
// full operator set §4.6/D.7 names: joins, OPTIONAL/UNION/MINUS,
// GRAPH/SERVICE, FILTER/BIND, solution modifiers, GROUP BY with
// aggregates, and property paths.
//
// Execute returns the same Next()/Binding()/Close() iterator the
// teacher used, but every operator materializes its result eagerly as
// a []Binding rather than stream row-by-row: joins need
// backtracking across a variable set the optimizer has already chosen
// an order for, and a tree-walking implementation over small result
// sets is far simpler to get right than a fully lazy one. The
// iterator interface stays the contract the rest of the system
// (engine, update) programs against; Execute wraps the final
// materialized rows in a sliceIterator.
package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/internal/store"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// Binding maps a variable to the term it is currently bound to. A
// variable absent from the map is unbound, distinct from any zero
// value a map lookup might otherwise return.
type Binding map[algebra.Variable]rdf.Term

func (b Binding) clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// compatible reports whether b and other agree on every variable they
// both bind, the join-compatibility test Join/LeftJoin/Minus share.
func (b Binding) compatible(other Binding) bool {
	for k, v := range other {
		if existing, ok := b[k]; ok && !existing.Equals(v) {
			return false
		}
	}
	return true
}

func sharedVars(a, b Binding) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// bindConsistent binds v in nb to value when v is non-empty and
// unbound, or checks value agrees with v's existing binding. A ground
// position (v == "") is always consistent since the store.Pattern
// built from it already constrained the match.
func bindConsistent(nb Binding, v algebra.Variable, value rdf.Term) bool {
	if v == "" {
		return true
	}
	if existing, ok := nb[v]; ok {
		return existing.Equals(value)
	}
	nb[v] = value
	return true
}

// Iterator is the binding stream every compiled plan node produces.
type Iterator interface {
	Next() bool
	Binding() Binding
	Close() error
}

// sliceIterator serves a pre-materialized row set.
type sliceIterator struct {
	rows []Binding
	pos  int
}

func newSliceIterator(rows []Binding) *sliceIterator { return &sliceIterator{rows: rows, pos: -1} }

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.rows)
}

func (it *sliceIterator) Binding() Binding {
	if it.pos < 0 || it.pos >= len(it.rows) {
		return nil
	}
	return it.rows[it.pos]
}

func (it *sliceIterator) Close() error { return nil }

// Dataset restricts the graphs a query's BGP/PathPlan/GRAPH evaluation
// draws from, built from a query's FROM/FROM NAMED clauses (§13.2.2).
// A zero Dataset means no restriction: the store's own default graph
// and every named graph in it, exactly as before dataset clauses
// existed.
type Dataset struct {
	// Default, when non-empty, is the RDF merge of graphs evaluated in
	// place of the store's actual default graph for every BGP/PathPlan
	// leaf outside a GRAPH block.
	Default []rdf.Term
	// Named, when non-empty, restricts which named graphs GRAPH can
	// bind a variable graph name to or match a bound one against.
	Named []rdf.Term
}

func (d Dataset) hasDefault() bool { return len(d.Default) > 0 }
func (d Dataset) hasNamed() bool   { return len(d.Named) > 0 }

// isDefaultGraph reports whether graph is the sentinel active default
// graph eval() threads through plan nodes outside a GRAPH block, as
// opposed to a concrete graph name bound inside one.
func isDefaultGraph(graph rdf.Term) bool {
	_, ok := graph.(*rdf.DefaultGraph)
	return ok
}

// graphsFor resolves graph, the dataset graph a BGP/PathPlan leaf is
// about to match against, to the concrete list of store graphs to scan.
// Outside a GRAPH block with an active FROM restriction this is the
// FROM default graphs merged together; otherwise it is just graph
// itself.
func (e *Executor) graphsFor(graph rdf.Term) []rdf.Term {
	if isDefaultGraph(graph) && e.dataset.hasDefault() {
		return e.dataset.Default
	}
	return []rdf.Term{graph}
}

// ServiceHandler delegates a SERVICE clause to an externally
// registered endpoint. An endpoint with no registered handler fails
// UnsupportedFeature rather than attempting a built-in network call
// (§9 open question, resolved per D.7).
type ServiceHandler func(ctx context.Context, endpoint rdf.Term, pattern algebra.Plan, input Binding) ([]Binding, error)

// Executor compiles and runs an algebra.Plan against a quad store.
type Executor struct {
	store    *store.Store
	services ServiceHandler

	// dataset holds the current Execute call's FROM/FROM NAMED
	// restriction. Evaluation is single-threaded within one Execute
	// call, so setting this once at entry and reading it from eval's
	// recursion is safe.
	dataset Dataset

	// curCtx/curGraph track the innermost eval call's context and
	// dataset graph so EXISTS sub-patterns, which are evaluated from
	// expression position rather than plan position, can inherit
	// them. Evaluation is single-threaded within one Execute call, so
	// this is safe to mutate in place.
	curCtx   context.Context
	curGraph rdf.Term
}

// New builds an Executor over s. services may be nil, in which case
// every SERVICE clause fails UnsupportedFeature.
func New(s *store.Store, services ServiceHandler) *Executor {
	return &Executor{store: s, services: services}
}

// Execute compiles plan and returns an iterator over its result rows.
// dataset carries the query's FROM/FROM NAMED restriction, if any; the
// zero Dataset runs against the store's actual default graph and every
// named graph in it, unrestricted.
func (e *Executor) Execute(ctx context.Context, plan algebra.Plan, dataset Dataset) (Iterator, error) {
	e.dataset = dataset
	rows, err := e.eval(ctx, plan, Binding{}, rdf.NewDefaultGraph())
	if err != nil {
		return nil, err
	}
	return newSliceIterator(rows), nil
}

// eval recursively evaluates plan starting from input, returning rows
// that already include input's bindings merged in. graph is the
// dataset graph BGP/PathPlan leaves match against: the default graph
// everywhere outside a GRAPH block, or the bound/iterated graph name
// inside one.
func (e *Executor) eval(ctx context.Context, plan algebra.Plan, input Binding, graph rdf.Term) ([]Binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, &rdferr.Cancelled{}
	}
	e.curCtx, e.curGraph = ctx, graph
	switch p := plan.(type) {
	case *algebra.Table:
		return e.evalTable(p, input)
	case *algebra.BGP:
		return e.evalBGP(p, input, graph)
	case *algebra.PathPlan:
		return e.evalPathPlan(ctx, p, input, graph)
	case *algebra.Join:
		return e.evalJoin(ctx, p, input, graph)
	case *algebra.LeftJoin:
		return e.evalLeftJoin(ctx, p, input, graph)
	case *algebra.Union:
		return e.evalUnion(ctx, p, input, graph)
	case *algebra.Minus:
		return e.evalMinus(ctx, p, input, graph)
	case *algebra.Graph:
		return e.evalGraph(ctx, p, input)
	case *algebra.Service:
		return e.evalService(ctx, p, input, graph)
	case *algebra.Filter:
		return e.evalFilter(ctx, p, input, graph)
	case *algebra.Extend:
		return e.evalExtend(ctx, p, input, graph)
	case *algebra.Project:
		return e.evalProject(ctx, p, input, graph)
	case *algebra.Distinct:
		return e.evalDistinctReduced(ctx, p.Input, input, graph)
	case *algebra.Reduced:
		return e.evalDistinctReduced(ctx, p.Input, input, graph)
	case *algebra.OrderBy:
		return e.evalOrderBy(ctx, p, input, graph)
	case *algebra.Slice:
		return e.evalSlice(ctx, p, input, graph)
	case *algebra.Group:
		return e.evalGroup(ctx, p, input, graph)
	default:
		return nil, &rdferr.UnsupportedFeature{Detail: fmt.Sprintf("plan node %T", plan)}
	}
}

func (e *Executor) evalTable(p *algebra.Table, input Binding) ([]Binding, error) {
	var out []Binding
	for _, row := range p.Rows {
		nb := input.clone()
		ok := true
		for i, v := range p.Vars {
			if i >= len(row) || row[i] == nil {
				continue // UNDEF: variable stays unbound in this row
			}
			if !bindConsistent(nb, v, row[i]) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, nb)
		}
	}
	return out, nil
}

func (e *Executor) evalJoin(ctx context.Context, p *algebra.Join, input Binding, graph rdf.Term) ([]Binding, error) {
	leftRows, err := e.eval(ctx, p.Left, input, graph)
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, lr := range leftRows {
		rightRows, err := e.eval(ctx, p.Right, lr, graph)
		if err != nil {
			return nil, err
		}
		out = append(out, rightRows...)
	}
	return out, nil
}

func (e *Executor) evalLeftJoin(ctx context.Context, p *algebra.LeftJoin, input Binding, graph rdf.Term) ([]Binding, error) {
	leftRows, err := e.eval(ctx, p.Left, input, graph)
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, lr := range leftRows {
		rightRows, err := e.eval(ctx, p.Right, lr, graph)
		if err != nil {
			return nil, err
		}
		if p.Expr != nil {
			filtered := rightRows[:0:0]
			for _, rr := range rightRows {
				ok, err := e.evalEBV(rr, p.Expr)
				if err != nil || !ok {
					continue
				}
				filtered = append(filtered, rr)
			}
			rightRows = filtered
		}
		if len(rightRows) == 0 {
			out = append(out, lr)
			continue
		}
		out = append(out, rightRows...)
	}
	return out, nil
}

func (e *Executor) evalUnion(ctx context.Context, p *algebra.Union, input Binding, graph rdf.Term) ([]Binding, error) {
	leftRows, err := e.eval(ctx, p.Left, input, graph)
	if err != nil {
		return nil, err
	}
	rightRows, err := e.eval(ctx, p.Right, input, graph)
	if err != nil {
		return nil, err
	}
	return append(leftRows, rightRows...), nil
}

// evalMinus implements SPARQL's MINUS: a Left row survives unless some
// Right row shares at least one bound variable with it and is
// compatible on every shared variable. Both sides evaluate from the
// same input; the shared-variable check naturally ignores input's own
// variables, since a disjoint-domain pair never excludes.
func (e *Executor) evalMinus(ctx context.Context, p *algebra.Minus, input Binding, graph rdf.Term) ([]Binding, error) {
	leftRows, err := e.eval(ctx, p.Left, input, graph)
	if err != nil {
		return nil, err
	}
	rightRows, err := e.eval(ctx, p.Right, input, graph)
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, lr := range leftRows {
		excluded := false
		for _, rr := range rightRows {
			if sharedVars(lr, rr) && lr.compatible(rr) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, lr)
		}
	}
	return out, nil
}

// evalGraph implements GRAPH: a bound name restricts Pattern to that
// graph; a variable name iterates every named graph in the dataset,
// binding it in turn. An active FROM NAMED clause narrows both cases
// to the graphs it lists (§13.2.2): a bound name outside that set
// matches nothing, and a variable name only ranges over that set
// rather than every named graph the store actually holds.
func (e *Executor) evalGraph(ctx context.Context, p *algebra.Graph, input Binding) ([]Binding, error) {
	if !p.Name.IsVariable() {
		if e.dataset.hasNamed() && !containsTerm(e.dataset.Named, p.Name.Term) {
			return nil, nil
		}
		return e.eval(ctx, p.Pattern, input, p.Name.Term)
	}

	var graphs []rdf.Term
	if e.dataset.hasNamed() {
		graphs = e.dataset.Named
	} else {
		named, err := e.store.NamedGraphs()
		if err != nil {
			return nil, err
		}
		for _, g := range named {
			graphs = append(graphs, g)
		}
	}
	var out []Binding
	for _, g := range graphs {
		extended := input.clone()
		if !bindConsistent(extended, p.Name.Var, g) {
			continue
		}
		rows, err := e.eval(ctx, p.Pattern, extended, g)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (e *Executor) evalService(ctx context.Context, p *algebra.Service, input Binding, graph rdf.Term) ([]Binding, error) {
	if e.services == nil {
		if p.Silent {
			return []Binding{input}, nil
		}
		return nil, &rdferr.UnsupportedFeature{Detail: "SERVICE: no handler registered"}
	}
	endpoint := p.Endpoint.Term
	if p.Endpoint.IsVariable() {
		if bound, ok := input[p.Endpoint.Var]; ok {
			endpoint = bound
		}
	}
	rows, err := e.services(ctx, endpoint, p.Pattern, input)
	if err != nil {
		if p.Silent {
			return []Binding{input}, nil
		}
		return nil, err
	}
	return rows, nil
}

func (e *Executor) evalFilter(ctx context.Context, p *algebra.Filter, input Binding, graph rdf.Term) ([]Binding, error) {
	rows, err := e.eval(ctx, p.Input, input, graph)
	if err != nil {
		return nil, err
	}
	out := rows[:0:0]
	for _, r := range rows {
		ok, err := e.evalEBV(r, p.Expr)
		if err != nil || !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (e *Executor) evalExtend(ctx context.Context, p *algebra.Extend, input Binding, graph rdf.Term) ([]Binding, error) {
	rows, err := e.eval(ctx, p.Input, input, graph)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		val, err := e.evalExpr(r, p.Expr)
		if err != nil {
			continue // BIND leaves the variable unbound on evaluation error (§17.3)
		}
		nb := r.clone()
		nb[p.Var] = val
		rows[i] = nb
	}
	return rows, nil
}

func (e *Executor) evalProject(ctx context.Context, p *algebra.Project, input Binding, graph rdf.Term) ([]Binding, error) {
	rows, err := e.eval(ctx, p.Input, input, graph)
	if err != nil {
		return nil, err
	}
	out := make([]Binding, len(rows))
	for i, r := range rows {
		nb := make(Binding, len(p.Vars))
		for _, v := range p.Vars {
			if val, ok := r[v]; ok {
				nb[v] = val
			}
		}
		out[i] = nb
	}
	return out, nil
}

func (e *Executor) evalDistinctReduced(ctx context.Context, input algebra.Plan, inBinding Binding, graph rdf.Term) ([]Binding, error) {
	rows, err := e.eval(ctx, input, inBinding, graph)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := bindingKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out, nil
}

func containsTerm(list []rdf.Term, t rdf.Term) bool {
	for _, x := range list {
		if x.Equals(t) {
			return true
		}
	}
	return false
}

func bindingKey(b Binding) string {
	vars := make([]algebra.Variable, 0, len(b))
	for v := range b {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	var sb strings.Builder
	for _, v := range vars {
		sb.WriteString(string(v))
		sb.WriteByte('=')
		sb.WriteString(b[v].String())
		sb.WriteByte('\x1f')
	}
	return sb.String()
}
