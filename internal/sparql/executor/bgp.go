package executor

import (
	"context"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/internal/store"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// evalBGP evaluates a basic graph pattern's triples in sequence,
// threading the running binding set through each one as a nested-loop
// join; the optimizer's orderBGPJoins pass already chose Patterns'
// order for selectivity.
func (e *Executor) evalBGP(p *algebra.BGP, input Binding, graph rdf.Term) ([]Binding, error) {
	rows := []Binding{input}
	for _, tp := range p.Patterns {
		var next []Binding
		for _, b := range rows {
			matched, err := e.matchTriple(tp, b, graph)
			if err != nil {
				return nil, err
			}
			next = append(next, matched...)
		}
		rows = next
		if len(rows) == 0 {
			return rows, nil
		}
	}
	return rows, nil
}

// posInfo resolves one position of a triple pattern against a binding:
// term is the value to constrain the store scan with (nil = wildcard),
// v names the variable at that position, if any.
type posInfo struct {
	term rdf.Term
	v    algebra.Variable
}

func resolvePos(tp algebra.TermPattern, b Binding) posInfo {
	if !tp.IsVariable() {
		return posInfo{term: tp.Term}
	}
	if existing, ok := b[tp.Var]; ok {
		return posInfo{term: existing, v: tp.Var}
	}
	return posInfo{v: tp.Var}
}

// matchTriple matches one triple pattern against graph. Outside a GRAPH
// block, graph carries the active default graph; when a FROM clause
// restricts the query's dataset, that default graph is the RDF merge
// of the FROM-listed graphs rather than the store's actual default
// graph, so this scans each of them and merges the results.
func (e *Executor) matchTriple(tp algebra.TriplePattern, b Binding, graph rdf.Term) ([]Binding, error) {
	subj := resolvePos(tp.Subject, b)
	pred := resolvePos(tp.Predicate, b)
	obj := resolvePos(tp.Object, b)

	graphs := e.graphsFor(graph)
	var out []Binding
	for _, g := range graphs {
		pattern := store.Pattern{Subject: subj.term, Predicate: pred.term, Object: obj.term, Graph: g}
		it, err := e.store.Match(pattern)
		if err != nil {
			return nil, err
		}
		for it.Next() {
			q, err := it.Quad()
			if err != nil {
				it.Close()
				return nil, err
			}
			nb := b.clone()
			if bindConsistent(nb, subj.v, q.Subject) && bindConsistent(nb, pred.v, q.Predicate) && bindConsistent(nb, obj.v, q.Object) {
				out = append(out, nb)
			}
		}
		it.Close()
	}
	if len(graphs) > 1 {
		out = dedupBindingRows(out)
	}
	return out, nil
}

// dedupBindingRows drops rows that duplicate an earlier row's full
// variable assignment, needed once a FROM clause merges more than one
// graph and the same triple happens to exist identically in two of
// them.
func dedupBindingRows(rows []Binding) []Binding {
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
	return out
}

// evalPathPlan evaluates a property path leaf between Subject and
// Object, substituting already-bound variables the way matchTriple
// does for plain triples.
func (e *Executor) evalPathPlan(ctx context.Context, p *algebra.PathPlan, input Binding, graph rdf.Term) ([]Binding, error) {
	subj := resolvePos(p.Subject, input)
	obj := resolvePos(p.Object, input)
	pairs, err := e.evalPathExpr(ctx, p.Path, subj.term, obj.term, graph)
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, pr := range pairs {
		nb := input.clone()
		if !bindConsistent(nb, subj.v, pr.s) {
			continue
		}
		if !bindConsistent(nb, obj.v, pr.o) {
			continue
		}
		out = append(out, nb)
	}
	return out, nil
}
