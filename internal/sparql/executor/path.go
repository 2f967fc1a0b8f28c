package executor

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/trigo-rdf/trigo/internal/store"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// termPair is one (subject, object) solution of a property path.
type termPair struct{ s, o rdf.Term }

func swapPairs(pairs []termPair) []termPair {
	out := make([]termPair, len(pairs))
	for i, p := range pairs {
		out[i] = termPair{s: p.o, o: p.s}
	}
	return out
}

func dedupPairs(pairs []termPair) []termPair {
	seen := make(map[string]bool, len(pairs))
	out := pairs[:0:0]
	for _, p := range pairs {
		k := p.s.String() + "\x1f" + p.o.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

// evalPathExpr evaluates path between s and o (either may be nil,
// meaning unbound), returning every satisfying pair. PathSeq and
// PathAlt are ordinarily rewritten to Join/Union by the optimizer's
// decomposePaths pass; they are handled here too since EXISTS
// sub-patterns are lowered straight to algebra and never pass through
// the optimizer.
func (e *Executor) evalPathExpr(ctx context.Context, path algebra.PathExpr, s, o rdf.Term, graphTerm rdf.Term) ([]termPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch pe := path.(type) {
	case *algebra.PathIRI:
		return e.matchPathStep(pe.IRI, s, o, graphTerm)
	case *algebra.PathInverse:
		pairs, err := e.evalPathExpr(ctx, pe.Path, o, s, graphTerm)
		if err != nil {
			return nil, err
		}
		return swapPairs(pairs), nil
	case *algebra.PathSeq:
		return e.evalPathSeq(ctx, pe, s, o, graphTerm)
	case *algebra.PathAlt:
		left, err := e.evalPathExpr(ctx, pe.Left, s, o, graphTerm)
		if err != nil {
			return nil, err
		}
		right, err := e.evalPathExpr(ctx, pe.Right, s, o, graphTerm)
		if err != nil {
			return nil, err
		}
		return dedupPairs(append(left, right...)), nil
	case *algebra.PathZeroOrOne:
		pairs, err := e.evalPathExpr(ctx, pe.Path, s, o, graphTerm)
		if err != nil {
			return nil, err
		}
		return dedupPairs(append(pairs, e.zeroLengthPairs(s, o)...)), nil
	case *algebra.PathZeroOrMore:
		return e.evalClosure(ctx, pe.Path, s, o, graphTerm, true)
	case *algebra.PathOneOrMore:
		return e.evalClosure(ctx, pe.Path, s, o, graphTerm, false)
	case *algebra.PathNegatedSet:
		return e.evalPathNegatedSet(pe, s, o, graphTerm)
	default:
		return nil, fmt.Errorf("executor: unhandled path expression %T", path)
	}
}

// matchPathStep matches one predicate IRI between s and o. Like
// matchTriple, graphTerm may stand for a FROM-restricted default graph
// merge rather than a single concrete graph, so every graph it resolves
// to is scanned and the results merged.
func (e *Executor) matchPathStep(iri *rdf.NamedNode, s, o, graphTerm rdf.Term) ([]termPair, error) {
	graphs := e.graphsFor(graphTerm)
	var out []termPair
	for _, g := range graphs {
		pattern := store.Pattern{Subject: s, Predicate: iri, Object: o, Graph: g}
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
			out = append(out, termPair{s: q.Subject, o: q.Object})
		}
		it.Close()
	}
	if len(graphs) > 1 {
		out = dedupPairs(out)
	}
	return out, nil
}

func (e *Executor) evalPathSeq(ctx context.Context, pe *algebra.PathSeq, s, o, graphTerm rdf.Term) ([]termPair, error) {
	left, err := e.evalPathExpr(ctx, pe.Left, s, nil, graphTerm)
	if err != nil {
		return nil, err
	}
	var out []termPair
	for _, lp := range left {
		right, err := e.evalPathExpr(ctx, pe.Right, lp.o, o, graphTerm)
		if err != nil {
			return nil, err
		}
		for _, rp := range right {
			out = append(out, termPair{s: lp.s, o: rp.o})
		}
	}
	return dedupPairs(out), nil
}

func (e *Executor) zeroLengthPairs(s, o rdf.Term) []termPair {
	if s != nil && o != nil {
		if s.Equals(o) {
			return []termPair{{s: s, o: o}}
		}
		return nil
	}
	if s != nil {
		return []termPair{{s: s, o: s}}
	}
	if o != nil {
		return []termPair{{s: o, o: o}}
	}
	return nil
}

// evalPathNegatedSet matches any predicate not in IRIs. Every member is
// matched in the forward direction: PathNegatedSet records no
// direction, so an inverse member (`^iri`) excludes iri from forward
// edges and reverse edges are not searched.
func (e *Executor) evalPathNegatedSet(pe *algebra.PathNegatedSet, s, o, graphTerm rdf.Term) ([]termPair, error) {
	excluded := make(map[string]bool, len(pe.IRIs))
	for _, iri := range pe.IRIs {
		excluded[iri.IRI] = true
	}
	graphs := e.graphsFor(graphTerm)
	var out []termPair
	for _, g := range graphs {
		pattern := store.Pattern{Subject: s, Object: o, Graph: g}
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
			nn, ok := q.Predicate.(*rdf.NamedNode)
			if ok && excluded[nn.IRI] {
				continue
			}
			out = append(out, termPair{s: q.Subject, o: q.Object})
		}
		it.Close()
	}
	if len(graphs) > 1 {
		out = dedupPairs(out)
	}
	return out, nil
}

// evalClosure computes the transitive (ZeroOrMore) or strict
// (OneOrMore) closure of inner between s and o using gonum's
// traverse.BreadthFirst over an on-demand graph whose edges are
// computed by one step of inner. When s is unbound but o is bound, the
// search runs in the inverse direction and the result pairs are
// swapped back, avoiding an all-nodes scan in the common case of
// exactly one bound endpoint.
func (e *Executor) evalClosure(ctx context.Context, inner algebra.PathExpr, s, o, graphTerm rdf.Term, zeroLength bool) ([]termPair, error) {
	if s == nil && o != nil {
		pairs, err := e.evalClosure(ctx, &algebra.PathInverse{Path: inner}, o, nil, graphTerm, zeroLength)
		if err != nil {
			return nil, err
		}
		return swapPairs(pairs), nil
	}

	var starts []rdf.Term
	if s != nil {
		starts = []rdf.Term{s}
	} else {
		var err error
		starts, err = e.pathCandidateStarts(ctx, inner, graphTerm)
		if err != nil {
			return nil, err
		}
	}

	var out []termPair
	for _, start := range starts {
		reached, err := e.bfsReachable(ctx, inner, start, graphTerm)
		if err != nil {
			return nil, err
		}
		if zeroLength {
			reached[start.String()] = start
		}
		for _, term := range reached {
			if o != nil && !o.Equals(term) {
				continue
			}
			out = append(out, termPair{s: start, o: term})
		}
	}
	return dedupPairs(out), nil
}

// pathCandidateStarts enumerates every distinct subject reachable by
// one step of inner, used as the start set when a ZeroOrMore/OneOrMore
// path has neither endpoint bound.
func (e *Executor) pathCandidateStarts(ctx context.Context, inner algebra.PathExpr, graphTerm rdf.Term) ([]rdf.Term, error) {
	pairs, err := e.evalPathExpr(ctx, inner, nil, nil, graphTerm)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(pairs))
	var out []rdf.Term
	for _, p := range pairs {
		k := p.s.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p.s)
	}
	return out, nil
}

// idNode is a graph.Node identifying a term by its dictionary id.
type idNode int64

func (n idNode) ID() int64 { return int64(n) }

// pathGraph adapts one-step path evaluation to gonum's graph.Graph so
// traverse.BreadthFirst can walk it; edges are computed lazily from
// the store rather than materialized up front.
type pathGraph struct {
	e         *Executor
	ctx       context.Context
	inner     algebra.PathExpr
	graphTerm rdf.Term
	err       error
}

func (g *pathGraph) Node(id int64) graph.Node { return idNode(id) }
func (g *pathGraph) Nodes() graph.Nodes       { return iterator.NewOrderedNodes(nil) }
func (g *pathGraph) HasEdgeBetween(xid, yid int64) bool {
	return false
}
func (g *pathGraph) Edge(uid, vid int64) graph.Edge { return nil }

func (g *pathGraph) From(id int64) graph.Nodes {
	dict := g.e.store.Dictionary()
	term, err := dict.Resolve(uint64(id))
	if err != nil {
		g.err = err
		return iterator.NewOrderedNodes(nil)
	}
	pairs, err := g.e.evalPathExpr(g.ctx, g.inner, term, nil, g.graphTerm)
	if err != nil {
		g.err = err
		return iterator.NewOrderedNodes(nil)
	}
	seen := make(map[uint64]bool, len(pairs))
	var nodes []graph.Node
	for _, pr := range pairs {
		nid, err := dict.Intern(pr.o)
		if err != nil {
			g.err = err
			continue
		}
		if seen[nid] {
			continue
		}
		seen[nid] = true
		nodes = append(nodes, idNode(nid))
	}
	return iterator.NewOrderedNodes(nodes)
}

// bfsReachable returns every term reachable from start via one or more
// steps of inner. traverse.BreadthFirst marks the walk's origin visited
// before exploring and so never re-emits it through Visit, which would
// wrongly drop start from its own OneOrMore closure whenever a real
// cycle loops back to it (a single self-loop triple, or a longer cycle
// through nodes already in reached). reachesStart corrects this by
// testing directly, via one more step of inner, whether start is itself
// a predecessor of start along an edge from {start} ∪ reached.
func (e *Executor) bfsReachable(ctx context.Context, inner algebra.PathExpr, start, graphTerm rdf.Term) (map[string]rdf.Term, error) {
	startID, err := e.store.Dictionary().Intern(start)
	if err != nil {
		return nil, err
	}
	pg := &pathGraph{e: e, ctx: ctx, inner: inner, graphTerm: graphTerm}
	reached := make(map[string]rdf.Term)
	bfs := traverse.BreadthFirst{
		Visit: func(u, v graph.Node) {
			id := uint64(v.ID())
			if term, err := e.store.Dictionary().Resolve(id); err == nil {
				reached[term.String()] = term
			}
		},
	}
	bfs.Walk(pg, idNode(startID), nil)
	if pg.err != nil {
		return nil, pg.err
	}

	cycles, err := e.reachesStart(ctx, inner, start, reached, graphTerm)
	if err != nil {
		return nil, err
	}
	if cycles {
		reached[start.String()] = start
	}
	return reached, nil
}

// reachesStart reports whether start is reachable from itself via one
// or more steps of inner: either a direct self-loop edge, or an edge
// from some node already in reached back to start.
func (e *Executor) reachesStart(ctx context.Context, inner algebra.PathExpr, start rdf.Term, reached map[string]rdf.Term, graphTerm rdf.Term) (bool, error) {
	preds, err := e.evalPathExpr(ctx, inner, nil, start, graphTerm)
	if err != nil {
		return false, err
	}
	for _, pr := range preds {
		if pr.s.Equals(start) {
			return true, nil
		}
		if _, ok := reached[pr.s.String()]; ok {
			return true, nil
		}
	}
	return false, nil
}
