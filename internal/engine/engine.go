// Package engine is the embedding API §6 describes: a single Store type
// that wires the dictionary, storage backend, SPARQL parser/optimizer/
// executor, and the update engine together behind a handful of methods
// a host program calls without ever touching internal/store or
// internal/sparql directly.
package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/trigo-rdf/trigo/internal/dictionary"
	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/internal/rdfparse/ntriples"
	"github.com/trigo-rdf/trigo/internal/rdfparse/turtle"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/internal/sparql/executor"
	"github.com/trigo-rdf/trigo/internal/sparql/optimizer"
	"github.com/trigo-rdf/trigo/internal/sparql/parser"
	"github.com/trigo-rdf/trigo/internal/sparql/update"
	"github.com/trigo-rdf/trigo/internal/storage"
	"github.com/trigo-rdf/trigo/internal/store"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// Store is the embeddable RDF/SPARQL database: a quad store plus a
// compiled query/update pipeline over it.
type Store struct {
	store  *store.Store
	exec   *executor.Executor
	update *update.Engine
	log    *Logger
}

// options collects what the functional options below set, applied once
// Open has read every one of them so later options can't observe a
// partially-built Store.
type options struct {
	service executor.ServiceHandler
	fetch   update.FetchFunc
	logger  *Logger
}

// WithLogger attaches l for the Store to report load/query/update
// failures through, at Warn level. Without one, the Store stays silent
// and only returns errors to its caller.
func WithLogger(l *Logger) Option {
	return func(o *options) { o.logger = l }
}

// Option configures a Store at construction time, following the
// teacher's narrow-constructor-arguments convention generalized with
// functional options for the things a host plausibly wants to set: a
// logger, a SERVICE delegate and a LOAD fetch function.
type Option func(*options)

// WithServiceHandler registers the delegate used to evaluate SPARQL
// SERVICE clauses. Without one, SERVICE always fails UnsupportedFeature.
func WithServiceHandler(h executor.ServiceHandler) Option {
	return func(o *options) { o.service = h }
}

// WithFetchFunc registers the delegate LOAD uses to dereference an IRI.
// Without one, LOAD always fails UnsupportedFeature.
func WithFetchFunc(f update.FetchFunc) Option {
	return func(o *options) { o.fetch = f }
}

// Open builds a Store over backend, applying opts in order.
func Open(backend storage.Backend, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	st := store.New(backend)
	exec := executor.New(st, o.service)
	s := &Store{
		store:  st,
		exec:   exec,
		update: update.New(st, exec, o.fetch),
		log:    o.logger,
	}
	return s, nil
}

// Snapshot is a point-in-time view of the dictionary's id space, for a
// host that wants Resolve calls isolated from concurrent writers per
// §3.3's lifetime rule.
type Snapshot struct {
	dict *dictionary.Snapshot
}

func (s *Snapshot) Resolve(id uint64) (rdf.Term, error) { return s.dict.Resolve(id) }
func (s *Snapshot) Watermark() uint64                   { return s.dict.Watermark() }

// Snapshot captures the store's current dictionary watermark.
func (s *Store) Snapshot() *Snapshot {
	return &Snapshot{dict: s.store.Dictionary().Snapshot()}
}

// Close releases the underlying storage backend.
func (s *Store) Close() error {
	return s.store.Close()
}

// Count returns the number of quads in the default graph and every
// named graph together (§4.2's SPOG index count), for a host reporting
// store size without running a query.
func (s *Store) Count() (uint64, error) {
	return s.store.Count()
}

// LoadText parses r in format and inserts every resulting quad,
// defaulting unnamed triples to graph (which may itself be the default
// graph). FormatTriG has no parser in this tree — Turtle's own grammar
// rejects graph blocks, and nothing else implements TriG's extension of
// it — so loading that format always fails UnsupportedFeature.
func (s *Store) LoadText(format rdf.Format, r io.Reader, graph rdf.Term) error {
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	prefix := newLoadBlankNodePrefix()
	renamed := make(map[string]*rdf.BlankNode)
	rename := func(t rdf.Term) rdf.Term {
		bn, ok := t.(*rdf.BlankNode)
		if !ok {
			return t
		}
		if fn, ok := renamed[bn.ID]; ok {
			return fn
		}
		fn := rdf.NewBlankNode(prefix + "-" + bn.ID)
		renamed[bn.ID] = fn
		return fn
	}
	var quads []*rdf.Quad
	yield := func(q *rdf.Quad) error {
		g := q.Graph
		if _, isDefault := g.(*rdf.DefaultGraph); isDefault || g == nil {
			g = graph
		}
		quads = append(quads, rdf.NewQuad(rename(q.Subject), q.Predicate, rename(q.Object), g))
		return nil
	}
	switch format {
	case rdf.FormatNTriples, rdf.FormatNQuads:
		if err := ntriples.ParseQuads(r, yield); err != nil {
			return err
		}
	case rdf.FormatTurtle:
		data, err := io.ReadAll(r)
		if err != nil {
			return &rdferr.IOError{Detail: "reading turtle input", Err: err}
		}
		base := ""
		if nn, ok := graph.(*rdf.NamedNode); ok {
			base = nn.IRI
		}
		if err := turtle.Parse(string(data), base, yield); err != nil {
			return err
		}
	case rdf.FormatTriG:
		return &rdferr.UnsupportedFeature{Detail: "TriG has no parser in this tree; use Turtle (default graph only) or N-Quads"}
	default:
		return &rdferr.UnsupportedFeature{Detail: fmt.Sprintf("rdf format %v", format)}
	}
	if err := s.store.InsertBatch(quads); err != nil {
		s.log.Warnf("LoadText: insert failed: %v", err)
		return err
	}
	return nil
}

// QueryResult is the closed set of shapes ExecuteQuery can return.
type QueryResult interface {
	isQueryResult()
}

// SelectResult is a SELECT query's projected bindings.
type SelectResult struct {
	Vars []algebra.Variable // nil for SELECT *: each row's own keys are authoritative
	Rows []executor.Binding
}

func (*SelectResult) isQueryResult() {}

// AskResult is an ASK query's boolean.
type AskResult struct {
	Result bool
}

func (*AskResult) isQueryResult() {}

// ConstructResult is a CONSTRUCT or DESCRIBE query's quad sequence.
// CONSTRUCT places every quad in the default graph per CONSTRUCT's
// result-is-an-RDF-graph semantics (§4.6); DESCRIBE returns stored
// quads with the graph each one is stored in.
type ConstructResult struct {
	Quads []*rdf.Quad
}

func (*ConstructResult) isQueryResult() {}

// queryDataset converts a query's parsed FROM/FROM NAMED clauses into
// the restriction the executor matches BGP/PathPlan/GRAPH evaluation
// against. A query with neither clause yields the zero Dataset: no
// restriction at all.
func queryDataset(q *parser.Query) executor.Dataset {
	var d executor.Dataset
	for _, g := range q.FromDefault {
		d.Default = append(d.Default, g)
	}
	for _, g := range q.FromNamed {
		d.Named = append(d.Named, g)
	}
	return d
}

// ExecuteQuery parses, optimizes, and runs sparql, shaping the result
// according to the query's type. ToAlgebra only lowers the WHERE
// clause; CONSTRUCT template instantiation, ASK boolean wrapping, and
// DESCRIBE resolution all happen here since the algebra itself carries
// no query-type tag.
func (s *Store) ExecuteQuery(ctx context.Context, sparql string) (QueryResult, error) {
	q, err := parser.Parse(sparql)
	if err != nil {
		s.log.Warnf("ExecuteQuery: parse failed: %v", err)
		return nil, err
	}
	plan := optimizer.Optimize(parser.ToAlgebra(q))
	it, err := s.exec.Execute(ctx, plan, queryDataset(q))
	if err != nil {
		s.log.Warnf("ExecuteQuery: execution failed: %v", err)
		return nil, err
	}
	defer it.Close()

	var rows []executor.Binding
	for it.Next() {
		rows = append(rows, it.Binding())
	}

	switch q.Type {
	case parser.QueryTypeAsk:
		return &AskResult{Result: len(rows) > 0}, nil
	case parser.QueryTypeConstruct:
		return &ConstructResult{Quads: instantiateConstruct(q.ConstructTemplate, rows)}, nil
	case parser.QueryTypeDescribe:
		return s.describe(q, rows)
	default:
		var vars []algebra.Variable
		if !q.SelectAll {
			vars = q.SelectVars
		}
		return &SelectResult{Vars: vars, Rows: rows}, nil
	}
}

// instantiateConstruct substitutes each row's bindings into template,
// minting a fresh blank node per (row, template blank node) pair so
// multiple solutions never share a blank node identity, while repeated
// occurrences of the same template blank node within one row still
// resolve to the one node, matching CONSTRUCT's per-solution blank node
// scoping rule.
func instantiateConstruct(template []algebra.TriplePattern, rows []executor.Binding) []*rdf.Quad {
	var out []*rdf.Quad
	for rowIdx, row := range rows {
		fresh := make(map[string]*rdf.BlankNode)
		resolve := func(tp algebra.TermPattern) (rdf.Term, bool) {
			if tp.IsVariable() {
				v, ok := row[tp.Var]
				return v, ok
			}
			if bn, ok := tp.Term.(*rdf.BlankNode); ok {
				if fn, ok := fresh[bn.ID]; ok {
					return fn, true
				}
				fn := rdf.NewBlankNode(bn.ID + "-" + strconv.Itoa(rowIdx))
				fresh[bn.ID] = fn
				return fn, true
			}
			return tp.Term, true
		}
		for _, tp := range template {
			s, ok1 := resolve(tp.Subject)
			p, ok2 := resolve(tp.Predicate)
			o, ok3 := resolve(tp.Object)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			out = append(out, rdf.NewQuad(s, p, o, rdf.NewDefaultGraph()))
		}
	}
	return dedupQuads(out)
}

// describe resolves a DESCRIBE query into the union of every matching
// resource's CBD (concise bounded description): every quad with that
// resource in subject or object position. DescribeVars are resolved
// against rows (one resource per distinct binding); DescribeIRIs are
// ground and contribute regardless of rows (including the WHERE-less
// `DESCRIBE <iri>` form, where rows is a single empty binding).
func (s *Store) describe(q *parser.Query, rows []executor.Binding) (*ConstructResult, error) {
	resources := map[string]rdf.Term{}
	for _, iri := range q.DescribeIRIs {
		resources[iri.String()] = iri
	}
	for _, v := range q.DescribeVars {
		for _, row := range rows {
			if val, ok := row[v]; ok {
				resources[val.String()] = val
			}
		}
	}

	var quads []*rdf.Quad
	for _, res := range resources {
		asSubject, err := s.store.Match(store.Pattern{Subject: res})
		if err != nil {
			return nil, err
		}
		quads = append(quads, drainQuads(asSubject)...)

		asObject, err := s.store.Match(store.Pattern{Object: res})
		if err != nil {
			return nil, err
		}
		quads = append(quads, drainQuads(asObject)...)
	}
	return &ConstructResult{Quads: dedupQuads(quads)}, nil
}

func drainQuads(it store.QuadIterator) []*rdf.Quad {
	defer it.Close()
	var out []*rdf.Quad
	for it.Next() {
		if q, err := it.Quad(); err == nil {
			out = append(out, q)
		}
	}
	return out
}

func dedupQuads(quads []*rdf.Quad) []*rdf.Quad {
	seen := make(map[string]bool, len(quads))
	out := quads[:0:0]
	for _, q := range quads {
		k := q.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
	}
	return out
}

// ExecuteUpdate runs a SPARQL Update request against the store.
func (s *Store) ExecuteUpdate(ctx context.Context, sparql string) error {
	if err := s.update.Execute(ctx, sparql); err != nil {
		s.log.Warnf("ExecuteUpdate: %v", err)
		return err
	}
	return nil
}

// newLoadBlankNodePrefix returns a prefix guaranteed not to collide
// with any blank node label from a prior LoadText/parse batch, so a
// host re-loading the same file twice never merges its blank nodes
// with an earlier load's (§4.4's "fresh blank-node id generator per
// parse" invariant, extended across repeated LoadText calls rather
// than just within one).
func newLoadBlankNodePrefix() string {
	return "load" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
