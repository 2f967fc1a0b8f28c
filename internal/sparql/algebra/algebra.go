// Package algebra is the SPARQL 1.1 query algebra §4.6 compiles to: a
// closed sum type of operators, every one of which the optimizer and the
// executor switch over exhaustively. Each variant is a plain struct
// implementing the sealed Plan interface, matching the teacher's own
// one-struct-per-AST-node style (internal/sparql/parser/ast.go) but
// reshaped from a parse tree into an algebra a rewrite pass can recurse
// over without reference to surface syntax.
package algebra

import "github.com/trigo-rdf/trigo/pkg/rdf"

// Variable is a SPARQL projection/binding variable name, without the
// leading '?'.
type Variable string

// Plan is the sealed sum type every algebra node implements. sealedPlan
// is unexported so no type outside this package can satisfy Plan,
// keeping every switch over it exhaustively checkable against the
// variants listed below (§9's "closed algebra sum types" guidance).
type Plan interface {
	sealedPlan()
}

func (*BGP) sealedPlan()      {}
func (*Table) sealedPlan()    {}
func (*PathPlan) sealedPlan() {}
func (*Join) sealedPlan()     {}
func (*LeftJoin) sealedPlan() {}
func (*Union) sealedPlan()    {}
func (*Minus) sealedPlan()    {}
func (*Graph) sealedPlan()    {}
func (*Service) sealedPlan()  {}
func (*Filter) sealedPlan()   {}
func (*Extend) sealedPlan()   {}
func (*Project) sealedPlan()  {}
func (*Distinct) sealedPlan() {}
func (*Reduced) sealedPlan()  {}
func (*OrderBy) sealedPlan()  {}
func (*Slice) sealedPlan()    {}
func (*Group) sealedPlan()    {}

// TermPattern is one position of a TriplePattern: a bound term, or a
// variable (Term == nil, Var non-empty).
type TermPattern struct {
	Term rdf.Term
	Var  Variable
}

func Bound(t rdf.Term) TermPattern { return TermPattern{Term: t} }
func Var(name Variable) TermPattern { return TermPattern{Var: name} }

func (t TermPattern) IsVariable() bool { return t.Term == nil }

// TriplePattern is one triple of a basic graph pattern.
type TriplePattern struct {
	Subject, Predicate, Object TermPattern
}

// BGP is a leaf: a basic graph pattern, a conjunction of triple
// patterns evaluated against one (possibly variable) graph.
type BGP struct {
	Patterns []TriplePattern
}

// Table is a leaf supplying a fixed, already-materialized set of
// bindings (the `VALUES` clause, or the single empty binding that seeds
// a query with no WHERE clause at all).
type Table struct {
	Vars Vars
	Rows []Row
}

// Vars is an ordered variable list; Row holds one binding per Vars
// entry in the same order, nil meaning "unbound" (as VALUES allows with
// UNDEF).
type Vars []Variable
type Row []rdf.Term

// PathExpr is the closed sum type for property path expressions
// (§4.6's `/ | ^ * + ? negated sets`), consumed directly by PathPlan
// rather than surfacing as its own Plan variant, since a path only ever
// appears as one edge of a pattern, not as a standalone top-level plan.
type PathExpr interface {
	sealedPath()
}

func (*PathIRI) sealedPath()         {}
func (*PathInverse) sealedPath()     {}
func (*PathSeq) sealedPath()         {}
func (*PathAlt) sealedPath()         {}
func (*PathZeroOrMore) sealedPath()  {}
func (*PathOneOrMore) sealedPath()   {}
func (*PathZeroOrOne) sealedPath()   {}
func (*PathNegatedSet) sealedPath()  {}

type PathIRI struct{ IRI *rdf.NamedNode }
type PathInverse struct{ Path PathExpr }
type PathSeq struct{ Left, Right PathExpr }
type PathAlt struct{ Left, Right PathExpr }
type PathZeroOrMore struct{ Path PathExpr }
type PathOneOrMore struct{ Path PathExpr }
type PathZeroOrOne struct{ Path PathExpr }
type PathNegatedSet struct{ IRIs []*rdf.NamedNode } // `!(:a|:b|^:c)`; inverse members are stored like forward ones and matched forward

// PathPlan is a leaf evaluating a property path between two term
// positions (either of which may be a variable).
type PathPlan struct {
	Subject TermPattern
	Path    PathExpr
	Object  TermPattern
}

// Join is the inner join of Left and Right on shared variables.
type Join struct{ Left, Right Plan }

// LeftJoin is OPTIONAL: every Left row survives, extended with Right's
// bindings where Expr holds and a join partner exists.
type LeftJoin struct {
	Left, Right Plan
	Expr        Expr // nil means "no extra filter beyond the join itself"
}

// Union evaluates both sides and concatenates their rows.
type Union struct{ Left, Right Plan }

// Minus removes every Left row that is join-compatible with some Right
// row and shares at least one bound variable with it (SPARQL MINUS
// semantics, distinct from NOT EXISTS).
type Minus struct{ Left, Right Plan }

// Graph evaluates Pattern against the named graph Name (a bound IRI, or
// a variable ranging over every named graph in the dataset).
type Graph struct {
	Name    TermPattern
	Pattern Plan
}

// Service delegates Pattern to an external SPARQL endpoint at Endpoint;
// Silent suppresses failure (SERVICE SILENT). Evaluation is a pluggable
// host hook (§9 open question, resolved per D.7): an endpoint with no
// registered handler fails UnsupportedFeature rather than attempting any
// built-in network call.
type Service struct {
	Endpoint TermPattern
	Pattern  Plan
	Silent   bool
}

// Filter restricts Input to rows where Expr evaluates to an effective
// boolean true.
type Filter struct {
	Input Plan
	Expr  Expr
}

// Extend is BIND: adds a new binding for Var computed by Expr over each
// row of Input.
type Extend struct {
	Input Plan
	Var   Variable
	Expr  Expr
}

// Project restricts each row of Input to exactly Vars, in that order.
type Project struct {
	Input Plan
	Vars  Vars
}

// Distinct removes duplicate rows (by value-equality across all bound
// variables) from Input.
type Distinct struct{ Input Plan }

// Reduced permits (but does not require) duplicate elimination, per
// SPARQL's REDUCED semantics; the executor treats it identically to
// Distinct, since over-eliminating is always a legal REDUCED result.
type Reduced struct{ Input Plan }

// OrderBy sorts Input by Keys in order; Keys[i].Descending reverses that
// key's comparison.
type OrderBy struct {
	Input Plan
	Keys  []OrderKey
}

type OrderKey struct {
	Expr       Expr
	Descending bool
}

// Slice applies LIMIT/OFFSET. HasLimit/HasOffset distinguish "not
// specified" from an explicit 0.
type Slice struct {
	Input     Plan
	Offset    int64
	HasOffset bool
	Limit     int64
	HasLimit  bool
}

// Group partitions Input's rows by Keys and computes Aggregates per
// partition, binding each aggregate's result to its Var.
type Group struct {
	Input      Plan
	Keys       []Expr
	Aggregates []Aggregate
}

type AggregateKind int

const (
	AggCount AggregateKind = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggSample
	AggGroupConcat
)

type Aggregate struct {
	Kind     AggregateKind
	Var      Variable
	Expr     Expr // nil for COUNT(*)
	Distinct bool
	// Separator is GROUP_CONCAT's SEPARATOR, defaulting to " " per spec.
	Separator string
}
