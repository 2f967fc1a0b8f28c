// Package rdf holds the term, triple, and quad value types shared by
// hosts, the reasoning/SHACL clients mentioned in spec §6, and the core
// engine. It deliberately carries no dependency on the dictionary or
// storage packages so that embedders can hold term values without
// pulling in the rest of the store.
package rdf

import "fmt"

// TermType discriminates the term variants in §3.1.
type TermType byte

const (
	TermTypeNamedNode TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
	TermTypeDefaultGraph
	TermTypeQuotedTriple // Turtle-star / N-Triples-star quoted triple term
)

// Term is the sum type of RDF values: IRI, literal, or blank node, plus
// the default-graph marker and RDF-star quoted triples the Turtle-family
// grammar in §4.4 accepts.
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool
}

// NamedNode is an IRI.
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) *NamedNode { return &NamedNode{IRI: iri} }

func (n *NamedNode) Type() TermType { return TermTypeNamedNode }
func (n *NamedNode) String() string { return fmt.Sprintf("<%s>", n.IRI) }
func (n *NamedNode) Equals(other Term) bool {
	o, ok := other.(*NamedNode)
	return ok && n.IRI == o.IRI
}

// BlankNode is a local identifier, unique within the load batch or parse
// invocation that produced it (§3.1, §4.4).
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode { return &BlankNode{ID: id} }

func (b *BlankNode) Type() TermType { return TermTypeBlankNode }
func (b *BlankNode) String() string { return fmt.Sprintf("_:%s", b.ID) }
func (b *BlankNode) Equals(other Term) bool {
	o, ok := other.(*BlankNode)
	return ok && b.ID == o.ID
}

// Literal is a lexical form plus exactly one of a datatype IRI or a
// language tag (§3.1). IllTyped is set by a parser that retained a
// malformed lexical form rather than rejecting the whole document
// (§4.3's "lenient at load time").
type Literal struct {
	Value    string
	Language string
	Datatype *NamedNode
	IllTyped bool
}

func NewLiteral(value string) *Literal { return &Literal{Value: value, Datatype: XSDString} }

func NewLiteralWithLanguage(value, language string) *Literal {
	return &Literal{Value: value, Language: language, Datatype: RDFLangString}
}

func NewLiteralWithDatatype(value string, datatype *NamedNode) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Type() TermType { return TermTypeLiteral }

func (l *Literal) String() string {
	result := fmt.Sprintf("%q", l.Value)
	switch {
	case l.Language != "":
		result += "@" + l.Language
	case l.Datatype != nil && l.Datatype.IRI != XSDString.IRI:
		result += "^^" + l.Datatype.String()
	}
	return result
}

func (l *Literal) Equals(other Term) bool {
	o, ok := other.(*Literal)
	if !ok || l.Value != o.Value || l.Language != o.Language {
		return false
	}
	if l.Datatype == nil || o.Datatype == nil {
		return l.Datatype == o.Datatype
	}
	return l.Datatype.Equals(o.Datatype)
}

// DefaultGraph is the special marker that fills the graph position of a
// quad stored in the (unnamed) default graph, per §3.2.
type DefaultGraph struct{}

func NewDefaultGraph() *DefaultGraph { return &DefaultGraph{} }

func (d *DefaultGraph) Type() TermType { return TermTypeDefaultGraph }
func (d *DefaultGraph) String() string { return "DEFAULT" }
func (d *DefaultGraph) Equals(other Term) bool {
	_, ok := other.(*DefaultGraph)
	return ok
}

// QuotedTriple is an RDF-star "triple term": a triple used as a term in
// subject or object position, not automatically reified.
type QuotedTriple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewQuotedTriple(subject, predicate, object Term) (*QuotedTriple, error) {
	switch subject.(type) {
	case *NamedNode, *BlankNode, *QuotedTriple:
	default:
		return nil, fmt.Errorf("quoted triple subject must be IRI, blank node, or quoted triple, got %T", subject)
	}
	if _, ok := predicate.(*NamedNode); !ok {
		return nil, fmt.Errorf("quoted triple predicate must be IRI, got %T", predicate)
	}
	return &QuotedTriple{Subject: subject, Predicate: predicate, Object: object}, nil
}

func (q *QuotedTriple) Type() TermType { return TermTypeQuotedTriple }
func (q *QuotedTriple) String() string {
	return fmt.Sprintf("<< %s %s %s >>", q.Subject, q.Predicate, q.Object)
}
func (q *QuotedTriple) Equals(other Term) bool {
	o, ok := other.(*QuotedTriple)
	return ok && q.Subject.Equals(o.Subject) && q.Predicate.Equals(o.Predicate) && q.Object.Equals(o.Object)
}

// Triple is (s, p, o) in the default graph.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(s, p, o Term) *Triple { return &Triple{Subject: s, Predicate: p, Object: o} }

func (t *Triple) String() string { return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object) }

// Quad is a triple plus a graph term (§3.2).
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func NewQuad(s, p, o, g Term) *Quad { return &Quad{Subject: s, Predicate: p, Object: o, Graph: g} }

func (q *Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

// Format identifies an RDF text serialization for LoadText (§6).
// LoadText rejects FormatTriG as unsupported.
type Format int

const (
	FormatNTriples Format = iota
	FormatTurtle
	FormatNQuads
	FormatTriG
)

// Core XSD / RDF vocabulary used throughout the literal model.
var (
	XSDString   = NewNamedNode("http://www.w3.org/2001/XMLSchema#string")
	XSDInteger  = NewNamedNode("http://www.w3.org/2001/XMLSchema#integer")
	XSDDecimal  = NewNamedNode("http://www.w3.org/2001/XMLSchema#decimal")
	XSDDouble   = NewNamedNode("http://www.w3.org/2001/XMLSchema#double")
	XSDFloat    = NewNamedNode("http://www.w3.org/2001/XMLSchema#float")
	XSDBoolean  = NewNamedNode("http://www.w3.org/2001/XMLSchema#boolean")
	XSDDateTime = NewNamedNode("http://www.w3.org/2001/XMLSchema#dateTime")
	XSDDate     = NewNamedNode("http://www.w3.org/2001/XMLSchema#date")
	XSDTime     = NewNamedNode("http://www.w3.org/2001/XMLSchema#time")
	XSDDuration = NewNamedNode("http://www.w3.org/2001/XMLSchema#duration")
	XSDAnyURI   = NewNamedNode("http://www.w3.org/2001/XMLSchema#anyURI")

	RDFLangString = NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString")
)

func NewIntegerLiteral(value int64) *Literal {
	return NewLiteralWithDatatype(fmt.Sprintf("%d", value), XSDInteger)
}

func NewBooleanLiteral(value bool) *Literal {
	return NewLiteralWithDatatype(fmt.Sprintf("%t", value), XSDBoolean)
}
