package rdf

import (
	"crypto/sha256"
	"fmt"
	"strings"

	gonumrdf "gonum.org/v1/gonum/graph/formats/rdf"
)

// QuadSetsIsomorphic reports whether a and b describe the same RDF
// dataset up to blank node relabeling, via gonum's RDF dataset
// isomorphism check (blank-node-aware graph canonicalization, not mere
// string equality). Ground terms must match exactly; blank nodes may be
// permuted between the two sets.
func QuadSetsIsomorphic(a, b []*Quad) (bool, error) {
	as, err := toStatements(a)
	if err != nil {
		return false, err
	}
	bs, err := toStatements(b)
	if err != nil {
		return false, err
	}
	return gonumrdf.Isomorphic(as, bs, true, sha256.New()), nil
}

func toStatements(quads []*Quad) ([]*gonumrdf.Statement, error) {
	out := make([]*gonumrdf.Statement, len(quads))
	for i, q := range quads {
		line := nquadLine(q)
		st, err := gonumrdf.ParseNQuad(line)
		if err != nil {
			return nil, fmt.Errorf("canonicalizing quad %q: %w", line, err)
		}
		out[i] = st
	}
	return out, nil
}

// nquadLine renders q in RDF 1.1 N-Quads text, the default graph
// omitted per the format's own convention for unnamed triples.
func nquadLine(q *Quad) string {
	var sb strings.Builder
	writeNQuadTerm(&sb, q.Subject)
	sb.WriteByte(' ')
	writeNQuadTerm(&sb, q.Predicate)
	sb.WriteByte(' ')
	writeNQuadTerm(&sb, q.Object)
	if _, isDefault := q.Graph.(*DefaultGraph); !isDefault && q.Graph != nil {
		sb.WriteByte(' ')
		writeNQuadTerm(&sb, q.Graph)
	}
	sb.WriteString(" .")
	return sb.String()
}

func writeNQuadTerm(sb *strings.Builder, term Term) {
	switch t := term.(type) {
	case *NamedNode:
		sb.WriteString("<" + t.IRI + ">")
	case *BlankNode:
		sb.WriteString("_:" + t.ID)
	case *Literal:
		sb.WriteString(`"` + escapeNQuadString(t.Value) + `"`)
		if t.Language != "" {
			sb.WriteString("@" + t.Language)
		} else if t.Datatype != nil && t.Datatype.IRI != XSDString.IRI {
			sb.WriteString("^^<" + t.Datatype.IRI + ">")
		}
	default:
		sb.WriteString(term.String())
	}
}

func escapeNQuadString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
