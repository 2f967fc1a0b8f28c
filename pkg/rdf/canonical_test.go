package rdf

import "testing"

func TestQuadSetsIsomorphicAcrossBlankNodeRelabeling(t *testing.T) {
	p := NewNamedNode("http://example.org/knows")

	a := []*Quad{
		NewQuad(NewBlankNode("x"), p, NewBlankNode("y"), NewDefaultGraph()),
	}
	b := []*Quad{
		NewQuad(NewBlankNode("a1"), p, NewBlankNode("b2"), NewDefaultGraph()),
	}

	ok, err := QuadSetsIsomorphic(a, b)
	if err != nil {
		t.Fatalf("QuadSetsIsomorphic: %v", err)
	}
	if !ok {
		t.Fatal("expected isomorphic datasets under blank node relabeling")
	}
}

func TestQuadSetsNotIsomorphicOnGroundTermMismatch(t *testing.T) {
	p := NewNamedNode("http://example.org/knows")
	q := NewNamedNode("http://example.org/likes")

	a := []*Quad{NewQuad(NewBlankNode("x"), p, NewBlankNode("y"), NewDefaultGraph())}
	b := []*Quad{NewQuad(NewBlankNode("x"), q, NewBlankNode("y"), NewDefaultGraph())}

	ok, err := QuadSetsIsomorphic(a, b)
	if err != nil {
		t.Fatalf("QuadSetsIsomorphic: %v", err)
	}
	if ok {
		t.Fatal("expected non-isomorphic datasets with differing predicates")
	}
}

func TestQuadSetsIsomorphicNamedGraph(t *testing.T) {
	p := NewNamedNode("http://example.org/knows")
	g := NewNamedNode("http://example.org/g1")

	a := []*Quad{NewQuad(NewNamedNode("http://example.org/alice"), p, NewNamedNode("http://example.org/bob"), g)}
	b := []*Quad{NewQuad(NewNamedNode("http://example.org/alice"), p, NewNamedNode("http://example.org/bob"), g)}

	ok, err := QuadSetsIsomorphic(a, b)
	if err != nil {
		t.Fatalf("QuadSetsIsomorphic: %v", err)
	}
	if !ok {
		t.Fatal("expected identical ground quads (including named graph) to be isomorphic")
	}
}
