package server

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/trigo-rdf/trigo/internal/engine"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/internal/sparql/executor"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func sampleSelectResult() *engine.SelectResult {
	return &engine.SelectResult{
		Vars: []algebra.Variable{"person", "name"},
		Rows: []executor.Binding{
			{
				algebra.Variable("person"): rdf.NewNamedNode("http://example.org/alice"),
				algebra.Variable("name"):   rdf.NewLiteral("Alice"),
			},
		},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestFormatSelectResultsJSONGolden(t *testing.T) {
	data, err := formatSelectResultsJSON(sampleSelectResult())
	if err != nil {
		t.Fatalf("formatSelectResultsJSON: %v", err)
	}
	newGoldie(t).Assert(t, "select_results_json", data)
}

func TestFormatSelectResultsXMLGolden(t *testing.T) {
	data, err := formatSelectResultsXML(sampleSelectResult())
	if err != nil {
		t.Fatalf("formatSelectResultsXML: %v", err)
	}
	newGoldie(t).Assert(t, "select_results_xml", data)
}

func TestFormatSelectResultsCSVGolden(t *testing.T) {
	data, err := formatSelectResultsCSV(sampleSelectResult())
	if err != nil {
		t.Fatalf("formatSelectResultsCSV: %v", err)
	}
	newGoldie(t).Assert(t, "select_results_csv", data)
}

func TestFormatSelectResultsTSVGolden(t *testing.T) {
	data, err := formatSelectResultsTSV(sampleSelectResult())
	if err != nil {
		t.Fatalf("formatSelectResultsTSV: %v", err)
	}
	newGoldie(t).Assert(t, "select_results_tsv", data)
}

func TestFormatConstructResultNTriplesGolden(t *testing.T) {
	result := &engine.ConstructResult{
		Quads: []*rdf.Quad{
			rdf.NewQuad(
				rdf.NewNamedNode("http://example.org/alice"),
				rdf.NewNamedNode("http://example.org/name"),
				rdf.NewLiteral("Alice"),
				rdf.NewDefaultGraph(),
			),
		},
	}
	data, err := formatConstructResultNTriples(result)
	if err != nil {
		t.Fatalf("formatConstructResultNTriples: %v", err)
	}
	newGoldie(t).Assert(t, "construct_result_ntriples", data)
}
