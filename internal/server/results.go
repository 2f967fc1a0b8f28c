package server

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trigo-rdf/trigo/internal/engine"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// SPARQL 1.1 Query Results JSON Format
// https://www.w3.org/TR/sparql11-results-json/

type sparqlResultsJSON struct {
	Head    resultHead      `json:"head"`
	Results *resultBindings `json:"results,omitempty"`
	Boolean *bool           `json:"boolean,omitempty"`
}

type resultHead struct {
	Vars []string `json:"vars"`
}

type resultBindings struct {
	Bindings []map[string]bindingValue `json:"bindings"`
}

type bindingValue struct {
	Type     string  `json:"type"`
	Value    string  `json:"value"`
	Datatype *string `json:"datatype,omitempty"`
	XMLLang  *string `json:"xml:lang,omitempty"`
}

func selectVarNames(result *engine.SelectResult) []string {
	if result.Vars != nil {
		names := make([]string, len(result.Vars))
		for i, v := range result.Vars {
			names[i] = string(v)
		}
		return names
	}
	seen := make(map[algebra.Variable]bool)
	var names []string
	for _, row := range result.Rows {
		for v := range row {
			if !seen[v] {
				seen[v] = true
				names = append(names, string(v))
			}
		}
	}
	return names
}

func formatSelectResultsJSON(result *engine.SelectResult) ([]byte, error) {
	varNames := selectVarNames(result)

	bindings := make([]map[string]bindingValue, 0, len(result.Rows))
	for _, row := range result.Rows {
		b := make(map[string]bindingValue, len(row))
		for v, term := range row {
			b[string(v)] = termToBindingValue(term)
		}
		bindings = append(bindings, b)
	}

	return json.MarshalIndent(sparqlResultsJSON{
		Head:    resultHead{Vars: varNames},
		Results: &resultBindings{Bindings: bindings},
	}, "", "  ")
}

func formatAskResultJSON(result *engine.AskResult) ([]byte, error) {
	return json.MarshalIndent(sparqlResultsJSON{
		Head:    resultHead{Vars: []string{}},
		Boolean: &result.Result,
	}, "", "  ")
}

func termToBindingValue(term rdf.Term) bindingValue {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return bindingValue{Type: "uri", Value: t.IRI}
	case *rdf.BlankNode:
		return bindingValue{Type: "bnode", Value: t.ID}
	case *rdf.Literal:
		bv := bindingValue{Type: "literal", Value: t.Value}
		if t.Language != "" {
			bv.XMLLang = &t.Language
		} else if t.Datatype != nil && t.Datatype.IRI != rdf.XSDString.IRI {
			iri := t.Datatype.IRI
			bv.Datatype = &iri
		}
		return bv
	default:
		return bindingValue{Type: "literal", Value: term.String()}
	}
}

// SPARQL 1.1 Query Results XML Format
// https://www.w3.org/TR/rdf-sparql-XMLres/

func formatSelectResultsXML(result *engine.SelectResult) ([]byte, error) {
	varNames := selectVarNames(result)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?>` + "\n")
	sb.WriteString(`<sparql xmlns="http://www.w3.org/2005/sparql-results#">` + "\n  <head>\n")
	for _, v := range varNames {
		sb.WriteString(`    <variable name="` + xmlEscape(v) + `"/>` + "\n")
	}
	sb.WriteString("  </head>\n  <results>\n")
	for _, row := range result.Rows {
		sb.WriteString("    <result>\n")
		for _, v := range varNames {
			term, ok := row[algebra.Variable(v)]
			if !ok {
				continue
			}
			sb.WriteString(`      <binding name="` + xmlEscape(v) + "\">\n")
			sb.WriteString(termToXML(term, "        "))
			sb.WriteString("      </binding>\n")
		}
		sb.WriteString("    </result>\n")
	}
	sb.WriteString("  </results>\n</sparql>\n")
	return []byte(sb.String()), nil
}

func formatAskResultXML(result *engine.AskResult) ([]byte, error) {
	boolStr := "false"
	if result.Result {
		boolStr = "true"
	}
	return []byte(`<?xml version="1.0"?>
<sparql xmlns="http://www.w3.org/2005/sparql-results#">
  <head/>
  <boolean>` + boolStr + `</boolean>
</sparql>
`), nil
}

func termToXML(term rdf.Term, indent string) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return indent + "<uri>" + xmlEscape(t.IRI) + "</uri>\n"
	case *rdf.BlankNode:
		return indent + "<bnode>" + xmlEscape(t.ID) + "</bnode>\n"
	case *rdf.Literal:
		if t.Language != "" {
			return indent + `<literal xml:lang="` + t.Language + `">` + xmlEscape(t.Value) + "</literal>\n"
		}
		if t.Datatype != nil && t.Datatype.IRI != rdf.XSDString.IRI {
			return indent + `<literal datatype="` + xmlEscape(t.Datatype.IRI) + `">` + xmlEscape(t.Value) + "</literal>\n"
		}
		return indent + "<literal>" + xmlEscape(t.Value) + "</literal>\n"
	default:
		return indent + "<literal>" + xmlEscape(term.String()) + "</literal>\n"
	}
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}

// SPARQL 1.1 Query Results CSV and TSV Formats
// https://www.w3.org/TR/sparql11-results-csv-tsv/

func formatSelectResultsCSV(result *engine.SelectResult) ([]byte, error) {
	varNames := selectVarNames(result)
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(varNames); err != nil {
		return nil, err
	}
	for _, row := range result.Rows {
		record := make([]string, len(varNames))
		for i, v := range varNames {
			if term, ok := row[algebra.Variable(v)]; ok {
				record[i] = termToCSVValue(term)
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return []byte(sb.String()), w.Error()
}

func formatSelectResultsTSV(result *engine.SelectResult) ([]byte, error) {
	varNames := selectVarNames(result)
	var sb strings.Builder
	for i, v := range varNames {
		if i > 0 {
			sb.WriteByte('\t')
		}
		sb.WriteByte('?')
		sb.WriteString(v)
	}
	sb.WriteByte('\n')
	for _, row := range result.Rows {
		for i, v := range varNames {
			if i > 0 {
				sb.WriteByte('\t')
			}
			if term, ok := row[algebra.Variable(v)]; ok {
				sb.WriteString(termToTSVValue(term))
			}
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

func termToCSVValue(term rdf.Term) string {
	if lit, ok := term.(*rdf.Literal); ok {
		return lit.Value
	}
	return term.String()
}

func termToTSVValue(term rdf.Term) string {
	return term.String()
}

// formatConstructResultNTriples serializes a CONSTRUCT/DESCRIBE result
// as N-Triples; the graph component of every quad is dropped, including
// the named graph a DESCRIBE quad may carry.
func formatConstructResultNTriples(result *engine.ConstructResult) ([]byte, error) {
	var sb strings.Builder
	for _, q := range result.Quads {
		if err := formatNTriplesTerm(&sb, q.Subject); err != nil {
			return nil, err
		}
		sb.WriteByte(' ')
		if err := formatNTriplesTerm(&sb, q.Predicate); err != nil {
			return nil, err
		}
		sb.WriteByte(' ')
		if err := formatNTriplesTerm(&sb, q.Object); err != nil {
			return nil, err
		}
		sb.WriteString(" .\n")
	}
	return []byte(sb.String()), nil
}

func formatNTriplesTerm(sb *strings.Builder, term rdf.Term) error {
	switch t := term.(type) {
	case *rdf.NamedNode:
		sb.WriteString("<" + t.IRI + ">")
	case *rdf.BlankNode:
		sb.WriteString("_:" + t.ID)
	case *rdf.Literal:
		sb.WriteString(`"` + escapeNTriplesString(t.Value) + `"`)
		if t.Language != "" {
			sb.WriteString("@" + t.Language)
		} else if t.Datatype != nil && t.Datatype.IRI != rdf.XSDString.IRI {
			sb.WriteString("^^<" + t.Datatype.IRI + ">")
		}
	default:
		return fmt.Errorf("unknown term kind: %T", term)
	}
	return nil
}

func escapeNTriplesString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
