package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/trigo-rdf/trigo/internal/engine"
	"github.com/trigo-rdf/trigo/internal/server"
	"github.com/trigo-rdf/trigo/internal/storage"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: trigo <command> [args]")
		fmt.Println("Commands:")
		fmt.Println("  demo          - Run a demo with sample data")
		fmt.Println("  query <q>     - Execute a SPARQL query")
		fmt.Println("  update <u>    - Execute a SPARQL update")
		fmt.Println("  serve [addr]  - Start HTTP SPARQL endpoint (default: localhost:8080)")
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "demo":
		runDemo()
	case "query":
		if len(os.Args) < 3 {
			fmt.Println("Usage: trigo query <sparql-query>")
			os.Exit(1)
		}
		runQuery(os.Args[2])
	case "update":
		if len(os.Args) < 3 {
			fmt.Println("Usage: trigo update <sparql-update>")
			os.Exit(1)
		}
		runUpdate(os.Args[2])
	case "serve":
		addr := "localhost:8080"
		if len(os.Args) >= 3 {
			addr = os.Args[2]
		}
		runServer(addr)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

const dbPath = "./trigo_data"

func openStore(logger *engine.Logger) *engine.Store {
	backend, err := storage.NewBadgerStore(dbPath)
	if err != nil {
		log.Fatalf("opening storage at %s: %v", dbPath, err)
	}
	st, err := engine.Open(backend, engine.WithLogger(logger))
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	return st
}

func runDemo() {
	fmt.Println("=== Trigo RDF Triplestore Demo ===")
	fmt.Println()

	fmt.Printf("Opening database at: %s\n", dbPath)
	st := openStore(engine.NewLogger(engine.LevelInfo))
	defer st.Close()

	fmt.Println("\nInserting sample data...")

	insert := `
		INSERT DATA {
			<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" .
			<http://example.org/alice> <http://xmlns.com/foaf/0.1/age> 30 .
			<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .
			<http://example.org/bob> <http://xmlns.com/foaf/0.1/name> "Bob" .
			<http://example.org/bob> <http://xmlns.com/foaf/0.1/age> 25 .
			<http://example.org/bob> <http://xmlns.com/foaf/0.1/knows> <http://example.org/carol> .
			<http://example.org/carol> <http://xmlns.com/foaf/0.1/name> "Carol" .
			<http://example.org/carol> <http://xmlns.com/foaf/0.1/age> 28 .
			GRAPH <http://example.org/graph1> {
				<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice in Graph1" .
				<http://example.org/bob> <http://xmlns.com/foaf/0.1/name> "Bob in Graph1" .
			}
			GRAPH <http://example.org/graph2> {
				<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice in Graph2" .
				<http://example.org/carol> <http://xmlns.com/foaf/0.1/name> "Carol in Graph2" .
			}
		}
	`
	ctx := context.Background()
	if err := st.ExecuteUpdate(ctx, insert); err != nil {
		log.Fatalf("inserting sample data: %v", err)
	}

	count, err := st.Count()
	if err != nil {
		log.Fatalf("counting quads: %v", err)
	}
	fmt.Printf("Total quads stored: %d\n", count)

	fmt.Println()
	fmt.Println("=== Querying Data ===")
	fmt.Println()

	sparqlQuery := `
		SELECT ?person ?name ?age
		WHERE {
			?person <http://xmlns.com/foaf/0.1/name> ?name .
			?person <http://xmlns.com/foaf/0.1/age> ?age .
		}
	`
	fmt.Printf("Query:\n%s\n", sparqlQuery)

	result, err := st.ExecuteQuery(ctx, sparqlQuery)
	if err != nil {
		log.Fatalf("executing query: %v", err)
	}
	fmt.Println("✓ Query executed successfully")
	fmt.Println()

	printSelectResult(result)
	fmt.Println("\n=== Demo Complete ===")
}

func runQuery(sparqlQuery string) {
	st := openStore(engine.NewLogger(engine.LevelWarn))
	defer st.Close()

	result, err := st.ExecuteQuery(context.Background(), sparqlQuery)
	if err != nil {
		log.Fatalf("executing query: %v", err)
	}
	printSelectResult(result)
}

func runUpdate(sparqlUpdate string) {
	st := openStore(engine.NewLogger(engine.LevelWarn))
	defer st.Close()

	if err := st.ExecuteUpdate(context.Background(), sparqlUpdate); err != nil {
		log.Fatalf("executing update: %v", err)
	}
	fmt.Println("✓ Update applied")
}

func printSelectResult(result engine.QueryResult) {
	switch r := result.(type) {
	case *engine.SelectResult:
		fmt.Println("Results:")
		for _, row := range r.Rows {
			for v, term := range row {
				fmt.Printf("  ?%s = %s\n", v, formatTerm(term))
			}
			fmt.Println()
		}
		fmt.Printf("Found %d results\n", len(r.Rows))
	case *engine.AskResult:
		fmt.Printf("Result: %t\n", r.Result)
	case *engine.ConstructResult:
		fmt.Printf("Constructed %d quads:\n", len(r.Quads))
		for _, q := range r.Quads {
			fmt.Printf("%s %s %s .\n", q.Subject, q.Predicate, q.Object)
		}
	}
}

func runServer(addr string) {
	logger := engine.NewLogger(engine.LevelInfo)
	fmt.Printf("Opening database at: %s\n", dbPath)
	st := openStore(logger)
	defer st.Close()

	count, _ := st.Count()
	fmt.Printf("Database loaded with %d quads\n", count)

	srv := server.New(st, addr, server.Options{Logger: logger})
	fmt.Printf("\nTrigo SPARQL endpoint starting...\n")
	fmt.Printf("   Endpoint: http://%s/sparql\n", addr)
	fmt.Printf("   Web UI:   http://%s/\n\n", addr)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	if err := srv.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func formatTerm(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		iri := t.IRI
		if idx := strings.LastIndexAny(iri, "/#"); idx >= 0 {
			return iri[idx+1:]
		}
		return iri
	case *rdf.Literal:
		return t.Value
	default:
		return term.String()
	}
}
