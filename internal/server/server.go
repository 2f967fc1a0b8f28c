// Package server adapts the SPARQL 1.1 Protocol
// (https://www.w3.org/TR/sparql11-protocol/) onto internal/engine: a
// thin HTTP harness, not where the hard engineering budget goes (§G).
package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trigo-rdf/trigo/internal/engine"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// Server is the HTTP SPARQL endpoint over one engine.Store.
type Server struct {
	store *engine.Store
	addr  string
	log   *engine.Logger
}

// Options configures Server construction. It is a plain struct passed
// to New, not the functional options internal/engine uses.
type Options struct {
	Logger *engine.Logger
}

// New builds a Server serving store over addr.
func New(store *engine.Store, addr string, opts Options) *Server {
	return &Server{store: store, addr: addr, log: opts.Logger}
}

// Start runs the HTTP server until it errors or the process exits.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", s.handleSPARQL)
	mux.HandleFunc("/update", s.handleUpdate)
	mux.HandleFunc("/data", s.handleDataUpload)
	mux.HandleFunc("/", s.handleRoot)

	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      s.withRequestID(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Infof("starting SPARQL endpoint at http://%s/sparql", s.addr)
	return httpServer.ListenAndServe()
}

type requestIDKey struct{}

// withRequestID stamps every request with a correlation id, the way a
// production HTTP handler stack typically threads one through its log
// lines, and logs method/path/id at Debug level.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		s.log.Debugf("[%s] %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s/sparql", scheme, r.Host)

	count, err := s.store.Count()
	if err != nil {
		s.log.Warnf("handleRoot: count failed: %v", err)
	}

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Trigo SPARQL Endpoint</title>
    <link href="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.css" rel="stylesheet" type="text/css" />
    <script src="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.js"></script>
    <style>
        body { margin: 0; padding: 0; font-family: Arial, sans-serif; display: flex; flex-direction: column; height: 100vh; }
        .header { background: #2c3e50; color: white; padding: 15px 20px; }
        .header h1 { margin: 0; font-size: 24px; font-weight: 500; }
        .header .info { margin-top: 5px; font-size: 14px; opacity: 0.9; }
        .header .info code { background: rgba(255,255,255,0.2); padding: 2px 6px; border-radius: 3px; font-family: monospace; }
        #yasgui { flex: 1; overflow: hidden; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Trigo SPARQL Endpoint</h1>
        <div class="info">Endpoint: <code>` + endpointURL + `</code> &middot; ` + fmt.Sprintf("%d", count) + ` quads stored</div>
    </div>
    <div id="yasgui"></div>
    <script>
        const yasgui = new Yasgui(document.getElementById("yasgui"), {
            requestConfig: { endpoint: "` + endpointURL + `", method: "POST" },
            copyEndpointOnNewTab: false
        });
    </script>
</body>
</html>`

	_, _ = w.Write([]byte(html))
}

func corsHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}

// handleSPARQL handles SPARQL query requests per the protocol's query
// operation.
func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w, "GET, POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	queryString, err := extractQueryString(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if queryString == "" {
		s.writeError(w, http.StatusBadRequest, "missing 'query' parameter")
		return
	}

	result, err := s.store.ExecuteQuery(r.Context(), queryString)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("query error: %v", err))
		return
	}

	format := negotiateFormat(r.Header.Get("Accept"))
	s.writeResult(w, result, format)
}

func extractQueryString(r *http.Request) (string, error) {
	switch r.Method {
	case http.MethodGet:
		return r.URL.Query().Get("query"), nil
	case http.MethodPost:
		contentType := r.Header.Get("Content-Type")
		switch {
		case strings.Contains(contentType, "application/sparql-query"):
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return "", fmt.Errorf("reading request body: %w", err)
			}
			return string(body), nil
		case strings.Contains(contentType, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err != nil {
				return "", fmt.Errorf("parsing form: %w", err)
			}
			return r.FormValue("query"), nil
		default:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return "", fmt.Errorf("reading request body: %w", err)
			}
			return string(body), nil
		}
	default:
		return "", fmt.Errorf("method not allowed: %s", r.Method)
	}
}

// handleUpdate handles SPARQL Update requests per the protocol's update
// operation.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed, use POST")
		return
	}

	contentType := r.Header.Get("Content-Type")
	var updateString string
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parsing form: %v", err))
			return
		}
		updateString = r.FormValue("update")
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("reading request body: %v", err))
			return
		}
		updateString = string(body)
	}
	if updateString == "" {
		s.writeError(w, http.StatusBadRequest, "missing 'update' parameter")
		return
	}

	if err := s.store.ExecuteUpdate(r.Context(), updateString); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("update error: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func negotiateFormat(acceptHeader string) string {
	accept := strings.ToLower(acceptHeader)
	switch {
	case strings.Contains(accept, "application/sparql-results+xml"), strings.Contains(accept, "application/xml"), strings.Contains(accept, "text/xml"):
		return "xml"
	case strings.Contains(accept, "text/csv"):
		return "csv"
	case strings.Contains(accept, "text/tab-separated-values"):
		return "tsv"
	default:
		return "json"
	}
}

func (s *Server) writeResult(w http.ResponseWriter, result engine.QueryResult, format string) {
	if constructResult, ok := result.(*engine.ConstructResult); ok {
		data, err := formatConstructResultNTriples(constructResult)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("formatting error: %v", err))
			return
		}
		w.Header().Set("Content-Type", "application/n-triples; charset=utf-8")
		_, _ = w.Write(data)
		return
	}

	var data []byte
	var err error
	var contentType string
	switch format {
	case "xml":
		contentType = "application/sparql-results+xml; charset=utf-8"
		data, err = formatTypedResultXML(result)
	case "csv":
		contentType = "text/csv; charset=utf-8"
		data, err = formatTypedResultCSV(result)
	case "tsv":
		contentType = "text/tab-separated-values; charset=utf-8"
		data, err = formatTypedResultTSV(result)
	default:
		contentType = "application/sparql-results+json; charset=utf-8"
		data, err = formatTypedResultJSON(result)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("formatting error: %v", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

func formatTypedResultJSON(result engine.QueryResult) ([]byte, error) {
	switch r := result.(type) {
	case *engine.SelectResult:
		return formatSelectResultsJSON(r)
	case *engine.AskResult:
		return formatAskResultJSON(r)
	default:
		return nil, fmt.Errorf("unsupported result type: %T", result)
	}
}

func formatTypedResultXML(result engine.QueryResult) ([]byte, error) {
	switch r := result.(type) {
	case *engine.SelectResult:
		return formatSelectResultsXML(r)
	case *engine.AskResult:
		return formatAskResultXML(r)
	default:
		return nil, fmt.Errorf("unsupported result type: %T", result)
	}
}

func formatTypedResultCSV(result engine.QueryResult) ([]byte, error) {
	r, ok := result.(*engine.SelectResult)
	if !ok {
		return nil, fmt.Errorf("CSV format only supports SELECT results, got %T", result)
	}
	return formatSelectResultsCSV(r)
}

func formatTypedResultTSV(result engine.QueryResult) ([]byte, error) {
	r, ok := result.(*engine.SelectResult)
	if !ok {
		return nil, fmt.Errorf("TSV format only supports SELECT results, got %T", result)
	}
	return formatSelectResultsTSV(r)
}

// handleDataUpload handles bulk RDF uploads, content-type driven.
func (s *Server) handleDataUpload(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed, use POST")
		return
	}

	contentType := r.Header.Get("Content-Type")
	format, err := formatForContentType(contentType)
	if err != nil {
		s.writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	var graph rdf.Term
	if g := r.URL.Query().Get("graph"); g != "" {
		graph = rdf.NewNamedNode(g)
	}

	start := time.Now()
	if err := s.store.LoadText(format, r.Body, graph); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("load error: %v", err))
		return
	}
	duration := time.Since(start)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, `{"success":true,"durationMs":%d}`, duration.Milliseconds())
}

func formatForContentType(contentType string) (rdf.Format, error) {
	switch {
	case strings.Contains(contentType, "application/n-triples"):
		return rdf.FormatNTriples, nil
	case strings.Contains(contentType, "application/n-quads"):
		return rdf.FormatNQuads, nil
	case strings.Contains(contentType, "text/turtle"):
		return rdf.FormatTurtle, nil
	case strings.Contains(contentType, "application/trig"):
		return rdf.FormatTriG, nil
	default:
		return 0, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.log.Warnf("%s", message)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, statusCode, message)
}
