package trchttp

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/peterbourgon/trcevent"
)

// SelfCategory is the category of the events the server records about its own
// requests. It's disabled by default, so the server doesn't pollute the trace
// it serves unless asked to.
const SelfCategory = trcevent.DisabledByDefaultPrefix + "trchttp"

// Server is the control service for a recorder. It serves the exported trace,
// toggles recording, and manages categories. All responses are JSON.
type Server struct {
	recorder *trcevent.Recorder
	exporter *trcevent.Exporter
	logger   *log.Logger
	prefix   string
	router   *mux.Router
}

// ServerOption configures a server.
type ServerOption func(*Server)

// WithLogger sets the logger used for errors the server can't report to the
// client. By default, nothing is logged.
func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithPathPrefix mounts all routes under the given prefix, e.g. "/debug".
func WithPathPrefix(prefix string) ServerOption {
	return func(s *Server) { s.prefix = "/" + strings.Trim(prefix, "/") }
}

// NewServer returns a server controlling the given recorder, and serving
// documents produced by the given exporter. If exp is nil, a default exporter
// is used.
func NewServer(rec *trcevent.Recorder, exp *trcevent.Exporter, options ...ServerOption) *Server {
	if exp == nil {
		exp = trcevent.NewExporter()
	}

	s := &Server{
		recorder: rec,
		exporter: exp,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(s)
	}

	var (
		router = mux.NewRouter()
		routes = router
		traced = Middleware(rec, SelfCategory)
		stream = NewStreamServer(rec, exp, s.logger)
	)
	if s.prefix != "" && s.prefix != "/" {
		routes = router.PathPrefix(s.prefix).Subrouter()
	}

	routes.Handle("/trace", traced(http.HandlerFunc(s.handleTrace))).Methods("GET", "HEAD")
	routes.Handle("/trace.json", traced(http.HandlerFunc(s.handleTrace))).Methods("GET", "HEAD")
	routes.Handle("/trace/stats", traced(http.HandlerFunc(s.handleStats))).Methods("GET")
	routes.Handle("/trace/reset", traced(http.HandlerFunc(s.handleReset))).Methods("POST")
	routes.Handle("/trace/stream", stream).Methods("GET")
	routes.Handle("/tracepoint/enable", traced(http.HandlerFunc(s.handleEnable))).Methods("POST")
	routes.Handle("/tracepoint/disable", traced(http.HandlerFunc(s.handleDisable))).Methods("POST")
	routes.Handle("/categories", traced(http.HandlerFunc(s.handleCategories))).Methods("GET")
	routes.Handle("/categories/{name}/{action:enable|disable}", traced(http.HandlerFunc(s.handleCategory))).Methods("POST")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, fmt.Errorf("%s %s: not found", r.Method, r.URL.Path), http.StatusNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, fmt.Errorf("%s %s: method not allowed", r.Method, r.URL.Path), http.StatusMethodNotAllowed)
	})

	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var (
		snapshot = s.recorder.Snapshot()
		metadata = parseDefault(r.URL.Query().Get("metadata"), strconv.ParseBool, false)
		doc      *trcevent.Document
	)

	if metadata {
		doc = s.exporter.ExportWithMetadata(snapshot)
	} else {
		doc = s.exporter.Export(snapshot)
	}

	data, err := doc.Encode()
	if err != nil {
		s.logger.Printf("encode trace: %v", err)
		respondError(w, fmt.Errorf("encode trace: %w", err), http.StatusInternalServerError)
		return
	}

	if err := respondBytes(w, r, http.StatusOK, data); err != nil {
		s.logger.Printf("write trace: %v", err)
	}
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.recorder.Enable()
	respondJSON(w, http.StatusOK, ack)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.recorder.Disable()
	respondJSON(w, http.StatusOK, ack)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.recorder.Reset()
	respondJSON(w, http.StatusOK, ack)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.recorder.Stats())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := s.recorder.Categories()
	if categories == nil {
		categories = []trcevent.CategoryInfo{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	var (
		vars     = mux.Vars(r)
		category = s.recorder.Category(vars["name"])
	)

	switch vars["action"] {
	case "enable":
		category.Enable()
	case "disable":
		category.Disable()
	}

	respondJSON(w, http.StatusOK, ack)
}

//
//
//

// Ack is the response body of requests which change the recorder's state.
type Ack struct {
	OK string `json:"ok"`
}

var ack = Ack{OK: "success"}

func parseDefault[T any](s string, parse func(string) (T, error), def T) T {
	if v, err := parse(s); err == nil {
		return v
	}
	return def
}

func parseRange[T int](s string, parse func(string) (T, error), min, def, max T) T {
	v, err := parse(s)
	switch {
	case err != nil:
		return def
	case v < min:
		return min
	case v > max:
		return max
	default:
		return v
	}
}
