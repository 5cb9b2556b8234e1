// Package mockengine implements a minimal "Riverbend-like" session API
// surface for tests and local harnesses.
//
// Besides serving the endpoints the SDK calls, the server records every
// source description submitted to it so tests can assert on exactly what the
// client transmitted.
package mockengine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
}

// Description records one source description submitted to createRelation.
type Description struct {
	SessionID string
	Format    string
	Schema    string
	Options   map[string]string
	Paths     []string
	Streaming bool
}

type sourceState struct {
	columns []string
	rows    []map[string]any
}

type relationState struct {
	sessionID string
	columns   []string
	rows      []map[string]any
}

// Server implements the mock session API.
type Server struct {
	inputDir string

	mu           sync.Mutex
	calls        []Call
	descriptions []Description

	expectedAuthorization string

	sessions     map[string]bool
	nextRelation int
	relations    map[string]relationState

	// sources maps an input path to seeded data served for relations built
	// over that path.
	sources map[string]sourceState
}

// knownFormats mirrors the connectors a real engine would register. Anything
// else is rejected with an engine error envelope. An absent format is
// accepted: the engine applies its own default connector.
var knownFormats = map[string]bool{
	"json":    true,
	"csv":     true,
	"orc":     true,
	"parquet": true,
	"text":    true,
	"rate":    true,
}

// New constructs a new mock server. inputDir may be empty; when set, sources
// not seeded in memory are loaded from "<inputDir>/<base(path)>.jsonl".
func New(inputDir string) *Server {
	return &Server{
		inputDir:     inputDir,
		sessions:     make(map[string]bool),
		nextRelation: 1,
		relations:    make(map[string]relationState),
		sources:      make(map[string]sourceState),
	}
}

// RequireBearerToken enforces that requests include an Authorization header
// matching the token. If token is empty, authorization is not enforced.
func (s *Server) RequireBearerToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if token == "" {
		s.expectedAuthorization = ""
		return
	}
	s.expectedAuthorization = "Bearer " + token
}

// AddSource seeds rows served for relations built over the given path.
func (s *Server) AddSource(path string, columns []string, rows []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[path] = sourceState{columns: columns, rows: rows}
}

// AddTextSource seeds a line-oriented source: a single "value" column with
// one row per line.
func (s *Server) AddTextSource(path string, lines ...string) {
	rows := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, map[string]any{"value": l})
	}
	s.AddSource(path, []string{"value"}, rows)
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("/api/v1/sessions/", s.handleSessions)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Descriptions returns a snapshot of submitted source descriptions in
// submission order.
func (s *Server) Descriptions() []Description {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Description, len(s.descriptions))
	copy(out, s.descriptions)
	return out
}

// LastDescription returns the most recently submitted description.
func (s *Server) LastDescription() (Description, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.descriptions) == 0 {
		return Description{}, false
	}
	return s.descriptions[len(s.descriptions)-1], true
}

func (s *Server) recordCall(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	expected := s.expectedAuthorization
	s.mu.Unlock()

	if expected == "" {
		return true
	}
	if r.Header.Get("Authorization") != expected {
		writeError(w, http.StatusUnauthorized, "Riverbend:Unauthorized", "UNAUTHORIZED")
		return false
	}
	return true
}

type createSessionReq struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if !s.authorize(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "Riverbend:InvalidSessionId", "INVALID_ARGUMENT")
		return
	}

	s.mu.Lock()
	s.sessions[req.SessionID] = true
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"created"}`))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if !s.authorize(w, r) {
		return
	}

	// /api/v1/sessions/{id}/heartbeat
	// /api/v1/sessions/{id}/relations
	// /api/v1/sessions/{id}/relations/{rid}/project
	// /api/v1/sessions/{id}/relations/{rid}/records
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	sessionID := parts[0]

	s.mu.Lock()
	known := s.sessions[sessionID]
	s.mu.Unlock()
	if !known {
		writeError(w, http.StatusNotFound, "Riverbend:SessionNotFound", "NOT_FOUND")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "heartbeat":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"alive"}`))

	case len(parts) == 2 && parts[1] == "relations":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleCreateRelation(w, r, sessionID)

	case len(parts) == 4 && parts[1] == "relations" && parts[3] == "project":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleProject(w, r, sessionID, parts[2])

	case len(parts) == 4 && parts[1] == "relations" && parts[3] == "records":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleRecords(w, sessionID, parts[2])

	default:
		http.NotFound(w, r)
	}
}

type sourceDescriptionReq struct {
	Format    string            `json:"format"`
	Schema    string            `json:"schema"`
	Options   map[string]string `json:"options"`
	Paths     []string          `json:"paths"`
	Streaming bool              `json:"streaming"`
}

type relationResp struct {
	RelationID string   `json:"relationId"`
	Columns    []string `json:"columns"`
}

func (s *Server) handleCreateRelation(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req sourceDescriptionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Riverbend:MalformedDescription", "INVALID_ARGUMENT")
		return
	}

	s.mu.Lock()
	s.descriptions = append(s.descriptions, Description{
		SessionID: sessionID,
		Format:    req.Format,
		Schema:    req.Schema,
		Options:   req.Options,
		Paths:     req.Paths,
		Streaming: req.Streaming,
	})
	s.mu.Unlock()

	if !req.Streaming {
		writeError(w, http.StatusBadRequest, "Riverbend:BatchNotSupported", "INVALID_ARGUMENT")
		return
	}
	if f := strings.TrimSpace(req.Format); f != "" && !knownFormats[f] {
		writeError(w, http.StatusBadRequest, "Riverbend:UnknownSourceFormat", "INVALID_ARGUMENT")
		return
	}

	cols, rows := s.resolveSource(req)

	s.mu.Lock()
	relID := fmt.Sprintf("rel-%06d", s.nextRelation)
	s.nextRelation++
	s.relations[relID] = relationState{sessionID: sessionID, columns: cols, rows: rows}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(relationResp{RelationID: relID, Columns: cols})
}

// resolveSource picks the data a new relation serves: seeded sources first,
// then the input dir, then an empty relation shaped by schema or format.
func (s *Server) resolveSource(req sourceDescriptionReq) ([]string, []map[string]any) {
	if len(req.Paths) > 0 {
		p := req.Paths[0]

		s.mu.Lock()
		src, ok := s.sources[p]
		s.mu.Unlock()
		if ok {
			return src.columns, src.rows
		}

		if s.inputDir != "" {
			if src, ok := s.loadFromInputDir(p); ok {
				return src.columns, src.rows
			}
		}
	}

	if cols := columnsFromDDL(req.Schema); len(cols) > 0 {
		return cols, nil
	}
	if strings.TrimSpace(req.Format) == "text" {
		return []string{"value"}, nil
	}
	return nil, nil
}

func (s *Server) loadFromInputDir(path string) (sourceState, bool) {
	name := filepath.Base(strings.TrimRight(path, "/"))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return sourceState{}, false
	}
	b, err := os.ReadFile(filepath.Join(s.inputDir, name+".jsonl"))
	if err != nil {
		return sourceState{}, false
	}

	var rows []map[string]any
	colSeen := make(map[string]bool)
	var cols []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		rows = append(rows, rec)
		for k := range rec {
			if !colSeen[k] {
				colSeen[k] = true
				cols = append(cols, k)
			}
		}
	}
	if len(rows) == 0 {
		return sourceState{}, false
	}

	src := sourceState{columns: cols, rows: rows}
	s.mu.Lock()
	// Cache for future reads.
	s.sources[path] = src
	s.mu.Unlock()
	return src, true
}

// columnsFromDDL extracts column names from a DDL string like
// "ts TIMESTAMP, line STRING NOT NULL". Best effort only.
func columnsFromDDL(ddl string) []string {
	ddl = strings.TrimSpace(ddl)
	if ddl == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(ddl, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}

type projectReq struct {
	Columns []string `json:"columns"`
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request, sessionID, relationID string) {
	var req projectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Riverbend:MalformedProjection", "INVALID_ARGUMENT")
		return
	}

	s.mu.Lock()
	rel, ok := s.relations[relationID]
	s.mu.Unlock()
	if !ok || rel.sessionID != sessionID {
		writeError(w, http.StatusNotFound, "Riverbend:RelationNotFound", "NOT_FOUND")
		return
	}

	have := make(map[string]bool, len(rel.columns))
	for _, c := range rel.columns {
		have[c] = true
	}
	for _, c := range req.Columns {
		if !have[c] {
			writeError(w, http.StatusBadRequest, "Riverbend:UnknownColumn", "INVALID_ARGUMENT")
			return
		}
	}

	rows := make([]map[string]any, 0, len(rel.rows))
	for _, row := range rel.rows {
		nr := make(map[string]any, len(req.Columns))
		for _, c := range req.Columns {
			if v, ok := row[c]; ok {
				nr[c] = v
			}
		}
		rows = append(rows, nr)
	}

	s.mu.Lock()
	relID := fmt.Sprintf("rel-%06d", s.nextRelation)
	s.nextRelation++
	s.relations[relID] = relationState{sessionID: sessionID, columns: req.Columns, rows: rows}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(relationResp{RelationID: relID, Columns: req.Columns})
}

type recordsResp struct {
	Records []map[string]any `json:"records"`
}

func (s *Server) handleRecords(w http.ResponseWriter, sessionID, relationID string) {
	s.mu.Lock()
	rel, ok := s.relations[relationID]
	s.mu.Unlock()
	if !ok || rel.sessionID != sessionID {
		writeError(w, http.StatusNotFound, "Riverbend:RelationNotFound", "NOT_FOUND")
		return
	}

	rows := rel.rows
	if rows == nil {
		rows = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recordsResp{Records: rows})
}

type errorEnvelope struct {
	ErrorCode       string `json:"errorCode"`
	ErrorName       string `json:"errorName"`
	ErrorInstanceID string `json:"errorInstanceId"`
}

func writeError(w http.ResponseWriter, status int, name, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		ErrorCode:       code,
		ErrorName:       name,
		ErrorInstanceID: "mock",
	})
}
