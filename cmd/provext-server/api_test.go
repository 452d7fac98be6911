package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
	CREATE TABLE functions (id TEXT PRIMARY KEY, name TEXT, block_count INTEGER, has_loop INTEGER);
	CREATE TABLE ddg_edges (function_id TEXT, src TEXT, src_type TEXT, dst TEXT, dst_type TEXT, label TEXT);
	CREATE TABLE canonical_paths (function_id TEXT, ordinal INTEGER, rendered TEXT);
	CREATE TABLE instantiated_paths (function_id TEXT, ordinal INTEGER, rendered TEXT);
	CREATE TABLE provenance_nodes (function_id TEXT, path_ordinal INTEGER, ordinal INTEGER, action TEXT, artifact TEXT, value_id TEXT);
	`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	_, _ = db.Exec(`INSERT INTO functions VALUES ('pkg.F', 'pkg.F', 3, 0)`)
	_, _ = db.Exec(`INSERT INTO ddg_edges VALUES ('pkg.F', '%x', 'i32', '%1', 'i32*', 'store')`)
	_, _ = db.Exec(`INSERT INTO ddg_edges VALUES ('pkg.F', '%1', 'i32*', '%2', 'i32', 'load')`)
	_, _ = db.Exec(`INSERT INTO instantiated_paths VALUES ('pkg.F', 0, 'A -> LOOP_START -> B -> C -> LOOP_END -> D')`)
	_, _ = db.Exec(`INSERT INTO provenance_nodes VALUES ('pkg.F', 0, 0, 'load', 'FILE', 'process_name_start')`)

	return db
}

func TestAPI_Functions(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/functions: want 200, got %d", rec.Code)
	}
	var funcs []FunctionSummary
	if err := json.NewDecoder(rec.Body).Decode(&funcs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(funcs) != 1 || funcs[0].ID != "pkg.F" {
		t.Errorf("funcs = %+v, want one row for pkg.F", funcs)
	}
}

func TestAPI_DDG_MissingParam(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/ddg", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/ddg without function: want 400, got %d", rec.Code)
	}
}

func TestAPI_Paths_TokenizesLoopMarkers(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/paths?function=pkg.F", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/paths: want 200, got %d", rec.Code)
	}
	var paths []Path
	if err := json.NewDecoder(rec.Body).Decode(&paths); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %+v, want 1 row", paths)
	}
	tokens := paths[0].Tokens
	if len(tokens) != 6 || tokens[1].Kind != "loop_start" || tokens[4].Kind != "loop_end" {
		t.Errorf("tokens = %+v, want LOOP_START/LOOP_END at positions 1/4", tokens)
	}
}

func TestAPI_Reachable(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/reachable?function=pkg.F&src=%25x&dst=%252", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/reachable: want 200, got %d", rec.Code)
	}
	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["reachable"] {
		t.Error("expected %x to be load/store reachable to %2 via %1")
	}
}
