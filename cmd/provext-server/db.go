package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/monowaranjum/rpe-llvm-impl/internal/ddg"
)

// nullStringJSON marshals as string or null (so "file": "x" vs "file": null
// round-trips cleanly through JSON).
type nullStringJSON struct{ sql.NullString }

func (n nullStringJSON) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

// DB wraps *sql.DB with the read-only query helpers this API needs.
type DB struct {
	*sql.DB
}

// NewDB returns a DB wrapper.
func NewDB(db *sql.DB) *DB {
	return &DB{DB: db}
}

// FunctionSummary is one row of GET /api/functions.
type FunctionSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BlockCount int    `json:"block_count"`
	HasLoop    bool   `json:"has_loop"`
}

// Functions lists every analyzed function.
func (db *DB) Functions() ([]FunctionSummary, error) {
	rows, err := db.Query(`SELECT id, name, block_count, has_loop FROM functions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	var out []FunctionSummary
	for rows.Next() {
		var f FunctionSummary
		var hasLoop int64
		if err := rows.Scan(&f.ID, &f.Name, &f.BlockCount, &hasLoop); err != nil {
			return nil, err
		}
		f.HasLoop = hasLoop != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// DDGEdge is one row of GET /api/ddg.
type DDGEdge struct {
	Src     string         `json:"src"`
	SrcType nullStringJSON `json:"src_type"`
	Dst     string         `json:"dst"`
	DstType nullStringJSON `json:"dst_type"`
	Label   string         `json:"label"`
}

// DDGEdges returns every DDG edge recorded for function.
func (db *DB) DDGEdges(function string) ([]DDGEdge, error) {
	rows, err := db.Query(`SELECT src, src_type, dst, dst_type, label FROM ddg_edges WHERE function_id = ?`, function)
	if err != nil {
		return nil, fmt.Errorf("query ddg_edges: %w", err)
	}
	defer rows.Close()

	var out []DDGEdge
	for rows.Next() {
		var e DDGEdge
		if err := rows.Scan(&e.Src, &e.SrcType, &e.Dst, &e.DstType, &e.Label); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ddgGraph reconstructs an in-memory ddg.Graph for function, so reachability
// queries can reuse internal/ddg.Reachable instead of re-implementing graph
// traversal in SQL.
func (db *DB) ddgGraph(function string) (*ddg.Graph, error) {
	edges, err := db.DDGEdges(function)
	if err != nil {
		return nil, err
	}
	g := ddg.New()
	for _, e := range edges {
		g.Edges[e.Src] = append(g.Edges[e.Src], ddg.Edge{To: e.Dst, Label: e.Label})
	}
	return g, nil
}

// PathToken is one element of a serialized instantiated path.
type PathToken struct {
	Kind  string `json:"kind"` // "block", "loop_start", "loop_end"
	Block string `json:"block,omitempty"`
}

// Path is one rendered path row, tokenized for API consumption.
type Path struct {
	Ordinal int         `json:"ordinal"`
	Tokens  []PathToken `json:"tokens"`
}

// Paths returns function's paths from the given table ("canonical_paths" or
// "instantiated_paths"), tokenizing the arrow-joined rendered text back into
// structured LOOP_START/LOOP_END/block tokens.
func (db *DB) Paths(table, function string) ([]Path, error) {
	if table != "canonical_paths" && table != "instantiated_paths" {
		return nil, fmt.Errorf("unknown path table %q", table)
	}
	rows, err := db.Query(fmt.Sprintf(`SELECT ordinal, rendered FROM %s WHERE function_id = ? ORDER BY ordinal`, table), function)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []Path
	for rows.Next() {
		var ordinal int
		var rendered string
		if err := rows.Scan(&ordinal, &rendered); err != nil {
			return nil, err
		}
		out = append(out, Path{Ordinal: ordinal, Tokens: tokenize(rendered)})
	}
	return out, rows.Err()
}

func tokenize(rendered string) []PathToken {
	if rendered == "" {
		return nil
	}
	parts := strings.Split(rendered, " -> ")
	tokens := make([]PathToken, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "LOOP_START":
			tokens = append(tokens, PathToken{Kind: "loop_start"})
		case "LOOP_END":
			tokens = append(tokens, PathToken{Kind: "loop_end"})
		default:
			tokens = append(tokens, PathToken{Kind: "block", Block: p})
		}
	}
	return tokens
}

// ProvenanceNode is one row of GET /api/provenance.
type ProvenanceNode struct {
	PathOrdinal int    `json:"path_ordinal"`
	Ordinal     int    `json:"ordinal"`
	Action      string `json:"action"`
	Artifact    string `json:"artifact"`
	ValueID     string `json:"value_id"`
}

// Provenance returns every provenance node recorded for function, grouped
// implicitly by PathOrdinal (the client groups by that field into streams).
func (db *DB) Provenance(function string) ([]ProvenanceNode, error) {
	rows, err := db.Query(`SELECT path_ordinal, ordinal, action, artifact, value_id FROM provenance_nodes WHERE function_id = ? ORDER BY path_ordinal, ordinal`, function)
	if err != nil {
		return nil, fmt.Errorf("query provenance_nodes: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceNode
	for rows.Next() {
		var n ProvenanceNode
		if err := rows.Scan(&n.PathOrdinal, &n.Ordinal, &n.Action, &n.Artifact, &n.ValueID); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Reachable answers the checkLoadStoreReachable primitive on demand (C3,
// spec §4.6), exposing it directly for ad hoc debugging per SPEC_FULL.md.
func (db *DB) Reachable(function, src, dst string) (bool, error) {
	g, err := db.ddgGraph(function)
	if err != nil {
		return false, err
	}
	return ddg.Reachable(g, src, dst), nil
}
