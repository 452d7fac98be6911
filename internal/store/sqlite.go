package store

import (
	"fmt"
	"os"

	"github.com/monowaranjum/rpe-llvm-impl/internal/telemetry"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const batchSize = 50000

// FunctionRow is one row of the functions table.
type FunctionRow struct {
	ID         string
	Name       string
	BlockCount int
	HasLoop    bool
}

// BlockRow is one row of the blocks table (the ABB model, flattened).
type BlockRow struct {
	FunctionID        string
	BlockID           string
	IsRoot            bool
	IsConditional     bool
	HasInlineAssembly bool
	TrueBlock         string
	FalseBlock        string
	NextBlock         string
}

// BackEdgeRow is one row of the back_edges table.
type BackEdgeRow struct {
	FunctionID string
	From       string
	To         string
}

// PathRow is one row of canonical_paths or instantiated_paths: the path
// rendered as an arrow-joined token sequence (LOOP_START/LOOP_END included
// for instantiated paths).
type PathRow struct {
	FunctionID string
	Ordinal    int
	Rendered   string
}

// ProvenanceNodeRow is one row of the provenance_nodes table, scoped to the
// instantiated path it was reduced from.
type ProvenanceNodeRow struct {
	FunctionID  string
	PathOrdinal int
	Ordinal     int
	Action      string
	Artifact    string
	ValueID     string
}

// CDGEdgeRow is one row of the cdg_edges table (control-dependence or
// post-dominator arcs, the C2d domain expansion).
type CDGEdgeRow struct {
	FunctionID string
	Source     string
	Target     string
	Kind       string // "cdg" or "pdom"
}

// Report is the full set of per-module records accumulated across every
// analyzed function, ready to be flushed to SQLite.
type Report struct {
	Functions         []FunctionRow
	Blocks            []BlockRow
	DDGEdges          []DDGEdgeRow
	BackEdges         []BackEdgeRow
	CanonicalPaths    []PathRow
	InstantiatedPaths []PathRow
	ProvenanceNodes   []ProvenanceNodeRow
	CDGEdges          []CDGEdgeRow
	RunID             string
	SourceDir         string
}

// WriteDB writes a Report to a SQLite database file, mirroring the
// teacher's db.go: OpenConn + performance PRAGMAs, createTables, a single
// ImmediateTransaction wrapping every batched insert.
func WriteDB(path string, r Report, log *telemetry.Logger) error {
	log.Log("Writing SQLite to %s ...", path)

	_ = os.Remove(path)

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA cache_size = -64000",
		"PRAGMA journal_mode = WAL",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := createTables(conn); err != nil {
		return err
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := insertFunctions(conn, r.Functions, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertBlocks(conn, r.Blocks, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertDDGEdges(conn, r.DDGEdges, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertBackEdges(conn, r.BackEdges, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertPaths(conn, "canonical_paths", r.CanonicalPaths, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertPaths(conn, "instantiated_paths", r.InstantiatedPaths, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertProvenanceNodes(conn, r.ProvenanceNodes, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertCDGEdges(conn, r.CDGEdges, log); err != nil {
		endFn(&err)
		return err
	}
	if err := insertMeta(conn, r); err != nil {
		endFn(&err)
		return err
	}

	endFn(nil)

	log.Log("Wrote %d functions, %d blocks, %d DDG edges, %d provenance nodes",
		len(r.Functions), len(r.Blocks), len(r.DDGEdges), len(r.ProvenanceNodes))
	return nil
}

func createTables(conn *sqlite.Conn) error {
	ddl := `
CREATE TABLE functions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    block_count INTEGER,
    has_loop INTEGER
);

CREATE TABLE blocks (
    function_id TEXT NOT NULL,
    block_id TEXT NOT NULL,
    is_root INTEGER,
    is_conditional INTEGER,
    has_inline_assembly INTEGER,
    true_block TEXT,
    false_block TEXT,
    next_block TEXT
);

CREATE TABLE ddg_edges (
    function_id TEXT NOT NULL,
    src TEXT NOT NULL,
    src_type TEXT,
    dst TEXT NOT NULL,
    dst_type TEXT,
    label TEXT NOT NULL
);

CREATE TABLE back_edges (
    function_id TEXT NOT NULL,
    src TEXT NOT NULL,
    dst TEXT NOT NULL
);

CREATE TABLE canonical_paths (
    function_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    rendered TEXT NOT NULL
);

CREATE TABLE instantiated_paths (
    function_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    rendered TEXT NOT NULL
);

CREATE TABLE provenance_nodes (
    function_id TEXT NOT NULL,
    path_ordinal INTEGER NOT NULL,
    ordinal INTEGER NOT NULL,
    action TEXT NOT NULL,
    artifact TEXT NOT NULL,
    value_id TEXT NOT NULL
);

CREATE TABLE cdg_edges (
    function_id TEXT NOT NULL,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    kind TEXT NOT NULL
);

CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT
);
`
	return sqlitex.ExecuteScript(conn, ddl, nil)
}

func insertFunctions(conn *sqlite.Conn, rows []FunctionRow, log *telemetry.Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO functions (id, name, block_count, has_loop) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare function insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, r := range rows {
		stmt.BindText(1, r.ID)
		stmt.BindText(2, r.Name)
		stmt.BindInt64(3, int64(r.BlockCount))
		stmt.BindInt64(4, boolToInt64(r.HasLoop))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert function %s: %w", r.ID, err)
		}
		_ = stmt.Reset()
	}
	log.Verbose("  inserted %s functions", telemetry.Count(len(rows)))
	return nil
}

func insertBlocks(conn *sqlite.Conn, rows []BlockRow, log *telemetry.Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO blocks (function_id, block_id, is_root, is_conditional, has_inline_assembly, true_block, false_block, next_block) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare block insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, r := range rows {
		stmt.BindText(1, r.FunctionID)
		stmt.BindText(2, r.BlockID)
		stmt.BindInt64(3, boolToInt64(r.IsRoot))
		stmt.BindInt64(4, boolToInt64(r.IsConditional))
		stmt.BindInt64(5, boolToInt64(r.HasInlineAssembly))
		bindTextOrNull(stmt, 6, r.TrueBlock)
		bindTextOrNull(stmt, 7, r.FalseBlock)
		bindTextOrNull(stmt, 8, r.NextBlock)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert block %s: %w", r.BlockID, err)
		}
		_ = stmt.Reset()
		if (i+1)%batchSize == 0 {
			log.Verbose("  inserted %d/%d blocks", i+1, len(rows))
		}
	}
	return nil
}

func insertDDGEdges(conn *sqlite.Conn, rows []DDGEdgeRow, log *telemetry.Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO ddg_edges (function_id, src, src_type, dst, dst_type, label) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ddg edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, r := range rows {
		stmt.BindText(1, r.FunctionID)
		stmt.BindText(2, r.Src)
		bindTextOrNull(stmt, 3, r.SrcType)
		stmt.BindText(4, r.Dst)
		bindTextOrNull(stmt, 5, r.DstType)
		stmt.BindText(6, r.Label)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert ddg edge %s->%s: %w", r.Src, r.Dst, err)
		}
		_ = stmt.Reset()
		if (i+1)%batchSize == 0 {
			log.Verbose("  inserted %d/%d ddg edges", i+1, len(rows))
		}
	}
	return nil
}

func insertBackEdges(conn *sqlite.Conn, rows []BackEdgeRow, log *telemetry.Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO back_edges (function_id, src, dst) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare back edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, r := range rows {
		stmt.BindText(1, r.FunctionID)
		stmt.BindText(2, r.From)
		stmt.BindText(3, r.To)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert back edge %s->%s: %w", r.From, r.To, err)
		}
		_ = stmt.Reset()
	}
	log.Verbose("  inserted %s back edges", telemetry.Count(len(rows)))
	return nil
}

func insertPaths(conn *sqlite.Conn, table string, rows []PathRow, log *telemetry.Logger) error {
	stmt, err := conn.Prepare(fmt.Sprintf(`INSERT INTO %s (function_id, ordinal, rendered) VALUES (?, ?, ?)`, table))
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, r := range rows {
		stmt.BindText(1, r.FunctionID)
		stmt.BindInt64(2, int64(r.Ordinal))
		stmt.BindText(3, r.Rendered)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
		_ = stmt.Reset()
		if (i+1)%batchSize == 0 {
			log.Verbose("  inserted %d/%d %s", i+1, len(rows), table)
		}
	}
	return nil
}

func insertProvenanceNodes(conn *sqlite.Conn, rows []ProvenanceNodeRow, log *telemetry.Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO provenance_nodes (function_id, path_ordinal, ordinal, action, artifact, value_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare provenance insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, r := range rows {
		stmt.BindText(1, r.FunctionID)
		stmt.BindInt64(2, int64(r.PathOrdinal))
		stmt.BindInt64(3, int64(r.Ordinal))
		stmt.BindText(4, r.Action)
		stmt.BindText(5, r.Artifact)
		stmt.BindText(6, r.ValueID)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert provenance node: %w", err)
		}
		_ = stmt.Reset()
		if (i+1)%batchSize == 0 {
			log.Verbose("  inserted %d/%d provenance nodes", i+1, len(rows))
		}
	}
	return nil
}

func insertCDGEdges(conn *sqlite.Conn, rows []CDGEdgeRow, log *telemetry.Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO cdg_edges (function_id, source, target, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cdg edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, r := range rows {
		stmt.BindText(1, r.FunctionID)
		stmt.BindText(2, r.Source)
		stmt.BindText(3, r.Target)
		stmt.BindText(4, r.Kind)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert cdg edge: %w", err)
		}
		_ = stmt.Reset()
		if (i+1)%batchSize == 0 {
			log.Verbose("  inserted %d/%d cdg edges", i+1, len(rows))
		}
	}
	return nil
}

func insertMeta(conn *sqlite.Conn, r Report) error {
	stmt, err := conn.Prepare(`INSERT INTO meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare meta insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	rows := [][2]string{
		{"run_id", r.RunID},
		{"source_dir", r.SourceDir},
	}
	for _, kv := range rows {
		stmt.BindText(1, kv[0])
		stmt.BindText(2, kv[1])
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert meta %s: %w", kv[0], err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
	} else {
		stmt.BindText(param, val)
	}
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
