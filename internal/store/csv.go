// Package store serializes analysis output: the two required CSV dumps
// (spec.md §6), comma-separated and LF-terminated, and an optional
// PRAGMA-tuned SQLite database (domain expansion).
package store

import (
	"bufio"
	"fmt"
	"os"
)

// DDGEdgeRow is one DDG edge. FunctionID scopes it for the SQLite writer;
// the CSV dump (spec §6) omits it, emitting only src,src_type,dst,dst_type,label.
type DDGEdgeRow struct {
	FunctionID                        string
	Src, SrcType, Dst, DstType, Label string
}

// ProvenanceRow is one row of prov_edges.txt: action,artifact,id.
type ProvenanceRow struct {
	Action, Artifact, ID string
}

// WriteDDGCSV writes the DDG edge dump required by spec §6.
func WriteDDGCSV(path string, rows []DDGEdgeRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range rows {
		fmt.Fprintf(w, "%s,%s,%s,%s,%s\n", r.Src, r.SrcType, r.Dst, r.DstType, r.Label)
	}
	return w.Flush()
}

// WriteProvenanceCSV writes the provenance event dump required by spec §6.
func WriteProvenanceCSV(path string, rows []ProvenanceRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range rows {
		fmt.Fprintf(w, "%s,%s,%s\n", r.Action, r.Artifact, r.ID)
	}
	return w.Flush()
}
