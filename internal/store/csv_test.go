package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteDDGCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ddgedges.txt")

	rows := []DDGEdgeRow{
		{Src: "%x", SrcType: "i32", Dst: "%1", DstType: "i32*", Label: "store"},
		{Src: "%1", SrcType: "i32*", Dst: "%2", DstType: "i32", Label: "load"},
	}
	if err := WriteDDGCSV(path, rows); err != nil {
		t.Fatalf("WriteDDGCSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "%x,i32,%1,i32*,store\n%1,i32*,%2,i32,load\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestWriteProvenanceCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prov_edges.txt")

	rows := []ProvenanceRow{
		{Action: "load", Artifact: "FILE", ID: "process_name_start"},
		{Action: "fopen", Artifact: "FILE", ID: "%f"},
	}
	if err := WriteProvenanceCSV(path, rows); err != nil {
		t.Fatalf("WriteProvenanceCSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "load,FILE,process_name_start\nfopen,FILE,%f\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}
