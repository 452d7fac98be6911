// Command provext runs the provenance-edge extraction pipeline over a Go
// module's SSA form: DDG construction, CFG/loop/path analysis, and
// provenance reduction, writing the CSV dumps required by spec.md §6 plus
// an optional SQLite database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/monowaranjum/rpe-llvm-impl/internal/cdg"
	"github.com/monowaranjum/rpe-llvm-impl/internal/cfg"
	"github.com/monowaranjum/rpe-llvm-impl/internal/config"
	"github.com/monowaranjum/rpe-llvm-impl/internal/ddg"
	"github.com/monowaranjum/rpe-llvm-impl/internal/ir"
	"github.com/monowaranjum/rpe-llvm-impl/internal/ir/ssaadapter"
	"github.com/monowaranjum/rpe-llvm-impl/internal/loop"
	"github.com/monowaranjum/rpe-llvm-impl/internal/path"
	"github.com/monowaranjum/rpe-llvm-impl/internal/provenance"
	"github.com/monowaranjum/rpe-llvm-impl/internal/store"
	"github.com/monowaranjum/rpe-llvm-impl/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the real entry point, kept separate from main so deferred cleanup
// always runs regardless of which error path returns.
func run() error {
	verbose := flag.Bool("verbose", false, "Print detailed progress")
	configPath := flag.String("config", "", "Path to YAML config overriding limits and the relevant-function table")
	workers := flag.Int("workers", 4, "Max functions analyzed concurrently")
	dbPath := flag.String("db", "", "Optional SQLite output path (domain expansion; omit to skip)")
	outDir := flag.String("out", ".", "Directory to write ddgedges.txt and prov_edges.txt into")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: provext [flags] <module-dir>\n\n")
		fmt.Fprintf(os.Stderr, "Extracts data-dependency graphs, instantiated CFG paths, and provenance\nedges from a Go module's SSA form.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected 1 argument, got %d", flag.NArg())
	}
	moduleDir, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid module dir: %w", err)
	}

	debug.SetMemoryLimit(4 * 1024 * 1024 * 1024)

	log := telemetry.New(*verbose)

	cfgData, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log.Log("Run %s: analyzing %s", runID, moduleDir)

	mod, err := ssaadapter.Load(moduleDir)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	report, ddgRows, provRows, err := analyzeModule(context.Background(), mod, cfgData, *workers, log)
	if err != nil {
		return err
	}
	report.RunID = runID
	report.SourceDir = moduleDir

	if err := store.WriteDDGCSV(filepath.Join(*outDir, "ddgedges.txt"), ddgRows); err != nil {
		return err
	}
	if err := store.WriteProvenanceCSV(filepath.Join(*outDir, "prov_edges.txt"), provRows); err != nil {
		return err
	}

	if *dbPath != "" {
		if err := store.WriteDB(*dbPath, report, log); err != nil {
			return err
		}
	}

	log.Log("Done. %d functions, %d DDG edges, %d instantiated paths.",
		len(report.Functions), len(report.DDGEdges), len(report.InstantiatedPaths))
	return nil
}

// funcAnalysis is the first-pass output for one function: its CFG/ABB
// model, loop analysis, canonical and instantiated paths, and CDG edges.
// Provenance reduction runs in a second pass once the module-scoped DDG
// (merged across every function, per spec §3's lifecycle note) is final.
type funcAnalysis struct {
	id                string
	name              string
	graph             cfg.Graph
	abbs              map[string]*cfg.ABB
	root              string
	loopResult        loop.Result
	canonicalPaths    [][]string
	instantiatedPaths [][]path.Token
	cdgResult         cdg.Result
}

// analyzeModule runs the full pipeline over every function in mod, bounded
// to workers concurrent analyses per spec §5 ("Implementations MAY
// parallelize across functions because per-function state ... is
// disjoint"); the module-scoped DDG is merged under a mutex (the
// single-writer discipline spec §5 requires when sharing it across
// threads).
func analyzeModule(ctx context.Context, mod ir.Module, cfgData config.Config, workers int, log *telemetry.Logger) (store.Report, []store.DDGEdgeRow, []store.ProvenanceRow, error) {
	funcs := mod.Functions()
	log.Log("Analyzing %d functions (%d workers)...", len(funcs), workers)

	moduleDDG := ddg.New()
	var ddgMu sync.Mutex

	var analyses []funcAnalysis
	var analysesMu sync.Mutex

	var report store.Report
	var ddgRows []store.DDGEdgeRow
	var reportMu sync.Mutex

	sem := semaphore.NewWeighted(int64(maxInt(workers, 1)))
	g := new(errgroup.Group)

	for _, fn := range funcs {
		fn := fn
		if err := sem.Acquire(ctx, 1); err != nil {
			return report, ddgRows, nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			return analyzeFunction(fn, cfgData, log, moduleDDG, &ddgMu, &analyses, &analysesMu, &report, &ddgRows, &reportMu)
		})
	}
	if err := g.Wait(); err != nil {
		return report, ddgRows, nil, err
	}

	// Per-function analyses finish in whatever order the worker pool
	// schedules them; sort everything by function id so CSV/DB output is
	// reproducible across runs instead of depending on goroutine timing.
	sort.Slice(analyses, func(i, j int) bool { return analyses[i].id < analyses[j].id })
	sortReportByFunction(&report)
	sort.SliceStable(ddgRows, func(i, j int) bool { return ddgRows[i].FunctionID < ddgRows[j].FunctionID })

	log.Log("Reducing provenance over %d functions...", len(analyses))
	var provRows []store.ProvenanceRow
	for _, a := range analyses {
		for pi, instPath := range a.instantiatedPaths {
			blocks := blocksOf(instPath)
			stream := provenance.Reduce(blocks, a.abbs, moduleDDG, cfgData.Table)
			for oi, node := range stream {
				report.ProvenanceNodes = append(report.ProvenanceNodes, store.ProvenanceNodeRow{
					FunctionID:  a.id,
					PathOrdinal: pi,
					Ordinal:     oi,
					Action:      node.Action,
					Artifact:    node.Artifact,
					ValueID:     node.ID,
				})
				provRows = append(provRows, store.ProvenanceRow{
					Action:   node.Action,
					Artifact: node.Artifact,
					ID:       node.ID,
				})
			}
		}
	}

	return report, ddgRows, provRows, nil
}

// analyzeFunction runs C1 (DDG), C2a-c (CFG/loop/path), and C2d (CDG) for
// one function, recording results into the shared accumulators.
func analyzeFunction(
	fn ir.Function,
	cfgData config.Config,
	log *telemetry.Logger,
	moduleDDG *ddg.Graph,
	ddgMu *sync.Mutex,
	analyses *[]funcAnalysis,
	analysesMu *sync.Mutex,
	report *store.Report,
	ddgRows *[]store.DDGEdgeRow,
	reportMu *sync.Mutex,
) error {
	name := fn.Name()

	builder := ddg.NewBuilder(log)
	builder.Visit(fn)

	graph, abbs, root := cfg.Extract(fn)
	lr := loop.Analyze(graph, root)

	canonicalPaths, err := path.Canonical(graph, root, lr, abbs, cfgData.Limits)
	if err != nil {
		log.Warn("function %s: canonical path enumeration truncated: %v", name, err)
	}

	subPaths, err := path.LoopSubPaths(lr.DAG, lr, cfgData.Limits)
	if err != nil {
		log.Warn("function %s: loop sub-path enumeration truncated: %v", name, err)
	}

	headerSet := make(map[string]bool, len(lr.Headers))
	for _, h := range lr.Headers {
		headerSet[h] = true
	}

	var instantiated [][]path.Token
	for _, cp := range canonicalPaths {
		exp, err := path.Expand(cp, subPaths, headerSet, cfgData.Limits)
		if err != nil {
			log.Warn("function %s: path expansion truncated: %v", name, err)
		}
		instantiated = append(instantiated, exp...)
	}

	blockOrder := make([]string, 0, len(fn.Blocks()))
	for _, b := range fn.Blocks() {
		blockOrder = append(blockOrder, b.ID())
	}
	cdgResult := cdg.Extract(graph, blockOrder)

	ddgMu.Lock()
	moduleDDG.Merge(builder.Graph)
	ddgMu.Unlock()

	analysesMu.Lock()
	*analyses = append(*analyses, funcAnalysis{
		id:                name,
		name:              name,
		graph:             graph,
		abbs:              abbs,
		root:              root,
		loopResult:        lr,
		canonicalPaths:    canonicalPaths,
		instantiatedPaths: instantiated,
		cdgResult:         cdgResult,
	})
	analysesMu.Unlock()

	reportMu.Lock()
	defer reportMu.Unlock()

	report.Functions = append(report.Functions, store.FunctionRow{
		ID:         name,
		Name:       name,
		BlockCount: len(fn.Blocks()),
		HasLoop:    lr.HasLoop,
	})
	for id, abb := range abbs {
		report.Blocks = append(report.Blocks, store.BlockRow{
			FunctionID:        name,
			BlockID:           id,
			IsRoot:            abb.IsRoot,
			IsConditional:     abb.IsConditional,
			HasInlineAssembly: abb.HasInlineAssembly,
			TrueBlock:         abb.TrueBlock,
			FalseBlock:        abb.FalseBlock,
			NextBlock:         abb.NextBlock,
		})
	}
	for val, edges := range builder.Graph.Edges {
		for _, e := range edges {
			row := store.DDGEdgeRow{
				FunctionID: name,
				Src:        val,
				SrcType:    builder.Graph.TypeMap[val],
				Dst:        e.To,
				DstType:    builder.Graph.TypeMap[e.To],
				Label:      e.Label,
			}
			report.DDGEdges = append(report.DDGEdges, row)
			*ddgRows = append(*ddgRows, row)
		}
	}
	for latch, edges := range lr.BackEdges {
		for _, e := range edges {
			_ = latch
			report.BackEdges = append(report.BackEdges, store.BackEdgeRow{
				FunctionID: name,
				From:       e.From,
				To:         e.To,
			})
		}
	}
	for i, p := range canonicalPaths {
		report.CanonicalPaths = append(report.CanonicalPaths, store.PathRow{
			FunctionID: name,
			Ordinal:    i,
			Rendered:   renderBlockPath(p),
		})
	}
	for i, p := range instantiated {
		report.InstantiatedPaths = append(report.InstantiatedPaths, store.PathRow{
			FunctionID: name,
			Ordinal:    i,
			Rendered:   renderTokenPath(p),
		})
	}
	for _, e := range cdgResult.ControlDependence {
		report.CDGEdges = append(report.CDGEdges, store.CDGEdgeRow{FunctionID: name, Source: e.Source, Target: e.Target, Kind: "cdg"})
	}
	for _, e := range cdgResult.PostDominator {
		report.CDGEdges = append(report.CDGEdges, store.CDGEdgeRow{FunctionID: name, Source: e.Source, Target: e.Target, Kind: "pdom"})
	}

	return nil
}

func blocksOf(tokens []path.Token) []string {
	var blocks []string
	for _, t := range tokens {
		if t.Kind == path.TokenBlock {
			blocks = append(blocks, t.Block)
		}
	}
	return blocks
}

func renderBlockPath(blocks []string) string {
	s := ""
	for i, b := range blocks {
		if i > 0 {
			s += " -> "
		}
		s += b
	}
	return s
}

func renderTokenPath(tokens []path.Token) string {
	s := ""
	for i, t := range tokens {
		if i > 0 {
			s += " -> "
		}
		switch t.Kind {
		case path.TokenLoopStart:
			s += "LOOP_START"
		case path.TokenLoopEnd:
			s += "LOOP_END"
		default:
			s += t.Block
		}
	}
	return s
}

// sortReportByFunction stable-sorts every per-function slice in r by
// FunctionID, preserving each function's own row order.
func sortReportByFunction(r *store.Report) {
	sort.SliceStable(r.Functions, func(i, j int) bool { return r.Functions[i].ID < r.Functions[j].ID })
	sort.SliceStable(r.Blocks, func(i, j int) bool { return r.Blocks[i].FunctionID < r.Blocks[j].FunctionID })
	sort.SliceStable(r.DDGEdges, func(i, j int) bool { return r.DDGEdges[i].FunctionID < r.DDGEdges[j].FunctionID })
	sort.SliceStable(r.BackEdges, func(i, j int) bool { return r.BackEdges[i].FunctionID < r.BackEdges[j].FunctionID })
	sort.SliceStable(r.CanonicalPaths, func(i, j int) bool { return r.CanonicalPaths[i].FunctionID < r.CanonicalPaths[j].FunctionID })
	sort.SliceStable(r.InstantiatedPaths, func(i, j int) bool { return r.InstantiatedPaths[i].FunctionID < r.InstantiatedPaths[j].FunctionID })
	sort.SliceStable(r.CDGEdges, func(i, j int) bool { return r.CDGEdges[i].FunctionID < r.CDGEdges[j].FunctionID })
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
