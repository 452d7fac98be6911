// Package provenance reduces a path into a sequence of domain-relevant
// side-effect events (C3), unifying object identities across events via
// load/store/truncate reachability in the DDG.
package provenance

import (
	"github.com/monowaranjum/rpe-llvm-impl/internal/cfg"
	"github.com/monowaranjum/rpe-llvm-impl/internal/ddg"
)

// ResultArgIndex is the sentinel meaning "use the call's result value"
// rather than a positional argument (spec §4.6: "-1" rows of the table).
const ResultArgIndex = -1

// Entry is one row of the relevant-function table: a tracked call, the
// artifact class it touches, and which value carries the object identity.
type Entry struct {
	Artifact string
	ArgIndex int
}

// Table maps a callee name to its Entry. Deployments MAY replace or extend
// it (spec §6); DefaultTable returns the built-in seed.
type Table map[string]Entry

// DefaultTable is the built-in relevant-function table of spec §4.6.
func DefaultTable() Table {
	return Table{
		"open":   {Artifact: "FILE", ArgIndex: ResultArgIndex},
		"read":   {Artifact: "FILE", ArgIndex: 0},
		"write":  {Artifact: "FILE", ArgIndex: 0},
		"close":  {Artifact: "FILE", ArgIndex: 0},
		"fopen":  {Artifact: "FILE", ArgIndex: ResultArgIndex},
		"fread":  {Artifact: "FILE", ArgIndex: 0},
		"fwrite": {Artifact: "FILE", ArgIndex: 0},
		"fclose": {Artifact: "FILE", ArgIndex: 0},
	}
}

// Node is one provenance tuple: (action, artifact, id).
type Node struct {
	Action   string
	Artifact string
	ID       string
}

// Stream is an ordered provenance event sequence anchored at one subject
// (the process), per spec §3.
type Stream []Node

const (
	processStartID = "process_name_start"
	processExitID  = "process_name_exit"
	processSubject = "process_name"
)

// Reduce walks a single path (a canonical BlockId sequence; callers decide
// whether to invoke this once per canonical path or once per instantiated
// path — spec §9 open question (b)), emitting and then unifying provenance
// nodes per spec §4.6.
func Reduce(blocks []string, abbs map[string]*cfg.ABB, graph *ddg.Graph, table Table) Stream {
	stream := Stream{
		{Action: "load", Artifact: "FILE", ID: processStartID},
	}

	for _, b := range blocks {
		abb := abbs[b]
		if abb == nil {
			continue
		}
		for _, inst := range abb.Instructions {
			name := inst.CalleeName()
			if name == "" {
				continue
			}
			entry, ok := table[name]
			if !ok {
				continue
			}
			var id string
			if entry.ArgIndex == ResultArgIndex {
				id = inst.Result().ID()
			} else {
				args := inst.CallArgs()
				if entry.ArgIndex < len(args) {
					id = args[entry.ArgIndex].ID()
				}
			}
			stream = append(stream, Node{Action: name, Artifact: entry.Artifact, ID: id})
		}
	}

	stream = append(stream, Node{Action: "exit", Artifact: "PROCESS", ID: processExitID})

	return unify(stream, graph)
}

// unify implements spec §4.6 step 4 ("Identity unification"): maintain a
// set of canonical ids seen so far, seeded with the process subject; for
// each node in order, rewrite its id to the first previously-seen id it is
// load/store/truncate-reachable from, else add it to the seen set.
// Deterministic left-to-right order over the seen set keeps the algorithm
// stable across runs (spec §8 property 8).
func unify(stream Stream, graph *ddg.Graph) Stream {
	seen := []string{processSubject}
	seenSet := map[string]bool{processSubject: true}

	out := make(Stream, len(stream))
	for i, node := range stream {
		rewritten := node.ID
		for _, u := range seen {
			if ddg.Reachable(graph, u, node.ID) {
				rewritten = u
				break
			}
		}
		if rewritten == node.ID && !seenSet[node.ID] {
			seen = append(seen, node.ID)
			seenSet[node.ID] = true
		}
		out[i] = Node{Action: node.Action, Artifact: node.Artifact, ID: rewritten}
	}
	return out
}
