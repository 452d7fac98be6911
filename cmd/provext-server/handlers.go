package main

import (
	"encoding/json"
	"net/http"
)

func (a *App) handleFunctions(w http.ResponseWriter, r *http.Request) {
	funcs, err := a.db.Functions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, funcs)
}

func (a *App) handleDDG(w http.ResponseWriter, r *http.Request) {
	fn := r.URL.Query().Get("function")
	if fn == "" {
		http.Error(w, "missing query parameter function", http.StatusBadRequest)
		return
	}
	edges, err := a.db.DDGEdges(fn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, edges)
}

func (a *App) handlePaths(w http.ResponseWriter, r *http.Request) {
	fn := r.URL.Query().Get("function")
	if fn == "" {
		http.Error(w, "missing query parameter function", http.StatusBadRequest)
		return
	}
	table := "instantiated_paths"
	if r.URL.Query().Get("canonical") == "true" {
		table = "canonical_paths"
	}
	paths, err := a.db.Paths(table, fn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, paths)
}

func (a *App) handleProvenance(w http.ResponseWriter, r *http.Request) {
	fn := r.URL.Query().Get("function")
	if fn == "" {
		http.Error(w, "missing query parameter function", http.StatusBadRequest)
		return
	}
	nodes, err := a.db.Provenance(fn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, nodes)
}

func (a *App) handleReachable(w http.ResponseWriter, r *http.Request) {
	fn := r.URL.Query().Get("function")
	src := r.URL.Query().Get("src")
	dst := r.URL.Query().Get("dst")
	if fn == "" || src == "" || dst == "" {
		http.Error(w, "missing query parameters function, src, dst", http.StatusBadRequest)
		return
	}
	ok, err := a.db.Reachable(fn, src, dst)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"reachable": ok})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
