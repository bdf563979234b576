package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/seekwell/seekwell/internal/auth"
	"github.com/seekwell/seekwell/internal/dictionary"
	"github.com/seekwell/seekwell/internal/observability"
)

func handleGetDictionary(deps *Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Snapshot == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DICTIONARY_NOT_CONFIGURED", "dictionary snapshot is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	dict := deps.Snapshot.Current()
	if index := strings.TrimSpace(r.URL.Query().Get("index")); index != "" {
		dict = dict.ForIndex(index)
		if len(dict) == 0 {
			writeError(r.Context(), w, http.StatusNotFound, "INDEX_NOT_FOUND", "no dictionary entries for index", false, map[string]any{"index": index})
			return
		}
	}
	if dict == nil {
		dict = dictionary.Dictionary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": dict,
		"indices": dict.Indices(),
	})
}

// handleRebuildDictionary rebuilds synchronously and swaps the served
// snapshot on success. Concurrent rebuilds are rejected rather than queued.
func handleRebuildDictionary(deps *Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Builder == nil || deps.Snapshot == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "REBUILD_NOT_CONFIGURED", "dictionary builder is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleCurator); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	if !deps.rebuildMu.TryLock() {
		writeError(r.Context(), w, http.StatusConflict, "REBUILD_IN_PROGRESS", "a dictionary rebuild is already running", true, nil)
		return
	}
	defer deps.rebuildMu.Unlock()

	start := time.Now()
	dict, err := deps.Builder.Build(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "REBUILD_FAILED", "dictionary rebuild failed", true, map[string]any{"details": err.Error()})
		return
	}
	deps.Snapshot.Replace(dict)

	if deps.DictionaryPath != "" {
		if err := dictionary.Save(deps.DictionaryPath, dict); err != nil {
			// The in-memory snapshot already serves the new dictionary.
			if deps.Logger != nil {
				observability.WithTrace(r.Context(), deps.Logger).ErrorContext(r.Context(), "persist rebuilt dictionary failed",
					slog.String("path", deps.DictionaryPath),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     len(dict),
		"indices":     dict.Indices(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
