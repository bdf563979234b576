package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/seekwell/seekwell/internal/auth"
)

// handleLoad bulk-indexes a JSON array of documents into the path index.
func handleLoad(deps *Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Loader == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "LOAD_NOT_CONFIGURED", "bulk loader is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleCurator); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	index := strings.TrimSpace(r.PathValue("index"))
	if index == "" || strings.HasPrefix(index, ".") {
		writeError(r.Context(), w, http.StatusBadRequest, "INDEX_INVALID", "index name is missing or reserved", false, nil)
		return
	}

	var docs []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON array of documents", false, map[string]any{"details": err.Error()})
		return
	}
	if len(docs) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "DOCUMENTS_REQUIRED", "at least one document is required", false, nil)
		return
	}

	indexed, err := deps.Loader.BulkIndex(r.Context(), index, docs)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "LOAD_FAILED", "bulk indexing failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"index":    index,
		"received": len(docs),
		"indexed":  indexed,
	})
}
