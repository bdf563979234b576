package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/seekwell/seekwell/internal/auth"
	"github.com/seekwell/seekwell/internal/dictionary"
	"github.com/seekwell/seekwell/internal/search"
)

type askRequest struct {
	Question  string `json:"question"`
	Index     string `json:"index"`
	Summarize *bool  `json:"summarize"`
}

type askResponse struct {
	Question  string   `json:"question"`
	Index     string   `json:"index"`
	Reasoning string   `json:"reasoning"`
	Query     string   `json:"query"`
	NoQuery   bool     `json:"no_query,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	Rows      [][]any  `json:"rows,omitempty"`
	Answer    string   `json:"answer,omitempty"`
}

// handleAsk runs the full pipeline: translate the question, execute the
// query, and summarize the result.
func handleAsk(deps *Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil || deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	if strings.TrimSpace(request.Index) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INDEX_REQUIRED", "index is required", false, nil)
		return
	}

	dict, ok := translatableDictionary(deps, w, r, request.Index)
	if !ok {
		return
	}

	result, err := deps.Translator.Translate(r.Context(), request.Question, request.Index, deps.today(), dict)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATION_FAILED", "question translation failed", true, map[string]any{"details": err.Error()})
		return
	}

	response := askResponse{
		Question:  request.Question,
		Index:     request.Index,
		Reasoning: result.Reasoning,
		Query:     result.Query,
	}
	if result.Query == "" {
		// The model produced no statement; nothing to execute.
		response.NoQuery = true
		writeJSON(w, http.StatusOK, response)
		return
	}
	if !isAllowedSQL(result.Query) {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "QUERY_NOT_READ_ONLY", "translated query is not a read-only statement", false, map[string]any{"query": result.Query})
		return
	}

	table, err := deps.Executor.SQLQuery(r.Context(), result.Query)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "translated query failed to execute", false, map[string]any{
			"details": err.Error(),
			"query":   result.Query,
		})
		return
	}
	response.Columns = table.Columns
	response.Rows = table.Rows

	if request.Summarize == nil || *request.Summarize {
		if deps.Summarizer == nil {
			writeError(r.Context(), w, http.StatusNotImplemented, "SUMMARY_NOT_CONFIGURED", "summarizer is not configured", false, nil)
			return
		}
		answer, err := deps.Summarizer.Summarize(r.Context(), request.Question, table)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "SUMMARY_FAILED", "result summarization failed", true, map[string]any{"details": err.Error()})
			return
		}
		response.Answer = answer
	}

	writeJSON(w, http.StatusOK, response)
}

type translateRequest struct {
	Question string `json:"question"`
	Index    string `json:"index"`
}

func handleTranslate(deps *Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "translator is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request translateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translate request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	if strings.TrimSpace(request.Index) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INDEX_REQUIRED", "index is required", false, nil)
		return
	}

	dict, ok := translatableDictionary(deps, w, r, request.Index)
	if !ok {
		return
	}

	result, err := deps.Translator.Translate(r.Context(), request.Question, request.Index, deps.today(), dict)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATION_FAILED", "question translation failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question":  request.Question,
		"index":     request.Index,
		"reasoning": result.Reasoning,
		"query":     result.Query,
		"no_query":  result.Query == "",
	})
}

type queryRequest struct {
	SQL string `json:"sql"`
}

func handleQuery(deps *Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query executor is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAsker); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	if !isAllowedSQL(request.SQL) {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only read-only SELECT/SHOW queries are allowed", false, nil)
		return
	}

	table, err := deps.Executor.SQLQuery(r.Context(), request.SQL)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, search.Table{Columns: table.Columns, Rows: table.Rows})
}

// translatableDictionary resolves the dictionary entries a translation
// needs, answering the request itself when they are missing: an unbuilt
// dictionary is a 409 the client resolves by rebuilding, an unknown index
// a 404.
func translatableDictionary(deps *Dependencies, w http.ResponseWriter, r *http.Request, index string) (dictionary.Dictionary, bool) {
	var dict dictionary.Dictionary
	if deps.Snapshot != nil {
		dict = deps.Snapshot.Current()
	}
	if len(dict) == 0 {
		writeError(r.Context(), w, http.StatusConflict, "DICTIONARY_EMPTY", "dictionary has not been built yet; rebuild it via POST /v1/dictionary/rebuild", false, nil)
		return nil, false
	}
	if len(dict.ForIndex(index)) == 0 {
		writeError(r.Context(), w, http.StatusNotFound, "INDEX_NOT_FOUND", "no dictionary entries for index", false, map[string]any{"index": index})
		return nil, false
	}
	return dict, true
}

func isAllowedSQL(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "show")
}
