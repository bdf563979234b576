package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seekwell/seekwell/internal/auth"
	"github.com/seekwell/seekwell/internal/config"
	"github.com/seekwell/seekwell/internal/dictionary"
	"github.com/seekwell/seekwell/internal/observability"
	"github.com/seekwell/seekwell/internal/search"
	"github.com/seekwell/seekwell/internal/translate"
)

type ReadinessCheck func(ctx context.Context) error

// QueryExecutor runs a SQL statement against the store.
type QueryExecutor interface {
	SQLQuery(ctx context.Context, sql string) (search.Table, error)
}

// BulkLoader writes documents into an index.
type BulkLoader interface {
	BulkIndex(ctx context.Context, index string, docs []json.RawMessage) (int, error)
}

// QuestionTranslator turns a question into a SQL statement over the
// dictionary entries of one index.
type QuestionTranslator interface {
	Translate(ctx context.Context, question, index, today string, dict dictionary.Dictionary) (translate.Result, error)
}

// ResultSummarizer answers a question from a query result.
type ResultSummarizer interface {
	Summarize(ctx context.Context, question string, table search.Table) (string, error)
}

// DictionaryBuilder produces a fresh dictionary over every user index.
type DictionaryBuilder interface {
	Build(ctx context.Context) (dictionary.Dictionary, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration

	Executor   QueryExecutor
	Loader     BulkLoader
	Translator QuestionTranslator
	Summarizer ResultSummarizer
	Builder    DictionaryBuilder

	// Snapshot is the served dictionary; rebuilds replace it atomically.
	Snapshot *dictionary.Snapshot
	// DictionaryPath, when set, persists rebuilt dictionaries to disk.
	DictionaryPath string

	// Now stamps translation prompts with today's date. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time

	rebuildMu sync.Mutex
}

func NewHandler(cfg config.Config, deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	protected.HandleFunc("POST /v1/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslate(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	protected.HandleFunc("GET /v1/dictionary", func(w http.ResponseWriter, r *http.Request) {
		handleGetDictionary(deps, w, r)
	})
	protected.HandleFunc("POST /v1/dictionary/rebuild", func(w http.ResponseWriter, r *http.Request) {
		handleRebuildDictionary(deps, w, r)
	})
	protected.HandleFunc("POST /v1/load/{index}", func(w http.ResponseWriter, r *http.Request) {
		handleLoad(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/ask", protectedHandler)
	mux.Handle("POST /v1/translate", protectedHandler)
	mux.Handle("POST /v1/query", protectedHandler)
	mux.Handle("GET /v1/dictionary", protectedHandler)
	mux.Handle("POST /v1/dictionary/rebuild", protectedHandler)
	mux.Handle("POST /v1/load/{index}", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func (d *Dependencies) today() string {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return now().UTC().Format("2006-01-02")
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
