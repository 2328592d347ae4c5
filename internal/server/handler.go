package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chriscorrea/tally/internal/config"
	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/fetch"

	"github.com/gorilla/websocket"
)

const (
	// multipartMemory is the part of a multipart body kept in memory; the rest
	// spills to temporary files removed when the request ends.
	multipartMemory = 32 << 20
	// maxUploadFiles bounds the request body to this many maximum-size files.
	maxUploadFiles = 64
)

// Handler serves the tally routes.
type Handler struct {
	documents fetch.Options
	origins   []string
	cache     *resultCache
	upgrader  websocket.Upgrader

	requests atomic.Int64
	failures atomic.Int64
	sessions atomic.Int64
}

// NewHandler builds a Handler from cfg.
func NewHandler(cfg *config.Config) (*Handler, error) {
	cache, err := newResultCache(cfg.Server.CacheSize)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		documents: cfg.Documents.FetchOptions(),
		origins:   cfg.Server.AllowedOrigins,
		cache:     cache,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h, nil
}

// Routes returns the mux wrapped in the request-id and CORS middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /all", h.handleTally(engine.All))
	mux.HandleFunc("POST /per", h.handleTally(engine.Per))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /ws", h.handleSession)
	return withRequestID(cors(h.origins, mux))
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

func (h *Handler) handleTally(scope engine.Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)

		r.Body = http.MaxBytesReader(w, r.Body, h.documents.MaxBytes*maxUploadFiles)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: malformed multipart form: %w", engine.ErrInvalidInput, err))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		cfg, err := parseForm(r, scope)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		docs, err := h.readUploads(r.MultipartForm.File["file"])
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		out, err := h.run(docs, cfg)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// parseForm reads the engine settings from the form. Scope comes from the route.
func parseForm(r *http.Request, scope engine.Scope) (engine.Config, error) {
	formValue := func(keys ...string) string {
		for _, key := range keys {
			if v := strings.TrimSpace(r.FormValue(key)); v != "" {
				return v
			}
		}
		return ""
	}

	limit, err := formInt(formValue("k", "limit"), "k")
	if err != nil {
		return engine.Config{}, err
	}
	keywords, err := formInt(formValue("keywords"), "keywords")
	if err != nil {
		return engine.Config{}, err
	}
	var skipNotices bool
	if v := formValue("skipNotices"); v != "" {
		skipNotices, err = strconv.ParseBool(v)
		if err != nil {
			return engine.Config{}, fmt.Errorf("%w: skipNotices must be a boolean, got %q", engine.ErrInvalidInput, v)
		}
	}

	return engine.ParseConfig(engine.Options{
		Scope:       scope.String(),
		Order:       formValue("order"),
		Unit:        formValue("find", "unit"),
		Limit:       limit,
		Match:       formValue("match"),
		Keywords:    keywords,
		SkipNotices: skipNotices,
	})
}

// formInt parses an optional integer field; empty means 0.
func formInt(v, field string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", engine.ErrInvalidInput, field, v)
	}
	return n, nil
}

// readUploads validates every uploaded file and fails if any is invalid.
func (h *Handler) readUploads(files []*multipart.FileHeader) ([]engine.Document, error) {
	docs := make([]engine.Document, 0, len(files))
	for _, fh := range files {
		doc, err := h.readUpload(fh)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	docs = fetch.Dedupe(docs)
	if err := fetch.CheckAll(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (h *Handler) readUpload(fh *multipart.FileHeader) (engine.Document, error) {
	if err := h.documents.Validate(fh.Filename, fh.Size); err != nil {
		return engine.Document{Name: fh.Filename}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return engine.Document{}, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	return fetch.Read(f, fh.Filename, fh.Header.Get("Content-Type"), h.documents)
}

// run consults the cache before calling the engine.
func (h *Handler) run(docs []engine.Document, cfg engine.Config) (engine.Output, error) {
	key := cacheKey(docs, cfg)
	if out, ok := h.cache.Get(key); ok {
		return out, nil
	}
	out, err := engine.Run(docs, cfg)
	if err != nil {
		return engine.Output{}, err
	}
	h.cache.Add(key, out)
	return out, nil
}

type healthResponse struct {
	Status   string     `json:"status"`
	Requests int64      `json:"requests"`
	Failures int64      `json:"failures"`
	Sessions int64      `json:"sessions"`
	Cache    cacheStats `json:"cache"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Requests: h.requests.Load(),
		Failures: h.failures.Load(),
		Sessions: h.sessions.Load(),
		Cache:    h.cache.Stats(),
	})
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, engine.ErrInvalidInput), errors.Is(err, fetch.ErrInvalidDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.failures.Add(1)
	code := statusFor(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		message = "internal server error"
	}
	writeJSON(w, code, errorResponse{
		StatusCode: code,
		Message:    message,
		Error:      http.StatusText(code),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}
