// Package api exposes documents over HTTP: reads, admin writes and a
// websocket change feed.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/tendant/site-content/pkg/sitecontent"
)

// MaxPayloadSize caps a PUT body.
const MaxPayloadSize = 1 << 20

// DocumentInfo describes a registered document
type DocumentInfo struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	PrimaryKey string   `json:"primary_key"`
	StoreKeys  []string `json:"store_keys"`
	RemoteURL  string   `json:"remote_url,omitempty"`
}

// DocumentResponse is a resolved document
type DocumentResponse struct {
	Key        string                 `json:"key"`
	SourceTier sitecontent.SourceTier `json:"source_tier"`
	LoadedAt   time.Time              `json:"loaded_at"`
	Payload    map[string]any         `json:"payload"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Path  string `json:"path,omitempty"`
}

// Handler serves the document API
type Handler struct {
	service   sitecontent.ContentService
	logger    *slog.Logger
	tokenAuth *jwtauth.JWTAuth
	admin     []Middleware
	upgrader  websocket.Upgrader
	pingEvery time.Duration
}

// Option configures the handler
type Option func(*Handler)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithTokenAuth protects admin routes with JWTs
func WithTokenAuth(tokenAuth *jwtauth.JWTAuth) Option {
	return func(h *Handler) {
		h.tokenAuth = tokenAuth
	}
}

// WithAdminMiddleware adds middleware to the admin group, e.g. an API key check
func WithAdminMiddleware(mw ...Middleware) Option {
	return func(h *Handler) {
		h.admin = append(h.admin, mw...)
	}
}

// WithAllowedOrigins sets the origins allowed to open the change feed.
// Without it only same-origin upgrades are accepted.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed["*"] || allowed[r.Header.Get("Origin")]
		}
	}
}

// NewHandler creates a new document handler
func NewHandler(service sitecontent.ContentService, opts ...Option) *Handler {
	h := &Handler{
		service:   service,
		logger:    slog.Default(),
		pingEvery: 30 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the routes for documents. Admin routes are only mounted
// when token auth or admin middleware is configured.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/{key}", h.GetDocument)
	r.Post("/documents/{key}/refresh", h.RefreshDocument)
	r.Get("/changes", h.Changes)

	if h.tokenAuth != nil || len(h.admin) > 0 {
		r.Group(func(r chi.Router) {
			if h.tokenAuth != nil {
				r.Use(jwtauth.Verifier(h.tokenAuth))
				r.Use(jwtauth.Authenticator)
				r.Use(requireAdmin)
			}
			for _, mw := range h.admin {
				r.Use(mw)
			}
			r.Use(RequestSizeLimitMiddleware(MaxPayloadSize))

			r.Put("/documents/{key}", h.SaveDocument)
			r.Delete("/documents/{key}", h.RestoreDocument)
			r.Post("/documents/restore-defaults", h.RestoreDefaults)
		})
	}

	return r
}

// ListDocuments lists the registered documents
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	specs := h.service.Documents()
	resp := make([]DocumentInfo, 0, len(specs))
	for _, s := range specs {
		info := DocumentInfo{
			Key:        s.Key,
			Title:      s.Title,
			PrimaryKey: s.PrimaryKey(),
			StoreKeys:  s.Chain.StoreKeys(),
		}
		if t, ok := s.Chain.Tier(sitecontent.SourceRemoteDefault); ok {
			info.RemoteURL = t.URL
		}
		resp = append(resp, info)
	}
	render.JSON(w, r, resp)
}

// GetDocument resolves one document
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	doc, err := h.service.Resolve(r.Context(), key)
	if err != nil {
		h.handleError(w, r, key, err)
		return
	}
	render.JSON(w, r, toDocumentResponse(doc))
}

// RefreshDocument drops cached remote data, notifies subscribers and
// returns the fresh resolution
func (h *Handler) RefreshDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := h.service.Document(key); !ok {
		h.handleError(w, r, key, sitecontent.ErrUnknownDocument)
		return
	}

	h.service.Invalidate(key)
	h.service.Publish(key)

	doc, err := h.service.Resolve(r.Context(), key)
	if err != nil {
		h.handleError(w, r, key, err)
		return
	}
	render.JSON(w, r, toDocumentResponse(doc))
}

// SaveDocument writes a new payload for a document
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := h.service.Document(key); !ok {
		h.handleError(w, r, key, sitecontent.ErrUnknownDocument)
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "body must be a JSON object", Kind: string(sitecontent.MalformedJSON)})
		return
	}

	result, err := h.service.Save(r.Context(), key, payload)
	var writeErr *sitecontent.StoreWriteError
	if err != nil && !errors.As(err, &writeErr) {
		h.handleError(w, r, key, err)
		return
	}

	render.JSON(w, r, result)
}

// RestoreDocument removes stored copies so the document falls back to its
// default, and returns the new resolution
func (h *Handler) RestoreDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.service.Restore(r.Context(), key); err != nil {
		h.handleError(w, r, key, err)
		return
	}

	doc, err := h.service.Resolve(r.Context(), key)
	if err != nil {
		h.handleError(w, r, key, err)
		return
	}
	render.JSON(w, r, toDocumentResponse(doc))
}

// RestoreDefaults restores every document
func (h *Handler) RestoreDefaults(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Restore(r.Context()); err != nil {
		h.handleError(w, r, "", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, key string, err error) {
	var de *sitecontent.DecodeError
	var se *sitecontent.SchemaError

	switch {
	case errors.Is(err, sitecontent.ErrUnknownDocument):
		writeError(w, r, http.StatusNotFound, "unknown document: "+key)
	case errors.As(err, &de):
		resp := ErrorResponse{Error: err.Error(), Kind: string(de.Kind)}
		if errors.As(err, &se) {
			resp.Path = se.Path
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp)
	default:
		h.logger.Error("Document request failed", "document", key, "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

func toDocumentResponse(doc *sitecontent.Document) DocumentResponse {
	return DocumentResponse{
		Key:        doc.Key,
		SourceTier: doc.SourceTier,
		LoadedAt:   doc.LoadedAt,
		Payload:    doc.Payload,
	}
}
