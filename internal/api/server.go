package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pbaille/laterread/internal/capture"
	"github.com/pbaille/laterread/internal/classifier"
	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/library"
	"github.com/pbaille/laterread/internal/store"
)

// NoticeLister returns recent notices
type NoticeLister interface {
	ListNotices(ctx context.Context, limit int) ([]store.Notice, error)
}

// Server handles HTTP requests for the reading list API
type Server struct {
	lib     *library.Library
	notices NoticeLister
	addr    string
	log     zerolog.Logger
}

// New creates a new API server. notices may be nil.
func New(lib *library.Library, notices NoticeLister, addr string, log zerolog.Logger) *Server {
	return &Server{
		lib:     lib,
		notices: notices,
		addr:    addr,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed handler wrapped with CORS headers
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Items
	mux.HandleFunc("GET /items", s.listItems)
	mux.HandleFunc("POST /items", s.addItem)
	mux.HandleFunc("PATCH /items", s.updateItem)
	mux.HandleFunc("DELETE /items", s.deleteItem)
	mux.HandleFunc("POST /items/toggle", s.toggleItem)
	mux.HandleFunc("PUT /items/relations", s.setRelations)
	mux.HandleFunc("POST /items/promote", s.promoteItem)
	mux.HandleFunc("GET /items/suggestions", s.suggest)

	// Classification
	mux.HandleFunc("POST /classify", s.classify)

	mux.HandleFunc("GET /notices", s.listNotices)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for browser clients
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ItemRequest identifies an item in a collection
type ItemRequest struct {
	URL        string `json:"url"`
	Collection string `json:"collection,omitempty"`
}

// AddItemRequest is the request body for saving a link
type AddItemRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Note  string `json:"note,omitempty"`
}

// UpdateItemRequest is the request body for a partial update
type UpdateItemRequest struct {
	ItemRequest
	store.Fields
}

// RelationsRequest replaces the relation list of an item
type RelationsRequest struct {
	URL     string   `json:"url"`
	Related []string `json:"related"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseKind(r.URL.Query().Get("collection"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	items, report, err := s.lib.Collection(kind).Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cat := r.URL.Query().Get("category"); cat != "" {
		key := s.lib.Registry().Resolve(cat)
		filtered := items[:0]
		for _, it := range items {
			if s.lib.Registry().Resolve(it.Category) == key {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []domain.Item{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collection": kind,
		"items":      items,
		"skipped":    report.Skipped,
	})
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	page, err := capture.Titled{
		Capturer: capture.Static{URL: req.URL, Title: req.Title},
	}.Capture(r.Context())
	if err != nil {
		writeError(w, http.StatusBadRequest, "a valid http(s) url is required")
		return
	}

	it, err := s.lib.Add(r.Context(), page, req.Note)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) toggleItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	kind, ok := decodeItem(w, r, &req, &req)
	if !ok {
		return
	}
	if err := s.lib.ToggleRead(r.Context(), kind, req.URL); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeItem(r.Context(), w, kind, req.URL)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	kind, ok := decodeItem(w, r, &req, &req.ItemRequest)
	if !ok {
		return
	}
	if err := s.lib.UpdateFields(r.Context(), kind, req.URL, req.Fields); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeItem(r.Context(), w, kind, req.URL)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	req := ItemRequest{
		URL:        r.URL.Query().Get("url"),
		Collection: r.URL.Query().Get("collection"),
	}
	kind, ok := domain.ParseKind(req.Collection)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown collection")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := s.lib.Delete(r.Context(), kind, req.URL); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setRelations(w http.ResponseWriter, r *http.Request) {
	var req RelationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := s.lib.SetRelations(r.Context(), req.URL, req.Related); err != nil {
		writeStoreError(w, err)
		return
	}
	it, _, err := s.lib.Find(r.Context(), req.URL)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	related := it.Related
	if related == nil {
		related = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"url": it.URL, "related": related})
}

func (s *Server) promoteItem(w http.ResponseWriter, r *http.Request) {
	var req RelationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	it, err := s.lib.Promote(r.Context(), req.URL, req.Related)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if strings.TrimSpace(url) == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'url' is required")
		return
	}
	limit := 5
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	suggestions, err := s.lib.Suggest(r.Context(), url, limit)
	if errors.Is(err, library.ErrNoEmbedder) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []library.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"url": url, "suggestions": suggestions})
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		b, err := s.lib.ClassifyAll(r.Context())
		if err != nil {
			writeClassifyError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}

	res, err := s.lib.Classify(r.Context(), req.URL)
	if err != nil {
		writeClassifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listNotices(w http.ResponseWriter, r *http.Request) {
	if s.notices == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"notices": []store.Notice{}})
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	notices, err := s.notices.ListNotices(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if notices == nil {
		notices = []store.Notice{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notices": notices})
}

// decodeItem decodes the body into dst and validates the item reference ir
// that dst embeds.
func decodeItem(w http.ResponseWriter, r *http.Request, dst interface{}, ir *ItemRequest) (domain.Kind, bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	kind, ok := domain.ParseKind(ir.Collection)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown collection")
		return "", false
	}
	if strings.TrimSpace(ir.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return "", false
	}
	return kind, true
}

func (s *Server) writeItem(ctx context.Context, w http.ResponseWriter, kind domain.Kind, url string) {
	it, ok, err := s.lib.Collection(kind).Find(ctx, url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeClassifyError(w http.ResponseWriter, err error) {
	switch classifier.KindOf(err) {
	case classifier.KindUnauthorized:
		writeError(w, http.StatusUnauthorized, err.Error())
	case classifier.KindRateLimited:
		writeError(w, http.StatusTooManyRequests, err.Error())
	case classifier.KindServer, classifier.KindInvalidResponse, classifier.KindNetwork:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		if errors.Is(err, library.ErrNoClassifier) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeStoreError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
