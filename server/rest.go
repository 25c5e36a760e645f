package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/arxivtex/arxivtex/pkg/domain"
)

// paperSummary is a single entry of the papers listing
type paperSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Authors  []string  `json:"authors"`
	CachedAt time.Time `json:"cached_at"`
}

// paperDetail is the full cache record of a paper
type paperDetail struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Authors    []string   `json:"authors"`
	Abstract   string     `json:"abstract"`
	Published  *time.Time `json:"published,omitempty"`
	Updated    *time.Time `json:"updated,omitempty"`
	SourcePath string     `json:"source_path"`
	MainFile   string     `json:"main_file"`
	CachedAt   time.Time  `json:"cached_at"`
}

// statsResponse describes the cache as a whole
type statsResponse struct {
	Records  int64  `json:"records"`
	TextSize int64  `json:"text_size"`
	DiskSize int64  `json:"disk_size"`
	Root     string `json:"root"`
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// listPapersHandler returns cached papers, most recent first. ?limit=N caps the result.
func (s *Server) listPapersHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			renderError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] failed to list papers: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	res := make([]paperSummary, len(records))
	for i, rec := range records {
		res[i] = paperSummary{ID: rec.ID.String(), Title: rec.Title, Authors: nonNil(rec.Authors), CachedAt: rec.CachedAt}
	}
	renderJSON(w, r, http.StatusOK, res)
}

// getPaperHandler returns a single cache record, ids with slashes (hep-th/9901001) are supported
func (s *Server) getPaperHandler(w http.ResponseWriter, r *http.Request) {
	id := domain.NormalizeID(r.PathValue("id"))
	if id == "" {
		renderError(w, r, errors.New("paper id is required"), http.StatusBadRequest)
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		log.Printf("[ERROR] failed to get paper %s: %v", id, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if rec == nil {
		renderError(w, r, fmt.Errorf("paper %s not cached", id), http.StatusNotFound)
		return
	}

	renderJSON(w, r, http.StatusOK, toPaperDetail(rec))
}

// statsHandler returns aggregate cache information
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		log.Printf("[ERROR] failed to get stats: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, statsResponse{Records: stats.Records, TextSize: stats.TextSize, DiskSize: stats.DiskSize, Root: stats.Root})
}

func toPaperDetail(rec *domain.CacheRecord) paperDetail {
	res := paperDetail{
		ID:         rec.ID.String(),
		Title:      rec.Title,
		Authors:    nonNil(rec.Authors),
		Abstract:   rec.Abstract,
		SourcePath: rec.SourcePath,
		MainFile:   rec.MainFile,
		CachedAt:   rec.CachedAt,
	}
	if !rec.Published.IsZero() {
		res.Published = &rec.Published
	}
	if !rec.Updated.IsZero() {
		res.Updated = &rec.Updated
	}
	return res
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
