package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/pdfindex/internal/chunker"
	"github.com/dgallion1/pdfindex/internal/table"
	"github.com/dgallion1/pdfindex/internal/vector"
)

const (
	defaultNResults = 5

	maxQueryBodyBytes = 1 << 20
)

// decodeJSONBody decodes at most limit bytes of the request body into v,
// writing the error response itself when it fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonError(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		return false
	}
	jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
	return false
}

type queryRequest struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

// handleQuery returns the chunks nearest to a free-text query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSONBody(w, r, maxQueryBodyBytes, &req) {
		return
	}
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.NResults == 0 {
		req.NResults = defaultNResults
	}
	if req.NResults < 0 {
		jsonError(w, "n_results must be positive", http.StatusBadRequest)
		return
	}

	results, err := s.vectors.Query(r.Context(), req.Query, req.NResults)
	if err != nil {
		s.log.Error("query failed", "error", err)
		jsonError(w, "query failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if results == nil {
		results = []vector.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   req.Query,
		"results": results,
	})
}

type chunkRequest struct {
	Text     string `json:"text"`
	Width    *int   `json:"width"`
	Tag      string `json:"tag"`
	Strategy string `json:"strategy"`
}

type chunkView struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// handleChunk previews how text would be chunked, without indexing.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	// Preview text is bounded like an upload.
	var req chunkRequest
	if !decodeJSONBody(w, r, s.cfg.MaxUploadBytes, &req) {
		return
	}
	width := s.cfg.ChunkWidth
	if req.Width != nil {
		width = *req.Width
	}
	if req.Strategy == "" {
		req.Strategy = s.cfg.ChunkStrategy
	}
	if req.Tag == "" {
		req.Tag = "doc"
	}

	strategy, err := chunker.NewStrategy(req.Strategy, width)
	if err != nil {
		writeChunkError(w, err)
		return
	}
	parts, err := strategy.Split(req.Text)
	if err != nil {
		writeChunkError(w, err)
		return
	}
	chunks, err := chunker.AssignIDs(parts, req.Tag)
	if err != nil {
		writeChunkError(w, err)
		return
	}

	views := make([]chunkView, 0, len(chunks))
	for _, c := range chunks {
		views = append(views, chunkView{ID: c.ID, Index: c.Index, Text: c.Text})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tag":      req.Tag,
		"strategy": strategy.Name(),
		"width":    width,
		"count":    len(views),
		"chunks":   views,
	})
}

func writeChunkError(w http.ResponseWriter, err error) {
	if errors.Is(err, chunker.ErrInvalidArgument) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

// handlePages lists extracted page rows, optionally filtered by a path
// substring.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	rows, err := s.table.Rows(r.Context(), s.cfg.TableName)
	if err != nil {
		s.log.Error("read pages failed", "table", s.cfg.TableName, "error", err)
		jsonError(w, "failed to read pages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	rows = table.FilterPathLike(rows, r.URL.Query().Get("path_like"))
	if rows == nil {
		rows = []table.Row{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"table": s.cfg.TableName,
		"count": len(rows),
		"rows":  rows,
	})
}
