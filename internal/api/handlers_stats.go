package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleEmbedStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "embed stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"backend":     s.cfg.EmbedBackend,
		"model":       s.cfg.EmbedModel,
		"queue_depth": s.orchestrator.QueueDepth(),
		"indexed":     s.vectors.Count(),
		"stats":       s.stats.Snapshot(),
	})
}
