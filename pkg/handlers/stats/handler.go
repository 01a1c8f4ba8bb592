package stats

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dq-tools/aid-atlas/pkg/services/aggregate"
)

// Handler serves a computed corpus aggregate. The aggregate is immutable
// after the compute step, so no locking is needed.
type Handler struct {
	corpus *aggregate.CorpusStats
}

func NewHandler(corpus *aggregate.CorpusStats) *Handler {
	return &Handler{corpus: corpus}
}

func (h *Handler) GetCorpus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, h.corpus.Stats)
}

func (h *Handler) ListPublishers(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.corpus.Publishers))
	for name := range h.corpus.Publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	h.writeJSON(w, r, names)
}

func (h *Handler) GetPublisher(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "publisher")
	p, ok := h.corpus.Publishers[name]
	if !ok {
		http.Error(w, "unknown publisher", http.StatusNotFound)
		return
	}
	h.writeJSON(w, r, p.Stats)
}

func (h *Handler) ListPublisherFiles(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "publisher")
	p, ok := h.corpus.Publishers[name]
	if !ok {
		http.Error(w, "unknown publisher", http.StatusNotFound)
		return
	}
	h.writeJSON(w, r, p.Files)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("failed to encode response")
	}
}
