package ingest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/common/models"
)

type HTTPHandler struct {
	merger  *Merger
	loader  *Loader
	maxBody int64
}

func NewHTTPHandler(merger *Merger, loader *Loader, maxBody int64) *HTTPHandler {
	return &HTTPHandler{merger: merger, loader: loader, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/admin/collection", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/admin/collection", h.handlePost).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "status":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"lastIngested": h.merger.BufferModTime(),
		})
	case "read_raw":
		items, err := h.merger.ReadBuffer()
		if err != nil {
			logger.Log.WithError(err).Error("failed to read ingestion buffer")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"content": items})
	default:
		http.Error(w, "invalid action", http.StatusBadRequest)
	}
}

func (h *HTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	switch r.URL.Query().Get("action") {
	case "merge_ingest":
		report, err := h.merger.Merge()
		if err != nil {
			logger.Log.WithError(err).Error("merge failed")
			http.Error(w, "merge failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"count":   report.Count,
			"report":  report,
		})

	case "load":
		result, err := h.loader.Load(r.Context())
		if err != nil {
			logger.Log.WithError(err).Error("buffer load failed")
			http.Error(w, "load failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, models.StageReport{
			Success:   true,
			Processed: result.Succeeded(),
			Failed:    result.Failed(),
			Errors:    result.Errors(),
		})

	case "reset_all":
		if err := h.merger.Reset(); err != nil {
			http.Error(w, "reset failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	case "save_raw":
		var body struct {
			Content json.RawMessage `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.merger.SaveRaw(body.Content); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})

	default:
		http.Error(w, "invalid action", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
