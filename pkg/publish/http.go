package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kspirits/platform/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/admin/spirits/bulk-patch", h.handleBulkPatch).Methods(http.MethodPatch)
	router.HandleFunc("/admin/spirits/bulk-publish", h.handleBulkPublish).Methods(http.MethodPost)
	router.HandleFunc("/admin/spirits/fix-published-sync", h.handleFixSync).Methods(http.MethodPost)
	router.HandleFunc("/admin/spirits/diagnose", h.handleDiagnose).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleBulkPublish(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req BulkPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.service.BulkPublish(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrBadSelector) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("bulk publish failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("published %d out of %d spirits", report.Published.Succeeded(), report.Matched),
		"publishedCount": report.Published.Succeeded(),
		"failedCount":    report.Published.Failed(),
		"publishedIds":   report.Published.SucceededIDs(),
		"errors":         report.Published.Errors(),
		"enrichFailures": report.EnrichFailures,
	})
}

func (h *HTTPHandler) handleBulkPatch(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req BulkPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.service.BulkPatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrMissingIDs) || errors.Is(err, ErrMissingUpdates) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("bulk patch failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"updatedCount":   report.Updated.Succeeded(),
		"failedCount":    report.Updated.Failed(),
		"errors":         report.Updated.Errors(),
		"enrichFailures": report.EnrichFailures,
	})
}

func (h *HTTPHandler) handleFixSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.FixPublishedSync(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("sync audit failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	message := "no inconsistencies found"
	if report.FixedCount > 0 || report.FailedCount > 0 {
		message = fmt.Sprintf("fixed %d inconsistent spirits", report.FixedCount)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      message,
		"totalChecked": report.TotalChecked,
		"fixedCount":   report.FixedCount,
		"failedCount":  report.FailedCount,
		"fixedIds":     report.FixedIDs,
		"errors":       report.Errors,
	})
}

func (h *HTTPHandler) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	diagnosis, err := Diagnose(r.Context(), h.service.store)
	if err != nil {
		logger.Log.WithError(err).Error("diagnose failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, diagnosis)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
