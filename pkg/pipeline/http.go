package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/kspirits/platform/pkg/batch"
	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/kafka"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/common/models"
	"github.com/kspirits/platform/pkg/enrich"
	"github.com/kspirits/platform/pkg/imagesearch"
	"github.com/kspirits/platform/pkg/ingest"
	"github.com/kspirits/platform/pkg/ratelimit"
)

const (
	ActionEnrich     = "ENRICH"
	ActionFetchImage = "FETCH_IMAGE"
	ActionAudit      = "AUDIT"
	ActionCollect    = "COLLECT"
)

// Deps bundles everything a pipeline invocation needs. Stages are built
// per request so callers can tune batch size and pacing.
type Deps struct {
	Store     catalog.Store
	Generator enrich.Generator
	Searcher  imagesearch.Searcher
	Producer  *kafka.Producer
	Merger    *ingest.Merger
	Loader    *ingest.Loader

	EnrichBatchSize  int
	ImageBatchSize   int
	RefillPeriod     time.Duration
	RateLimitPause   time.Duration
	RateLimitRetries int
}

type HTTPHandler struct {
	deps    Deps
	maxBody int64
}

func NewHTTPHandler(deps Deps, maxBody int64) *HTTPHandler {
	return &HTTPHandler{deps: deps, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/admin/pipeline", h.handlePipeline).Methods(http.MethodPost)
}

type pipelineRequest struct {
	Action       string `json:"action"`
	BatchSize    int    `json:"batchSize,omitempty"`
	DelaySeconds int    `json:"delaySeconds,omitempty"`
}

func (h *HTTPHandler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	switch strings.ToUpper(req.Action) {
	case ActionEnrich:
		limiter := ratelimit.NewBucket(1, h.delay(req))
		stage := NewEnrichStage(h.deps.Store, h.deps.Generator, limiter, h.deps.Producer,
			h.batchSize(req, h.deps.EnrichBatchSize), h.deps.RateLimitPause, h.deps.RateLimitRetries)
		h.runStage(w, r, stage.Run)

	case ActionFetchImage:
		stage := NewImageStage(h.deps.Store, h.deps.Searcher, h.deps.Producer,
			h.batchSize(req, h.deps.ImageBatchSize))
		h.runStage(w, r, stage.Run)

	case ActionAudit:
		findings, err := Audit(r.Context(), h.deps.Store)
		if err != nil {
			logger.Log.WithError(err).Error("audit pass failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"findings": findings,
			"count":    len(findings),
		})

	case ActionCollect:
		report, err := h.deps.Merger.Merge()
		if err != nil {
			logger.Log.WithError(err).Error("collect merge failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		result, err := h.deps.Loader.Load(r.Context())
		if err != nil {
			logger.Log.WithError(err).Error("collect load failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"merged":    report.Count,
			"processed": result.Succeeded(),
			"failed":    result.Failed(),
			"errors":    result.Errors(),
		})

	default:
		http.Error(w, "invalid action", http.StatusBadRequest)
	}
}

func (h *HTTPHandler) runStage(w http.ResponseWriter, r *http.Request, run func(context.Context) (*batch.Result, error)) {
	result, err := run(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("pipeline stage failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, models.StageReport{
		Success:   true,
		Processed: result.Succeeded(),
		Failed:    result.Failed(),
		Errors:    result.Errors(),
	})
}

func (h *HTTPHandler) batchSize(req pipelineRequest, fallback int) int {
	if req.BatchSize > 0 {
		return req.BatchSize
	}
	return fallback
}

func (h *HTTPHandler) delay(req pipelineRequest) time.Duration {
	if req.DelaySeconds > 0 {
		return time.Duration(req.DelaySeconds) * time.Second
	}
	return h.deps.RefillPeriod
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
