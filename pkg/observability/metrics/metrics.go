package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	enrichedTotal       atomic.Int64
	enrichFailuresTotal atomic.Int64
	imageMissesTotal    atomic.Int64
	readyForConfirm     atomic.Int64

	catalogRaw       atomic.Int64
	catalogEnriched  atomic.Int64
	catalogReady     atomic.Int64
	catalogPublished atomic.Int64
)

func Init() {}

func IncEnriched()        { enrichedTotal.Add(1) }
func IncEnrichFailure()   { enrichFailuresTotal.Add(1) }
func IncImageMiss()       { imageMissesTotal.Add(1) }
func IncReadyForConfirm() { readyForConfirm.Add(1) }

// ObserveCatalogCounts snapshots the per-status record counts. Called from
// the diagnose pass, so the gauges reflect the latest full scan.
func ObserveCatalogCounts(raw, enriched, ready, published int) {
	catalogRaw.Store(int64(raw))
	catalogEnriched.Store(int64(enriched))
	catalogReady.Store(int64(ready))
	catalogPublished.Store(int64(published))
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP kspirits_pipeline_enriched_total Number of spirits enriched since process start.\n")
	fmt.Fprintf(w, "# TYPE kspirits_pipeline_enriched_total counter\n")
	fmt.Fprintf(w, "kspirits_pipeline_enriched_total %d\n", enrichedTotal.Load())

	fmt.Fprintf(w, "# HELP kspirits_pipeline_enrich_failures_total Number of enrichment attempts that failed since process start.\n")
	fmt.Fprintf(w, "# TYPE kspirits_pipeline_enrich_failures_total counter\n")
	fmt.Fprintf(w, "kspirits_pipeline_enrich_failures_total %d\n", enrichFailuresTotal.Load())

	fmt.Fprintf(w, "# HELP kspirits_pipeline_image_misses_total Number of spirits advanced without a usable image since process start.\n")
	fmt.Fprintf(w, "# TYPE kspirits_pipeline_image_misses_total counter\n")
	fmt.Fprintf(w, "kspirits_pipeline_image_misses_total %d\n", imageMissesTotal.Load())

	fmt.Fprintf(w, "# HELP kspirits_pipeline_ready_for_confirm_total Number of spirits moved to READY_FOR_CONFIRM since process start.\n")
	fmt.Fprintf(w, "# TYPE kspirits_pipeline_ready_for_confirm_total counter\n")
	fmt.Fprintf(w, "kspirits_pipeline_ready_for_confirm_total %d\n", readyForConfirm.Load())

	fmt.Fprintf(w, "# HELP kspirits_catalog_raw_records Number of RAW records in the latest catalog scan.\n")
	fmt.Fprintf(w, "# TYPE kspirits_catalog_raw_records gauge\n")
	fmt.Fprintf(w, "kspirits_catalog_raw_records %d\n", catalogRaw.Load())

	fmt.Fprintf(w, "# HELP kspirits_catalog_enriched_records Number of ENRICHED records in the latest catalog scan.\n")
	fmt.Fprintf(w, "# TYPE kspirits_catalog_enriched_records gauge\n")
	fmt.Fprintf(w, "kspirits_catalog_enriched_records %d\n", catalogEnriched.Load())

	fmt.Fprintf(w, "# HELP kspirits_catalog_ready_records Number of READY_FOR_CONFIRM records in the latest catalog scan.\n")
	fmt.Fprintf(w, "# TYPE kspirits_catalog_ready_records gauge\n")
	fmt.Fprintf(w, "kspirits_catalog_ready_records %d\n", catalogReady.Load())

	fmt.Fprintf(w, "# HELP kspirits_catalog_published_records Number of PUBLISHED records in the latest catalog scan.\n")
	fmt.Fprintf(w, "# TYPE kspirits_catalog_published_records gauge\n")
	fmt.Fprintf(w, "kspirits_catalog_published_records %d\n", catalogPublished.Load())
}
