package models

import "time"

// Event bus models. Every stage transition in the catalog pipeline is
// published to the catalog-events topic with one of these types.
const (
	EventSpiritIngested  = "spirit.ingested"
	EventSpiritEnriched  = "spirit.enriched"
	EventSpiritImage     = "spirit.image"
	EventSpiritPublished = "spirit.published"
)

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// MergeReport summarises one ingestion merge run.
type MergeReport struct {
	RunID      string    `json:"run_id"`
	Sources    int       `json:"sources"`
	SkippedBad int       `json:"skipped_files"`
	SkippedIDs int       `json:"skipped_no_id"`
	Count      int       `json:"count"`
	MergedAt   time.Time `json:"merged_at"`
}

// StageReport is the JSON summary every pipeline/bulk endpoint returns.
type StageReport struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Message   string   `json:"message,omitempty"`
}
