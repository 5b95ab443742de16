package publish

import (
	"context"
	"errors"
	"time"

	"github.com/kspirits/platform/pkg/batch"
	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/kafka"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/common/models"
	"github.com/kspirits/platform/pkg/enrich"
)

// ErrBadSelector means the bulk-publish request named no target set.
var ErrBadSelector = errors.New("provide one of: publishAll=true, publishByStatus, or spiritIds")

type Service struct {
	store     catalog.Store
	generator enrich.Generator
	producer  *kafka.Producer
}

func NewService(store catalog.Store, generator enrich.Generator, producer *kafka.Producer) *Service {
	return &Service{store: store, generator: generator, producer: producer}
}

// BulkPublishRequest selects targets by exactly one mode. Priority when
// several are set: explicit ids, then status, then all.
type BulkPublishRequest struct {
	PublishAll      bool     `json:"publishAll,omitempty"`
	PublishByStatus string   `json:"publishByStatus,omitempty"`
	SpiritIDs       []string `json:"spiritIds,omitempty"`
	UpdateStatus    *bool    `json:"updateStatus,omitempty"` // default true
	SkipEnrichment  bool     `json:"skipEnrichment,omitempty"`
	ReviewedBy      string   `json:"reviewedBy,omitempty"`
}

type BulkPublishReport struct {
	Matched        int      `json:"matched"`
	Published      *batch.Result `json:"-"`
	EnrichFailures []string `json:"enrichFailures,omitempty"`
}

// BulkPublish sets isPublished on the selected records. This is the
// explicit override path: it publishes regardless of current status, which
// is why it does not go through the transition table.
func (s *Service) BulkPublish(ctx context.Context, req BulkPublishRequest) (*BulkPublishReport, error) {
	targets, err := s.selectTargets(ctx, req)
	if err != nil {
		return nil, err
	}

	updateStatus := true
	if req.UpdateStatus != nil {
		updateStatus = *req.UpdateStatus
	}

	report := &BulkPublishReport{Matched: len(targets), Published: &batch.Result{}}

	for i := range targets {
		rec := &targets[i]

		fields := map[string]interface{}{
			"is_published": true,
			"is_reviewed":  true,
		}

		// Optional enrichment first; a failure here is recorded but never
		// blocks the publish itself.
		if !req.SkipEnrichment && s.generator != nil {
			if out, err := s.generator.Enrich(ctx, enrich.InputFromRecord(rec)); err != nil {
				logger.WithStage("publish").WithError(err).WithField("spirit_id", rec.ID).Warn("pre-publish enrichment failed")
				report.EnrichFailures = append(report.EnrichFailures, rec.ID)
			} else {
				for k, v := range enrich.MergeFields(rec, out) {
					fields[k] = v
				}
			}
		}

		if req.ReviewedBy != "" {
			now := time.Now().UTC()
			fields["reviewed_by"] = req.ReviewedBy
			fields["reviewed_at"] = &now
		}
		if updateStatus {
			fields["status"] = string(catalog.StatusPublished)
		}

		if err := s.store.Patch(ctx, rec.ID, fields); err != nil {
			logger.WithStage("publish").WithError(err).WithField("spirit_id", rec.ID).Error("failed to publish record")
			report.Published.Record(rec.ID, err)
			continue
		}
		report.Published.Record(rec.ID, nil)

		if s.producer != nil {
			_ = s.producer.PublishEvent(ctx, models.EventSpiritPublished, "bulk-publish", map[string]interface{}{
				"spirit_id": rec.ID,
				"name":      rec.Name,
			})
		}
	}

	return report, nil
}

func (s *Service) selectTargets(ctx context.Context, req BulkPublishRequest) ([]catalog.Record, error) {
	switch {
	case len(req.SpiritIDs) > 0:
		return s.store.List(ctx, catalog.Filter{IDs: req.SpiritIDs})
	case req.PublishByStatus != "":
		return s.store.List(ctx, catalog.Filter{Status: catalog.Status(req.PublishByStatus)})
	case req.PublishAll:
		return s.store.List(ctx, catalog.Filter{})
	}
	return nil, ErrBadSelector
}

type SyncFixReport struct {
	TotalChecked int      `json:"totalChecked"`
	FixedCount   int      `json:"fixedCount"`
	FailedCount  int      `json:"failedCount"`
	FixedIDs     []string `json:"fixedIds,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// FixPublishedSync repairs one direction of status/isPublished drift:
// status PUBLISHED with the flag unset gets the flag set. The inverse case
// (flag set, status not PUBLISHED) is intentional — those records are
// visible to users — and is left alone.
func (s *Service) FixPublishedSync(ctx context.Context) (*SyncFixReport, error) {
	recs, err := s.store.List(ctx, catalog.Filter{})
	if err != nil {
		return nil, err
	}

	result := &batch.Result{}
	for i := range recs {
		rec := &recs[i]
		if rec.Status != catalog.StatusPublished || rec.IsPublished {
			continue
		}
		err := s.store.Patch(ctx, rec.ID, map[string]interface{}{"is_published": true})
		if err != nil {
			logger.WithStage("sync-fix").WithError(err).WithField("spirit_id", rec.ID).Error("failed to repair record")
		}
		result.Record(rec.ID, err)
	}

	return &SyncFixReport{
		TotalChecked: len(recs),
		FixedCount:   result.Succeeded(),
		FailedCount:  result.Failed(),
		FixedIDs:     result.SucceededIDs(),
		Errors:       result.Errors(),
	}, nil
}
