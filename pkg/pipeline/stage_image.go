package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/kspirits/platform/pkg/batch"
	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/kafka"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/common/models"
	"github.com/kspirits/platform/pkg/imagesearch"
	"github.com/kspirits/platform/pkg/observability/metrics"
	"github.com/kspirits/platform/pkg/ratelimit"
)

// ImageStage advances ENRICHED records to READY_FOR_CONFIRM, attaching a
// product image when one is found. Absence of an image is not a failure:
// the record still advances and an admin fills the gap later. Only a
// transport error keeps a record in ENRICHED for retry.
type ImageStage struct {
	store    catalog.Store
	searcher imagesearch.Searcher
	producer *kafka.Producer

	batchSize int
	minDelay  time.Duration
	maxDelay  time.Duration
}

func NewImageStage(store catalog.Store, searcher imagesearch.Searcher, producer *kafka.Producer, batchSize int) *ImageStage {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ImageStage{
		store:     store,
		searcher:  searcher,
		producer:  producer,
		batchSize: batchSize,
		minDelay:  1 * time.Second,
		maxDelay:  2 * time.Second,
	}
}

func (s *ImageStage) Run(ctx context.Context) (*batch.Result, error) {
	recs, err := s.store.List(ctx, catalog.Filter{Status: catalog.StatusEnriched, Limit: s.batchSize})
	if err != nil {
		return nil, err
	}

	result := &batch.Result{}
	for i := range recs {
		rec := &recs[i]

		if i > 0 {
			if err := ratelimit.Jitter(ctx, s.minDelay, s.maxDelay); err != nil {
				return result, err
			}
		}

		candidates, err := s.searcher.Search(ctx, searchQuery(rec))
		if err != nil {
			logger.WithStage("image").WithError(err).WithField("spirit_id", rec.ID).Warn("image search failed")
			result.Record(rec.ID, err)
			continue
		}

		imageURL := imagesearch.SelectBest(candidates)
		if imageURL == "" {
			metrics.IncImageMiss()
		}

		advance, err := rec.Status.Advance(catalog.StatusReadyForConfirm)
		if err != nil {
			result.Record(rec.ID, err)
			continue
		}
		fields := map[string]interface{}{
			"image_url":     imageURL,
			"thumbnail_url": imageURL,
		}
		for k, v := range advance {
			fields[k] = v
		}

		if err := s.store.Patch(ctx, rec.ID, fields); err != nil {
			logger.WithStage("image").WithError(err).WithField("spirit_id", rec.ID).Error("failed to persist image")
			result.Record(rec.ID, err)
			continue
		}
		result.Record(rec.ID, nil)
		metrics.IncReadyForConfirm()

		if s.producer != nil {
			_ = s.producer.PublishEvent(ctx, models.EventSpiritImage, "image-stage", map[string]interface{}{
				"spirit_id": rec.ID,
				"image_url": imageURL,
			})
		}
	}

	return result, nil
}

func searchQuery(rec *catalog.Record) string {
	name := rec.NameEN
	if name == "" {
		name = rec.Name
	}
	return strings.TrimSpace(name + " " + rec.Distillery)
}
