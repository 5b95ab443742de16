package pipeline

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
	"github.com/kspirits/platform/pkg/observability/metrics"
	"github.com/kspirits/platform/pkg/ratelimit"
)

// EnrichStage advances a bounded batch of RAW records to ENRICHED. Records
// are processed strictly sequentially; the token bucket spaces out the
// external calls. A record that fails stays RAW and is picked up by the
// next invocation.
type EnrichStage struct {
	store     catalog.Store
	generator enrich.Generator
	limiter   *ratelimit.Bucket
	producer  *kafka.Producer

	batchSize    int
	pause        time.Duration
	pauseRetries int
}

func NewEnrichStage(store catalog.Store, generator enrich.Generator, limiter *ratelimit.Bucket, producer *kafka.Producer, batchSize int, pause time.Duration, pauseRetries int) *EnrichStage {
	if batchSize <= 0 {
		batchSize = 5
	}
	if pauseRetries <= 0 {
		pauseRetries = 3
	}
	return &EnrichStage{
		store:        store,
		generator:    generator,
		limiter:      limiter,
		producer:     producer,
		batchSize:    batchSize,
		pause:        pause,
		pauseRetries: pauseRetries,
	}
}

func (s *EnrichStage) Run(ctx context.Context) (*batch.Result, error) {
	recs, err := s.store.List(ctx, catalog.Filter{Status: catalog.StatusRaw, Limit: s.batchSize})
	if err != nil {
		return nil, err
	}

	result := &batch.Result{}
	for i := range recs {
		rec := &recs[i]

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		out, err := s.enrichWithRetry(ctx, rec)
		if err != nil {
			logger.WithStage("enrich").WithError(err).WithField("spirit_id", rec.ID).Warn("record enrichment failed")
			metrics.IncEnrichFailure()
			result.Record(rec.ID, err)
			continue
		}

		fields := enrich.MergeFields(rec, out)
		advance, err := rec.Status.Advance(catalog.StatusEnriched)
		if err != nil {
			result.Record(rec.ID, err)
			continue
		}
		for k, v := range advance {
			fields[k] = v
		}
		fields["is_reviewed"] = true

		if err := s.store.Patch(ctx, rec.ID, fields); err != nil {
			logger.WithStage("enrich").WithError(err).WithField("spirit_id", rec.ID).Error("failed to persist enrichment")
			result.Record(rec.ID, err)
			continue
		}
		result.Record(rec.ID, nil)
		metrics.IncEnriched()

		if s.producer != nil {
			_ = s.producer.PublishEvent(ctx, models.EventSpiritEnriched, "enrich-stage", map[string]interface{}{
				"spirit_id": rec.ID,
				"name_en":   out.NameEN,
			})
		}
	}

	return result, nil
}

// enrichWithRetry retries the same record after a long pause when the
// service reports a rate limit; any other error fails the record
// immediately.
func (s *EnrichStage) enrichWithRetry(ctx context.Context, rec *catalog.Record) (*enrich.Output, error) {
	in := enrich.InputFromRecord(rec)

	var lastErr error
	for attempt := 0; attempt < s.pauseRetries; attempt++ {
		out, err := s.generator.Enrich(ctx, in)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !errors.Is(err, enrich.ErrRateLimited) {
			return nil, err
		}

		logger.WithStage("enrich").WithField("spirit_id", rec.ID).Warn("rate limited, pausing before retry")
		timer := time.NewTimer(s.pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
