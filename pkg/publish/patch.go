package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/kspirits/platform/pkg/batch"
	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/enrich"
	"github.com/kspirits/platform/pkg/normalize"
)

var (
	ErrMissingIDs     = errors.New("missing spiritIds")
	ErrMissingUpdates = errors.New("missing updates object")
)

// Patchable maps the update keys callers may send to store columns.
// Anything else is rejected up front.
var patchable = map[string]string{
	"name":         "name",
	"name_en":      "name_en",
	"category":     "category",
	"subcategory":  "subcategory",
	"distillery":   "distillery",
	"bottler":      "bottler",
	"abv":          "abv",
	"volume":       "volume",
	"country":      "country",
	"region":       "region",
	"imageUrl":     "image_url",
	"thumbnailUrl": "thumbnail_url",
	"status":       "status",
	"isPublished":  "is_published",
	"isReviewed":   "is_reviewed",
	"metadata":     "metadata",
}

// BulkPatchRequest applies one shared partial update to an id set,
// optionally layering AI enrichment and a normalization pass on top.
// Merge precedence per record: caller updates < enrichment output <
// normalization corrections.
type BulkPatchRequest struct {
	SpiritIDs []string               `json:"spiritIds"`
	Updates   map[string]interface{} `json:"updates"`
	Enrich    bool                   `json:"enrich,omitempty"`
	Normalize bool                   `json:"normalize,omitempty"`
}

type BulkPatchReport struct {
	Updated        *batch.Result
	EnrichFailures []string
}

func (s *Service) BulkPatch(ctx context.Context, req BulkPatchRequest) (*BulkPatchReport, error) {
	if len(req.SpiritIDs) == 0 {
		return nil, ErrMissingIDs
	}
	if req.Updates == nil {
		return nil, ErrMissingUpdates
	}

	base := map[string]interface{}{}
	for key, value := range req.Updates {
		column, ok := patchable[key]
		if !ok {
			return nil, fmt.Errorf("field %q is not patchable", key)
		}
		base[column] = value
	}

	report := &BulkPatchReport{Updated: &batch.Result{}}

	for _, id := range req.SpiritIDs {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			report.Updated.Record(id, err)
			continue
		}

		fields := make(map[string]interface{}, len(base))
		for k, v := range base {
			fields[k] = v
		}

		if req.Enrich && s.generator != nil {
			if out, err := s.generator.Enrich(ctx, enrich.InputFromRecord(rec)); err != nil {
				logger.WithStage("bulk-patch").WithError(err).WithField("spirit_id", id).Warn("enrichment failed, continuing with patch")
				report.EnrichFailures = append(report.EnrichFailures, id)
			} else {
				for k, v := range enrich.MergeFields(rec, out) {
					fields[k] = v
				}
			}
		}

		if req.Normalize {
			for k, v := range normalize.Apply(projected(rec, fields)) {
				fields[k] = v
			}
		}

		if err := s.store.Patch(ctx, id, fields); err != nil {
			logger.WithStage("bulk-patch").WithError(err).WithField("spirit_id", id).Error("failed to patch record")
			report.Updated.Record(id, err)
			continue
		}
		report.Updated.Record(id, nil)
	}

	return report, nil
}

// projected overlays the pending field values onto a copy of the record so
// normalization sees what will actually be persisted.
func projected(rec *catalog.Record, fields map[string]interface{}) *catalog.Record {
	copied := *rec
	if v, ok := fields["distillery"].(string); ok {
		copied.Distillery = v
	}
	if v, ok := fields["region"].(string); ok {
		copied.Region = v
	}
	if v, ok := fields["country"].(string); ok {
		copied.Country = v
	}
	if v, ok := fields["name_en"].(string); ok {
		copied.NameEN = v
	}
	return &copied
}
