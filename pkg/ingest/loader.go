package ingest

import (
	"context"

	"github.com/kspirits/platform/pkg/batch"
	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/kafka"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/common/models"
	"gorm.io/datatypes"
)

// Loader seeds the catalog store from the ingestion buffer. Every buffered
// element becomes a RAW record; loading is idempotent by id.
type Loader struct {
	merger   *Merger
	store    catalog.Store
	producer *kafka.Producer
	dlq      *kafka.Producer
}

func NewLoader(merger *Merger, store catalog.Store, producer, dlq *kafka.Producer) *Loader {
	return &Loader{merger: merger, store: store, producer: producer, dlq: dlq}
}

func (l *Loader) Load(ctx context.Context) (*batch.Result, error) {
	items, err := l.merger.ReadBuffer()
	if err != nil {
		return nil, err
	}

	result := &batch.Result{}
	for _, item := range items {
		id := item.ID()
		if id == "" {
			continue
		}

		rec := ToRecord(item)
		if err := l.store.Upsert(ctx, rec); err != nil {
			logger.Log.WithError(err).WithField("spirit_id", id).Error("failed to load record")
			result.Record(id, err)
			if l.dlq != nil {
				_ = l.dlq.PublishEvent(ctx, models.EventSpiritIngested, "ingest-loader", map[string]interface{}{
					"spirit_id": id,
					"error":     err.Error(),
					"payload":   map[string]interface{}(item),
				})
			}
			continue
		}
		result.Record(id, nil)

		if l.producer != nil {
			_ = l.producer.PublishEvent(ctx, models.EventSpiritIngested, "ingest-loader", map[string]interface{}{
				"spirit_id": id,
				"name":      rec.Name,
			})
		}
	}

	return result, nil
}

// ToRecord maps the loosely-typed source element onto the catalog schema.
// Known identity fields become columns; everything else rides along in
// metadata.
func ToRecord(item RawSpirit) *catalog.Record {
	rec := &catalog.Record{
		ID:     item.ID(),
		Status: catalog.StatusRaw,
	}

	known := map[string]*string{
		"name":        &rec.Name,
		"name_en":     &rec.NameEN,
		"category":    &rec.Category,
		"subcategory": &rec.Subcategory,
		"distillery":  &rec.Distillery,
		"bottler":     &rec.Bottler,
		"country":     &rec.Country,
		"region":      &rec.Region,
		"source":      &rec.Source,
		"externalId":  &rec.ExternalID,
	}
	for key, dst := range known {
		if v, ok := item[key].(string); ok {
			*dst = v
		}
	}
	if abv, ok := item["abv"].(float64); ok {
		rec.ABV = abv
	}
	if vol, ok := item["volume"].(float64); ok {
		rec.Volume = vol
	}

	if meta, ok := item["metadata"].(map[string]interface{}); ok {
		rec.Metadata = catalog.MigrateMetadata(datatypes.JSONMap(meta))
	}

	return rec
}
