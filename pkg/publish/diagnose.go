package publish

import (
	"context"
	"fmt"

	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/observability/metrics"
)

type CrossAnalysis struct {
	PublishedAndTrue    int `json:"publishedAndTrue"`
	PublishedButFalse   int `json:"publishedButFalse"`
	NotPublishedButTrue int `json:"notPublishedButTrue"`
	OtherAndFalse       int `json:"otherAndFalse"`
}

type Sample struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      catalog.Status `json:"status"`
	IsPublished bool           `json:"isPublished"`
}

type Diagnosis struct {
	Success           bool           `json:"success"`
	TotalSpirits      int            `json:"totalSpirits"`
	QueryLimitReached bool           `json:"queryLimitReached"`
	StatusBreakdown   map[string]int `json:"statusBreakdown"`
	PublishedCount    int            `json:"publishedCount"`
	UnpublishedCount  int            `json:"unpublishedCount"`
	CrossAnalysis     CrossAnalysis  `json:"crossAnalysis"`
	SamplePublished   *Sample        `json:"samplePublished,omitempty"`
	SampleUnpublished *Sample        `json:"sampleUnpublished,omitempty"`
	Recommendations   []string       `json:"recommendations,omitempty"`
}

// Diagnose aggregates the catalog's workflow state: status counts, the
// isPublished breakdown, and the status/flag cross-tab the repair endpoint
// acts on.
func Diagnose(ctx context.Context, store catalog.Store) (*Diagnosis, error) {
	recs, err := store.List(ctx, catalog.Filter{})
	if err != nil {
		return nil, err
	}

	d := &Diagnosis{
		Success:           true,
		TotalSpirits:      len(recs),
		QueryLimitReached: len(recs) >= catalog.MaxListSize,
		StatusBreakdown:   map[string]int{},
	}

	for i := range recs {
		rec := &recs[i]

		status := string(rec.Status)
		if status == "" {
			status = "UNDEFINED"
		}
		d.StatusBreakdown[status]++

		if rec.IsPublished {
			d.PublishedCount++
			if d.SamplePublished == nil {
				d.SamplePublished = sampleOf(rec)
			}
		} else {
			d.UnpublishedCount++
			if d.SampleUnpublished == nil {
				d.SampleUnpublished = sampleOf(rec)
			}
		}

		switch {
		case rec.Status == catalog.StatusPublished && rec.IsPublished:
			d.CrossAnalysis.PublishedAndTrue++
		case rec.Status == catalog.StatusPublished:
			d.CrossAnalysis.PublishedButFalse++
		case rec.IsPublished:
			d.CrossAnalysis.NotPublishedButTrue++
		default:
			d.CrossAnalysis.OtherAndFalse++
		}
	}

	if d.TotalSpirits == 0 {
		d.Recommendations = append(d.Recommendations,
			"database is empty - run collection merge_ingest and load first")
	}
	if d.QueryLimitReached {
		d.Recommendations = append(d.Recommendations,
			fmt.Sprintf("query limit reached (%d records) - diagnosis may be incomplete", catalog.MaxListSize))
	}
	if d.TotalSpirits > 0 && d.PublishedCount == 0 {
		d.Recommendations = append(d.Recommendations,
			"no published spirits - users see no data; run bulk-publish")
	}
	if n := d.CrossAnalysis.PublishedButFalse; n > 0 {
		d.Recommendations = append(d.Recommendations,
			fmt.Sprintf("%d records have status=PUBLISHED but isPublished=false - run fix-published-sync", n))
	}
	if n := d.CrossAnalysis.NotPublishedButTrue; n > 0 {
		d.Recommendations = append(d.Recommendations,
			fmt.Sprintf("%d records have isPublished=true with a non-PUBLISHED status - acceptable, they remain visible", n))
	}

	metrics.ObserveCatalogCounts(
		d.StatusBreakdown[string(catalog.StatusRaw)],
		d.StatusBreakdown[string(catalog.StatusEnriched)],
		d.StatusBreakdown[string(catalog.StatusReadyForConfirm)],
		d.StatusBreakdown[string(catalog.StatusPublished)],
	)

	return d, nil
}

func sampleOf(rec *catalog.Record) *Sample {
	return &Sample{ID: rec.ID, Name: rec.Name, Status: rec.Status, IsPublished: rec.IsPublished}
}
