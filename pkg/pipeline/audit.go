package pipeline

import (
	"context"

	"github.com/kspirits/platform/pkg/catalog"
)

// Finding is one data-quality issue discovered by the audit pass.
type Finding struct {
	SpiritID string `json:"spiritId"`
	Issue    string `json:"issue"`
}

// Audit scans the catalog for records whose contents disagree with their
// workflow state. It reports only; it never transitions state.
func Audit(ctx context.Context, store catalog.Store) ([]Finding, error) {
	recs, err := store.List(ctx, catalog.Filter{})
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for i := range recs {
		rec := &recs[i]
		switch rec.Status {
		case catalog.StatusEnriched, catalog.StatusReadyForConfirm, catalog.StatusPublished:
			if rec.NameEN == "" {
				findings = append(findings, Finding{SpiritID: rec.ID, Issue: "enriched record missing name_en"})
			}
			if len(rec.TagList(catalog.MetaNoseTags)) == 0 &&
				len(rec.TagList(catalog.MetaPalateTags)) == 0 &&
				len(rec.TagList(catalog.MetaFinishTags)) == 0 {
				findings = append(findings, Finding{SpiritID: rec.ID, Issue: "enriched record has no flavor tags"})
			}
		}

		// imageUrl and thumbnailUrl should match or both be empty.
		if rec.ImageURL != rec.ThumbnailURL {
			findings = append(findings, Finding{SpiritID: rec.ID, Issue: "imageUrl and thumbnailUrl diverge"})
		}
	}

	return findings, nil
}
