package pipeline

import (
	"context"
	"testing"

	"github.com/kspirits/platform/pkg/catalog"
	"gorm.io/datatypes"
)

func TestAuditFlagsIncompleteEnrichedRecords(t *testing.T) {
	store := newFakeStore(
		&catalog.Record{ID: "s1", Status: catalog.StatusEnriched}, // no name_en, no tags
		&catalog.Record{
			ID: "s2", Status: catalog.StatusPublished, NameEN: "Hwayo 41",
			Metadata: datatypes.JSONMap{catalog.MetaNoseTags: []interface{}{"rice"}},
		},
		&catalog.Record{ID: "s3", Status: catalog.StatusRaw},
	)

	findings, err := Audit(context.Background(), store)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	byID := map[string]int{}
	for _, f := range findings {
		byID[f.SpiritID]++
	}
	if byID["s1"] != 2 {
		t.Fatalf("expected 2 findings for s1, got %d", byID["s1"])
	}
	if byID["s2"] != 0 {
		t.Fatalf("complete record must have no findings, got %d", byID["s2"])
	}
	if byID["s3"] != 0 {
		t.Fatalf("RAW records are not audited for enrichment, got %d", byID["s3"])
	}

	// Audit never transitions state.
	if store.recs["s1"].Status != catalog.StatusEnriched {
		t.Fatal("audit must not modify records")
	}
}

func TestAuditFlagsImageDivergence(t *testing.T) {
	store := newFakeStore(&catalog.Record{
		ID: "s1", Status: catalog.StatusRaw,
		ImageURL: "https://img.example.com/a.jpg", ThumbnailURL: "",
	})

	findings, err := Audit(context.Background(), store)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if len(findings) != 1 || findings[0].Issue != "imageUrl and thumbnailUrl diverge" {
		t.Fatalf("unexpected findings: %v", findings)
	}
}
