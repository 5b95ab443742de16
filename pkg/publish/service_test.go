package publish

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/enrich"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	recs    map[string]*catalog.Record
	order   []string
	patches map[string][]map[string]interface{}
}

func newFakeStore(recs ...*catalog.Record) *fakeStore {
	s := &fakeStore{
		recs:    map[string]*catalog.Record{},
		patches: map[string][]map[string]interface{}{},
	}
	for _, rec := range recs {
		s.recs[rec.ID] = rec
		s.order = append(s.order, rec.ID)
	}
	return s
}

func (s *fakeStore) List(ctx context.Context, f catalog.Filter) ([]catalog.Record, error) {
	var out []catalog.Record
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if rec, ok := s.recs[id]; ok {
				out = append(out, *rec)
			}
		}
		return out, nil
	}
	for _, id := range s.order {
		rec := s.recs[id]
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.Published != nil && rec.IsPublished != *f.Published {
			continue
		}
		out = append(out, *rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*catalog.Record, error) {
	rec, ok := s.recs[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *fakeStore) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	rec, ok := s.recs[id]
	if !ok {
		return catalog.ErrNotFound
	}
	s.patches[id] = append(s.patches[id], fields)
	if v, ok := fields["status"].(string); ok {
		rec.Status = catalog.Status(v)
	}
	if v, ok := fields["is_published"].(bool); ok {
		rec.IsPublished = v
	}
	if v, ok := fields["region"].(string); ok {
		rec.Region = v
	}
	return nil
}

func (s *fakeStore) Upsert(ctx context.Context, rec *catalog.Record) error {
	if _, ok := s.recs[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	copied := *rec
	s.recs[rec.ID] = &copied
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	delete(s.recs, id)
	return nil
}

type stubGenerator struct {
	err error
}

func (g *stubGenerator) Enrich(ctx context.Context, in enrich.Input) (*enrich.Output, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &enrich.Output{NameEN: in.Name + " EN", DescriptionEN: "d"}, nil
}

func TestBulkPublishRequiresSelector(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)
	if _, err := svc.BulkPublish(context.Background(), BulkPublishRequest{}); !errors.Is(err, ErrBadSelector) {
		t.Fatalf("expected ErrBadSelector, got %v", err)
	}
}

func TestBulkPublishIDsTakePriority(t *testing.T) {
	store := newFakeStore(
		&catalog.Record{ID: "s1", Name: "화요", Category: "소주", Status: catalog.StatusReadyForConfirm},
		&catalog.Record{ID: "s2", Name: "안동소주", Category: "소주", Status: catalog.StatusReadyForConfirm},
	)
	svc := NewService(store, nil, nil)

	report, err := svc.BulkPublish(context.Background(), BulkPublishRequest{
		SpiritIDs:       []string{"s1"},
		PublishByStatus: string(catalog.StatusReadyForConfirm),
		PublishAll:      true,
		SkipEnrichment:  true,
	})
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	if report.Matched != 1 {
		t.Fatalf("explicit ids must win over the other selectors, matched %d", report.Matched)
	}
	if !store.recs["s1"].IsPublished || store.recs["s2"].IsPublished {
		t.Fatal("only the selected record may be published")
	}
}

func TestBulkPublishByStatusIsExact(t *testing.T) {
	store := newFakeStore(
		&catalog.Record{ID: "s1", Status: catalog.StatusReadyForConfirm},
		&catalog.Record{ID: "s2", Status: catalog.StatusEnriched},
	)
	svc := NewService(store, nil, nil)

	report, err := svc.BulkPublish(context.Background(), BulkPublishRequest{
		PublishByStatus: string(catalog.StatusReadyForConfirm),
		SkipEnrichment:  true,
	})
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	if report.Matched != 1 {
		t.Fatalf("expected exactly the READY_FOR_CONFIRM record, matched %d", report.Matched)
	}
	if store.recs["s2"].IsPublished {
		t.Fatal("records in other statuses must be untouched")
	}
}

func TestBulkPublishUpdateStatusOptOut(t *testing.T) {
	store := newFakeStore(&catalog.Record{ID: "s1", Status: catalog.StatusEnriched})
	svc := NewService(store, nil, nil)

	noStatus := false
	_, err := svc.BulkPublish(context.Background(), BulkPublishRequest{
		SpiritIDs:      []string{"s1"},
		UpdateStatus:   &noStatus,
		SkipEnrichment: true,
	})
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	if !store.recs["s1"].IsPublished {
		t.Fatal("flag must be set")
	}
	if store.recs["s1"].Status != catalog.StatusEnriched {
		t.Fatalf("status must be untouched when updateStatus=false, got %s", store.recs["s1"].Status)
	}
}

func TestBulkPublishDefaultsToStatusUpdate(t *testing.T) {
	store := newFakeStore(&catalog.Record{ID: "s1", Status: catalog.StatusReadyForConfirm})
	svc := NewService(store, nil, nil)

	_, err := svc.BulkPublish(context.Background(), BulkPublishRequest{
		SpiritIDs:      []string{"s1"},
		SkipEnrichment: true,
	})
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	if store.recs["s1"].Status != catalog.StatusPublished {
		t.Fatalf("expected PUBLISHED, got %s", store.recs["s1"].Status)
	}
}

func TestBulkPublishEnrichFailureDoesNotBlock(t *testing.T) {
	store := newFakeStore(&catalog.Record{ID: "s1", Name: "화요", Category: "소주", Status: catalog.StatusReadyForConfirm})
	svc := NewService(store, &stubGenerator{err: errors.New("model down")}, nil)

	report, err := svc.BulkPublish(context.Background(), BulkPublishRequest{SpiritIDs: []string{"s1"}})
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	if report.Published.Succeeded() != 1 {
		t.Fatalf("record must publish despite the enrichment failure, got %d/%d",
			report.Published.Succeeded(), report.Published.Failed())
	}
	if len(report.EnrichFailures) != 1 || report.EnrichFailures[0] != "s1" {
		t.Fatalf("enrichment failure must be reported, got %v", report.EnrichFailures)
	}
	if !store.recs["s1"].IsPublished {
		t.Fatal("record must be published")
	}
}

func TestBulkPublishRecordsReviewer(t *testing.T) {
	store := newFakeStore(&catalog.Record{ID: "s1", Status: catalog.StatusReadyForConfirm})
	svc := NewService(store, nil, nil)

	_, err := svc.BulkPublish(context.Background(), BulkPublishRequest{
		SpiritIDs:      []string{"s1"},
		SkipEnrichment: true,
		ReviewedBy:     "admin@example.com",
	})
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	patch := store.patches["s1"][0]
	if patch["reviewed_by"] != "admin@example.com" {
		t.Fatalf("unexpected reviewed_by: %v", patch["reviewed_by"])
	}
	if patch["reviewed_at"] == nil {
		t.Fatal("reviewed_at must be set alongside reviewed_by")
	}
}

func TestFixPublishedSyncIsOneWay(t *testing.T) {
	store := newFakeStore(
		&catalog.Record{ID: "s1", Status: catalog.StatusPublished, IsPublished: false}, // drift to fix
		&catalog.Record{ID: "s2", Status: catalog.StatusPublished, IsPublished: true},  // consistent
		&catalog.Record{ID: "s3", Status: catalog.StatusEnriched, IsPublished: true},   // inverse, untouched
	)
	svc := NewService(store, nil, nil)

	report, err := svc.FixPublishedSync(context.Background())
	if err != nil {
		t.Fatalf("sync fix failed: %v", err)
	}
	if report.TotalChecked != 3 {
		t.Fatalf("expected 3 checked, got %d", report.TotalChecked)
	}
	if report.FixedCount != 1 || len(report.FixedIDs) != 1 || report.FixedIDs[0] != "s1" {
		t.Fatalf("expected exactly s1 fixed, got %v", report.FixedIDs)
	}
	if !store.recs["s1"].IsPublished {
		t.Fatal("drifted record must get the flag set")
	}
	if store.recs["s3"].Status != catalog.StatusEnriched || !store.recs["s3"].IsPublished {
		t.Fatal("inverse drift must be left alone")
	}
	if len(store.patches["s2"]) != 0 {
		t.Fatal("consistent records must not be written")
	}
}

func TestDiagnoseCrossAnalysis(t *testing.T) {
	store := newFakeStore(
		&catalog.Record{ID: "s1", Status: catalog.StatusPublished, IsPublished: true},
		&catalog.Record{ID: "s2", Status: catalog.StatusPublished, IsPublished: false},
		&catalog.Record{ID: "s3", Status: catalog.StatusEnriched, IsPublished: true},
		&catalog.Record{ID: "s4", Status: "", IsPublished: false},
	)

	d, err := Diagnose(context.Background(), store)
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if d.TotalSpirits != 4 {
		t.Fatalf("expected 4 spirits, got %d", d.TotalSpirits)
	}
	if d.CrossAnalysis.PublishedAndTrue != 1 || d.CrossAnalysis.PublishedButFalse != 1 ||
		d.CrossAnalysis.NotPublishedButTrue != 1 || d.CrossAnalysis.OtherAndFalse != 1 {
		t.Fatalf("unexpected cross analysis: %+v", d.CrossAnalysis)
	}
	if d.StatusBreakdown["UNDEFINED"] != 1 {
		t.Fatalf("empty status must be counted as UNDEFINED, got %v", d.StatusBreakdown)
	}

	foundRepairHint := false
	for _, r := range d.Recommendations {
		if len(r) > 0 && containsFixHint(r) {
			foundRepairHint = true
		}
	}
	if !foundRepairHint {
		t.Fatalf("expected a fix-published-sync recommendation, got %v", d.Recommendations)
	}
}

func containsFixHint(s string) bool {
	for i := 0; i+len("fix-published-sync") <= len(s); i++ {
		if s[i:i+len("fix-published-sync")] == "fix-published-sync" {
			return true
		}
	}
	return false
}

func TestBulkPatchValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)

	if _, err := svc.BulkPatch(context.Background(), BulkPatchRequest{Updates: map[string]interface{}{}}); !errors.Is(err, ErrMissingIDs) {
		t.Fatalf("expected ErrMissingIDs, got %v", err)
	}
	if _, err := svc.BulkPatch(context.Background(), BulkPatchRequest{SpiritIDs: []string{"s1"}}); !errors.Is(err, ErrMissingUpdates) {
		t.Fatalf("expected ErrMissingUpdates, got %v", err)
	}
	_, err := svc.BulkPatch(context.Background(), BulkPatchRequest{
		SpiritIDs: []string{"s1"},
		Updates:   map[string]interface{}{"no_such_field": 1},
	})
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestBulkPatchAppliesUpdates(t *testing.T) {
	store := newFakeStore(
		&catalog.Record{ID: "s1", Name: "화요"},
		&catalog.Record{ID: "s2", Name: "안동소주"},
	)
	svc := NewService(store, nil, nil)

	report, err := svc.BulkPatch(context.Background(), BulkPatchRequest{
		SpiritIDs: []string{"s1", "s2", "missing"},
		Updates:   map[string]interface{}{"category": "전통주", "isReviewed": true},
	})
	if err != nil {
		t.Fatalf("bulk patch failed: %v", err)
	}
	if report.Updated.Succeeded() != 2 || report.Updated.Failed() != 1 {
		t.Fatalf("expected 2/1, got %d/%d", report.Updated.Succeeded(), report.Updated.Failed())
	}

	patch := store.patches["s1"][0]
	if patch["category"] != "전통주" {
		t.Fatalf("unexpected category: %v", patch["category"])
	}
	if patch["is_reviewed"] != true {
		t.Fatalf("camelCase keys must map to columns, got %v", patch)
	}
}

func TestBulkPatchNormalizationWinsOverCaller(t *testing.T) {
	store := newFakeStore(&catalog.Record{ID: "s1", Name: "맥캘란 12"})
	svc := NewService(store, nil, nil)

	_, err := svc.BulkPatch(context.Background(), BulkPatchRequest{
		SpiritIDs: []string{"s1"},
		Updates:   map[string]interface{}{"region": "Speyside"},
		Normalize: true,
	})
	if err != nil {
		t.Fatalf("bulk patch failed: %v", err)
	}
	if store.patches["s1"][0]["region"] != "스페이사이드" {
		t.Fatalf("normalization must overwrite the caller's value, got %v", store.patches["s1"][0]["region"])
	}
}

func TestBulkPatchEnrichFailureContinues(t *testing.T) {
	store := newFakeStore(&catalog.Record{ID: "s1", Name: "화요", Category: "소주"})
	svc := NewService(store, &stubGenerator{err: errors.New("model down")}, nil)

	report, err := svc.BulkPatch(context.Background(), BulkPatchRequest{
		SpiritIDs: []string{"s1"},
		Updates:   map[string]interface{}{"category": "소주"},
		Enrich:    true,
	})
	if err != nil {
		t.Fatalf("bulk patch failed: %v", err)
	}
	if report.Updated.Succeeded() != 1 {
		t.Fatalf("patch must apply despite the enrichment failure, got %d/%d",
			report.Updated.Succeeded(), report.Updated.Failed())
	}
	if len(report.EnrichFailures) != 1 {
		t.Fatalf("enrichment failure must be reported, got %v", report.EnrichFailures)
	}
}
