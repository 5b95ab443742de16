package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kspirits/platform/pkg/common/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}
}

func newTestMerger(t *testing.T, dir string) *Merger {
	t.Helper()
	manifest := Manifest{Sources: []Source{
		{Name: "domestic", Dir: dir, Pattern: "spirits_*.json"},
		{Name: "imported", Dir: dir, Pattern: "raw_*.json"},
	}}
	return NewMerger(manifest, filepath.Join(dir, "buffer.json"))
}

func TestMergeDedupesLastWriteWins(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "spirits_a.json", `[{"id":"s1","name":"화요"},{"id":"s2","name":"안동소주"}]`)
	writeSource(t, dir, "raw_b.json", `[{"id":"s2","name":"안동소주 45"},{"id":"s3","name":"일품진로"}]`)

	m := newTestMerger(t, dir)
	report, err := m.Merge()
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if report.Count != 3 {
		t.Fatalf("expected 3 merged records, got %d", report.Count)
	}

	items, err := m.ReadBuffer()
	if err != nil {
		t.Fatalf("read buffer failed: %v", err)
	}
	byID := map[string]RawSpirit{}
	for _, item := range items {
		byID[item.ID()] = item
	}
	if byID["s2"]["name"] != "안동소주 45" {
		t.Fatalf("later source must win for s2, got %v", byID["s2"]["name"])
	}
	// First-seen order is preserved.
	if items[0].ID() != "s1" || items[1].ID() != "s2" || items[2].ID() != "s3" {
		t.Fatalf("unexpected order: %v %v %v", items[0].ID(), items[1].ID(), items[2].ID())
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "spirits_a.json", `[{"id":"s1","name":"화요"}]`)

	m := newTestMerger(t, dir)
	if _, err := m.Merge(); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	report, err := m.Merge()
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if report.Count != 1 {
		t.Fatalf("re-running the merge must not grow the buffer, got %d", report.Count)
	}
}

func TestMergeSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "spirits_a.json", `[{"id":"s1","name":"화요"}]`)
	writeSource(t, dir, "spirits_b.json", `{"not": "an array"`)

	m := newTestMerger(t, dir)
	report, err := m.Merge()
	if err != nil {
		t.Fatalf("merge must survive a malformed file: %v", err)
	}
	if report.SkippedBad != 1 {
		t.Fatalf("expected 1 skipped file, got %d", report.SkippedBad)
	}
	if report.Count != 1 {
		t.Fatalf("expected 1 merged record, got %d", report.Count)
	}
}

func TestMergeDropsElementsWithoutID(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "spirits_a.json", `[{"id":"s1"},{"name":"이름만 있는 항목"},{"id":""}]`)

	m := newTestMerger(t, dir)
	report, err := m.Merge()
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if report.Count != 1 {
		t.Fatalf("expected 1 merged record, got %d", report.Count)
	}
	if report.SkippedIDs != 2 {
		t.Fatalf("expected 2 dropped elements, got %d", report.SkippedIDs)
	}
}

func TestResetEmptiesBuffer(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "spirits_a.json", `[{"id":"s1"}]`)

	m := newTestMerger(t, dir)
	if _, err := m.Merge(); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if err := m.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	items, err := m.ReadBuffer()
	if err != nil {
		t.Fatalf("read buffer failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty buffer after reset, got %d items", len(items))
	}
}

func TestSaveRawValidatesJSON(t *testing.T) {
	dir := t.TempDir()
	m := newTestMerger(t, dir)

	if err := m.SaveRaw([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid content")
	}
	if err := m.SaveRaw([]byte(`[{"id":"s1"}]`)); err != nil {
		t.Fatalf("valid array must be accepted: %v", err)
	}

	items, err := m.ReadBuffer()
	if err != nil {
		t.Fatalf("read buffer failed: %v", err)
	}
	if len(items) != 1 || items[0].ID() != "s1" {
		t.Fatalf("unexpected buffer contents: %v", items)
	}
}

func TestReadBufferMissingFileIsEmpty(t *testing.T) {
	m := newTestMerger(t, t.TempDir())
	items, err := m.ReadBuffer()
	if err != nil {
		t.Fatalf("missing buffer must not error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty slice, got %v", items)
	}
}
