package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/common/models"
)

// RawSpirit is one loosely-typed element of a source array. Everything
// beyond the id is carried opaquely until loading.
type RawSpirit map[string]interface{}

func (r RawSpirit) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Merger combines the manifest's raw JSON arrays into one deduplicated set
// and overwrites the ingestion buffer file with it. Re-running a merge with
// the same sources is idempotent; re-running with different sources
// replaces the buffer, it does not union with prior runs.
type Merger struct {
	manifest   Manifest
	bufferFile string
}

func NewMerger(manifest Manifest, bufferFile string) *Merger {
	return &Merger{manifest: manifest, bufferFile: bufferFile}
}

// Merge reads every source file, dedupes by id (later sources overwrite
// earlier ones), and writes the buffer. A malformed source file is skipped;
// the merge continues with the rest. Elements without a non-empty id are
// dropped and counted in the report.
func (m *Merger) Merge() (*models.MergeReport, error) {
	report := &models.MergeReport{
		RunID:    uuid.New().String(),
		MergedAt: time.Now().UTC(),
	}

	byID := make(map[string]RawSpirit)
	var order []string

	for _, src := range m.manifest.Sources {
		files, err := filepath.Glob(filepath.Join(src.Dir, src.Pattern))
		if err != nil {
			return nil, fmt.Errorf("bad source pattern %q: %w", src.Pattern, err)
		}
		sort.Strings(files)

		for _, file := range files {
			items, err := readArray(file)
			if err != nil {
				logger.Log.WithError(err).WithField("file", file).Warn("skipping malformed source file")
				report.SkippedBad++
				continue
			}
			report.Sources++

			for _, item := range items {
				id := item.ID()
				if id == "" {
					report.SkippedIDs++
					continue
				}
				if _, seen := byID[id]; !seen {
					order = append(order, id)
				}
				byID[id] = item
			}
		}
	}

	merged := make([]RawSpirit, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	report.Count = len(merged)

	if err := m.writeBuffer(merged); err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"sources": report.Sources,
		"count":   report.Count,
	}).Info("ingestion merge complete")

	return report, nil
}

// Reset empties the buffer file.
func (m *Merger) Reset() error {
	return m.writeBuffer([]RawSpirit{})
}

// SaveRaw replaces the buffer with caller-supplied content after checking
// it is a valid JSON array.
func (m *Merger) SaveRaw(content []byte) error {
	var items []RawSpirit
	if err := json.Unmarshal(content, &items); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return m.writeBuffer(items)
}

// ReadBuffer loads the current buffer contents.
func (m *Merger) ReadBuffer() ([]RawSpirit, error) {
	raw, err := os.ReadFile(m.bufferFile)
	if err != nil {
		if os.IsNotExist(err) {
			return []RawSpirit{}, nil
		}
		return nil, err
	}
	var items []RawSpirit
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// BufferModTime reports when the buffer was last written, nil if it does
// not exist yet.
func (m *Merger) BufferModTime() *time.Time {
	info, err := os.Stat(m.bufferFile)
	if err != nil {
		return nil
	}
	mod := info.ModTime()
	return &mod
}

func (m *Merger) writeBuffer(items []RawSpirit) error {
	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.bufferFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.bufferFile, encoded, 0o644)
}

func readArray(path string) ([]RawSpirit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []RawSpirit
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}
