package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kspirits/platform/pkg/catalog"
	"github.com/kspirits/platform/pkg/common/config"
	"github.com/kspirits/platform/pkg/common/database"
	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/kspirits/platform/pkg/enrich"
	"github.com/kspirits/platform/pkg/imagesearch"
	"github.com/kspirits/platform/pkg/ingest"
	"github.com/kspirits/platform/pkg/pipeline"
	"github.com/kspirits/platform/pkg/ratelimit"
)

// runState is the checkpoint written after every batch so an interrupted run
// can resume where it left off.
type runState struct {
	SourceFile string `json:"source_file"`
	NextIndex  int    `json:"next_index"`
	Enriched   int    `json:"enriched"`
	Failed     int    `json:"failed"`
}

func main() {
	var (
		sourceFile = flag.String("source", "", "raw JSON array to seed the ingestion buffer before running")
		batchSize  = flag.Int("batch-size", 0, "records per batch (default from config)")
		limit      = flag.Int("limit", 0, "stop after this many records (0 = no limit)")
		skipUpload = flag.Bool("skip-upload", false, "enrich from the buffer only and write results to -out-dir, no database")
		outDir     = flag.String("out-dir", "data/enriched", "output directory for -skip-upload batches")
		stateFile  = flag.String("state", "data/pipeline-state.json", "checkpoint file for resuming")
	)
	flag.Parse()

	logger.Init()
	cfg := config.Load()
	ctx := context.Background()

	manifest, err := ingest.LoadManifest(cfg.SourceManifest, cfg.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load source manifest")
	}
	merger := ingest.NewMerger(manifest, cfg.BufferFile)

	state := loadState(*stateFile)
	if *sourceFile != "" && state.SourceFile != *sourceFile {
		content, err := os.ReadFile(*sourceFile)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to read source file")
		}
		if err := merger.SaveRaw(content); err != nil {
			logger.Log.WithError(err).Fatal("failed to seed ingestion buffer")
		}
		state = runState{SourceFile: *sourceFile}
	}

	size := *batchSize
	if size <= 0 {
		size = cfg.EnrichBatchSize
	}

	generator := enrich.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMTemperature)

	if *skipUpload {
		runOffline(ctx, cfg, merger, generator, state, *stateFile, *outDir, size, *limit)
		return
	}

	runOnline(ctx, cfg, merger, generator, state, *stateFile, size, *limit)
}

// runOffline enriches straight from the buffer file and writes one JSON file
// per batch. Nothing touches postgres, which makes it safe to dry-run a new
// source export.
func runOffline(ctx context.Context, cfg *config.Config, merger *ingest.Merger, generator enrich.Generator, state runState, stateFile, outDir string, size, limit int) {
	items, err := merger.ReadBuffer()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to read ingestion buffer")
	}
	if state.NextIndex > 0 {
		logger.Log.WithField("next_index", state.NextIndex).Info("resuming from checkpoint")
	}

	limiter := ratelimit.NewBucket(cfg.BucketCapacity, cfg.BucketRefillPeriod)
	batchNo := state.NextIndex / size

	for start := state.NextIndex; start < len(items); start += size {
		if limit > 0 && state.Enriched+state.Failed >= limit {
			break
		}

		end := start + size
		if end > len(items) {
			end = len(items)
		}

		outputs := make([]map[string]interface{}, 0, end-start)
		for _, item := range items[start:end] {
			rec := ingest.ToRecord(item)
			if rec.ID == "" {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				logger.Log.WithError(err).Fatal("interrupted")
			}
			out, err := generator.Enrich(ctx, enrich.InputFromRecord(rec))
			if err != nil {
				logger.WithStage("offline").WithError(err).WithField("spirit_id", rec.ID).Warn("enrichment failed")
				state.Failed++
				continue
			}
			fields := enrich.MergeFields(rec, out)
			fields["id"] = rec.ID
			fields["name"] = rec.Name
			outputs = append(outputs, fields)
			state.Enriched++
		}

		batchNo++
		if err := writeBatch(outDir, batchNo, outputs); err != nil {
			logger.Log.WithError(err).Fatal("failed to write batch output")
		}

		state.NextIndex = end
		saveState(stateFile, state)
		logger.Log.WithFields(map[string]interface{}{
			"batch":    batchNo,
			"enriched": state.Enriched,
			"failed":   state.Failed,
		}).Info("batch complete")
	}

	logger.Log.WithFields(map[string]interface{}{
		"enriched": state.Enriched,
		"failed":   state.Failed,
	}).Info("offline run finished")
}

// runOnline drives the same stages the admin endpoint does, in a loop until
// the RAW backlog is drained, then gives every enriched record an image pass.
func runOnline(ctx context.Context, cfg *config.Config, merger *ingest.Merger, generator enrich.Generator, state runState, stateFile string, size, limit int) {
	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	repo := catalog.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate catalog tables")
	}

	loader := ingest.NewLoader(merger, repo, nil, nil)
	if state.NextIndex == 0 {
		result, err := loader.Load(ctx)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load ingestion buffer")
		}
		logger.Log.WithFields(map[string]interface{}{
			"loaded": result.Succeeded(),
			"failed": result.Failed(),
		}).Info("buffer loaded")
	}

	limiter := ratelimit.NewBucket(cfg.BucketCapacity, cfg.BucketRefillPeriod)
	enrichStage := pipeline.NewEnrichStage(repo, generator, limiter, nil, size, cfg.RateLimitPause, cfg.RateLimitRetries)

	for {
		if limit > 0 && state.Enriched+state.Failed >= limit {
			break
		}
		result, err := enrichStage.Run(ctx)
		if err != nil {
			logger.Log.WithError(err).Fatal("enrich pass failed")
		}
		if len(result.Outcomes()) == 0 {
			break
		}
		state.Enriched += result.Succeeded()
		state.Failed += result.Failed()
		state.NextIndex += len(result.Outcomes())
		saveState(stateFile, state)
		logger.Log.WithFields(map[string]interface{}{
			"enriched": state.Enriched,
			"failed":   state.Failed,
		}).Info("enrich pass complete")
		if result.Succeeded() == 0 {
			// every remaining record is failing; bail instead of spinning
			break
		}
	}

	searcher := imagesearch.NewClient(cfg.ImageSearchBaseURL, cfg.ImageSearchTimeout)
	imageStage := pipeline.NewImageStage(repo, searcher, nil, cfg.ImageBatchSize)
	for {
		result, err := imageStage.Run(ctx)
		if err != nil {
			logger.Log.WithError(err).Fatal("image pass failed")
		}
		if len(result.Outcomes()) == 0 {
			break
		}
		logger.Log.WithFields(map[string]interface{}{
			"processed": result.Succeeded(),
			"failed":    result.Failed(),
		}).Info("image pass complete")
		if result.Succeeded() == 0 {
			break
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"enriched": state.Enriched,
		"failed":   state.Failed,
	}).Info("pipeline run finished")
}

func writeBatch(dir string, batchNo int, outputs []map[string]interface{}) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("batch_%03d_%s.json", batchNo, time.Now().UTC().Format("20060102T150405"))
	return os.WriteFile(filepath.Join(dir, name), encoded, 0o644)
}

func loadState(path string) runState {
	var state runState
	raw, err := os.ReadFile(path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		logger.Log.WithError(err).Warn("ignoring unreadable checkpoint file")
		return runState{}
	}
	return state
}

func saveState(path string, state runState) {
	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		logger.Log.WithError(err).Warn("failed to write checkpoint file")
	}
}
