package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tickerfactor/factorctl/internal/factor"
	"github.com/tickerfactor/factorctl/internal/registry"
	"github.com/tickerfactor/factorctl/internal/storage"
	"github.com/tickerfactor/factorctl/pkg/compression"
	"github.com/tickerfactor/factorctl/pkg/config"
	appErrors "github.com/tickerfactor/factorctl/pkg/errors"
	"github.com/tickerfactor/factorctl/pkg/parallel"
	"github.com/tickerfactor/factorctl/pkg/writer"
)

var (
	replayInput       string
	replayExprs       []string
	replayFactorNames []string
	replayBatchSize   int
	replayWorkers     int
	replayRunID       string
	replayConfigPath  string
	replayArchive     bool
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a set of factors over batch data",
	Long: `Replay drives a fixed set of factors across a sequence of batches cut
from a CSV fixture, evaluating every still-healthy factor in parallel on
each step. A factor that returns an error is marked failed and
permanently excluded from all subsequent steps, so one bad expression
never takes down the rest of the run.

Input is a CSV file with a header row naming columns; factor
expressions reference columns by name with a ":name" accessor.

When a config file is supplied, the run is recorded in the factor
registry and, unless --archive=false is given, per-factor output is archived
to configured object storage.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	binName := BinName()
	replayCmd.Example = `  # Replay two factors over a CSV fixture in batches of 64 rows
  ` + binName + ` replay -i ./data.csv -f "(Sum 5 :close)" -f "(Mean 10 :volume)" -b 64

  # Replay against the factor registry's saved definitions
  ` + binName + ` replay -i ./data.csv --config ./config.yaml -n momentum -n volatility`

	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "", "Input CSV batch file (required)")
	replayCmd.MarkFlagRequired("input")
	replayCmd.Flags().StringArrayVarP(&replayExprs, "factor", "f", nil, "Factor expression (repeatable)")
	replayCmd.Flags().StringArrayVarP(&replayFactorNames, "name", "n", nil, "Registry factor name to load (repeatable, requires --config)")
	replayCmd.Flags().IntVarP(&replayBatchSize, "batch-size", "b", 256, "Rows per replay step")
	replayCmd.Flags().IntVarP(&replayWorkers, "workers", "w", 0, "Worker pool size (0 = pool default: CPU count clamped to 2..8, negative is rejected)")
	replayCmd.Flags().StringVar(&replayRunID, "run-id", "", "Run identifier (auto-generated if empty)")
	replayCmd.Flags().StringVar(&replayConfigPath, "config", "", "Config file for registry/storage-backed runs")
	replayCmd.Flags().BoolVar(&replayArchive, "archive", true, "Archive per-factor output to object storage (requires --config)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := context.Background()

	runID := replayRunID
	if runID == "" {
		runID = uuid.NewString()
	}

	var cfg *config.Config
	var reg *registry.Registry
	var store storage.Storage
	if replayConfigPath != "" {
		loaded, err := config.Load(replayConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		db, err := registry.NewGormDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to registry database: %w", err)
		}
		reg = registry.NewRegistry(db)
		defer reg.Close()

		if replayArchive {
			s, err := storage.NewStorage(&cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			store = s
		}
	}

	exprs, err := gatherExpressions(ctx, reg)
	if err != nil {
		return err
	}
	if len(exprs) == 0 {
		return fmt.Errorf("no factors to replay: supply -f/--factor or -n/--name with --config")
	}

	factors := make([]*factor.Factor, len(exprs))
	for i, expr := range exprs {
		f, err := factor.Parse(expr)
		if err != nil {
			return fmt.Errorf("failed to parse factor %d (%q): %w", i, expr, err)
		}
		factors[i] = f
	}

	batch, err := loadCSVBatch(replayInput)
	if err != nil {
		return err
	}

	batchSize := replayBatchSize
	if batchSize <= 0 {
		batchSize = batch.Len()
	}
	batchCount := (batch.Len() + batchSize - 1) / batchSize
	if batch.Len() == 0 {
		batchCount = 0
	}

	poolCfg := parallel.DefaultPoolConfig()
	if replayWorkers != 0 {
		poolCfg = poolCfg.WithWorkers(replayWorkers)
	}

	log.Info("=== Factor Replay ===")
	log.Info("Run ID:     %s", runID)
	log.Info("Input:      %s (%d rows)", replayInput, batch.Len())
	log.Info("Factors:    %d", len(factors))
	log.Info("Batches:    %d (size %d)", batchCount, batchSize)
	log.Info("")

	ctx, span := otel.Tracer("factorctl").Start(ctx, "replay")
	span.SetAttributes(
		attribute.Int("factor.count", len(factors)),
		attribute.Int("batch.count", batchCount),
		attribute.String("run.id", runID),
	)
	defer span.End()

	if reg != nil {
		if _, err := reg.Runs.StartRun(ctx, runID, len(factors), batchCount); err != nil {
			return fmt.Errorf("failed to record run start: %w", err)
		}
	}

	replay, err := factor.NewReplay(factors, poolCfg)
	if err != nil {
		return appErrors.Wrap(appErrors.CodeDriverError, "failed to initialize replay driver", err)
	}
	outputs := make([][]float64, len(factors))

	for start := 0; start < batch.Len(); start += batchSize {
		end := start + batchSize
		if end > batch.Len() {
			end = batch.Len()
		}
		step := &windowBatch{base: batch, start: start, end: end}

		succeeded, _ := replay.Step(ctx, step)
		for idx, values := range succeeded {
			outputs[idx] = append(outputs[idx], values...)
		}
	}

	failedCount := 0
	var errLines []string
	for i := 0; i < replay.Len(); i++ {
		if err, ok := replay.Failed(i); ok {
			failedCount++
			errLines = append(errLines, fmt.Sprintf("factor %d (%s): %v", i, exprs[i], err))
			log.Warn("factor %d failed and was excluded: %v", i, err)
		}
	}
	span.SetAttributes(attribute.Int("factor.failed_count", failedCount))

	storageKey := ""
	if store != nil {
		storageKey, err = archiveOutputs(ctx, store, runID, outputs, replay)
		if err != nil {
			log.Warn("failed to archive replay output: %v", err)
		}
	}

	errSummary := strings.Join(errLines, "; ")
	if reg != nil {
		if err := reg.Runs.CompleteRun(ctx, runID, failedCount, storageKey, errSummary); err != nil {
			log.Warn("failed to record run completion: %v", err)
		}
	}

	log.Info("")
	log.Info("=== Replay Complete ===")
	log.Info("Succeeded: %d / %d factors", replay.Len()-failedCount, replay.Len())
	if storageKey != "" {
		log.Info("Archived:  %s", storageKey)
	}

	return nil
}

// gatherExpressions resolves the expressions to replay, combining
// literal -f flags with -n names resolved from the registry.
func gatherExpressions(ctx context.Context, reg *registry.Registry) ([]string, error) {
	exprs := append([]string{}, replayExprs...)

	if len(replayFactorNames) > 0 {
		if reg == nil {
			return nil, fmt.Errorf("--name requires --config")
		}
		for _, name := range replayFactorNames {
			def, err := reg.Factors.GetByName(ctx, name)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, def.Expression)
		}
	}

	return exprs, nil
}

// archivedSeries is the NaN-safe wire form of a factor's output series.
// Values holds a finite placeholder (0) at every row the Null bitmap
// marks, so the series always round-trips through encoding/json, which
// rejects NaN outright.
type archivedSeries struct {
	Values []float64 `json:"values"`
	Null   []int     `json:"null"`
}

// maskSeries replaces every NaN row in values with 0 and records which
// rows were NaN, per factor.NullMask.
func maskSeries(values []float64) archivedSeries {
	mask := factor.NullMask(values)
	out := make([]float64, len(values))
	copy(out, values)
	for _, i := range mask.ToSlice() {
		out[i] = 0
	}
	return archivedSeries{Values: out, Null: mask.ToSlice()}
}

// archiveOutputs compresses and uploads each factor's accumulated output
// series under <run-id>/<factor-index>.json.zst, skipping factors that
// never produced output because they failed on the very first batch.
func archiveOutputs(ctx context.Context, store storage.Storage, runID string, outputs [][]float64, replay *factor.Replay) (string, error) {
	comp := compression.Default()
	defer compression.Close(comp)

	jw := writer.NewJSONWriter[archivedSeries]()
	tmpDir, err := os.MkdirTemp("", "factorctl-replay-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	prefix := runID
	for idx, values := range outputs {
		if !replay.Alive(idx) && values == nil {
			continue
		}

		localPath := filepath.Join(tmpDir, fmt.Sprintf("%d.json", idx))
		if err := jw.WriteToFile(maskSeries(values), localPath); err != nil {
			return "", fmt.Errorf("failed to serialize factor %d output: %w", idx, err)
		}

		raw, err := os.ReadFile(localPath)
		if err != nil {
			return "", err
		}
		compressed, err := comp.Compress(raw)
		if err != nil {
			return "", fmt.Errorf("failed to compress factor %d output: %w", idx, err)
		}

		key := fmt.Sprintf("%s/%d.json.zst", prefix, idx)
		compressedPath := localPath + ".zst"
		if err := os.WriteFile(compressedPath, compressed, 0644); err != nil {
			return "", err
		}
		if err := store.UploadFile(ctx, key, compressedPath); err != nil {
			return "", fmt.Errorf("failed to upload factor %d output: %w", idx, err)
		}
	}

	return prefix + "/", nil
}

// windowBatch is a read-only row-range view over a csvBatch, used to cut
// one CSV fixture into the sequence of batches a replay steps through.
type windowBatch struct {
	base       *csvBatch
	start, end int
}

func (w *windowBatch) Len() int { return w.end - w.start }

func (w *windowBatch) IndexOf(name string) (int, bool) { return w.base.IndexOf(name) }

func (w *windowBatch) Values(i int) ([]float64, bool) {
	values, ok := w.base.Values(i)
	if !ok {
		return nil, false
	}
	return values[w.start:w.end], true
}
