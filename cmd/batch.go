package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/report"
	"github.com/sells-group/terrain-cli/internal/terrain"
)

var (
	batchFile        string
	batchConcurrency int
	batchDryRun      bool
	batchOut         string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every area in a YAML batch file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		jobs, err := terrain.LoadBatchFile(batchFile)
		if err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentAreas
		}
		cfg.Batch.MaxConcurrentAreas = concurrency

		env, err := initEnv(ctx, cfg, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		analyze := env.Analyzer.Analyze
		if batchDryRun {
			analyze = env.Analyzer.Assess
		}
		return processBatch(ctx, cmd.OutOrStdout(), jobs, concurrency, analyze, batchOut)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "YAML file with an areas list (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max analyses in flight (default from config)")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "compute without storing the analyses")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "also write successful analyses to this .xlsx path")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// batchLine is one printed batch result.
type batchLine struct {
	Name     string          `json:"name"`
	Analysis *analysisOutput `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// processBatch runs jobs, prints one JSON line per job in input order and
// optionally writes the successes to an xlsx report. Failed jobs are reported
// but do not fail the batch.
func processBatch(ctx context.Context, w io.Writer, jobs []terrain.BatchJob, concurrency int, analyze terrain.AnalyzeFunc, xlsxPath string) error {
	results := terrain.RunBatch(ctx, jobs, concurrency, analyze)

	enc := json.NewEncoder(w)
	var ok []terrain.Analysis
	failed := 0
	for _, r := range results {
		line := batchLine{Name: r.Job.Name}
		if r.Err != nil {
			failed++
			line.Error = r.Err.Error()
		} else {
			wkt, err := terrain.PolygonWKT(r.Analysis.Area)
			if err != nil {
				return err
			}
			line.Analysis = &analysisOutput{Analysis: *r.Analysis, AreaWKT: wkt}
			ok = append(ok, *r.Analysis)
		}
		if err := enc.Encode(line); err != nil {
			return eris.Wrap(err, "batch: encode result")
		}
	}

	if failed > 0 {
		zap.L().Warn("some batch areas failed", zap.Int("failed", failed), zap.Int("areas", len(jobs)))
	}
	if xlsxPath != "" {
		if err := report.WriteXLSX(xlsxPath, ok); err != nil {
			return err
		}
		zap.L().Info("batch report written", zap.String("out", xlsxPath), zap.Int("analyses", len(ok)))
	}
	return ctx.Err()
}
