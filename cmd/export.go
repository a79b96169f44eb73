package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/report"
)

var (
	exportOut      string
	exportMinScore float64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored analyses to an xlsx report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		analyses, err := env.Store.ByAccessibilityScoreRange(ctx, exportMinScore, 1)
		if err != nil {
			return eris.Wrap(err, "export: load analyses")
		}
		if err := report.WriteXLSX(exportOut, analyses); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("out", exportOut),
			zap.Int("analyses", len(analyses)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output .xlsx path (required)")
	exportCmd.Flags().Float64Var(&exportMinScore, "min-score", 0, "only export analyses with at least this accessibility score")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
