package main

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/elevation"
)

var (
	importFile           string
	importFormat         string
	importDataset        string
	importElevationField string
	importCharset        string
	importReplace        bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load elevation samples from a shapefile, CSV or ASCII grid",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, err := elevation.ParseFormat(importFormat)
		if err != nil {
			return err
		}
		dataset := importDataset
		if dataset == "" {
			dataset = cfg.Import.Dataset
		}
		charset := importCharset
		if charset == "" {
			charset = cfg.Import.Charset
		}

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		if importReplace {
			n, err := env.Samples.DeleteDataset(ctx, dataset)
			if err != nil {
				return eris.Wrap(err, "import: replace dataset")
			}
			zap.L().Info("removed previous samples", zap.String("dataset", dataset), zap.Int64("rows", n))
		}

		im := &elevation.Importer{
			Writer:  env.Samples,
			FTP:     elevation.NewFTPFetcher(time.Duration(cfg.Import.FTPTimeoutSecs) * time.Second),
			TempDir: cfg.Import.TempDir,
		}
		res, err := im.Import(ctx, importFile, dataset, format, elevation.ReadOptions{
			ElevationField: importElevationField,
			Charset:        charset,
		})
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("dataset", res.Dataset),
			zap.Int("read", res.Read),
			zap.Int64("written", res.Written),
		)
		return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "local path or ftp:// URL of the dataset (required)")
	importCmd.Flags().StringVar(&importFormat, "format", "", "dataset format: shp, csv or asc (required)")
	importCmd.Flags().StringVar(&importDataset, "dataset", "", "dataset name (default from config)")
	importCmd.Flags().StringVar(&importElevationField, "elevation-field", "", "shapefile attribute or CSV column holding elevation")
	importCmd.Flags().StringVar(&importCharset, "charset", "", "CSV character set (default from config)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "delete the dataset's existing samples first")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("format")
	rootCmd.AddCommand(importCmd)
}
