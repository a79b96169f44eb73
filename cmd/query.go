package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored analyses",
}

var (
	queryLng           float64
	queryLat           float64
	queryWKT           string
	queryAccessibleMin float64
	queryMaxSlope      float64
	queryFloodMin      float64
)

var queryPointCmd = &cobra.Command{
	Use:   "point",
	Short: "Most recent analysis whose area contains a point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		a, err := env.Analyzer.MostRecentForPoint(ctx, queryLng, queryLat)
		if err != nil {
			return eris.Wrap(err, "query point")
		}
		if a == nil {
			zap.L().Info("no analysis covers the point",
				zap.Float64("lng", queryLng), zap.Float64("lat", queryLat))
			return nil
		}
		return printAnalyses(cmd.OutOrStdout(), *a)
	},
}

var queryIntersectingCmd = &cobra.Command{
	Use:   "intersecting",
	Short: "Analyses whose areas intersect a polygon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		area, err := terrain.ParsePolygonWKT(queryWKT)
		if err != nil {
			return err
		}
		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Analyzer.Intersecting(ctx, area)
		if err != nil {
			return eris.Wrap(err, "query intersecting")
		}
		return printAnalyses(cmd.OutOrStdout(), list...)
	},
}

var queryAccessibleCmd = &cobra.Command{
	Use:   "accessible",
	Short: "Analyses with high accessibility and gentle maximum slope",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Analyzer.FindAccessibleAreas(ctx, queryAccessibleMin, queryMaxSlope)
		if err != nil {
			return eris.Wrap(err, "query accessible")
		}
		return printAnalyses(cmd.OutOrStdout(), list...)
	},
}

var queryFloodProneCmd = &cobra.Command{
	Use:   "flood-prone",
	Short: "Analyses with a high flood risk score",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Analyzer.FindFloodProneAreas(ctx, queryFloodMin)
		if err != nil {
			return eris.Wrap(err, "query flood-prone")
		}
		return printAnalyses(cmd.OutOrStdout(), list...)
	},
}

func init() {
	queryPointCmd.Flags().Float64Var(&queryLng, "lng", 0, "longitude (required)")
	queryPointCmd.Flags().Float64Var(&queryLat, "lat", 0, "latitude (required)")
	_ = queryPointCmd.MarkFlagRequired("lng")
	_ = queryPointCmd.MarkFlagRequired("lat")

	queryIntersectingCmd.Flags().StringVar(&queryWKT, "wkt", "", "query area as a WKT POLYGON (required)")
	_ = queryIntersectingCmd.MarkFlagRequired("wkt")

	queryAccessibleCmd.Flags().Float64Var(&queryAccessibleMin, "min-score", 0.7, "minimum accessibility score")
	queryAccessibleCmd.Flags().Float64Var(&queryMaxSlope, "max-slope", 15, "maximum slope in degrees")

	queryFloodProneCmd.Flags().Float64Var(&queryFloodMin, "min-score", 0.6, "minimum flood risk score")

	queryCmd.AddCommand(queryPointCmd, queryIntersectingCmd, queryAccessibleCmd, queryFloodProneCmd)
	rootCmd.AddCommand(queryCmd)
}
