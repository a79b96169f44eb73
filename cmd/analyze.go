package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

var (
	analyzeType    string
	analyzeWKT     string
	analyzeGeoJSON string
	analyzeDryRun  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one area and print the result as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		t, err := terrain.ParseAnalysisType(analyzeType)
		if err != nil {
			return err
		}
		area, err := readArea(analyzeWKT, analyzeGeoJSON)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		var a *terrain.Analysis
		if analyzeDryRun {
			a, err = env.Analyzer.Assess(ctx, area, t)
		} else {
			a, err = env.Analyzer.Analyze(ctx, area, t)
		}
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		return printAnalyses(cmd.OutOrStdout(), *a)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeType, "type", "", "analysis type: EMERGENCY_RESPONSE, ROUTING or ACCESSIBILITY (required)")
	analyzeCmd.Flags().StringVar(&analyzeWKT, "wkt", "", "area as a WKT POLYGON")
	analyzeCmd.Flags().StringVar(&analyzeGeoJSON, "geojson", "", "path to a GeoJSON Polygon geometry file")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "compute without storing the analysis")
	_ = analyzeCmd.MarkFlagRequired("type")
	analyzeCmd.MarkFlagsMutuallyExclusive("wkt", "geojson")
	analyzeCmd.MarkFlagsOneRequired("wkt", "geojson")
	rootCmd.AddCommand(analyzeCmd)
}

// readArea parses an area from inline WKT or a GeoJSON file. Exactly one must be set.
func readArea(wktText, geojsonPath string) (*geom.Polygon, error) {
	switch {
	case wktText != "" && geojsonPath != "":
		return nil, eris.New("area: use either --wkt or --geojson, not both")
	case wktText != "":
		return terrain.ParsePolygonWKT(wktText)
	case geojsonPath != "":
		data, err := os.ReadFile(geojsonPath)
		if err != nil {
			return nil, eris.Wrapf(err, "area: read %s", geojsonPath)
		}
		return terrain.ParsePolygonGeoJSON(data)
	default:
		return nil, eris.New("area: --wkt or --geojson is required")
	}
}

// analysisOutput is the JSON shape printed by the CLI: the analysis with
// its area as WKT.
type analysisOutput struct {
	terrain.Analysis
	AreaWKT string `json:"area_wkt"`
}

// printAnalyses writes one JSON object per analysis, one per line.
func printAnalyses(w io.Writer, analyses ...terrain.Analysis) error {
	enc := json.NewEncoder(w)
	for _, a := range analyses {
		wkt, err := terrain.PolygonWKT(a.Area)
		if err != nil {
			return err
		}
		if err := enc.Encode(analysisOutput{Analysis: a, AreaWKT: wkt}); err != nil {
			return eris.Wrap(err, "encode analysis")
		}
	}
	return nil
}
