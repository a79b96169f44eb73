// Package report exports stored terrain analyses as spreadsheets.
package report

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// AnalysisHeader is the first row of the Analyses sheet.
var AnalysisHeader = []string{
	"id", "analysis_type", "analysis_timestamp",
	"accessibility_score", "flood_risk_score",
	"min_elevation", "max_elevation", "avg_elevation", "elevation_variance",
	"slope_average", "slope_maximum", "aspect_average", "roughness_index",
	"area_wkt",
}

// SummaryHeader is the first row of the Summary sheet.
var SummaryHeader = []string{"analysis_type", "count", "mean_accessibility_score", "mean_flood_risk_score"}

// WriteXLSX writes one row per analysis to an Analyses sheet, in the given
// order, plus a per-type Summary sheet.
func WriteXLSX(path string, analyses []terrain.Analysis) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Analyses")
	if err != nil {
		return eris.Wrap(err, "report: add analyses sheet")
	}
	addStrings(sheet.AddRow(), AnalysisHeader)

	type totals struct {
		n             int
		access, flood float64
	}
	byType := make(map[terrain.AnalysisType]*totals)

	for _, a := range analyses {
		row := sheet.AddRow()
		addStrings(row, []string{a.ID, string(a.AnalysisType), a.AnalysisTimestamp.UTC().Format(time.RFC3339)})
		m := a.Metrics
		addFloats(row,
			a.AccessibilityScore, a.FloodRiskScore,
			m.MinElevation, m.MaxElevation, m.AvgElevation, m.ElevationVariance,
			m.SlopeAverage, m.SlopeMaximum, m.AspectAverage, m.RoughnessIndex,
		)
		area := ""
		if a.Area != nil {
			if area, err = terrain.PolygonWKT(a.Area); err != nil {
				return eris.Wrapf(err, "report: area of %s", a.ID)
			}
		}
		row.AddCell().SetString(area)

		t := byType[a.AnalysisType]
		if t == nil {
			t = &totals{}
			byType[a.AnalysisType] = t
		}
		t.n++
		t.access += a.AccessibilityScore
		t.flood += a.FloodRiskScore
	}

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addStrings(summary.AddRow(), SummaryHeader)
	for _, typ := range terrain.AnalysisTypes {
		t := byType[typ]
		if t == nil {
			continue
		}
		row := summary.AddRow()
		row.AddCell().SetString(string(typ))
		row.AddCell().SetInt(t.n)
		addFloats(row, t.access/float64(t.n), t.flood/float64(t.n))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addFloats(row *xlsx.Row, values ...float64) {
	for _, v := range values {
		row.AddCell().SetFloat(v)
	}
}
