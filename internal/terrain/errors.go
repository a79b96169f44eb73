package terrain

import "github.com/rotisserie/eris"

// ErrNoElevationData is returned by Analyze when the point source has no
// samples inside the area's bounding envelope. No analysis is stored.
var ErrNoElevationData = eris.New("terrain: no elevation data for area")

// ErrInvalidAnalysisType is returned when an analysis type name is not recognized.
var ErrInvalidAnalysisType = eris.New("terrain: invalid analysis type")

// ErrInvalidArea is returned when the area polygon is nil or empty.
var ErrInvalidArea = eris.New("terrain: invalid area polygon")
