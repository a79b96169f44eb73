package elevation

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// Format identifies an elevation dataset file format.
type Format string

// Supported dataset formats.
const (
	FormatShapefile Format = "shp"
	FormatCSV       Format = "csv"
	FormatASCIIGrid Format = "asc"
)

// ParseFormat accepts a format name or infers one from a file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatShapefile, FormatCSV, FormatASCIIGrid:
		return f, nil
	case "txt":
		return FormatCSV, nil
	case "grd":
		return FormatASCIIGrid, nil
	}
	return "", eris.Errorf("elevation: unsupported format %q", s)
}

// ReadOptions configures dataset parsing.
type ReadOptions struct {
	// ElevationField names the shapefile attribute or CSV column holding
	// elevation. Empty uses Z values (shapefile) or header detection (CSV).
	ElevationField string
	// Charset of CSV input, resolved with the WHATWG encoding index.
	Charset string
}

// Writer persists ordered elevation samples under a dataset name.
type Writer interface {
	WriteSamples(ctx context.Context, dataset string, samples []terrain.ElevationSample) (int64, error)
	DeleteDataset(ctx context.Context, dataset string) (int64, error)
}

// Repository is a sample backend that can be both queried and loaded.
type Repository interface {
	terrain.PointSource
	Writer
}

// ReadFile parses a local dataset file into samples in file order.
func ReadFile(path string, format Format, opts ReadOptions) ([]terrain.ElevationSample, error) {
	switch format {
	case FormatShapefile:
		return ReadShapefile(path, opts.ElevationField)
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "elevation: open %s", path)
		}
		defer f.Close()
		return ReadCSV(f, opts)
	case FormatASCIIGrid:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "elevation: open %s", path)
		}
		defer f.Close()
		return ReadASCIIGrid(f)
	}
	return nil, eris.Errorf("elevation: unsupported format %q", format)
}

// Downloader copies a remote file to a local path. *FTPFetcher implements it.
type Downloader interface {
	DownloadToFile(ctx context.Context, rawURL, path string) (int64, error)
}

// Importer loads dataset files, local or remote, into a Writer.
type Importer struct {
	Writer  Writer
	FTP     Downloader
	TempDir string
}

// ImportResult summarizes one import.
type ImportResult struct {
	Dataset string `json:"dataset"`
	Source  string `json:"source"`
	Read    int    `json:"read"`
	Written int64  `json:"written"`
}

// Import reads location (a path or ftp:// URL) and replaces dataset with its
// samples. Remote files are staged in a directory under TempDir that is removed
// once the import finishes; shapefiles need their .dbf and .shx siblings so
// they are fetched alongside the .shp.
func (im *Importer) Import(ctx context.Context, location, dataset string, format Format, opts ReadOptions) (*ImportResult, error) {
	log := zap.L().With(zap.String("component", "elevation.import"), zap.String("dataset", dataset))

	path := location
	if strings.HasPrefix(strings.ToLower(location), "ftp://") {
		staged, dir, err := im.stage(ctx, location, format)
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir) //nolint:errcheck
		path = staged
	}

	samples, err := ReadFile(path, format, opts)
	if err != nil {
		return nil, err
	}
	log.Info("elevation: parsed dataset", zap.String("source", location), zap.Int("samples", len(samples)))

	written, err := im.Writer.WriteSamples(ctx, dataset, samples)
	if err != nil {
		return nil, err
	}
	log.Info("elevation: dataset written", zap.Int64("rows", written))

	return &ImportResult{Dataset: dataset, Source: location, Read: len(samples), Written: written}, nil
}

// stage downloads rawURL (and shapefile siblings) into a fresh directory and
// returns the main file's path and the directory. The directory is already
// removed when an error is returned.
func (im *Importer) stage(ctx context.Context, rawURL string, format Format) (string, string, error) {
	if im.FTP == nil {
		return "", "", eris.New("elevation: no ftp fetcher configured")
	}
	base := im.TempDir
	if base == "" {
		base = os.TempDir()
	}
	dir, err := os.MkdirTemp(base, "import-")
	if err != nil {
		return "", "", eris.Wrap(err, "elevation: create staging dir")
	}

	urls := []string{rawURL}
	if format == FormatShapefile {
		stem := strings.TrimSuffix(rawURL, filepath.Ext(rawURL))
		urls = append(urls, stem+".dbf", stem+".shx")
	}

	var mainPath string
	for i, u := range urls {
		local, err := stagePath(dir, u)
		if err != nil {
			os.RemoveAll(dir) //nolint:errcheck
			return "", "", err
		}
		if _, err := im.FTP.DownloadToFile(ctx, u, local); err != nil {
			os.RemoveAll(dir) //nolint:errcheck
			return "", "", eris.Wrapf(err, "elevation: stage %s", u)
		}
		if i == 0 {
			mainPath = local
		}
	}
	return mainPath, dir, nil
}

func stagePath(dir, rawURL string) (string, error) {
	_, remotePath, err := parseFTPURL(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(remotePath)), nil
}
