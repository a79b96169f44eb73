package elevation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

type memWriter struct {
	datasets map[string][]terrain.ElevationSample
}

func (m *memWriter) WriteSamples(_ context.Context, dataset string, samples []terrain.ElevationSample) (int64, error) {
	if m.datasets == nil {
		m.datasets = map[string][]terrain.ElevationSample{}
	}
	m.datasets[dataset] = samples
	return int64(len(samples)), nil
}

func (m *memWriter) DeleteDataset(_ context.Context, dataset string) (int64, error) {
	n := len(m.datasets[dataset])
	delete(m.datasets, dataset)
	return int64(n), nil
}

type fileDownloader struct {
	files map[string]string
	fail  string
	got   []string
}

func (d *fileDownloader) DownloadToFile(_ context.Context, rawURL, path string) (int64, error) {
	d.got = append(d.got, rawURL)
	if rawURL == d.fail {
		return 0, errors.New("550 file unavailable")
	}
	body := d.files[rawURL]
	return int64(len(body)), os.WriteFile(path, []byte(body), 0o644)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"shp", FormatShapefile, false},
		{".CSV", FormatCSV, false},
		{"txt", FormatCSV, false},
		{"asc", FormatASCIIGrid, false},
		{".grd", FormatASCIIGrid, false},
		{"tif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImporter_LocalCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(path, []byte("lon,lat,elevation\n1,2,3\n4,5,6\n"), 0o644))

	w := &memWriter{}
	im := &Importer{Writer: w}
	res, err := im.Import(context.Background(), path, "local", FormatCSV, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Dataset: "local", Source: path, Read: 2, Written: 2}, res)
	assert.Len(t, w.datasets["local"], 2)
}

func TestImporter_LocalASCIIGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.asc")
	require.NoError(t, os.WriteFile(path, []byte("ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n3 4\n"), 0o644))

	w := &memWriter{}
	res, err := (&Importer{Writer: w}).Import(context.Background(), path, "grid", FormatASCIIGrid, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Read)
	assert.Equal(t, terrain.ElevationSample{X: 0.5, Y: 1.5, Elevation: 1}, w.datasets["grid"][0])
}

func TestImporter_FTPRemovesStagingDir(t *testing.T) {
	tmp := t.TempDir()
	dl := &fileDownloader{files: map[string]string{
		"ftp://ftp.example.com/dem/points.csv": "lon,lat,elevation\n1,2,3\n",
	}}
	w := &memWriter{}
	im := &Importer{Writer: w, FTP: dl, TempDir: tmp}

	res, err := im.Import(context.Background(), "ftp://ftp.example.com/dem/points.csv", "remote", FormatCSV, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Read)
	assert.Len(t, w.datasets["remote"], 1)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be removed after import")
}

func TestImporter_FTPFailureRemovesStagingDir(t *testing.T) {
	tmp := t.TempDir()
	dl := &fileDownloader{fail: "ftp://ftp.example.com/dem/tile.dbf"}
	im := &Importer{Writer: &memWriter{}, FTP: dl, TempDir: tmp}

	_, err := im.Import(context.Background(), "ftp://ftp.example.com/dem/tile.shp", "remote", FormatShapefile, ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage ftp://ftp.example.com/dem/tile.dbf")
	assert.Equal(t, []string{"ftp://ftp.example.com/dem/tile.shp", "ftp://ftp.example.com/dem/tile.dbf"}, dl.got)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImporter_Errors(t *testing.T) {
	im := &Importer{Writer: &memWriter{}}

	_, err := im.Import(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "x", FormatCSV, ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")

	_, err = im.Import(context.Background(), "ftp://example.com/dem.asc", "x", FormatASCIIGrid, ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ftp fetcher configured")

	_, err = ReadFile("whatever", Format("tif"), ReadOptions{})
	assert.Error(t, err)
}
