package elevation

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPFetcher downloads elevation datasets from anonymous FTP servers such as
// the public USGS and NOAA mirrors.
type FTPFetcher struct {
	timeout time.Duration
}

// NewFTPFetcher creates a fetcher; a zero timeout means 30s.
func NewFTPFetcher(timeout time.Duration) *FTPFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &FTPFetcher{timeout: timeout}
}

// parseFTPURL extracts host:port and path from an ftp:// URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "elevation: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("elevation: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return "", "", eris.New("elevation: empty path in ftp url")
	}
	return host, u.Path, nil
}

// ftpFile closes the transfer and the control connection together.
type ftpFile struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (f *ftpFile) Read(p []byte) (int, error) { return f.resp.Read(p) }

func (f *ftpFile) Close() error {
	respErr := f.resp.Close()
	quitErr := f.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "elevation: close ftp transfer")
	}
	return eris.Wrap(quitErr, "elevation: quit ftp connection")
}

// Open starts retrieving rawURL. The caller must close the returned reader.
func (f *FTPFetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("elevation: ftp connect", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "elevation: ftp dial")
	}
	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "elevation: ftp login")
	}
	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "elevation: ftp retrieve %s", path)
	}
	return &ftpFile{resp: resp, conn: conn}, nil
}

// DownloadToFile copies rawURL into a local file and returns the bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	rc, err := f.Open(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "elevation: create file")
	}
	defer out.Close()

	n, err := io.Copy(out, rc)
	if err != nil {
		return n, eris.Wrap(err, "elevation: write file")
	}
	return n, nil
}
