package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/glasspane/glasspane/constant"
	"github.com/glasspane/glasspane/network"
)

// Downloader streams a remote archive into w.
type Downloader interface {
	// Download reports progress as bytes written and the expected total, which is -1 when unknown.
	Download(ctx context.Context, url string, w io.Writer, progress func(done, total int64)) (int64, error)
}

// HTTPDownloader fetches archives over HTTP.
type HTTPDownloader struct {
	Client *http.Client
}

func (d HTTPDownloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return network.Client
}

func (d HTTPDownloader) Download(ctx context.Context, url string, w io.Writer, progress func(done, total int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := d.client().Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %s returned %s", ErrDownloadFailed, url, resp.Status)
	}

	n, err := io.Copy(w, &progressReader{r: resp.Body, total: resp.ContentLength, report: progress})
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return n, nil
}

type progressReader struct {
	r      io.Reader
	done   int64
	total  int64
	report func(done, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.done += int64(n)
	if p.report != nil && n > 0 {
		p.report(p.done, p.total)
	}
	return n, err
}
