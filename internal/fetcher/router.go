package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Router dispatches downloads to a Fetcher by URL scheme.
type Router struct {
	schemes map[string]Fetcher
}

// NewRouter routes http and https to httpF and ftp to ftpF. Either may be
// nil, in which case that scheme is rejected.
func NewRouter(httpF, ftpF Fetcher) *Router {
	r := &Router{schemes: make(map[string]Fetcher)}
	if httpF != nil {
		r.schemes["http"] = httpF
		r.schemes["https"] = httpF
	}
	if ftpF != nil {
		r.schemes["ftp"] = ftpF
	}
	return r
}

func (r *Router) route(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	f, ok := r.schemes[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	return f, nil
}

// Download implements Fetcher.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile implements Fetcher.
func (r *Router) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}
