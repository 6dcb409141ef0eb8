// Package fetcher opens questionnaire sources, local or remote, and streams
// their JSON, CSV and XLSX contents.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote questionnaire sources.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Format is the encoding of a questionnaire source.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// IsRemote reports whether source is an http(s) or ftp URL.
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "ftp://")
}

// DetectFormat infers the format from the source's extension, ignoring any
// URL query string. Unknown extensions are treated as JSON.
func DetectFormat(source string) Format {
	if i := strings.IndexAny(source, "?#"); i >= 0 && IsRemote(source) {
		source = source[:i]
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

// Open returns a reader for source, downloading it with f when it is a URL.
func Open(ctx context.Context, f Fetcher, source string) (io.ReadCloser, error) {
	if IsRemote(source) {
		if f == nil {
			return nil, eris.Errorf("fetcher: no fetcher configured for %s", source)
		}
		return f.Download(ctx, source)
	}
	file, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	return file, nil
}

// LocalPath returns a filesystem path for source. Remote sources are
// downloaded into dir first; xlsx parsing needs random access.
func LocalPath(ctx context.Context, f Fetcher, source, dir string) (string, error) {
	if !IsRemote(source) {
		return source, nil
	}
	if f == nil {
		return "", eris.Errorf("fetcher: no fetcher configured for %s", source)
	}
	path := filepath.Join(dir, filepath.Base(strings.SplitN(source, "?", 2)[0]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create download dir")
	}
	if _, err := f.DownloadToFile(ctx, source, path); err != nil {
		return "", err
	}
	return path, nil
}

// Collect drains a row channel and its error channel into a slice.
func Collect[T any](items <-chan T, errs <-chan error) ([]T, error) {
	var out []T
	for item := range items {
		out = append(out, item)
	}
	if err := <-errs; err != nil {
		return out, err
	}
	return out, nil
}
