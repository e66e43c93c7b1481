// Package fetch retrieves descriptor documents and archives from file, http
// and https URIs.
package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/logfields"
	"git.home.luguber.info/inful/mcm/internal/retry"
)

// DefaultMaxBytes bounds a single fetched document.
const DefaultMaxBytes = 64 << 20

// ErrTooLarge is returned when a response exceeds the configured limit.
var ErrTooLarge = stderrors.New("response too large")

// Fetcher downloads bytes for a URI.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	policy   retry.Policy
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

// WithMaxBytes sets the response size limit.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p retry.Policy) Option { return func(f *Fetcher) { f.policy = p } }

// New creates a Fetcher whose HTTP client uses the given timeout.
func New(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   NewHTTPClient(timeout),
		maxBytes: DefaultMaxBytes,
		policy:   retry.DefaultPolicy(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NewHTTPClient creates an HTTP client with a bounded redirect chain.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return stderrors.New("too many redirects")
			}
			return nil
		},
	}
}

// NormalizeURI turns local paths into absolute file URIs and rejects schemes
// other than file, http and https.
func NormalizeURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err == nil {
		switch u.Scheme {
		case "file", "http", "https":
			return u.String(), nil
		}
	}
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		abs, aerr := filepath.Abs(raw)
		if aerr != nil {
			return "", errors.ValidationError("invalid source location").
				WithCause(aerr).WithContext("uri", raw).Build()
		}
		return FileURI(abs), nil
	}
	return "", errors.ValidationError(fmt.Sprintf("unsupported URI scheme %q", u.Scheme)).
		WithContext("uri", raw).Build()
}

// FileURI renders an absolute path as a file:// URI.
func FileURI(abs string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// LocalPath returns the filesystem path of a file URI.
func LocalPath(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

// Fetch returns the bytes behind uri. Local paths are accepted.
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, error) {
	uri, err := NormalizeURI(raw)
	if err != nil {
		return nil, err
	}
	if path, ok := LocalPath(uri); ok {
		return f.readFile(path)
	}

	var data []byte
	err = f.policy.Do(ctx, "fetch", func(ctx context.Context) error {
		var ferr error
		data, ferr = f.get(ctx, uri)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Fetched document", logfields.URI(uri), slog.Int("bytes", len(data)))
	return data, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.FileSystemError("cannot open source file").
			WithCause(err).WithContext("path", path).Build()
	}
	defer func() { _ = fh.Close() }()
	return f.readLimited(fh, path)
}

func (f *Fetcher) get(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, http.NoBody)
	if err != nil {
		return nil, errors.ValidationError("build request").WithCause(err).WithContext("uri", uri).Build()
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NetworkError("fetch failed").WithCause(err).WithContext("uri", uri).Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b := errors.NetworkError(fmt.Sprintf("fetch failed: HTTP %d", resp.StatusCode)).
			WithContext("uri", uri).WithContext("status_code", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			b = b.WithRetry(errors.RetryNever)
		}
		return nil, b.Build()
	}
	return f.readLimited(resp.Body, uri)
}

func (f *Fetcher) readLimited(r io.Reader, src string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, errors.NetworkError("read response").WithCause(err).WithContext("uri", src).Build()
	}
	if int64(len(data)) > f.maxBytes {
		return nil, errors.ValidationError("source exceeds size limit").
			WithCause(ErrTooLarge).WithContext("uri", src).WithContext("max_bytes", f.maxBytes).Build()
	}
	return data, nil
}
