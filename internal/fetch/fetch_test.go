package fetch

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/config"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/retry"
)

func TestNormalizeURI(t *testing.T) {
	dir := t.TempDir()
	got, err := NormalizeURI(filepath.Join(dir, "meta.toml"))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(dir, "meta.toml")), got)

	got, err = NormalizeURI("https://example.com/meta.toml")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/meta.toml", got)

	_, err = NormalizeURI("ftp://example.com/meta.toml")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.GetCategory(err))
}

func TestLocalPath(t *testing.T) {
	p, ok := LocalPath("file:///tmp/a%20b.toml")
	require.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/tmp/a b.toml"), p)

	_, ok = LocalPath("https://example.com/x")
	assert.False(t, ok)
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"dots\"\n"), 0o600))

	f := New(time.Second)
	data, err := f.Fetch(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, "name = \"dots\"\n", string(data))

	data, err = f.Fetch(t.Context(), FileURI(path))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestFetchMissingFile(t *testing.T) {
	_, err := New(time.Second).Fetch(t.Context(), filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryFileSystem, errors.GetCategory(err))
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("payload"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(time.Second)
	data, err := f.Fetch(t.Context(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = f.Fetch(t.Context(), srv.URL+"/missing")
	require.Error(t, err)
	assert.False(t, errors.IsRetryable(err))
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	defer srv.Close()

	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	data, err := New(time.Second, WithRetryPolicy(policy)).Fetch(t.Context(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "finally", string(data))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big")
	require.NoError(t, os.WriteFile(path, make([]byte, 32), 0o600))

	_, err := New(time.Second, WithMaxBytes(16)).Fetch(t.Context(), path)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrTooLarge))
}
