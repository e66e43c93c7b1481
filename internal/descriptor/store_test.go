package descriptor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

type countingFetcher struct {
	inner *fetch.Fetcher
	calls int
}

func (c *countingFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	c.calls++
	return c.inner.Fetch(ctx, uri)
}

func newTestStore(t *testing.T) (*Store, *countingFetcher) {
	t.Helper()
	f := &countingFetcher{inner: fetch.New(0)}
	s, err := NewStore(filepath.Join(t.TempDir(), "configs"), f)
	require.NoError(t, err)
	return s, f
}

func writeDoc(t *testing.T, dir, file, body string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestStoreLoadAndFind(t *testing.T) {
	s, _ := newTestStore(t)
	src := writeDoc(t, t.TempDir(), "upstream.toml", "name = \"dots\"\n[packages.a]\n")

	res, err := s.Load(t.Context(), src, SkipIfLoaded)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.False(t, res.Replaced)
	assert.Equal(t, fetch.FileURI(src), res.URI)
	assert.Equal(t, filepath.Join(s.Dir(), "dots.toml"), res.Descriptor.Path)

	d, diags, err := s.FindByName("dots")
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, []string{"a"}, d.PackageNames())

	uri, err := s.SourceURI(d)
	require.NoError(t, err)
	assert.Equal(t, fetch.FileURI(src), uri)
}

func TestStoreLoadSkipAndReplace(t *testing.T) {
	s, _ := newTestStore(t)
	srcDir := t.TempDir()
	src := writeDoc(t, srcDir, "dots.toml", "name = \"dots\"\n[packages.a]\n")
	_, err := s.Load(t.Context(), src, SkipIfLoaded)
	require.NoError(t, err)

	writeDoc(t, srcDir, "dots.toml", "name = \"dots\"\n[packages.a]\n[packages.b]\n")

	res, err := s.Load(t.Context(), src, SkipIfLoaded)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, []string{"a"}, res.Descriptor.PackageNames())

	res, err = s.Load(t.Context(), src, Replace)
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	d, _, err := s.FindByName("dots")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, d.PackageNames())
}

func TestStoreInvalidReplacementKeepsOldDocument(t *testing.T) {
	s, _ := newTestStore(t)
	srcDir := t.TempDir()
	src := writeDoc(t, srcDir, "dots.toml", "name = \"dots\"\n[packages.a]\n")
	_, err := s.Load(t.Context(), src, SkipIfLoaded)
	require.NoError(t, err)

	writeDoc(t, srcDir, "dots.toml", "name = \"dots\"\n[packages.a.installation-mechanisms.svn]\nuri = \"x\"\n")
	_, err = s.Load(t.Context(), src, Replace)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, fetch.FileURI(src), ve.Source)

	d, _, err := s.FindByName("dots")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, d.PackageNames())
}

func TestStoreReplaceMigratesLegacyFileName(t *testing.T) {
	s, _ := newTestStore(t)
	legacy := writeDoc(t, s.Dir(), "upstream-name.toml", "name = \"dots\"\n[packages.a]\n")

	src := writeDoc(t, t.TempDir(), "x.toml", "name = \"dots\"\n[packages.b]\n")
	_, err := s.Load(t.Context(), src, Replace)
	require.NoError(t, err)

	_, statErr := os.Stat(legacy)
	assert.True(t, os.IsNotExist(statErr))
	d, _, err := s.FindByName("dots")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, d.PackageNames())
}

func TestStoreListSkipsJunk(t *testing.T) {
	s, _ := newTestStore(t)
	writeDoc(t, s.Dir(), "a.toml", "name = \"alpha\"\n[packages.p]\n")
	writeDoc(t, s.Dir(), "junk.txt", "this is not toml ][")
	writeDoc(t, s.Dir(), "z.toml", "name = \"alpha\"\n[packages.q]\n")
	writeDoc(t, s.Dir(), ".hidden", "ignored")

	all, diags, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "alpha", all[0].Name)
	require.Len(t, diags, 2)
	assert.Equal(t, filepath.Join(s.Dir(), "junk.txt"), diags[0].Path)
	assert.Contains(t, diags[1].String(), "duplicate meta-package")
}

func TestStoreFindByNameNotLoaded(t *testing.T) {
	s, _ := newTestStore(t)
	writeDoc(t, s.Dir(), "dots.toml", "name = \"dots\"\n[packages.p]\n")

	_, _, err := s.FindByName("dot")
	var nle *NotLoadedError
	require.ErrorAs(t, err, &nle)
	assert.Equal(t, []string{"dots"}, nle.Suggestions)
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
}

func TestStoreRemove(t *testing.T) {
	s, _ := newTestStore(t)
	src := writeDoc(t, t.TempDir(), "dots.toml", "name = \"dots\"\n[packages.p]\n")
	_, err := s.Load(t.Context(), src, SkipIfLoaded)
	require.NoError(t, err)

	require.NoError(t, s.Remove("dots"))
	_, _, err = s.FindByName("dots")
	var nle *NotLoadedError
	assert.ErrorAs(t, err, &nle)

	_, ok, err := s.Sources().Get("dots")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorAs(t, s.Remove("dots"), &nle)
}

func TestSourceURIPrefersDeclaredURI(t *testing.T) {
	s, _ := newTestStore(t)
	d := &Descriptor{Name: "dots", URI: "https://example.com/dots.toml"}
	uri, err := s.SourceURI(d)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/dots.toml", uri)

	_, err = s.SourceURI(&Descriptor{Name: "orphan"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}
