package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		token string
		want  Selection
	}{
		{"dots", MetaOnly("dots")},
		{"dots.vim", Packages("dots", "vim")},
		{"dots..*", Packages("dots", ".*")},
		{"dots.vim.local", Packages("dots", "vim.local")},
		{" dots.^a$ ", Packages("dots", "^a$")},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := Parse(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, tok := range []string{"", ".vim", "dots.", "dots.(unclosed"} {
		t.Run(tok, func(t *testing.T) {
			_, err := Parse(tok)
			require.Error(t, err)
			assert.Equal(t, errors.CategoryValidation, errors.GetCategory(err))
		})
	}
}

func TestParseQualifiedRequiresPackage(t *testing.T) {
	_, err := ParseQualified("dots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "META-PACKAGE.PACKAGE")

	sel, err := ParseQualified("dots.vim")
	require.NoError(t, err)
	assert.Equal(t, "dots.vim", sel.String())
}

func TestParseAll(t *testing.T) {
	sels, err := ParseAll([]string{"a", "b.c"}, false)
	require.NoError(t, err)
	assert.Equal(t, []Selection{MetaOnly("a"), Packages("b", "c")}, sels)

	_, err = ParseAll([]string{"a.b", "c"}, true)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	declared := []string{"c", "a", "b", "ab"}

	got, err := Resolve(All, declared)
	require.NoError(t, err)
	assert.Equal(t, declared, got)

	got, err = Resolve("^a$", declared)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	// Full match: "a" does not select "ab".
	got, err = Resolve("a", declared)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	got, err = Resolve("a|b", declared)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = Resolve("zzz", declared)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Resolve("(", declared)
	assert.Error(t, err)
}

func TestMetaOnlyDistinctFromAll(t *testing.T) {
	assert.NotEqual(t, MetaOnly("dots"), Packages("dots", All))
	assert.Equal(t, "dots", MetaOnly("dots").String())
	assert.Equal(t, "dots..*", Packages("dots", All).String())
}
