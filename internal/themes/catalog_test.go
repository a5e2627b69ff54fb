package themes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	require.NotEmpty(t, c.Themes)
	for _, theme := range c.Themes {
		assert.GreaterOrEqual(t, len(theme.Concepts), MinConcepts, theme.Name)
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "no themes", data: `{"themes":[]}`},
		{name: "unnamed theme", data: `{"themes":[{"name":" ","concepts":["a","b","c","d","e","f","g","h","i"]}]}`},
		{name: "too few concepts", data: `{"themes":[{"name":"Tiny","concepts":["a","b"]}]}`},
		{name: "duplicate concept", data: `{"themes":[{"name":"Dup","concepts":["a","a","c","d","e","f","g","h","i"]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			require.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.json")
	data := `{"themes":[{"name":"Colors","concepts":["Red","Blue","Green","Yellow","Purple","Orange","Black","White","Pink"]}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Themes, 1)
	assert.Equal(t, "Colors", c.Themes[0].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), def)
}
