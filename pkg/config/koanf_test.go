package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Nested struct {
	Str string `koanf:"str"`
	Int int    `koanf:"int"`
}

type Item struct {
	Name    string   `koanf:"name"`
	Options []string `koanf:"options"`
}

type Config struct {
	Enabled bool   `koanf:"enabled"`
	Nested  Nested `koanf:"nested"`
	Items   []Item `koanf:"items"`
}

func TestProvide_Layers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
enabled = true

[nested]
str = "from-file"

[[items]]
name = "first"
options = ["a", "b"]
`), 0o600))

	t.Setenv("TESTCNF_NESTED__INT", "7")

	cnf, err := Provide("testcnf", path, Config{Nested: Nested{Str: "default", Int: 1}})
	require.NoError(t, err)

	assert.True(t, cnf.Enabled)
	assert.Equal(t, "from-file", cnf.Nested.Str)
	assert.Equal(t, 7, cnf.Nested.Int)
	require.Len(t, cnf.Items, 1)
	assert.Equal(t, []string{"a", "b"}, cnf.Items[0].Options)
}

func TestProvide_MissingFile(t *testing.T) {
	cnf, err := Provide("testcnf", filepath.Join(t.TempDir(), "missing.toml"), Config{Nested: Nested{Str: "default"}})
	require.NoError(t, err)
	assert.Equal(t, "default", cnf.Nested.Str)
}
