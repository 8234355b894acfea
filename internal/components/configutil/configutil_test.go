package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Verbose  bool   `json:"verbose"`
}

func TestSplitExt(t *testing.T) {
	table := []struct {
		input  string
		prefix string
		ext    string
	}{
		{input: "moodlefetch.json5", prefix: "moodlefetch", ext: "json5"},
		{input: "moodlefetch.local.json5", prefix: "moodlefetch.local", ext: "json5"},
		{input: "noext", prefix: "noext", ext: ""},
	}
	for _, row := range table {
		prefix, ext := splitExt(row.input)
		require.Equal(t, row.prefix, prefix)
		require.Equal(t, row.ext, ext)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "moodlefetch.json5"), []byte(`{
		// comments are allowed
		base_url: "https://moodle.example.edu",
		username: "student",
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "moodlefetch.local.json5"), []byte(`{
		password: "hunter2",
		verbose: true,
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "moodlefetch.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl:  "https://moodle.example.edu",
		Username: "student",
		Password: "hunter2",
		Verbose:  true,
	}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

type validatedConfig struct {
	BaseUrl string `json:"base_url"`
}

func (c validatedConfig) Validate() error {
	if c.BaseUrl == "" {
		return errors.New("base_url is required")
	}
	return nil
}

func TestLayers(t *testing.T) {
	require.Equal(t, []string{
		filepath.Join("conf", "moodlefetch.json5"),
		filepath.Join("conf", "moodlefetch.local.json5"),
	}, Layers(filepath.Join("conf", "moodlefetch.json5")))
	require.Equal(t, []string{"noext", "noext.local"}, Layers("noext"))
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "moodlefetch.local.json5"), `{ username: "student" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "moodlefetch.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "student"}, cfg)
}

func TestReadConfigValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moodlefetch.json5")
	writeConfig(t, path, `{ }`)

	_, err := ReadConfig[validatedConfig](path)
	require.ErrorContains(t, err, "base_url is required")
	require.NotErrorIs(t, err, os.ErrNotExist)

	writeConfig(t, filepath.Join(dir, "moodlefetch.local.json5"), `{ base_url: "https://moodle.example.edu" }`)
	cfg, err := ReadConfig[validatedConfig](path)
	require.NoError(t, err)
	require.Equal(t, "https://moodle.example.edu", cfg.BaseUrl)
}

func TestReadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodlefetch.json5")
	writeConfig(t, path, `{ base_url: `)

	_, err := ReadConfig[testConfig](path)
	require.ErrorContains(t, err, "parse "+path)
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))

	_, err := Find(nested, "moodlefetch.json5")
	require.ErrorIs(t, err, os.ErrNotExist)

	// a local layer alone is enough to find the config
	writeConfig(t, filepath.Join(root, "a", "moodlefetch.local.json5"), `{}`)
	path, err := Find(nested, "moodlefetch.json5")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a", "moodlefetch.json5"), path)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "cmd", "moodlefetch")
	require.NoError(t, os.MkdirAll(nested, 0777))
	writeConfig(t, filepath.Join(root, "moodlefetch.json5"), `{ base_url: "https://moodle.example.edu" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(wd))
	})

	cfg, path, err := ReadRecursively[testConfig]("moodlefetch.json5")
	require.NoError(t, err)
	require.Equal(t, "https://moodle.example.edu", cfg.BaseUrl)

	expected, err := filepath.EvalSymlinks(filepath.Join(root, "moodlefetch.json5"))
	require.NoError(t, err)
	actual, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	require.Equal(t, expected, actual)
}

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}
