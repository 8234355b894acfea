package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moodlefetch.json5")
	writeFile(t, path, `{
		// shared settings
		base_url: "https://moodle.example.edu",
		requests_per_second: 2,
		timeout_seconds: 10,
		otlp: { http_endpoint: "" },
	}`)
	writeFile(t, filepath.Join(dir, "moodlefetch.local.json5"), `{
		username: "student",
		password: "hunter2",
		log_backend: "zap",
		session: { sesskey: "XYZ", moodle_session: "sess2" },
	}`)

	cfg, err := readConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://moodle.example.edu", cfg.BaseUrl)
	require.Equal(t, "student", cfg.Username)
	require.Equal(t, 2.0, cfg.RequestsPerSecond)
	require.Equal(t, 10*time.Second, cfg.Timeout())
	require.Equal(t, "zap", cfg.LogBackend)
	require.True(t, cfg.HasSession())
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := readConfig(filepath.Join(dir, "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)

	noBaseUrl := filepath.Join(dir, "no_base_url.json5")
	writeFile(t, noBaseUrl, `{ username: "student" }`)
	_, err = readConfig(noBaseUrl)
	require.ErrorContains(t, err, "base_url is required")

	badBackend := filepath.Join(dir, "bad_backend.json5")
	writeFile(t, badBackend, `{ base_url: "https://moodle.example.edu", log_backend: "printf" }`)
	_, err = readConfig(badBackend)
	require.ErrorContains(t, err, "unknown log_backend")
}

func TestConfigValidate(t *testing.T) {
	valid := Config{BaseUrl: "https://moodle.example.edu"}
	require.NoError(t, valid.Validate())

	table := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "negative rate", mutate: func(c *Config) { c.RequestsPerSecond = -1 }},
		{name: "negative timeout", mutate: func(c *Config) { c.TimeoutSeconds = -5 }},
		{name: "half a session", mutate: func(c *Config) { c.Session.Sesskey = "XYZ" }},
		{name: "no base url", mutate: func(c *Config) { c.BaseUrl = "" }},
	}
	for _, test := range table {
		cfg := valid
		test.mutate(&cfg)
		require.Error(t, cfg.Validate(), test.name)
	}
}

func TestReadConfigFromSubdirectory(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "grades")
	require.NoError(t, os.MkdirAll(nested, 0777))
	writeFile(t, filepath.Join(root, "moodlefetch.json5"), `{ base_url: "https://moodle.example.edu" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(wd))
	})

	cfg, err := readConfig("moodlefetch.json5")
	require.NoError(t, err)
	require.Equal(t, "https://moodle.example.edu", cfg.BaseUrl)
}
