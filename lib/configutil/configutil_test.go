package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username   string `json:"username"`
	OutputFile string `json:"output_file"`
	SkipGPX    bool   `json:"skip_gpx"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "garmin.json5")

	err := os.WriteFile(base, []byte(`{
		// comments are allowed
		username: "runner",
		output_file: "activities.json",
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "garmin.local.json5"), []byte(`{
		output_file: "mine.json",
		skip_gpx: true,
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](base)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Username:   "runner",
		OutputFile: "mine.json",
		SkipGPX:    true,
	}, cfg)
}

func TestReadConfigLocalResetsValues(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "garmin.json5")

	err := os.WriteFile(base, []byte(`{
		username: "runner",
		output_file: "activities.json",
		skip_gpx: true,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "garmin.local.json5"), []byte(`{
		skip_gpx: false,
		output_file: "",
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](base)
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "runner"}, cfg)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "garmin.local.json5"), []byte(`{skip_gpx: true}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "garmin.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{SkipGPX: true}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "garmin.local.json5", LocalName("garmin.json5"))
	require.Equal(t, "dir/telemetry.local.json5", LocalName("dir/telemetry.json5"))
}
