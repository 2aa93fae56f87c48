package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/telemetry"
	"github.com/banshee-data/depth.survey/internal/timeutil"
)

func TestParseFlags_Defaults(t *testing.T) {
	for _, k := range []string{envListen, envDB, envDataDir, envConfig, envMAVLink} {
		t.Setenv(k, "")
	}
	o, err := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", o.listen)
	assert.Equal(t, "survey.db", o.dbPath)
	assert.Equal(t, "survey-data", o.dataDir)
	assert.Equal(t, config.DefaultConfigPath, o.configPath)
	assert.Empty(t, o.mavlinkURL)
	assert.False(t, o.showVersion)
}

func TestParseFlags_EnvAndArgs(t *testing.T) {
	t.Setenv(envListen, ":9090")
	t.Setenv(envDB, "/var/lib/survey.db")
	t.Setenv(envMAVLink, "http://blueos.local:6040")

	o, err := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-db", "other.db", "-version"})
	require.NoError(t, err)
	assert.Equal(t, ":9090", o.listen)
	assert.Equal(t, "other.db", o.dbPath, "flags win over env")
	assert.Equal(t, "http://blueos.local:6040", o.mavlinkURL)
	assert.True(t, o.showVersion)
}

func TestParseFlags_EmptyListen(t *testing.T) {
	_, err := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-listen", ""})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig(config.DefaultConfigPath)
	require.NoError(t, err, "missing default config falls back to defaults")
	assert.Equal(t, "idw", cfg.GetStrategy())

	_, err = loadConfig("missing.json")
	assert.Error(t, err, "an explicit path must exist")

	path := filepath.Join(t.TempDir(), "survey.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"strategy":"tin","primary_interval":2}`), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tin", cfg.GetStrategy())
	assert.Equal(t, 2.0, cfg.GetPrimaryInterval())
}

func TestOpenStream(t *testing.T) {
	w, closeFn, err := openStream("")
	require.NoError(t, err)
	assert.Nil(t, w)
	closeFn()

	path := filepath.Join(t.TempDir(), "diag.log")
	w, closeFn, err = openStream(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	closeFn()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestVehicleDialer_FallsBackToDefaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dial := vehicleDialer("http://127.0.0.1:0", timeutil.RealClock{})
	src, err := dial(ctx)
	require.NoError(t, err)
	mav, ok := src.(*telemetry.MAVLinkSource)
	require.True(t, ok)
	assert.False(t, mav.Endpoints().Discovered)
	assert.Equal(t, telemetry.DefaultEndpoints("http://127.0.0.1:0"), mav.Endpoints())
}
