package config_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/command"
	"github.com/tabmaster/tabmaster/pkg/config"
	"github.com/tabmaster/tabmaster/pkg/index"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	c := config.NewConfig()

	assert.Equal(t, "tabmaster.dev/v1beta1", c.APIVersion)
	assert.Equal(t, "Configuration", c.Kind)
	require.NotNil(t, c.Logging)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "text", c.Logging.Format)
	require.NotNil(t, c.Execution)
	assert.Equal(t, 100, c.Execution.LogCapacity)
}

func TestConfigLoader_Load(t *testing.T) {
	t.Parallel()

	data := []byte(`
apiVersion: tabmaster.dev/v1beta1
kind: Configuration
logging:
  level: debug
  format: json
execution:
  dryRun: true
  continueOnError: true
normalize:
  trackingParams:
    - mc_cid
  preservedParams:
    example.com:
      - page
categories:
  internal.example.com:
    - productivity_tools
`)

	cl := config.NewConfigLoaderFromBytes(data)
	require.NoError(t, cl.Validate())

	c, err := cl.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, "json", c.Logging.Format)
	assert.Equal(t, command.Options{DryRun: true, ContinueOnError: true}, c.Execution.Options())
	assert.Equal(t, 100, c.Execution.LogCapacity, "default applied")
	assert.Equal(t, []string{"productivity_tools"}, c.Categories["internal.example.com"])

	n := c.Normalize.Normalizer()
	assert.Equal(t,
		n.DupeKey("https://example.org/a?q=1"),
		n.DupeKey("https://example.org/a?q=1&mc_cid=abc"),
		"configured tracking parameter stripped",
	)
	assert.NotEqual(t,
		n.DupeKey("https://example.com/a"),
		n.DupeKey("https://example.com/a?page=2"),
		"preserved parameter kept",
	)
}

func TestConfigLoader_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		data    string
		wantErr string
	}{
		"wrong apiVersion": {
			data: `
apiVersion: example.com/v1
kind: Configuration
`,
			wantErr: "apiVersion",
		},
		"wrong kind": {
			data: `
apiVersion: tabmaster.dev/v1beta1
kind: RuleSet
`,
			wantErr: "kind",
		},
		"unknown field": {
			data: `
apiVersion: tabmaster.dev/v1beta1
kind: Configuration
colour: mauve
`,
			wantErr: "colour",
		},
		"bad log level": {
			data: `
apiVersion: tabmaster.dev/v1beta1
kind: Configuration
logging:
  level: loud
`,
			wantErr: "level",
		},
		"invalid yaml": {
			data:    "apiVersion: [unclosed",
			wantErr: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cl := config.NewConfigLoaderFromBytes([]byte(tc.data))

			err := cl.Validate()
			require.Error(t, err)

			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestConfigLoader_LoadBadLogging(t *testing.T) {
	t.Parallel()

	cl := config.NewConfigLoaderFromBytes([]byte(`
apiVersion: tabmaster.dev/v1beta1
kind: Configuration
logging:
  level: info
  format: xml
`))

	_, err := cl.Load()
	require.ErrorContains(t, err, "format")
}

func TestLoggingConfig_Handler(t *testing.T) {
	t.Parallel()

	lc := &config.LoggingConfig{}
	lc.EnsureDefaults()

	h, err := lc.Handler(io.Discard)
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = (&config.LoggingConfig{Level: "loud", Format: "text"}).Handler(io.Discard)
	require.Error(t, err)
}

func TestNormalizeConfig_NilUsesDefault(t *testing.T) {
	t.Parallel()

	var nc *config.NormalizeConfig

	n := nc.Normalizer()
	require.NotNil(t, n)
	assert.Equal(t,
		n.DupeKey("https://example.com/a?utm_source=x"),
		n.DupeKey("https://example.com/a"),
	)
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, config.WriteDefaultConfig(path, false))
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "config.v1beta1.json"))

	cl, err := config.NewConfigLoaderFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cl.Validate())

	c, err := cl.Load()
	require.NoError(t, err)
	assert.Equal(t, "info", c.Logging.Level)
}

func TestWriteDefaultConfig_ExistingKept(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, config.WriteDefaultConfig(path, false))

	c := config.NewConfig()
	c.Logging.Level = "debug"
	b, err := c.MarshalYAML()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	require.NoError(t, config.WriteDefaultConfig(path, false))

	cl, err := config.NewConfigLoaderFromFile(path)
	require.NoError(t, err)

	got, err := cl.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", got.Logging.Level, "existing config untouched")
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	c := config.NewConfig()
	c.Execution.DryRun = true

	b, err := c.MarshalYAML()
	require.NoError(t, err)

	cl := config.NewConfigLoaderFromBytes(b)
	require.NoError(t, cl.Validate())

	got, err := cl.Load()
	require.NoError(t, err)
	assert.True(t, got.Execution.DryRun)
}

func TestSetCategories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path, false))

	err := config.SetCategories(path, index.Categories{
		"internal.example.com": {"tech_dev"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# yaml-language-server", "comments preserved")

	cl := config.NewConfigLoaderFromBytes(data)
	require.NoError(t, cl.Validate())

	got, err := cl.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"tech_dev"}, got.Categories["internal.example.com"])
}

func TestSetCategories_MergesExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path, false))

	require.NoError(t, config.SetCategories(path, index.Categories{
		"a.example.com": {"news_media"},
	}))
	require.NoError(t, config.SetCategories(path, index.Categories{
		"b.example.com": {"shopping"},
	}))

	cl, err := config.NewConfigLoaderFromFile(path)
	require.NoError(t, err)

	got, err := cl.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"news_media"}, got.Categories["a.example.com"])
	assert.Equal(t, []string{"shopping"}, got.Categories["b.example.com"])
}
