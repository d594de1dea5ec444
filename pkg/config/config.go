package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/tabmaster/tabmaster/pkg/command"
	"github.com/tabmaster/tabmaster/pkg/index"
	"github.com/tabmaster/tabmaster/pkg/log"
	"github.com/tabmaster/tabmaster/pkg/urlnorm"
	"github.com/tabmaster/tabmaster/pkg/yaml"
)

//go:generate go run ../../internal/schemagen/main.go -o config.v1beta1.json

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed config.v1beta1.json
	schemaJSON []byte

	ValidAPIVersions = []string{
		"tabmaster.dev/v1beta1",
	}
	ValidKinds = []string{
		"Configuration",
	}

	DefaultValidator = yaml.MustNewValidator("/config.v1beta1.json", schemaJSON)
)

//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Normalize adjusts URL normalization for duplicate detection.
	Normalize *NormalizeConfig `json:"normalize,omitempty" jsonschema:"title=Normalize"`
	// Logging controls log output of the CLI.
	Logging *LoggingConfig `json:"logging,omitempty" jsonschema:"title=Logging"`
	// Execution sets defaults for command execution.
	Execution *ExecutionConfig `json:"execution,omitempty" jsonschema:"title=Execution"`
	// Categories adds or overrides domain category assignments. Assigning an
	// empty list removes the built-in categories for that domain.
	Categories index.Categories `json:"categories,omitempty" jsonschema:"title=Categories"`
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

// NormalizeConfig tunes the URL normalizer used to derive duplicate keys.
type NormalizeConfig struct {
	// PreservedParams lists query parameters kept per domain even though the
	// parameter name looks like tracking.
	PreservedParams map[string][]string `json:"preservedParams,omitempty" jsonschema:"title=Preserved Parameters"`
	// TrackingParams lists additional query parameters stripped from every URL.
	TrackingParams []string `json:"trackingParams,omitempty" jsonschema:"title=Tracking Parameters"`
}

// Normalizer builds a [urlnorm.Normalizer] with the configured overrides
// applied on top of the built-in parameter lists.
func (nc *NormalizeConfig) Normalizer() *urlnorm.Normalizer {
	if nc == nil {
		return urlnorm.Default
	}

	opts := []urlnorm.Opt{
		urlnorm.WithTrackingParams(nc.TrackingParams...),
	}
	for domain, names := range nc.PreservedParams {
		opts = append(opts, urlnorm.WithPreservedParams(domain, names...))
	}

	return urlnorm.New(opts...)
}

// LoggingConfig controls CLI log output.
type LoggingConfig struct {
	// Level is the minimum log level: error, warn, info, or debug.
	Level string `json:"level,omitempty" jsonschema:"title=Level"`
	// Format selects the log encoding: text, logfmt, or json.
	Format string `json:"format,omitempty" jsonschema:"title=Format"`
}

func (lc *LoggingConfig) EnsureDefaults() {
	if lc.Level == "" {
		lc.Level = string(log.LevelInfo)
	}

	if lc.Format == "" {
		lc.Format = string(log.FormatText)
	}
}

// Handler creates an [slog.Handler] for the configured level and format.
func (lc *LoggingConfig) Handler(w io.Writer) (slog.Handler, error) {
	handler, err := log.CreateHandlerWithStrings(w, lc.Level, lc.Format)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	return handler, nil
}

func (lc *LoggingConfig) Validate() error {
	if _, err := log.GetLevel(lc.Level); err != nil {
		return fmt.Errorf("logging.level %q: %w", lc.Level, err)
	}

	if _, err := log.GetFormat(lc.Format); err != nil {
		return fmt.Errorf("logging.format %q: %w", lc.Format, err)
	}

	return nil
}

// ExecutionConfig sets defaults for command execution. CLI flags override
// these per invocation.
type ExecutionConfig struct {
	// LogCapacity bounds the in-memory execution history.
	LogCapacity int `json:"logCapacity,omitempty" jsonschema:"title=Log Capacity,minimum=1"`
	// DryRun previews commands without executing them.
	DryRun bool `json:"dryRun,omitempty" jsonschema:"title=Dry Run"`
	// Force executes despite validation errors.
	Force bool `json:"force,omitempty" jsonschema:"title=Force"`
	// ContinueOnError keeps executing after a command fails.
	ContinueOnError bool `json:"continueOnError,omitempty" jsonschema:"title=Continue On Error"`
}

func (ec *ExecutionConfig) EnsureDefaults() {
	if ec.LogCapacity <= 0 {
		ec.LogCapacity = 100
	}
}

// Options converts the configured defaults to [command.Options].
func (ec *ExecutionConfig) Options() command.Options {
	if ec == nil {
		return command.Options{}
	}

	return command.Options{
		DryRun:          ec.DryRun,
		Force:           ec.Force,
		ContinueOnError: ec.ContinueOnError,
	}
}

func NewConfig() *Config {
	c := &Config{
		APIVersion: "tabmaster.dev/v1beta1",
		Kind:       "Configuration",
	}
	c.EnsureDefaults()

	return c
}

func (c *Config) EnsureDefaults() {
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}

	c.Logging.EnsureDefaults()

	if c.Execution == nil {
		c.Execution = &ExecutionConfig{}
	}

	c.Execution.EnsureDefaults()
}

// IndexOpts builds the context-build options implied by the configuration:
// the normalizer with parameter overrides and the merged category table.
func (c *Config) IndexOpts() []index.Opt {
	opts := []index.Opt{
		index.WithNormalizer(c.Normalize.Normalizer()),
	}

	if len(c.Categories) > 0 {
		opts = append(opts, index.WithCategories(index.DefaultCategories.Merge(c.Categories)))
	}

	return opts
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	apiVersion, ok := jss.Properties.Get("apiVersion")
	if !ok {
		panic("apiVersion property not found in schema")
	}

	for _, version := range ValidAPIVersions {
		apiVersion.OneOf = append(apiVersion.OneOf, &jsonschema.Schema{
			Type:  "string",
			Const: version,
			Title: "API Version",
		})
	}

	_, _ = jss.Properties.Set("apiVersion", apiVersion)

	kind, ok := jss.Properties.Get("kind")
	if !ok {
		panic("kind property not found in schema")
	}

	for _, kindValue := range ValidKinds {
		kind.OneOf = append(kind.OneOf, &jsonschema.Schema{
			Type:  "string",
			Const: kindValue,
			Title: "Kind",
		})
	}

	_, _ = jss.Properties.Set("kind", kind)
}

func (c *Config) MarshalYAML() ([]byte, error) {
	b := &bytes.Buffer{}
	enc := yaml.NewEncoder(b)
	err := enc.Encode(*c)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	return b.Bytes(), nil
}

// WriteDefaultConfig writes the embedded default config.yaml and jsonschema to
// the specified path.
func WriteDefaultConfig(path string, force bool) error {
	configExists := false
	pathInfo, err := os.Stat(path)
	if pathInfo != nil {
		switch {
		case err == nil && pathInfo.Mode().IsRegular():
			configExists = true
		case pathInfo.IsDir():
			return fmt.Errorf("%s: path is a directory", path)
		default:
			return fmt.Errorf("%s: unknown file state", path)
		}
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if configExists && force {
		// Move the existing file to a backup.
		backupFile := fmt.Sprintf("%s.%d.old", filepath.Base(path), time.Now().UnixNano())
		backupPath := filepath.Join(filepath.Dir(path), backupFile)
		slog.Info("backing up existing config file",
			slog.String("path", backupPath),
		)

		err = os.Rename(path, backupPath)
		if err != nil {
			return fmt.Errorf("rename existing config file to backup: %w", err)
		}

		configExists = false
	}

	// Write the default config file.
	if !configExists {
		slog.Info("write default configuration",
			slog.String("path", path),
		)

		err = os.WriteFile(path, defaultConfigYAML, 0o600)
		if err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
	} else {
		slog.Debug("configuration file already exists, skipping write",
			slog.String("path", path),
		)
	}

	// Write the JSON schema file alongside the config file.
	schemaPath := filepath.Join(filepath.Dir(path), "config.v1beta1.json")
	slog.Debug("write JSON schema",
		slog.String("path", schemaPath),
	)

	err = os.WriteFile(schemaPath, schemaJSON, 0o600)
	if err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}

	return nil
}

// SetCategories merges domain category overrides into the config file at
// path, preserving the rest of the file including comments.
func SetCategories(path string, overrides index.Categories) error {
	data, err := readConfig(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	cfg, err := NewConfigLoaderFromBytes(data).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	update := struct {
		Categories index.Categories `json:"categories"`
	}{
		Categories: cfg.Categories.Merge(overrides),
	}

	merged, err := yaml.MergeRootFromValue(data, update)
	if err != nil {
		return fmt.Errorf("merge categories section: %w", err)
	}

	err = os.WriteFile(path, merged, 0o600)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func GetPath() string {
	if xdgHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdgHome != "" {
		return filepath.Join(xdgHome, "tabmaster", "config.yaml")
	}

	usrHome, err := os.UserHomeDir()
	if err == nil && usrHome != "" {
		return filepath.Join(usrHome, ".config", "tabmaster", "config.yaml")
	}

	tmpConfig := filepath.Join(os.TempDir(), "tabmaster", "config.yaml")

	slog.Warn("could not determine user config directory, using temp path for config",
		slog.String("path", tmpConfig),
		slog.Any("error", fmt.Errorf("$XDG_CONFIG_HOME is unset, fall back to home directory: %w", err)),
	)

	return tmpConfig
}

func readConfig(path string) ([]byte, error) {
	pathInfo, err := os.Stat(path)
	if pathInfo != nil {
		if err == nil && pathInfo.IsDir() {
			return nil, fmt.Errorf("%s: path is a directory", path)
		}
		if err == nil && !pathInfo.Mode().IsRegular() {
			return nil, fmt.Errorf("%s: unknown file state", path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}
