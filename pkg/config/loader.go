package config

import (
	"bytes"
	"fmt"

	"github.com/tabmaster/tabmaster/pkg/yaml"
)

// ConfigValidator validates configuration data against a schema.
type ConfigValidator interface {
	Validate(data any) error
}

// ConfigLoader handles validation, YAML parsing, and error formatting for
// configuration data.
type ConfigLoader struct {
	cv        ConfigValidator
	yamlError *yaml.ErrorWrapper
	data      []byte
}

func NewConfigLoaderFromBytes(data []byte, opts ...ConfigLoaderOpt) *ConfigLoader {
	cl := &ConfigLoader{
		cv:   DefaultValidator,
		data: data,
	}
	for _, opt := range opts {
		opt(cl)
	}

	cl.yamlError = yaml.NewErrorWrapper(
		yaml.WithSource(cl.data),
		yaml.WithSourceLines(4),
	)

	return cl
}

func NewConfigLoaderFromFile(path string, opts ...ConfigLoaderOpt) (*ConfigLoader, error) {
	data, err := readConfig(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return NewConfigLoaderFromBytes(data, opts...), nil
}

type ConfigLoaderOpt func(*ConfigLoader)

func WithConfigValidator(cv ConfigValidator) ConfigLoaderOpt {
	return func(cl *ConfigLoader) {
		cl.cv = cv
	}
}

// Validate validates configuration data with [ConfigValidator] without loading
// it into a [Config] struct.
func (cl *ConfigLoader) Validate() error {
	// Decode into interface{} for initial validation.
	var anyConfig any

	dec := yaml.NewDecoder(bytes.NewReader(cl.data))
	err := dec.Decode(&anyConfig)
	if err != nil {
		return cl.yamlError.Wrap(err)
	}

	err = cl.cv.Validate(anyConfig)
	if err != nil {
		return cl.yamlError.Wrap(err)
	}

	return nil
}

func (cl *ConfigLoader) Load() (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(cl.data))
	err := dec.Decode(c)
	if err != nil {
		return nil, cl.yamlError.Wrap(err)
	}

	c.EnsureDefaults()

	// Run Go validation on the config (for requirements that can't be
	// represented in the schema).
	err = c.Logging.Validate()
	if err != nil {
		return nil, cl.yamlError.Wrap(err)
	}

	return c, nil
}
