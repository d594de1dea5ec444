// Package ruleset loads rule documents from disk: either DSL text (.rules)
// or YAML mirroring the rule JSON wire form, wrapped in an apiVersion/kind
// envelope and validated against an embedded JSON schema.
package ruleset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goyaml "github.com/goccy/go-yaml"

	_ "embed"

	"github.com/tabmaster/tabmaster/pkg/dsl"
	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/yaml"
)

const (
	// APIVersion is the envelope apiVersion accepted for YAML rule sets.
	APIVersion = "tabmaster.dev/v1beta1"
	// KindRuleSet is the envelope kind accepted for YAML rule sets.
	KindRuleSet = "RuleSet"
)

var (
	//go:embed ruleset.v1beta1.json
	schemaJSON []byte

	// DefaultValidator validates YAML rule sets against the embedded schema.
	DefaultValidator = yaml.MustNewValidator("/ruleset.v1beta1.json", schemaJSON)

	// ErrUnknownFormat indicates a file extension that is neither DSL nor YAML.
	ErrUnknownFormat = errors.New("unknown ruleset format")
)

// Format discriminates the on-disk representation of a rule set.
type Format string

const (
	FormatDSL  Format = "dsl"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rules", ".tabrules":
		return FormatDSL, nil
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// RuleSet is a parsed rule document.
type RuleSet struct {
	APIVersion string      `json:"apiVersion"`
	Kind       string      `json:"kind"`
	Rules      []rule.Rule `json:"rules"`
}

// Load reads and parses a rule set from a file, picking the format from the
// extension.
func Load(path string) (*RuleSet, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	rs, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return rs, nil
}

// Parse decodes a rule set from bytes in the given format.
func Parse(data []byte, format Format) (*RuleSet, error) {
	switch format {
	case FormatDSL:
		return ParseDSL(data)
	case FormatYAML:
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ParseDSL parses DSL text into a rule set.
func ParseDSL(data []byte) (*RuleSet, error) {
	rules, err := dsl.Parse(string(data))
	if err != nil {
		return nil, err
	}

	return &RuleSet{
		APIVersion: APIVersion,
		Kind:       KindRuleSet,
		Rules:      rules,
	}, nil
}

// ParseYAML validates YAML against the rule-set schema, then decodes it
// through the JSON wire form. Schema violations are reported with source
// annotation.
func ParseYAML(data []byte) (*RuleSet, error) {
	wrapper := yaml.NewErrorWrapper(
		yaml.WithSource(data),
		yaml.WithSourceLines(4),
	)

	var doc any

	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, wrapper.Wrap(err)
	}

	if err := DefaultValidator.Validate(doc); err != nil {
		return nil, wrapper.Wrap(err)
	}

	jsonData, err := goyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("convert ruleset to json: %w", err)
	}

	rs := &RuleSet{}
	if err := json.Unmarshal(jsonData, rs); err != nil {
		return nil, fmt.Errorf("decode ruleset: %w", err)
	}

	for i := range rs.Rules {
		if err := rs.Rules[i].Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rs.Rules[i].Name, err)
		}
	}

	return rs, nil
}

// EncodeDSL renders the rule set in canonical DSL form.
func (rs *RuleSet) EncodeDSL() string {
	return dsl.Format(rs.Rules)
}

// EncodeYAML renders the rule set as a YAML document with the envelope.
func (rs *RuleSet) EncodeYAML() ([]byte, error) {
	jsonData, err := json.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("encode ruleset: %w", err)
	}

	out, err := goyaml.JSONToYAML(jsonData)
	if err != nil {
		return nil, fmt.Errorf("convert ruleset to yaml: %w", err)
	}

	return out, nil
}

// Enabled returns the enabled rules, in document order.
func (rs *RuleSet) Enabled() []rule.Rule {
	var out []rule.Rule

	for _, r := range rs.Rules {
		if r.Enabled {
			out = append(out, r)
		}
	}

	return out
}
