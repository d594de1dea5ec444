package yaml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/yaml"
)

func TestYAMLError(t *testing.T) {
	t.Parallel()

	err := yaml.NewError(
		errors.New("test error"),
		yaml.WithPath(yaml.NewPathBuilder().Root().Child("key").Build()),
		yaml.WithSourceLines(2),
		yaml.WithSource([]byte(`a: b
b: c
foo: "bar"
key: value
baz: 5
c: d
e: f`)),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "test error")
	assert.Contains(t, err.Error(), "key: value")
	assert.Contains(t, err.Error(), "^")
}
