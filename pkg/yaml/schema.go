package yaml

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

const modulePath = "github.com/tabmaster/tabmaster"

// SchemaGenerator reflects a JSON schema from a Go configuration type.
// Doc comments from the listed packages become property descriptions.
type SchemaGenerator struct {
	target   any
	pkgPaths []string
}

func NewSchemaGenerator(target any, pkgPaths ...string) *SchemaGenerator {
	return &SchemaGenerator{
		target:   target,
		pkgPaths: pkgPaths,
	}
}

func (g *SchemaGenerator) Generate() ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: false,
	}

	for _, pkgPath := range g.pkgPaths {
		rel := "./" + strings.TrimPrefix(pkgPath, modulePath+"/")

		err := r.AddGoComments(modulePath, rel)
		if err != nil {
			return nil, fmt.Errorf("add comments from %s: %w", pkgPath, err)
		}
	}

	jss := r.Reflect(g.target)

	data, err := json.MarshalIndent(jss, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(data, '\n'), nil
}
