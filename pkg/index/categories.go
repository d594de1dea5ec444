package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	_ "embed"
)

//go:embed categories.yaml
var defaultCategoriesYAML []byte

// Categories maps a registrable domain (without "www.") to its category tags.
type Categories map[string][]string

// DefaultCategories is the built-in domain categorization table.
var DefaultCategories = MustParseCategories(defaultCategoriesYAML)

// ParseCategories decodes a YAML domain-to-categories mapping.
func ParseCategories(data []byte) (Categories, error) {
	c := Categories{}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	return c, nil
}

// MustParseCategories panics on invalid input. For embedded tables only.
func MustParseCategories(data []byte) Categories {
	c, err := ParseCategories(data)
	if err != nil {
		panic(err)
	}

	return c
}

// Lookup returns the category tags for a domain, walking parent domains so
// "news.ycombinator.com" can hit an exact entry while "m.facebook.com" falls
// back to "facebook.com". The result is nil for unknown domains.
func (c Categories) Lookup(domain string) []string {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))

	for domain != "" {
		if tags, ok := c[domain]; ok {
			return tags
		}

		i := strings.IndexByte(domain, '.')
		if i < 0 || !strings.Contains(domain[i+1:], ".") {
			return nil
		}

		domain = domain[i+1:]
	}

	return nil
}

// Merge overlays other onto c, returning a new table. Entries in other win;
// an explicit empty list removes a domain's tags.
func (c Categories) Merge(other Categories) Categories {
	if len(other) == 0 {
		return c
	}

	merged := make(Categories, len(c)+len(other))
	for domain, tags := range c {
		merged[domain] = tags
	}

	for domain, tags := range other {
		if len(tags) == 0 {
			delete(merged, domain)

			continue
		}

		merged[domain] = tags
	}

	return merged
}

// Tags returns the sorted set of every category tag in the table.
func (c Categories) Tags() []string {
	seen := map[string]struct{}{}
	for _, tags := range c {
		for _, tag := range tags {
			seen[tag] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}

	sort.Strings(out)

	return out
}
