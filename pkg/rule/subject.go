package rule

import (
	"fmt"
	"strings"
)

// SubjectKind discriminates how a leaf subject is resolved.
type SubjectKind int

const (
	// SubjectTab resolves against the tab record or a derived/synthetic field.
	SubjectTab SubjectKind = iota
	// SubjectWindow resolves against the tab's owning window record.
	SubjectWindow
	// SubjectCount resolves to the size of an aggregate index bucket.
	SubjectCount
)

// CountMetric names the index consulted by a [SubjectCount] subject.
type CountMetric string

const (
	MetricDomain  CountMetric = "domain"
	MetricOrigin  CountMetric = "origin"
	MetricDupeKey CountMetric = "dupeKey"
)

const countPrefix = "tab.countPerOrigin:"

// Subject is a parsed leaf subject path. Paths are parsed once at condition
// build time so the evaluator never re-parses strings per tab.
type Subject struct {
	// Raw is the original dotted path, used for serialization.
	Raw string
	// Field is the tab or window field name, without its prefix.
	Field string
	// Metric selects the aggregate index for [SubjectCount] subjects.
	Metric CountMetric
	// Kind discriminates resolution.
	Kind SubjectKind
}

// ParseSubject parses a dotted subject path. Recognized forms:
//
//	tab.<field>, <field>            tab record / derived / synthetic field
//	window.<field>                  owning window field
//	tab.countPerOrigin:<metric>     aggregate bucket size
func ParseSubject(raw string) (Subject, error) {
	if raw == "" {
		return Subject{}, fmt.Errorf("empty subject path")
	}

	if metric, ok := strings.CutPrefix(raw, countPrefix); ok {
		m := CountMetric(metric)
		switch m {
		case MetricDomain, MetricOrigin, MetricDupeKey:
			return Subject{Raw: raw, Kind: SubjectCount, Metric: m}, nil
		}

		return Subject{}, fmt.Errorf("unknown count metric %q", metric)
	}

	if field, ok := strings.CutPrefix(raw, "window."); ok {
		if field == "" {
			return Subject{}, fmt.Errorf("empty window field in %q", raw)
		}

		return Subject{Raw: raw, Kind: SubjectWindow, Field: field}, nil
	}

	field := strings.TrimPrefix(raw, "tab.")
	if field == "" || strings.Contains(field, ".") {
		return Subject{}, fmt.Errorf("malformed subject path %q", raw)
	}

	return Subject{Raw: raw, Kind: SubjectTab, Field: field}, nil
}

// MustSubject parses a subject path and panics on error.
func MustSubject(raw string) Subject {
	s, err := ParseSubject(raw)
	if err != nil {
		panic(err)
	}

	return s
}

func (s Subject) String() string {
	return s.Raw
}
