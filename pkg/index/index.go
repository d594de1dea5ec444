package index

import (
	"time"

	"github.com/tabmaster/tabmaster/pkg/rule"
	"github.com/tabmaster/tabmaster/pkg/tab"
	"github.com/tabmaster/tabmaster/pkg/urlnorm"
)

// Derived holds the per-tab fields computed from a snapshot.
type Derived struct {
	// Domain is the registrable host with "www." stripped.
	Domain string
	// Origin is scheme://host of the tab URL.
	Origin string
	// DupeKey is the normalized URL used to bucket duplicates.
	DupeKey string
	// Categories are the tags from the categorization table, nil if unknown.
	Categories []string
	// Age is the time since the tab was last focused, zero when unreported.
	Age time.Duration
}

// Context is the evaluation context for one snapshot: every tab with its
// derived fields, window lookup, and the aggregate indices. Values map keys
// to the ordered list of tab IDs sharing that key, in snapshot order.
type Context struct {
	Tabs []tab.Tab

	ByDomain   map[string][]int
	ByOrigin   map[string][]int
	ByDupeKey  map[string][]int
	ByCategory map[string][]int

	derived map[int]Derived
	windows map[int]tab.Window
}

// Opt configures the context build.
type Opt func(*builder)

type builder struct {
	normalizer *urlnorm.Normalizer
	categories Categories
	now        func() time.Time
}

// WithNormalizer overrides the URL normalizer used for dupe keys.
func WithNormalizer(n *urlnorm.Normalizer) Opt {
	return func(b *builder) {
		b.normalizer = n
	}
}

// WithCategories overrides the domain categorization table.
func WithCategories(c Categories) Opt {
	return func(b *builder) {
		b.categories = c
	}
}

// WithNow overrides the clock used to compute tab ages.
func WithNow(now func() time.Time) Opt {
	return func(b *builder) {
		b.now = now
	}
}

// Build computes derived fields and aggregate indices in one pass over the
// snapshot. The snapshot is only read; tabs keep their input order in every
// index bucket.
func Build(snap *tab.Snapshot, opts ...Opt) *Context {
	b := builder{
		normalizer: urlnorm.Default,
		categories: DefaultCategories,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}

	now := b.now()

	c := &Context{
		Tabs:       snap.Tabs,
		ByDomain:   map[string][]int{},
		ByOrigin:   map[string][]int{},
		ByDupeKey:  map[string][]int{},
		ByCategory: map[string][]int{},
		derived:    make(map[int]Derived, len(snap.Tabs)),
		windows:    make(map[int]tab.Window, len(snap.Windows)),
	}

	for _, w := range snap.Windows {
		c.windows[w.ID] = w
	}

	for _, t := range snap.Tabs {
		d := Derived{
			Domain:  urlnorm.Domain(t.URL),
			Origin:  urlnorm.Origin(t.URL),
			DupeKey: b.normalizer.DupeKey(t.URL),
		}
		d.Categories = b.categories.Lookup(d.Domain)

		if at := t.LastAccessedTime(); !at.IsZero() && at.Before(now) {
			d.Age = now.Sub(at)
		}

		c.derived[t.ID] = d

		if d.Domain != "" {
			c.ByDomain[d.Domain] = append(c.ByDomain[d.Domain], t.ID)
		}

		if d.Origin != "" {
			c.ByOrigin[d.Origin] = append(c.ByOrigin[d.Origin], t.ID)
		}

		if d.DupeKey != "" {
			c.ByDupeKey[d.DupeKey] = append(c.ByDupeKey[d.DupeKey], t.ID)
		}

		for _, cat := range d.Categories {
			c.ByCategory[cat] = append(c.ByCategory[cat], t.ID)
		}
	}

	return c
}

// Derived returns the computed fields for a tab ID.
func (c *Context) Derived(id int) (Derived, bool) {
	d, ok := c.derived[id]

	return d, ok
}

// Window returns the window record owning the given tab.
func (c *Context) Window(t tab.Tab) (tab.Window, bool) {
	w, ok := c.windows[t.WindowID]

	return w, ok
}

// IsDupe reports whether the tab's dupe-key bucket holds more than one tab.
func (c *Context) IsDupe(t tab.Tab) bool {
	d, ok := c.derived[t.ID]
	if !ok {
		return false
	}

	return len(c.ByDupeKey[d.DupeKey]) > 1
}

// DomainCount returns the number of tabs sharing the tab's domain.
func (c *Context) DomainCount(t tab.Tab) int {
	d, ok := c.derived[t.ID]
	if !ok {
		return 0
	}

	return len(c.ByDomain[d.Domain])
}

// Count resolves an aggregate metric for a tab via bucket length.
func (c *Context) Count(t tab.Tab, metric rule.CountMetric) int {
	d, ok := c.derived[t.ID]
	if !ok {
		return 0
	}

	switch metric {
	case rule.MetricDomain:
		return len(c.ByDomain[d.Domain])
	case rule.MetricOrigin:
		return len(c.ByOrigin[d.Origin])
	case rule.MetricDupeKey:
		return len(c.ByDupeKey[d.DupeKey])
	default:
		return 0
	}
}

// Duplicates returns the IDs of every duplicate tab, in snapshot order.
func (c *Context) Duplicates() []int {
	var ids []int

	for _, t := range c.Tabs {
		if c.IsDupe(t) {
			ids = append(ids, t.ID)
		}
	}

	return ids
}
