// Package index builds the evaluation context for a tab snapshot: derived
// per-tab fields (domain, origin, dupe key, categories, age) and aggregate
// indices keyed by those fields, all computed in a single pass.
package index
