// Package rule defines the Rule AST: a named unit combining a condition
// tree, an ordered action list, a trigger spec, and flags.
//
// Conditions form a recursive boolean expression over all/any/none groups
// and leaf predicates. The AST is produced by the DSL parser or decoded from
// its JSON form, and is immutable once built.
package rule
