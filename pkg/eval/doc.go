// Package eval evaluates rule condition trees against tabs. Evaluation is a
// pure function over the tab, its built context, and the condition; it never
// errors, resolving malformed predicates to false instead.
package eval
