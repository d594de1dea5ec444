// Package command holds the executable side of the engine: the Command value
// type with validation, preview, and conflict semantics; the factory that
// expands rule actions over matched tabs; the priority-ordered conflict
// resolver; and the dispatcher owning the handler registry, lifecycle events,
// and the bounded execution log.
package command
