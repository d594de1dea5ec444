// Package tab defines the input records the rules engine operates on.
// Tabs and windows are owned by the caller; the engine only reads them.
package tab
