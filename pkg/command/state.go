package command

// State is the per-command execution state. Transitions:
//
//	Pending -> Skipped (conflict, or execution aborted)
//	Pending -> Validated -> Previewed (dry run)
//	Pending -> Validated -> Dispatched -> Succeeded | Failed
//
// Skipped, Previewed, Succeeded, and Failed are terminal.
type State string

const (
	StatePending    State = "pending"
	StateSkipped    State = "skipped"
	StateValidated  State = "validated"
	StatePreviewed  State = "previewed"
	StateDispatched State = "dispatched"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)
