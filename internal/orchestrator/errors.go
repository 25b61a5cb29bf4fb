package orchestrator

import "errors"

// ErrPrecondition indicates an operation was invoked in a state that does
// not allow it, such as executing a task that already finished or marking
// a task complete that is not waiting for the user. The operation leaves
// the workflow unchanged unless the error message says otherwise.
var ErrPrecondition = errors.New("precondition not met")
