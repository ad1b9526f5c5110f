package store

// Action names what changed in a store.
type Action string

const (
	ActionFetchStarted Action = "fetch_started"
	ActionFetched      Action = "fetched"
	ActionFetchFailed  Action = "fetch_failed"
	ActionCreated      Action = "created"
	ActionUpdated      Action = "updated"
	ActionArchived     Action = "archived"
	ActionRestored     Action = "restored"
	ActionCompleted    Action = "completed"
	ActionUncompleted  Action = "uncompleted"
	ActionSelected     Action = "selected"
	ActionFailed       Action = "failed"
)

// Change is published to listeners after the store state it describes is
// visible to readers.
type Change struct {
	Store  string
	Action Action
	ID     string
}

// Listener receives store changes. Listeners run on the goroutine that
// finished the action and must not block.
type Listener func(Change)

// ActionError is returned by every failing store action. Its message is the
// repository's message unchanged.
type ActionError struct {
	Store  string
	Action string
	ID     string
	Err    error
}

func (e *ActionError) Error() string {
	return e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
