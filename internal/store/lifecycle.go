package store

// Status is the fetch state of a store.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// Lifecycle is the fetch state machine of one store together with the last
// error message seen by any of its actions.
//
//	idle|loaded|error --fetch--> loading --ok--> loaded
//	                                     --err-> error(message)
//
// A failed mutation records its message in Error without leaving the
// current status. Error is cleared when the next fetch starts.
type Lifecycle struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (l Lifecycle) IsLoading() bool { return l.Status == StatusLoading }
func (l Lifecycle) HasError() bool  { return l.Error != "" }

func (l *Lifecycle) begin() {
	l.Status = StatusLoading
	l.Error = ""
}

func (l *Lifecycle) succeed() {
	l.Status = StatusLoaded
}

func (l *Lifecycle) fail(message string) {
	l.Status = StatusError
	l.Error = message
}

func (l *Lifecycle) recordMutationError(message string) {
	l.Error = message
}
