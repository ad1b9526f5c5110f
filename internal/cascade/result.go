package cascade

import (
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
)

// Direction is the kind of cascade.
type Direction string

const (
	DirectionArchive Direction = "archive"
	DirectionRestore Direction = "restore"
)

// State tracks one cascade operation:
//
//	requested -> computing -> applying -> done | partial_failure
type State string

const (
	StateRequested      State = "requested"
	StateComputing      State = "computing"
	StateApplying       State = "applying"
	StateDone           State = "done"
	StatePartialFailure State = "partial_failure"
)

// Result describes what a cascade did. Succeeded lists applied calls in the
// order they were issued; Pending lists the planned calls that were never
// issued because Failed stopped the cascade.
type Result struct {
	Direction Direction
	Operation string
	Origin    entities.Ref
	State     State
	Resumed   bool

	Succeeded []entities.Ref
	Failed    *entities.Ref
	Err       error
	Pending   []entities.Ref
	Skipped   []entities.Ref
}

func (r *Result) IsPartial() bool {
	return r.State == StatePartialFailure
}

func (r *Result) fail(ref entities.Ref, err error, pending []entities.Ref) {
	failed := ref
	r.Failed = &failed
	r.Err = err
	r.Pending = append([]entities.Ref(nil), pending...)
	r.State = StatePartialFailure
}

// Report converts the result to its transport form.
func (r *Result) Report() *ports.CascadeReport {
	report := &ports.CascadeReport{
		OperationID: r.Operation,
		Origin:      r.Origin,
		State:       string(r.State),
		Succeeded:   append([]entities.Ref{}, r.Succeeded...),
		Failed:      r.Failed,
		Pending:     r.Pending,
		Skipped:     r.Skipped,
	}
	if r.Err != nil {
		report.Error = r.Err.Error()
	}
	return report
}
