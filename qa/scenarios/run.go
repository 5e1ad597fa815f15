package scenarios

import (
	"errors"
	"fmt"

	"github.com/kilianp07/chargeguard/core/allocator"
)

// StepResult records what a step did.
type StepResult struct {
	Index     int
	Step      Step
	Outcome   string
	SessionID string
	Stopped   bool
	Message   string
	// Mismatch describes a failed expectation; empty when the step passed.
	Mismatch string
}

func (r StepResult) String() string {
	status := "ok"
	if r.Mismatch != "" {
		status = "FAIL: " + r.Mismatch
	}
	switch r.Step.Action {
	case ActionStop:
		return fmt.Sprintf("%2d stop %s -> stopped=%t [%s]", r.Index, r.Step.Session, r.Stopped, status)
	default:
		return fmt.Sprintf("%2d request %s@%s -> %s [%s]", r.Index, r.Step.User, r.Step.Station, r.Outcome, status)
	}
}

// Run executes every step of sc against alloc. The returned error joins all
// expectation mismatches; the results are complete either way.
func Run(alloc *allocator.Allocator, sc *Scenario) ([]StepResult, error) {
	labels := map[string]string{}
	results := make([]StepResult, 0, len(sc.Steps))
	var errs []error
	for i, st := range sc.Steps {
		res := StepResult{Index: i + 1, Step: st}
		switch st.Action {
		case ActionRequest:
			ar := alloc.RequestCharge(st.User, st.Station)
			res.Message = ar.Message
			res.Outcome = ar.Reason.String()
			if ar.Success {
				res.Outcome = OutcomeAdmitted
				res.SessionID = ar.Session.ID
				if st.SaveAs != "" {
					labels[st.SaveAs] = ar.Session.ID
				}
			}
			if st.Expect.Outcome != "" && st.Expect.Outcome != res.Outcome {
				res.Mismatch = fmt.Sprintf("expected %s, got %s", st.Expect.Outcome, res.Outcome)
			}
		case ActionStop:
			id := st.Session
			if saved, ok := labels[id]; ok {
				id = saved
			}
			res.SessionID = id
			res.Stopped = alloc.StopCharge(id)
			if st.Expect.Stopped != nil && *st.Expect.Stopped != res.Stopped {
				res.Mismatch = fmt.Sprintf("expected stopped=%t", *st.Expect.Stopped)
			}
		default:
			res.Mismatch = fmt.Sprintf("unknown action %q", st.Action)
		}
		if res.Mismatch != "" {
			errs = append(errs, fmt.Errorf("%s step %d: %s", sc.Name, res.Index, res.Mismatch))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
