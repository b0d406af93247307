package provision

// StepKind tags a committed side effect.
type StepKind string

const (
	StepCustomerRecord StepKind = "CUSTOMER_RECORD"
	StepFileUpload     StepKind = "FILE_UPLOAD"
	StepServiceRecord  StepKind = "SERVICE_RECORD"
	StepIdentity       StepKind = "IDENTITY"
)

// CommittedStep is one side effect that has definitely happened. Handle is
// the id or path needed to undo it.
type CommittedStep struct {
	Kind   StepKind
	Handle string
}

// State is the ordered record of what one provisioning run has committed.
// It lives only for the duration of the run.
type State struct {
	steps []CommittedStep
}

// Record appends a committed step.
func (s *State) Record(kind StepKind, handle string) {
	s.steps = append(s.steps, CommittedStep{Kind: kind, Handle: handle})
}

// Steps returns a copy of the committed steps in commit order.
func (s *State) Steps() []CommittedStep {
	return append([]CommittedStep(nil), s.steps...)
}

// Len returns the number of committed steps.
func (s *State) Len() int { return len(s.steps) }
