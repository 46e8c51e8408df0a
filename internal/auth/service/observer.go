package service

// Outcome labels reported to an Observer.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Observer receives the outcome of every operation, usually to feed metrics.
type Observer interface {
	AuthOperation(operation, outcome string)
	Authentication(method, outcome string)
	RefreshConflict()
}

type nopObserver struct{}

func (nopObserver) AuthOperation(string, string)  {}
func (nopObserver) Authentication(string, string) {}
func (nopObserver) RefreshConflict()              {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

// outcomeOf classifies err: nil is a success, a dependency failure is an
// error, anything else is an expected client-side failure.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case isDependency(err):
		return OutcomeError
	default:
		return OutcomeFailure
	}
}
