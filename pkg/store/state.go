package store

// State is the position of a publish attempt.
type State string

const (
	StateIdle                 State = "idle"
	StatePreparing            State = "preparing"
	StateCheckingAvailability State = "checking_availability"
	StateAvailable            State = "available"
	StateConflict             State = "conflict"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSubmitting           State = "submitting"
	StatePublished            State = "published"
	StateFailed               State = "failed"
)

// Busy reports whether an attempt is running and cannot be restarted or cancelled.
func (s State) Busy() bool {
	switch s {
	case StatePreparing, StateCheckingAvailability, StateAvailable, StateConflict, StateSubmitting:
		return true
	default:
		return false
	}
}

// Terminal reports whether the attempt has finished.
func (s State) Terminal() bool {
	return s == StatePublished || s == StateFailed
}
