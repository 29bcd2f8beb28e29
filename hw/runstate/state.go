package runstate

//go:generate go tool stringer -type=State

// State is the run state shared by the execution goroutine and the control
// path. Stop, Pause and Continue are requests, the execution goroutine
// acknowledges them by moving to Stopped, Paused and Running.
type State uint32

const (
	Stop State = iota
	Stopped
	Pause
	Paused
	Continue
	Running
)

// Ack returns the state acknowledging request s. Non request states are
// their own acknowledgement.
func (s State) Ack() State {
	switch s {
	case Stop:
		return Stopped
	case Pause:
		return Paused
	case Continue:
		return Running
	}
	return s
}

// Quiesced reports whether the execution goroutine performs no table access
// in state s.
func (s State) Quiesced() bool {
	return s == Stopped || s == Paused
}

// IsRequest reports whether s is waiting for an acknowledgement.
func (s State) IsRequest() bool {
	return s == Stop || s == Pause || s == Continue
}
