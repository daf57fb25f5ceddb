// Package circuit tracks per-provider availability for the fallback chain.
package circuit

import "time"

// State represents the circuit state of one provider.
type State int

const (
	// StateClosed lets attempts through.
	StateClosed State = iota
	// StateOpen skips the provider until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows a single trial attempt.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a provider circuit.
type Snapshot struct {
	Name                string    `json:"name"`
	State               State     `json:"-"`
	StateName           string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
	TrialInFlight       bool      `json:"trial_in_flight"`
}

// StateChangeFunc is invoked after a circuit changes state. It is called
// outside the circuit lock.
type StateChangeFunc func(name string, from, to State)
