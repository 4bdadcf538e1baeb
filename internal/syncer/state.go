package syncer

// State identifies where a sync attempt is in its fixed sequence.
type State int

const (
	// StateIdle means no sync attempt is in flight.
	StateIdle State = iota
	// StateCheckingConnectivity means the reachability probe is running.
	StateCheckingConnectivity
	// StateDrainingPitStage means a staged pit record is being uploaded.
	StateDrainingPitStage
	// StateDrainingMatchStage means a staged match record is being uploaded.
	StateDrainingMatchStage
	// StateFetching means the full remote fetch is running.
	StateFetching
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCheckingConnectivity:
		return "checking-connectivity"
	case StateDrainingPitStage:
		return "draining-pit-stage"
	case StateDrainingMatchStage:
		return "draining-match-stage"
	case StateFetching:
		return "fetching"
	default:
		return "unknown"
	}
}
