package feed

// State is the supervisor's view of the feed connection. The supervisor is
// the only writer; everything downstream treats a missing tick stream as
// silence, not as an error.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateSubscribed
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribed:
		return "subscribed"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}
