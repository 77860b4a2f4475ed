package companion

import "errors"

// Outcome classifies a single identity probe.
type Outcome int

const (
	// Unreachable covers connection errors, the local timeout and non-2xx replies.
	Unreachable Outcome = iota
	// WrongService means something answered but it is not the companion server.
	WrongService
	Matched
	// Cancelled means the surrounding session was cancelled while probing.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case WrongService:
		return "wrong_service"
	case Cancelled:
		return "cancelled"
	default:
		return "unreachable"
	}
}

// ProbeResult is the classified result of one probe.
type ProbeResult struct {
	Outcome Outcome
	Host    string
	Port    int
	// Identity is set only for Matched.
	Identity *Identity
	// StatusCode is the HTTP status when a reply was received.
	StatusCode int
	Err        error
}

var (
	errMissingSignature  = errors.New("identity reply carries no signature")
	errSignatureMismatch = errors.New("identity signature mismatch")

	// errProbeTimeout is the cause recorded when the local probe deadline fires.
	errProbeTimeout = errors.New("identity probe timed out")
)

// IsTimeout reports whether a probe failed on its own deadline.
func (r ProbeResult) IsTimeout() bool {
	return errors.Is(r.Err, errProbeTimeout)
}
