package notify

// Payload is a composed push notification. Data values must be flat strings;
// the transport rejects anything else.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Outcome classifies a delivery attempt. The dispatcher only classifies;
// clearing a stored token after InvalidToken is the caller's responsibility.
type Outcome int

const (
	// Delivered means the transport accepted the message.
	Delivered Outcome = iota
	// InvalidToken means the token is permanently unusable and should be
	// cleared from the store.
	InvalidToken
	// TransientFailure means delivery failed for a retryable reason; the
	// send is dropped, not retried.
	TransientFailure
	// Skipped means no attempt was made (duplicate of an already-sent
	// (event, recipient) pair).
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case InvalidToken:
		return "invalid_token"
	case TransientFailure:
		return "transient_failure"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
