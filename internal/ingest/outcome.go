package ingest

// Status classifies how a push message was handled. All statuses map to an
// HTTP 200 reply so the broker never redelivers.
type Status int

const (
	// StatusOK means documents were processed and chunks published or stored.
	StatusOK Status = iota
	// StatusNoAction means the message was recognized and deliberately
	// skipped (config objects, multi-page fan-out).
	StatusNoAction
	// StatusSoftFail means the message could not be processed but must still
	// be acknowledged.
	StatusSoftFail
)

// Outcome is the result a handler turns into the push reply.
type Outcome struct {
	Status Status
	Source string
	Reason string
}

func OK(source string) Outcome {
	return Outcome{Status: StatusOK, Source: source}
}

func NoAction(reason string) Outcome {
	return Outcome{Status: StatusNoAction, Reason: reason}
}

func SoftFail(reason string) Outcome {
	return Outcome{Status: StatusSoftFail, Reason: reason}
}
