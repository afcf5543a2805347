package checker

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the classified result of checking one identifier.
type Outcome string

const (
	// OutcomeAvailable means the identifier can be claimed (remote code 0).
	OutcomeAvailable Outcome = "available"

	// OutcomeTaken means the identifier is already in use (remote code 1).
	OutcomeTaken Outcome = "taken"

	// OutcomeRejected means the identifier was refused by policy (remote code 2).
	OutcomeRejected Outcome = "rejected"

	// OutcomeUnrecognized means the remote returned a code this client
	// does not know. Terminal; not retried.
	OutcomeUnrecognized Outcome = "unrecognized"

	// OutcomeFatalError means every attempt failed and retries are
	// exhausted.
	OutcomeFatalError Outcome = "fatal_error"
)

// outcomeForCode maps the remote status code to an outcome.
func outcomeForCode(code int) Outcome {
	switch code {
	case 0:
		return OutcomeAvailable
	case 1:
		return OutcomeTaken
	case 2:
		return OutcomeRejected
	default:
		return OutcomeUnrecognized
	}
}

// Result is the terminal state of one identifier check. Exactly one
// Result is produced per submitted identifier.
type Result struct {
	// Identifier is the checked identifier.
	Identifier string

	// Outcome is the classification.
	Outcome Outcome

	// RemoteCode is the integer code from the remote payload, or -1
	// when no payload was obtained.
	RemoteCode int

	// Latency is the duration of the successful attempt (zero for
	// cache hits and exhausted retries).
	Latency time.Duration

	// ErrorDetail describes the last failure for error outcomes.
	ErrorDetail string

	// Cached reports whether the result was served from cache without
	// a network call.
	Cached bool
}

// RecordHeader is the column header matching Record output.
const RecordHeader = "identifier,outcome,remoteCode,latencySeconds,errorDetail"

// Record renders the result as one delimited line:
// identifier,outcome,remoteCode,latencySeconds,errorDetail
// with empty fields for absent optionals.
func (r Result) Record() string {
	code := ""
	if r.RemoteCode >= 0 {
		code = fmt.Sprintf("%d", r.RemoteCode)
	}

	// Keep the record single-line and parseable.
	detail := strings.NewReplacer(",", ";", "\n", " ").Replace(r.ErrorDetail)

	return fmt.Sprintf("%s,%s,%s,%.3f,%s",
		r.Identifier, r.Outcome, code, r.Latency.Seconds(), detail)
}
