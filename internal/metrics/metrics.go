// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Vote rejection reasons reported to IncVoteRejected.
const (
	RejectNotFound       = "not_found"
	RejectForbidden      = "forbidden"
	RejectOptionMismatch = "option_mismatch"
	RejectPollClosed     = "poll_closed"
	RejectDuplicate      = "duplicate"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Poll lifecycle metrics
	IncPollCreated()
	IncPollClosed()
	IncPollDeleted()
	IncQuestionCreated()

	// Voting metrics
	IncVoteAccepted()
	IncVoteRejected(reason string)

	// Results metrics
	ObserveResultsDuration(duration time.Duration)

	// Principal cache metrics
	IncPrincipalCacheHit()
	IncPrincipalCacheMiss()

	// Event stream metrics
	IncEventPublished(status string) // status: "success" or "dropped"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
