package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncPollCreated()                               {}
func (n *NoopRecorder) IncPollClosed()                                {}
func (n *NoopRecorder) IncPollDeleted()                               {}
func (n *NoopRecorder) IncQuestionCreated()                           {}
func (n *NoopRecorder) IncVoteAccepted()                              {}
func (n *NoopRecorder) IncVoteRejected(reason string)                 {}
func (n *NoopRecorder) ObserveResultsDuration(duration time.Duration) {}
func (n *NoopRecorder) IncPrincipalCacheHit()                         {}
func (n *NoopRecorder) IncPrincipalCacheMiss()                        {}
func (n *NoopRecorder) IncEventPublished(status string)               {}
