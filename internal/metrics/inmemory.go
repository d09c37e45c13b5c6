package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	PollsCreated           uint64
	PollsClosed            uint64
	PollsDeleted           uint64
	QuestionsCreated       uint64
	VotesAccepted          uint64
	VotesRejected          map[string]uint64
	ResultsDurationCount   uint64
	ResultsDurationTotalNs int64
	PrincipalCacheHits     uint64
	PrincipalCacheMisses   uint64
	EventsPublished        uint64
	EventsDropped          uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and is used directly by tests.
type InMemoryRecorder struct {
	pollsCreated           uint64
	pollsClosed            uint64
	pollsDeleted           uint64
	questionsCreated       uint64
	votesAccepted          uint64
	resultsDurationCount   uint64
	resultsDurationTotalNs int64
	principalCacheHits     uint64
	principalCacheMisses   uint64
	eventsPublished        uint64
	eventsDropped          uint64

	mu            sync.Mutex
	votesRejected map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{votesRejected: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := make(map[string]uint64, len(m.votesRejected))
	for reason, n := range m.votesRejected {
		rejected[reason] = n
	}
	m.mu.Unlock()

	return Snapshot{
		PollsCreated:           atomic.LoadUint64(&m.pollsCreated),
		PollsClosed:            atomic.LoadUint64(&m.pollsClosed),
		PollsDeleted:           atomic.LoadUint64(&m.pollsDeleted),
		QuestionsCreated:       atomic.LoadUint64(&m.questionsCreated),
		VotesAccepted:          atomic.LoadUint64(&m.votesAccepted),
		VotesRejected:          rejected,
		ResultsDurationCount:   atomic.LoadUint64(&m.resultsDurationCount),
		ResultsDurationTotalNs: atomic.LoadInt64(&m.resultsDurationTotalNs),
		PrincipalCacheHits:     atomic.LoadUint64(&m.principalCacheHits),
		PrincipalCacheMisses:   atomic.LoadUint64(&m.principalCacheMisses),
		EventsPublished:        atomic.LoadUint64(&m.eventsPublished),
		EventsDropped:          atomic.LoadUint64(&m.eventsDropped),
	}
}

func (m *InMemoryRecorder) IncPollCreated()     { atomic.AddUint64(&m.pollsCreated, 1) }
func (m *InMemoryRecorder) IncPollClosed()      { atomic.AddUint64(&m.pollsClosed, 1) }
func (m *InMemoryRecorder) IncPollDeleted()     { atomic.AddUint64(&m.pollsDeleted, 1) }
func (m *InMemoryRecorder) IncQuestionCreated() { atomic.AddUint64(&m.questionsCreated, 1) }
func (m *InMemoryRecorder) IncVoteAccepted()    { atomic.AddUint64(&m.votesAccepted, 1) }

// IncVoteRejected counts a rejected vote under its reason.
func (m *InMemoryRecorder) IncVoteRejected(reason string) {
	m.mu.Lock()
	m.votesRejected[reason]++
	m.mu.Unlock()
}

// ObserveResultsDuration records how long a results computation took.
func (m *InMemoryRecorder) ObserveResultsDuration(duration time.Duration) {
	atomic.AddUint64(&m.resultsDurationCount, 1)
	atomic.AddInt64(&m.resultsDurationTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) IncPrincipalCacheHit()  { atomic.AddUint64(&m.principalCacheHits, 1) }
func (m *InMemoryRecorder) IncPrincipalCacheMiss() { atomic.AddUint64(&m.principalCacheMisses, 1) }

// IncEventPublished counts stream publishes by outcome.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.eventsPublished, 1)
		return
	}
	atomic.AddUint64(&m.eventsDropped, 1)
}
