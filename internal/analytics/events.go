package analytics

import "time"

type EventType string

const (
	EventBuildCompleted   EventType = "build_completed"
	EventCrawlCompleted   EventType = "crawl_completed"
	EventQueriesEvaluated EventType = "queries_evaluated"
	EventSearch           EventType = "search"
)

// RunEvent reports one finished phase of a driver run.
type RunEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Mode      string    `json:"mode"`
	Source    string    `json:"source"`
	Items     int       `json:"items"`
	Failed    int       `json:"failed"`
	Words     int       `json:"words"`
	Locations int       `json:"locations"`
	Workers   int       `json:"workers"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchEvent reports one HTTP search.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Exact     bool      `json:"exact"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (e RunEvent) key() string    { return e.RunID }
func (e SearchEvent) key() string { return e.Query }

// Event is implemented by RunEvent and SearchEvent.
type Event interface {
	key() string
}
