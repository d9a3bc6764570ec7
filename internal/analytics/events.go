// Package analytics records what users search for and how the engine
// behaves, so operators can spot zero-result queries, degraded periods,
// and latency regressions. Events flow through Kafka to an in-process
// aggregator whose rollups are periodically snapshotted to PostgreSQL.
package analytics

import "time"

type EventType string

const (
	EventSearch  EventType = "search"
	EventSuggest EventType = "suggest"
	EventRebuild EventType = "rebuild"
)

// SearchEvent captures one search or autocomplete request.
type SearchEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	UserID       string    `json:"user_id,omitempty"`
	Total        int       `json:"total"`
	Returned     int       `json:"returned"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Degraded     bool      `json:"degraded"`
	GenerationID uint64    `json:"generation_id"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

// RebuildEvent captures one catalog rebuild attempt.
type RebuildEvent struct {
	Type         EventType `json:"type"`
	GenerationID uint64    `json:"generation_id"`
	Listings     int       `json:"listings"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	Timestamp    time.Time `json:"timestamp"`
}
