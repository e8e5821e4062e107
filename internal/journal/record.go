package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ActionMove is the only action currently recorded.
const ActionMove = "move"

// legacyTimestampLayout accepts ISO-8601 values written without a zone offset.
const legacyTimestampLayout = "2006-01-02T15:04:05.999999999"

// Timestamp marshals as RFC 3339 with the local offset and also accepts
// offset-less ISO-8601 values, interpreted in local time.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(legacyTimestampLayout, raw, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp %q is not ISO-8601", raw)
	}
	t.Time = parsed
	return nil
}

// MoveRecord is one performed move. It is never modified once persisted.
type MoveRecord struct {
	Action      string    `json:"action"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Timestamp   Timestamp `json:"timestamp"`
	Category    string    `json:"category"`
}

// NewMove builds a move record stamped with at.
func NewMove(source, destination, category string, at time.Time) MoveRecord {
	return MoveRecord{
		Action:      ActionMove,
		Source:      source,
		Destination: destination,
		Timestamp:   Timestamp{at},
		Category:    category,
	}
}

func (r MoveRecord) validate() error {
	switch {
	case r.Action != ActionMove:
		return fmt.Errorf("unsupported action %q", r.Action)
	case strings.TrimSpace(r.Source) == "":
		return fmt.Errorf("source is empty")
	case strings.TrimSpace(r.Destination) == "":
		return fmt.Errorf("destination is empty")
	case r.Timestamp.IsZero():
		return fmt.Errorf("timestamp is missing")
	}
	return nil
}

// Log is the in-memory transaction log of one run.
type Log struct {
	mu      sync.Mutex
	created time.Time
	records []MoveRecord
}

// NewLog returns an empty log created at the given time.
func NewLog(created time.Time) *Log {
	return &Log{created: created}
}

// Append adds a record to the end of the log.
func (l *Log) Append(record MoveRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// Records returns a copy of the records in append order.
func (l *Log) Records() []MoveRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MoveRecord(nil), l.records...)
}

// Len reports how many records have been appended.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Created returns the log's creation time.
func (l *Log) Created() time.Time {
	return l.created
}
