// Package storage holds the snapshot sinks: local files, Postgres and Redis.
package storage

import (
	"time"

	"analyticsScope/internal/dashboard"
)

// SummaryRecord is the compact per-refresh line written to history files and pub/sub.
type SummaryRecord struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Affiliates  int               `json:"affiliates"`
	Solvers     int               `json:"solvers"`
	Summary     dashboard.Summary `json:"summary"`
}

// NewSummaryRecord extracts the summary line of snap.
func NewSummaryRecord(snap *dashboard.Snapshot) SummaryRecord {
	return SummaryRecord{
		GeneratedAt: snap.GeneratedAt,
		Affiliates:  len(snap.Affiliates),
		Solvers:     len(snap.Solvers),
		Summary:     snap.Summary,
	}
}
