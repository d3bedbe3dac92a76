package domain

import "time"

// Snapshot is the outcome of one dashboard refresh, as published downstream.
type Snapshot struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Origin      Origin    `json:"origin"`
	Readings    []Reading `json:"readings"`
	Threshold   float64   `json:"threshold"`
	Exceeding   []string  `json:"exceeding,omitempty"`
}

// AlertActive reports whether any node was above the threshold.
func (s Snapshot) AlertActive() bool {
	return len(s.Exceeding) > 0
}
