package models

import "time"

// SummaryRecord is an append-only human-readable description of one alert
type SummaryRecord struct {
	ID        string    `json:"id"`
	EventIDs  []string  `json:"eventIds"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
	Language  string    `json:"language"`
	Source    string    `json:"source"`
}
