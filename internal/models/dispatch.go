package models

import "time"

// UnitStatus is the availability of a field unit
type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitBusy      UnitStatus = "busy"
)

// IsValid checks if the unit status is valid
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitAvailable, UnitBusy:
		return true
	default:
		return false
	}
}

// FieldUnit is a real-world responder. Status is the only field changed after registration.
type FieldUnit struct {
	UnitID              string     `json:"unitId" yaml:"unit_id" binding:"required"`
	Type                string     `json:"type" yaml:"type" binding:"required"`
	Status              UnitStatus `json:"status" yaml:"status"`
	Location            string     `json:"location" yaml:"location"`
	NotificationAddress string     `json:"notification_address,omitempty" yaml:"notification_address"`
}

// DispatchInstruction is created once per critical event and keyed by its event id
type DispatchInstruction struct {
	EventID   string      `json:"eventId"`
	Action    string      `json:"action"`
	Units     []FieldUnit `json:"units"`
	Location  string      `json:"location,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ETA       float64     `json:"eta"`
}

// DispatchRejection records a critical event that found no available unit
type DispatchRejection struct {
	EventID    string    `json:"eventId"`
	Action     string    `json:"action"`
	Capability string    `json:"capability"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// Escalation records a critical event routed to supervisors instead of units
type Escalation struct {
	EventID    string    `json:"eventId"`
	Action     string    `json:"action"`
	Type       string    `json:"type"`
	Severity   Severity  `json:"severity"`
	Location   string    `json:"location"`
	Recipients []string  `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}
