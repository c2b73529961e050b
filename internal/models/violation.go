package models

import (
	"time"
)

// AlertSeverity represents the severity level of a violation.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Violation type identifiers, one per required equipment kind.
const (
	ViolationNoHelmet = "no_helmet"
	ViolationNoVest   = "no_vest"
	ViolationNoBoots  = "no_boots"
)

var violationTypeForKind = map[EquipmentKind]string{
	EquipmentHeadwear: ViolationNoHelmet,
	EquipmentTorso:    ViolationNoVest,
	EquipmentFeet:     ViolationNoBoots,
}

var violationLabels = map[string]string{
	ViolationNoHelmet: "Helmet missing",
	ViolationNoVest:   "Safety vest missing",
	ViolationNoBoots:  "Safety boots missing",
}

var violationSeverities = map[string]AlertSeverity{
	ViolationNoHelmet: AlertSeverityHigh,
	ViolationNoVest:   AlertSeverityMedium,
	ViolationNoBoots:  AlertSeverityMedium,
}

// ViolationTypeFor returns the violation type identifier for a missing
// equipment kind.
func ViolationTypeFor(kind EquipmentKind) string {
	return violationTypeForKind[kind]
}

// ViolationLabel returns a human-readable label for a violation type.
func ViolationLabel(violationType string) string {
	if label, ok := violationLabels[violationType]; ok {
		return label
	}
	return violationType
}

// SeverityFor returns the severity assigned to a violation type.
func SeverityFor(violationType string) AlertSeverity {
	if sev, ok := violationSeverities[violationType]; ok {
		return sev
	}
	return AlertSeverityMedium
}

// ViolationStatus is the lifecycle state of a violation event.
type ViolationStatus string

const (
	ViolationActive   ViolationStatus = "active"
	ViolationResolved ViolationStatus = "resolved"
)

// ResolutionReason records why an event was closed.
type ResolutionReason string

const (
	ResolutionEquipmentRestored ResolutionReason = "equipment_restored"
	ResolutionPersonLeft        ResolutionReason = "person_left"
	ResolutionSessionEnd        ResolutionReason = "session_end"
)

// ViolationEvent is a bounded time interval during which a specific person
// lacked a specific required equipment item on a specific camera. Created by
// the tracker; immutable once resolved except for the closing update.
type ViolationEvent struct {
	EventID       string          `json:"event_id"`
	CompanyID     string          `json:"company_id"`
	CameraID      string          `json:"camera_id"`
	PersonID      string          `json:"person_id"`
	ViolationType string          `json:"violation_type"`
	Severity      AlertSeverity   `json:"severity"`
	Status        ViolationStatus `json:"status"`
	StartTime     time.Time       `json:"start_time"`

	EndTime          *time.Time       `json:"end_time,omitempty"`
	DurationSeconds  *float64         `json:"duration_seconds,omitempty"`
	ResolutionReason ResolutionReason `json:"resolution_reason,omitempty"`

	SnapshotPath           string `json:"snapshot_path,omitempty"`
	ResolutionSnapshotPath string `json:"resolution_snapshot_path,omitempty"`

	// LastBBox is the person's most recent box, used for evidence capture.
	LastBBox BBox `json:"last_bbox"`
}

// PersonMonthlyStat is the per-person monthly aggregate, incremented once per
// resolved event.
type PersonMonthlyStat struct {
	PersonID             string  `json:"person_id"`
	CompanyID            string  `json:"company_id"`
	Month                string  `json:"month"` // formatted 2006-01
	ViolationType        string  `json:"violation_type"`
	Count                int64   `json:"count"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

// ViolationEventPhase marks which tracker transition a published payload
// corresponds to.
type ViolationEventPhase string

const (
	ViolationPhaseOpened ViolationEventPhase = "opened"
	ViolationPhaseClosed ViolationEventPhase = "closed"
)

// ViolationEventPayload is the structure published to NATS for each tracker
// delta.
type ViolationEventPayload struct {
	WorkerID  string              `json:"worker_id"`
	Phase     ViolationEventPhase `json:"phase"`
	Event     ViolationEvent      `json:"event"`
	Label     string              `json:"label"`
	Timestamp time.Time           `json:"timestamp"`
}
