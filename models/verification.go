package models

import "time"

// VerificationRecord is one entry in a medicine's append-only
// verification history. Entries are appended even when the check comes
// back negative; failed lookups are part of the forensic record.
type VerificationRecord struct {
	ObjectType string    `json:"objectType"`
	MedicineID string    `json:"medicineId"`
	Seq        int       `json:"seq"`
	Verifier   string    `json:"verifier"`
	Authentic  bool      `json:"authentic"`
	Location   string    `json:"location"`
	Notes      string    `json:"notes"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewVerificationRecord creates a verification entry
func NewVerificationRecord(medicineID string, seq int, verifier string, authentic bool, location, notes string, now time.Time) *VerificationRecord {
	return &VerificationRecord{
		ObjectType: ObjectTypeVerification,
		MedicineID: medicineID,
		Seq:        seq,
		Verifier:   verifier,
		Authentic:  authentic,
		Location:   location,
		Notes:      notes,
		Timestamp:  now,
	}
}

// Alert type constants for counterfeit reports
const (
	AlertTypeFakePackaging = "fake-packaging"
	AlertTypeSuspectedFake = "suspected-fake"
	AlertTypeTampered      = "tampered"
	AlertTypeUnknownSource = "unknown-source"
	AlertTypeExpiredResale = "expired-resale"
)

// CounterfeitAlert is one entry in a medicine's append-only alert
// history. Anyone may file one; only Investigated and Resolution ever
// change afterwards, through the owner's resolution step.
type CounterfeitAlert struct {
	ObjectType   string    `json:"objectType"`
	MedicineID   string    `json:"medicineId"`
	Seq          int       `json:"seq"`
	Reporter     string    `json:"reporter"`
	AlertType    string    `json:"alertType"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	Investigated bool      `json:"investigated"`
	Resolution   string    `json:"resolution,omitempty"`
	ResolvedAt   time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy   string    `json:"resolvedBy,omitempty"`
}

// NewCounterfeitAlert creates an uninvestigated alert entry
func NewCounterfeitAlert(medicineID string, seq int, reporter, alertType, description, location string, now time.Time) *CounterfeitAlert {
	return &CounterfeitAlert{
		ObjectType:  ObjectTypeCounterfeit,
		MedicineID:  medicineID,
		Seq:         seq,
		Reporter:    reporter,
		AlertType:   alertType,
		Description: description,
		Location:    location,
		Timestamp:   now,
	}
}

// VerificationStats holds the global provenance counters
type VerificationStats struct {
	TotalVerifications int `json:"totalVerifications"`
	TotalAlerts        int `json:"totalAlerts"`
}
