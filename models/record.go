package models

import "time"

// MedicalRecord is a reference to an off-ledger medical document. The
// ledger holds the content hash, never the content. Once written the
// entry is immutable; there is no update or delete path.
type MedicalRecord struct {
	ObjectType string    `json:"objectType"`
	RecordHash string    `json:"recordHash"`
	Patient    string    `json:"patient"`
	Provider   string    `json:"provider"`
	RecordType string    `json:"recordType"`
	CreatedAt  time.Time `json:"createdAt"`
	Active     bool      `json:"active"`
}

// RecordType constants
const (
	RecordTypeMedicalHistory = "medical_history"
	RecordTypePrescription   = "prescription"
	RecordTypeLabResult      = "lab_result"
	RecordTypeImaging        = "imaging"
	RecordTypeVaccination    = "vaccination"
	RecordTypeConsultation   = "consultation"
)

// NewMedicalRecord creates an active record entry
func NewMedicalRecord(recordHash, patient, provider, recordType string, now time.Time) *MedicalRecord {
	return &MedicalRecord{
		ObjectType: ObjectTypeMedicalRecord,
		RecordHash: recordHash,
		Patient:    patient,
		Provider:   provider,
		RecordType: recordType,
		CreatedAt:  now,
		Active:     true,
	}
}

// EmergencyAccessEntry is the ledger-persisted audit entry for a
// consent-bypassing read. Writing it is part of the read itself: if the
// entry cannot be persisted, the read fails.
type EmergencyAccessEntry struct {
	ObjectType string    `json:"objectType"`
	RecordHash string    `json:"recordHash"`
	Patient    string    `json:"patient"`
	AccessedBy string    `json:"accessedBy"`
	Reason     string    `json:"reason"`
	AccessedAt time.Time `json:"accessedAt"`
	TxID       string    `json:"txId"`
}

// HistoryRecord is one historical version of a world-state entry, as
// returned by the ledger's per-key history API. Value holds the raw
// JSON of the version so one shape serves records, batches, and
// consent entries alike.
type HistoryRecord struct {
	TxID      string    `json:"txId"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	IsDelete  bool      `json:"isDelete"`
}
