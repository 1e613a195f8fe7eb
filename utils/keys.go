package utils

import (
	"fmt"
	"strings"
)

// Key prefixes for world-state entries
const (
	KeyOwner       = "OWNER"
	PrefixRole     = "ROLE"
	PrefixConsent  = "CONSENT"
	PrefixRecord   = "RECORD"
	PrefixMedicine = "MEDICINE"
	PrefixBatch    = "BATCH"
	PrefixSeq      = "SEQ"
)

// Global counter keys
const (
	KeyTotalVerifications = "COUNT~VERIFICATIONS"
	KeyTotalAlerts        = "COUNT~ALERTS"
)

// Composite-key object types for ordered indexes. The sequence
// attribute is zero-padded (FormatSeq) so lexical iteration order is
// insertion order.
const (
	IndexPatientRecords = "patient~record"
	IndexVerifications  = "medicine~verification"
	IndexAlerts         = "medicine~alert"
	IndexEmergency      = "emergency~access"
)

// CreateRoleKey creates the key for a (role, identity) assignment
func CreateRoleKey(role, identity string) string {
	return fmt.Sprintf("%s~%s~%s", PrefixRole, role, identity)
}

// CreateConsentKey creates the key for a (patient, provider) consent pair
func CreateConsentKey(patient, provider string) string {
	return fmt.Sprintf("%s~%s~%s", PrefixConsent, patient, provider)
}

// CreateRecordKey creates the key for a medical record entry
func CreateRecordKey(recordHash string) string {
	return fmt.Sprintf("%s~%s", PrefixRecord, recordHash)
}

// CreateMedicineKey creates the key for a medicine entry
func CreateMedicineKey(medicineID string) string {
	return fmt.Sprintf("%s~%s", PrefixMedicine, medicineID)
}

// CreateBatchKey creates the key for a batch entry
func CreateBatchKey(batchID string) string {
	return fmt.Sprintf("%s~%s", PrefixBatch, batchID)
}

// CreateRecordSeqKey creates the per-patient record sequence counter key
func CreateRecordSeqKey(patient string) string {
	return fmt.Sprintf("%s~RECORDS~%s", PrefixSeq, patient)
}

// CreateVerificationSeqKey creates the per-medicine verification
// sequence counter key
func CreateVerificationSeqKey(medicineID string) string {
	return fmt.Sprintf("%s~VERIFICATIONS~%s", PrefixSeq, medicineID)
}

// CreateAlertSeqKey creates the per-medicine alert sequence counter key
func CreateAlertSeqKey(medicineID string) string {
	return fmt.Sprintf("%s~ALERTS~%s", PrefixSeq, medicineID)
}

// FormatSeq renders a sequence number so that lexical order matches
// numeric order
func FormatSeq(seq int) string {
	return fmt.Sprintf("%08d", seq)
}

// ParseRoleKey parses a role assignment key
func ParseRoleKey(key string) (role, identity string, err error) {
	parts := strings.SplitN(key, "~", 3)
	if len(parts) != 3 || parts[0] != PrefixRole {
		return "", "", fmt.Errorf("invalid role key format: %s", key)
	}
	return parts[1], parts[2], nil
}

// ParseConsentKey parses a consent pair key
func ParseConsentKey(key string) (patient, provider string, err error) {
	parts := strings.SplitN(key, "~", 3)
	if len(parts) != 3 || parts[0] != PrefixConsent {
		return "", "", fmt.Errorf("invalid consent key format: %s", key)
	}
	return parts[1], parts[2], nil
}
