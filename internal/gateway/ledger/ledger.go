// Package ledger invokes the medledger chaincode through a Fabric
// gateway peer.
package ledger

import (
	"context"

	"github.com/afyachain/medledger/models"
)

// RegisterMedicineParams carries the optional catalog fields alongside
// the required identity and name.
type RegisterMedicineParams struct {
	MedicineID       string   `json:"medicineId"`
	Name             string   `json:"name"`
	ActiveIngredient string   `json:"activeIngredient"`
	ManufactureDate  string   `json:"manufactureDate"`
	ExpiryDate       string   `json:"expiryDate"`
	BatchNumber      string   `json:"batchNumber"`
	Dosage           string   `json:"dosage"`
	DosageUnit       string   `json:"dosageUnit"`
	Indications      []string `json:"indications"`
}

// Ledger is the chaincode surface the HTTP handlers depend on.
//
// Reads that append an access audit entry (GetRecord, GetPatientRecords,
// EmergencyAccess) must be submitted as transactions, not evaluated:
// an evaluated read would return the record without committing the
// audit event.
type Ledger interface {
	Owner(ctx context.Context) (string, error)

	StoreRecord(ctx context.Context, recordHash, patient, recordType string) error
	Record(ctx context.Context, recordHash string) (*models.MedicalRecord, error)
	VerifyRecord(ctx context.Context, recordHash string) (bool, error)
	EmergencyAccess(ctx context.Context, recordHash, reason string) (*models.MedicalRecord, error)
	PatientRecords(ctx context.Context, patient string) ([]string, error)
	EmergencyAccessLog(ctx context.Context, recordHash string) ([]*models.EmergencyAccessEntry, error)

	GrantConsent(ctx context.Context, provider string) error
	RevokeConsent(ctx context.Context, provider string) error
	HasConsent(ctx context.Context, patient, provider string) (bool, error)

	RegisterMedicine(ctx context.Context, params RegisterMedicineParams) error
	Medicine(ctx context.Context, medicineID string) (*models.Medicine, error)
	DeactivateMedicine(ctx context.Context, medicineID string) error

	CreateBatch(ctx context.Context, batchID, medicineID string, quantity int) error
	Batch(ctx context.Context, batchID string) (*models.Batch, error)
	DistributeBatch(ctx context.Context, batchID, recipient string, quantity int) error
	TransferBatchCustody(ctx context.Context, batchID, newHolder string) error
	RecallBatch(ctx context.Context, batchID, reason string) error
	BatchHistory(ctx context.Context, batchID string) ([]*models.HistoryRecord, error)

	VerifyMedicine(ctx context.Context, medicineID, location, notes string) (bool, error)
	ReportCounterfeit(ctx context.Context, medicineID, alertType, description, location string) error
	VerificationHistory(ctx context.Context, medicineID string) ([]*models.VerificationRecord, error)
	CounterfeitAlerts(ctx context.Context, medicineID string) ([]*models.CounterfeitAlert, error)
	ResolveAlert(ctx context.Context, medicineID string, seq int, resolution string) error
	VerificationStats(ctx context.Context) (*models.VerificationStats, error)
}
