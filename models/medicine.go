package models

import "time"

// Medicine is a registered medicine definition. Entries are marked
// inactive rather than deleted; only the registering manufacturer may
// create batches for, recall batches of, or deactivate a medicine.
type Medicine struct {
	ObjectType       string    `json:"objectType"`
	MedicineID       string    `json:"medicineId"`
	Name             string    `json:"name"`
	ActiveIngredient string    `json:"activeIngredient"`
	Manufacturer     string    `json:"manufacturer"`
	ManufactureDate  time.Time `json:"manufactureDate"`
	ExpiryDate       time.Time `json:"expiryDate"`
	BatchNumber      string    `json:"batchNumber"`
	Dosage           string    `json:"dosage"`
	DosageUnit       string    `json:"dosageUnit"`
	Indications      []string  `json:"indications"`
	Active           bool      `json:"active"`
	RegisteredAt     time.Time `json:"registeredAt"`
}

// NewMedicine creates an active medicine entry
func NewMedicine(medicineID, name, manufacturer string, now time.Time) *Medicine {
	return &Medicine{
		ObjectType:   ObjectTypeMedicine,
		MedicineID:   medicineID,
		Name:         name,
		Manufacturer: manufacturer,
		Active:       true,
		RegisteredAt: now,
	}
}

// IsExpired compares the expiry date against the given time
func (m *Medicine) IsExpired(at time.Time) bool {
	return at.After(m.ExpiryDate)
}

// Batch is one manufactured lot of a medicine. Remaining always equals
// Manufactured minus Distributed; Recalled is one-way.
type Batch struct {
	ObjectType    string    `json:"objectType"`
	BatchID       string    `json:"batchId"`
	MedicineID    string    `json:"medicineId"`
	Quantity      int       `json:"quantity"`
	Manufactured  int       `json:"manufactured"`
	Distributed   int       `json:"distributed"`
	Remaining     int       `json:"remaining"`
	CurrentHolder string    `json:"currentHolder"`
	Recalled      bool      `json:"recalled"`
	RecallReason  string    `json:"recallReason,omitempty"`
	RecalledAt    time.Time `json:"recalledAt,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewBatch creates a batch with the full quantity still on hand
func NewBatch(batchID, medicineID string, quantity int, holder string, now time.Time) *Batch {
	return &Batch{
		ObjectType:    ObjectTypeBatch,
		BatchID:       batchID,
		MedicineID:    medicineID,
		Quantity:      quantity,
		Manufactured:  quantity,
		Distributed:   0,
		Remaining:     quantity,
		CurrentHolder: holder,
		Recalled:      false,
		CreatedAt:     now,
	}
}
