package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyachain/medledger/ledgererr"
)

func registerParacetamol(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "Paracetamol 500mg", "paracetamol",
		"2025-01-10", "2027-01-10", "LOT-2025-A", "500", "mg",
		`["fever","mild to moderate pain"]`))
}

func TestRegisterMedicineManufacturerOnly(t *testing.T) {
	f := newFixture(t)

	err := f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "Paracetamol 500mg", "paracetamol",
		"2025-01-10", "2027-01-10", "LOT-2025-A", "500", "mg", "")
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err))

	f.authorizeManufacturer(t, manufacturer)
	registerParacetamol(t, f)

	medicine, err := f.medicine.GetMedicine(f.ledger.As(outsider), "PARA-500")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", medicine.Name)
	assert.Equal(t, manufacturer, medicine.Manufacturer)
	assert.Equal(t, []string{"fever", "mild to moderate pain"}, medicine.Indications)
	assert.True(t, medicine.Active)

	payload := eventPayload(t, f.ledger.LastEvent())
	assert.Equal(t, "MEDICINE_REGISTERED", payload["eventType"])
	assert.Equal(t, "PARA-500", payload["medicineId"])
}

func TestRegisterMedicineValidation(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)

	err := f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"", "Paracetamol 500mg", "paracetamol", "2025-01-10", "2027-01-10", "", "", "", "")
	assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err))

	err = f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "", "paracetamol", "2025-01-10", "2027-01-10", "", "", "", "")
	assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err))

	err = f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "Paracetamol 500mg", "paracetamol", "not-a-date", "2027-01-10", "", "", "", "")
	assert.Equal(t, ledgererr.CodeInvalidDates, ledgererr.CodeOf(err))

	err = f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "Paracetamol 500mg", "paracetamol", "2027-01-10", "2025-01-10", "", "", "", "")
	assert.Equal(t, ledgererr.CodeInvalidDates, ledgererr.CodeOf(err))

	err = f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "Paracetamol 500mg", "paracetamol", "2025-01-10", "2025-01-10", "", "", "", "")
	assert.Equal(t, ledgererr.CodeInvalidDates, ledgererr.CodeOf(err), "expiry must fall strictly after manufacture")

	_, err = f.medicine.GetMedicine(f.ledger.As(outsider), "PARA-500")
	assert.Equal(t, ledgererr.CodeMedicineNotFound, ledgererr.CodeOf(err), "failed registrations must not write")
}

func TestRegisterMedicineDuplicate(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	registerParacetamol(t, f)

	err := f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "Paracetamol 500mg v2", "paracetamol",
		"2025-02-01", "2027-02-01", "LOT-2025-B", "500", "mg", "")
	assert.Equal(t, ledgererr.CodeDuplicateMedicine, ledgererr.CodeOf(err))

	// Deactivation frees the id for a fresh registration
	require.NoError(t, f.medicine.DeactivateMedicine(f.ledger.As(manufacturer), "PARA-500"))
	require.NoError(t, f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"PARA-500", "Paracetamol 500mg v2", "paracetamol",
		"2025-02-01", "2027-02-01", "LOT-2025-B", "500", "mg", ""))

	medicine, err := f.medicine.GetMedicine(f.ledger.As(outsider), "PARA-500")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg v2", medicine.Name)
}

func TestDeactivateMedicine(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	f.authorizeManufacturer(t, manufacturer2)
	registerParacetamol(t, f)

	err := f.medicine.DeactivateMedicine(f.ledger.As(manufacturer2), "PARA-500")
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err), "only the registering manufacturer may deactivate")

	require.NoError(t, f.medicine.DeactivateMedicine(f.ledger.As(manufacturer), "PARA-500"))

	_, err = f.medicine.GetMedicine(f.ledger.As(outsider), "PARA-500")
	assert.Equal(t, ledgererr.CodeMedicineNotFound, ledgererr.CodeOf(err))

	err = f.medicine.DeactivateMedicine(f.ledger.As(manufacturer), "PARA-500")
	assert.Equal(t, ledgererr.CodeMedicineNotFound, ledgererr.CodeOf(err))
}

func TestIsExpired(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)

	// The fake ledger clock sits in March 2025
	require.NoError(t, f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"AMOX-OLD", "Amoxicillin 250mg", "amoxicillin",
		"2023-01-01", "2025-01-01", "LOT-2023-C", "250", "mg", ""))
	require.NoError(t, f.medicine.RegisterMedicine(f.ledger.As(manufacturer),
		"AMOX-NEW", "Amoxicillin 250mg", "amoxicillin",
		"2025-01-01", "2027-01-01", "LOT-2025-C", "250", "mg", ""))

	expired, err := f.medicine.IsExpired(f.ledger.As(outsider), "AMOX-OLD")
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = f.medicine.IsExpired(f.ledger.As(outsider), "AMOX-NEW")
	require.NoError(t, err)
	assert.False(t, expired)

	_, err = f.medicine.IsExpired(f.ledger.As(outsider), "GHOST")
	assert.Equal(t, ledgererr.CodeMedicineNotFound, ledgererr.CodeOf(err))
}

func TestCreateBatch(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	f.authorizeManufacturer(t, manufacturer2)
	registerParacetamol(t, f)

	err := f.medicine.CreateBatch(f.ledger.As(manufacturer2), "BATCH-001", "PARA-500", 10000)
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err), "batches belong to the registering manufacturer")

	err = f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "PARA-500", 0)
	assert.Equal(t, ledgererr.CodeInvalidQuantity, ledgererr.CodeOf(err))

	err = f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "GHOST", 10000)
	assert.Equal(t, ledgererr.CodeMedicineNotFound, ledgererr.CodeOf(err))

	require.NoError(t, f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "PARA-500", 10000))

	err = f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "PARA-500", 500)
	assert.Equal(t, ledgererr.CodeDuplicateBatch, ledgererr.CodeOf(err))

	batch, err := f.medicine.GetBatch(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	assert.Equal(t, 10000, batch.Manufactured)
	assert.Equal(t, 0, batch.Distributed)
	assert.Equal(t, 10000, batch.Remaining)
	assert.Equal(t, manufacturer, batch.CurrentHolder)
	assert.False(t, batch.Recalled)
}

func TestDistributeBatchBounds(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	registerParacetamol(t, f)
	require.NoError(t, f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "PARA-500", 100))

	err := f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "nakuru-clinic", 101)
	assert.Equal(t, ledgererr.CodeInvalidQuantity, ledgererr.CodeOf(err))

	err = f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "nakuru-clinic", -5)
	assert.Equal(t, ledgererr.CodeInvalidQuantity, ledgererr.CodeOf(err))

	err = f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "", 10)
	assert.Equal(t, ledgererr.CodeInvalidIdentity, ledgererr.CodeOf(err))

	require.NoError(t, f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "nakuru-clinic", 100))

	batch, err := f.medicine.GetBatch(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Remaining)
	assert.Equal(t, 100, batch.Distributed)

	err = f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "nakuru-clinic", 1)
	assert.Equal(t, ledgererr.CodeInvalidQuantity, ledgererr.CodeOf(err), "remaining never goes negative")
}

func TestTransferBatchCustody(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	registerParacetamol(t, f)
	require.NoError(t, f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "PARA-500", 1000))

	err := f.medicine.TransferBatchCustody(f.ledger.As(outsider), "BATCH-001", "nairobi-wholesale")
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err))

	require.NoError(t, f.medicine.TransferBatchCustody(f.ledger.As(manufacturer), "BATCH-001", "nairobi-wholesale"))

	batch, err := f.medicine.GetBatch(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	assert.Equal(t, "nairobi-wholesale", batch.CurrentHolder)

	// The new holder can distribute; so can the registering
	// manufacturer; nobody else
	require.NoError(t, f.medicine.DistributeBatch(f.ledger.As("nairobi-wholesale"), "BATCH-001", "kisumu-pharmacy", 200))
	require.NoError(t, f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "mombasa-pharmacy", 100))

	err = f.medicine.DistributeBatch(f.ledger.As(outsider), "BATCH-001", "somewhere", 50)
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err))

	batch, err = f.medicine.GetBatch(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	assert.Equal(t, 700, batch.Remaining)
}

// TestBatchRecallFlow follows a full product journey: registration,
// batch creation, distribution, then a recall that freezes the batch
// and sticks no matter how often it is repeated.
func TestBatchRecallFlow(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	f.authorizeVerifier(t, verifier)
	registerParacetamol(t, f)
	require.NoError(t, f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "PARA-500", 10000))

	authentic, err := f.verification.VerifyMedicine(f.ledger.As(verifier), "PARA-500", "Nairobi depot", "routine inbound check")
	require.NoError(t, err)
	assert.True(t, authentic)

	require.NoError(t, f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "nairobi-wholesale", 4000))

	batch, err := f.medicine.GetBatch(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	assert.Equal(t, 6000, batch.Remaining)

	err = f.medicine.RecallBatch(f.ledger.As(outsider), "BATCH-001", "contamination suspected")
	assert.Equal(t, ledgererr.CodeNotAuthorized, ledgererr.CodeOf(err))

	err = f.medicine.RecallBatch(f.ledger.As(manufacturer), "BATCH-001", "")
	assert.Equal(t, ledgererr.CodeReasonRequired, ledgererr.CodeOf(err))

	require.NoError(t, f.medicine.RecallBatch(f.ledger.As(manufacturer), "BATCH-001", "contamination found in lot sample"))

	batch, err = f.medicine.GetBatch(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	assert.True(t, batch.Recalled)
	assert.Equal(t, "contamination found in lot sample", batch.RecallReason)

	payload := eventPayload(t, f.ledger.LastEvent())
	assert.Equal(t, "BATCH_RECALLED", payload["eventType"])

	// Recalled batches are frozen
	err = f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "eldoret-pharmacy", 100)
	assert.Equal(t, ledgererr.CodeBatchRecalled, ledgererr.CodeOf(err))

	err = f.medicine.TransferBatchCustody(f.ledger.As(manufacturer), "BATCH-001", "returns-depot")
	assert.Equal(t, ledgererr.CodeBatchRecalled, ledgererr.CodeOf(err))

	// Repeating the recall succeeds, changes nothing and emits nothing
	events := f.ledger.EventCount()
	require.NoError(t, f.medicine.RecallBatch(f.ledger.As(manufacturer), "BATCH-001", "second notice"))
	assert.Equal(t, events, f.ledger.EventCount())

	batch, err = f.medicine.GetBatch(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	assert.Equal(t, "contamination found in lot sample", batch.RecallReason, "the original recall reason stands")
}

func TestRecallUnknownBatch(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)

	err := f.medicine.RecallBatch(f.ledger.As(manufacturer), "GHOST-BATCH", "precaution")
	assert.Equal(t, ledgererr.CodeBatchNotFound, ledgererr.CodeOf(err))
}

func TestGetBatchHistory(t *testing.T) {
	f := newFixture(t)
	f.authorizeManufacturer(t, manufacturer)
	registerParacetamol(t, f)
	require.NoError(t, f.medicine.CreateBatch(f.ledger.As(manufacturer), "BATCH-001", "PARA-500", 1000))
	require.NoError(t, f.medicine.DistributeBatch(f.ledger.As(manufacturer), "BATCH-001", "nakuru-clinic", 300))
	require.NoError(t, f.medicine.RecallBatch(f.ledger.As(manufacturer), "BATCH-001", "labelling defect"))

	history, err := f.medicine.GetBatchHistory(f.ledger.As(outsider), "BATCH-001")
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest first: recall, distribution, creation
	assert.Contains(t, history[0].Value, `"recalled":true`)
	assert.Contains(t, history[1].Value, `"distributed":300`)
	assert.Contains(t, history[2].Value, `"distributed":0`)
	for _, entry := range history {
		assert.NotEmpty(t, entry.TxID)
		assert.False(t, entry.IsDelete)
	}

	_, err = f.medicine.GetBatchHistory(f.ledger.As(outsider), "GHOST-BATCH")
	assert.Equal(t, ledgererr.CodeBatchNotFound, ledgererr.CodeOf(err))
}
