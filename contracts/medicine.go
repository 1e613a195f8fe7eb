package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/afyachain/medledger/ledgererr"
	"github.com/afyachain/medledger/models"
	"github.com/afyachain/medledger/policy"
	"github.com/afyachain/medledger/utils"
)

// MedicineContract manages the medicine catalog and batch custody
// chain. Medicines are registered by manufacturers; batches belong to
// the medicine's registering manufacturer and carry distribution
// counters and a one-way recall flag.
type MedicineContract struct {
	contractapi.Contract
	policy policy.Policy
}

// NewMedicineContract creates the contract with its authorization
// policy
func NewMedicineContract(p policy.Policy) *MedicineContract {
	return &MedicineContract{policy: p}
}

// RegisterMedicine adds a medicine to the catalog. The caller must be
// an authorized manufacturer and is recorded as the product's owner.
// Re-registering an id is a conflict only while the existing entry is
// active.
func (mc *MedicineContract) RegisterMedicine(
	ctx contractapi.TransactionContextInterface,
	medicineID string,
	name string,
	activeIngredient string,
	manufactureDate string,
	expiryDate string,
	batchNumber string,
	dosage string,
	dosageUnit string,
	indicationsJSON string,
) error {
	if err := utils.ValidateRequired("medicine id", medicineID); err != nil {
		return err
	}
	if err := utils.ValidateRequired("name", name); err != nil {
		return err
	}
	manufactured, err := utils.ParseDate("manufacture date", manufactureDate)
	if err != nil {
		return err
	}
	expiry, err := utils.ParseDate("expiry date", expiryDate)
	if err != nil {
		return err
	}
	if err := utils.ValidateDateOrder(manufactured, expiry); err != nil {
		return err
	}

	var indications []string
	if indicationsJSON != "" {
		if err := json.Unmarshal([]byte(indicationsJSON), &indications); err != nil {
			return fmt.Errorf("failed to parse indications: %v", err)
		}
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	authorized, err := mc.policy.IsManufacturer(ctx, caller)
	if err != nil {
		return err
	}
	if !authorized {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "caller is not an authorized manufacturer")
	}

	medicineKey := utils.CreateMedicineKey(medicineID)
	var existing models.Medicine
	found, err := getJSON(ctx, medicineKey, &existing)
	if err != nil {
		return err
	}
	if found && existing.Active {
		return ledgererr.New(ledgererr.CodeDuplicateMedicine, "medicine already registered: %s", medicineID)
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	medicine := models.NewMedicine(medicineID, name, caller, now)
	medicine.ActiveIngredient = utils.SanitizeString(activeIngredient)
	medicine.ManufactureDate = manufactured
	medicine.ExpiryDate = expiry
	medicine.BatchNumber = utils.SanitizeString(batchNumber)
	medicine.Dosage = utils.SanitizeString(dosage)
	medicine.DosageUnit = utils.SanitizeString(dosageUnit)
	medicine.Indications = indications

	if err := putJSON(ctx, medicineKey, medicine); err != nil {
		return err
	}

	return emitEvent(ctx, "MedicineRegistered", "MEDICINE_REGISTERED", map[string]interface{}{
		"medicineId":   medicineID,
		"name":         medicine.Name,
		"manufacturer": caller,
	}, now)
}

// GetMedicine returns a medicine's catalog entry. Catalog reads are
// open; only the medical-record family is consent-gated.
func (mc *MedicineContract) GetMedicine(ctx contractapi.TransactionContextInterface, medicineID string) (*models.Medicine, error) {
	return mc.readActiveMedicine(ctx, medicineID)
}

// IsExpired reports whether the medicine's expiry date has passed,
// judged against the transaction timestamp
func (mc *MedicineContract) IsExpired(ctx contractapi.TransactionContextInterface, medicineID string) (bool, error) {
	medicine, err := mc.readActiveMedicine(ctx, medicineID)
	if err != nil {
		return false, err
	}
	now, err := txTime(ctx)
	if err != nil {
		return false, err
	}
	return medicine.IsExpired(now), nil
}

// DeactivateMedicine marks a medicine inactive. Catalog entries are
// never deleted; the inactive entry stays on the ledger and its id
// becomes available for re-registration.
func (mc *MedicineContract) DeactivateMedicine(ctx contractapi.TransactionContextInterface, medicineID string) error {
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	medicine, err := mc.readActiveMedicine(ctx, medicineID)
	if err != nil {
		return err
	}
	if caller != medicine.Manufacturer {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "only the registering manufacturer may deactivate a medicine")
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	medicine.Active = false
	if err := putJSON(ctx, utils.CreateMedicineKey(medicineID), medicine); err != nil {
		return err
	}

	return emitEvent(ctx, "MedicineDeactivated", "MEDICINE_DEACTIVATED", map[string]interface{}{
		"medicineId":   medicineID,
		"manufacturer": caller,
	}, now)
}

// CreateBatch opens a production batch for a medicine. Only the
// medicine's registering manufacturer may create its batches; any
// other manufacturer is refused.
func (mc *MedicineContract) CreateBatch(ctx contractapi.TransactionContextInterface, batchID, medicineID string, quantity int) error {
	if err := utils.ValidateRequired("batch id", batchID); err != nil {
		return err
	}
	if err := utils.ValidateQuantity(quantity); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	medicine, err := mc.readActiveMedicine(ctx, medicineID)
	if err != nil {
		return err
	}
	if caller != medicine.Manufacturer {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "only the registering manufacturer may create batches")
	}

	batchKey := utils.CreateBatchKey(batchID)
	var existing models.Batch
	found, err := getJSON(ctx, batchKey, &existing)
	if err != nil {
		return err
	}
	if found {
		return ledgererr.New(ledgererr.CodeDuplicateBatch, "batch already exists: %s", batchID)
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	batch := models.NewBatch(batchID, medicineID, quantity, caller, now)
	if err := putJSON(ctx, batchKey, batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchCreated", "BATCH_CREATED", map[string]interface{}{
		"batchId":    batchID,
		"medicineId": medicineID,
		"quantity":   quantity,
	}, now)
}

// GetBatch returns a batch, recalled or not
func (mc *MedicineContract) GetBatch(ctx contractapi.TransactionContextInterface, batchID string) (*models.Batch, error) {
	return mc.readBatch(ctx, batchID)
}

// DistributeBatch moves units out of a batch to a recipient. The
// remaining count never goes below zero; recalled batches are frozen.
func (mc *MedicineContract) DistributeBatch(ctx contractapi.TransactionContextInterface, batchID, recipient string, quantity int) error {
	if err := utils.ValidateIdentity("recipient", recipient); err != nil {
		return err
	}
	if err := utils.ValidateQuantity(quantity); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	batch, err := mc.readBatch(ctx, batchID)
	if err != nil {
		return err
	}
	allowed, err := mc.mayManageBatch(ctx, batch, caller)
	if err != nil {
		return err
	}
	if !allowed {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "caller neither holds this batch nor manufactures its medicine")
	}
	if batch.Recalled {
		return ledgererr.New(ledgererr.CodeBatchRecalled, "batch is recalled: %s", batchID)
	}
	if quantity > batch.Remaining {
		return ledgererr.New(ledgererr.CodeInvalidQuantity, "quantity %d exceeds remaining units %d", quantity, batch.Remaining)
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	batch.Distributed += quantity
	batch.Remaining = batch.Manufactured - batch.Distributed
	if err := putJSON(ctx, utils.CreateBatchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchDistributed", "BATCH_DISTRIBUTED", map[string]interface{}{
		"batchId":   batchID,
		"recipient": recipient,
		"quantity":  quantity,
		"remaining": batch.Remaining,
	}, now)
}

// TransferBatchCustody hands the batch to a new holder. Recalled
// batches are frozen.
func (mc *MedicineContract) TransferBatchCustody(ctx contractapi.TransactionContextInterface, batchID, newHolder string) error {
	if err := utils.ValidateIdentity("new holder", newHolder); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	batch, err := mc.readBatch(ctx, batchID)
	if err != nil {
		return err
	}
	allowed, err := mc.mayManageBatch(ctx, batch, caller)
	if err != nil {
		return err
	}
	if !allowed {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "caller neither holds this batch nor manufactures its medicine")
	}
	if batch.Recalled {
		return ledgererr.New(ledgererr.CodeBatchRecalled, "batch is recalled: %s", batchID)
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	previousHolder := batch.CurrentHolder
	batch.CurrentHolder = newHolder
	if err := putJSON(ctx, utils.CreateBatchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchCustodyTransferred", "BATCH_CUSTODY_TRANSFERRED", map[string]interface{}{
		"batchId":        batchID,
		"previousHolder": previousHolder,
		"newHolder":      newHolder,
	}, now)
}

// RecallBatch marks a batch recalled. The flag is one-way and the
// operation is idempotent: recalling an already-recalled batch
// succeeds without touching state or emitting an event.
func (mc *MedicineContract) RecallBatch(ctx contractapi.TransactionContextInterface, batchID, reason string) error {
	if err := utils.ValidateReason(reason); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	batch, err := mc.readBatch(ctx, batchID)
	if err != nil {
		return err
	}

	manufacturer, err := mc.batchManufacturer(ctx, batch)
	if err != nil {
		return err
	}
	if caller != manufacturer {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "only the registering manufacturer may recall a batch")
	}

	if batch.Recalled {
		return nil
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	batch.Recalled = true
	batch.RecallReason = utils.SanitizeString(reason)
	batch.RecalledAt = now
	if err := putJSON(ctx, utils.CreateBatchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchRecalled", "BATCH_RECALLED", map[string]interface{}{
		"batchId":    batchID,
		"medicineId": batch.MedicineID,
		"reason":     batch.RecallReason,
	}, now)
}

// GetBatchHistory returns the batch's full ledger history: creation,
// distributions, custody transfers and the recall, most recent first
func (mc *MedicineContract) GetBatchHistory(ctx contractapi.TransactionContextInterface, batchID string) ([]*models.HistoryRecord, error) {
	if _, err := mc.readBatch(ctx, batchID); err != nil {
		return nil, err
	}

	historyIterator, err := ctx.GetStub().GetHistoryForKey(utils.CreateBatchKey(batchID))
	if err != nil {
		return nil, fmt.Errorf("failed to get batch history: %v", err)
	}
	defer historyIterator.Close()

	history := []*models.HistoryRecord{}
	for historyIterator.HasNext() {
		modification, err := historyIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate: %v", err)
		}

		entry := &models.HistoryRecord{
			TxID:     modification.TxId,
			Value:    string(modification.Value),
			IsDelete: modification.IsDelete,
		}
		if modification.Timestamp != nil {
			entry.Timestamp = time.Unix(modification.Timestamp.Seconds, int64(modification.Timestamp.Nanos)).UTC()
		}
		history = append(history, entry)
	}
	return history, nil
}

// readActiveMedicine loads a medicine, failing NotFound for absent or
// inactive entries
func (mc *MedicineContract) readActiveMedicine(ctx contractapi.TransactionContextInterface, medicineID string) (*models.Medicine, error) {
	if err := utils.ValidateRequired("medicine id", medicineID); err != nil {
		return nil, err
	}
	var medicine models.Medicine
	found, err := getJSON(ctx, utils.CreateMedicineKey(medicineID), &medicine)
	if err != nil {
		return nil, err
	}
	if !found || !medicine.Active {
		return nil, ledgererr.New(ledgererr.CodeMedicineNotFound, "medicine not found: %s", medicineID)
	}
	return &medicine, nil
}

// readBatch loads a batch, failing NotFound when absent
func (mc *MedicineContract) readBatch(ctx contractapi.TransactionContextInterface, batchID string) (*models.Batch, error) {
	if err := utils.ValidateRequired("batch id", batchID); err != nil {
		return nil, err
	}
	var batch models.Batch
	found, err := getJSON(ctx, utils.CreateBatchKey(batchID), &batch)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledgererr.New(ledgererr.CodeBatchNotFound, "batch not found: %s", batchID)
	}
	return &batch, nil
}

// batchManufacturer resolves the registering manufacturer of the
// batch's medicine. The raw catalog entry is used so a later
// deactivation of the medicine does not orphan its batches.
func (mc *MedicineContract) batchManufacturer(ctx contractapi.TransactionContextInterface, batch *models.Batch) (string, error) {
	var medicine models.Medicine
	found, err := getJSON(ctx, utils.CreateMedicineKey(batch.MedicineID), &medicine)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ledgererr.New(ledgererr.CodeMedicineNotFound, "medicine not found: %s", batch.MedicineID)
	}
	return medicine.Manufacturer, nil
}

// mayManageBatch applies the custody rule: the current holder or the
// medicine's registering manufacturer
func (mc *MedicineContract) mayManageBatch(ctx contractapi.TransactionContextInterface, batch *models.Batch, caller string) (bool, error) {
	if caller == batch.CurrentHolder {
		return true, nil
	}
	manufacturer, err := mc.batchManufacturer(ctx, batch)
	if err != nil {
		return false, err
	}
	return caller == manufacturer, nil
}
