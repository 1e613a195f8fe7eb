package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/afyachain/medledger/ledgererr"
	"github.com/afyachain/medledger/models"
	"github.com/afyachain/medledger/policy"
	"github.com/afyachain/medledger/utils"
)

// MedicalRecordContract manages hash-indexed references to off-ledger
// medical documents. Entries are write-once; reads are gated by patient
// consent, with an audited emergency-override path.
type MedicalRecordContract struct {
	contractapi.Contract
	policy policy.Policy
}

// NewMedicalRecordContract creates the contract with its authorization
// policy
func NewMedicalRecordContract(p policy.Policy) *MedicalRecordContract {
	return &MedicalRecordContract{policy: p}
}

// StoreRecord writes an immutable record reference for a patient. The
// caller must be an authorized provider; the hash must be globally
// unused.
func (mrc *MedicalRecordContract) StoreRecord(ctx contractapi.TransactionContextInterface, recordHash, patient, recordType string) error {
	if err := utils.ValidateRecordHash(recordHash); err != nil {
		return err
	}
	if err := utils.ValidateRequired("patient", patient); err != nil {
		return err
	}
	if err := utils.ValidateRequired("record type", recordType); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	authorized, err := mrc.policy.IsProvider(ctx, caller)
	if err != nil {
		return err
	}
	if !authorized {
		return ledgererr.New(ledgererr.CodeNotAuthorized, "caller is not an authorized provider")
	}

	recordKey := utils.CreateRecordKey(recordHash)
	var existing models.MedicalRecord
	found, err := getJSON(ctx, recordKey, &existing)
	if err != nil {
		return err
	}
	if found && existing.Active {
		return ledgererr.New(ledgererr.CodeDuplicateRecord, "record hash already stored")
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	record := models.NewMedicalRecord(recordHash, patient, caller, recordType, now)
	if err := putJSON(ctx, recordKey, record); err != nil {
		return err
	}

	// Patient index entry; the padded sequence keeps listing order equal
	// to storage order
	seq, err := nextSeq(ctx, utils.CreateRecordSeqKey(patient))
	if err != nil {
		return err
	}
	indexKey, err := ctx.GetStub().CreateCompositeKey(
		utils.IndexPatientRecords,
		[]string{patient, utils.FormatSeq(seq), recordHash},
	)
	if err != nil {
		return fmt.Errorf("failed to create patient index: %v", err)
	}
	if err := ctx.GetStub().PutState(indexKey, []byte{0x00}); err != nil {
		return fmt.Errorf("failed to put patient index: %v", err)
	}

	return emitEvent(ctx, "RecordStored", "RECORD_STORED", map[string]interface{}{
		"recordHash": recordHash,
		"patient":    patient,
		"provider":   caller,
	}, now)
}

// GetRecord returns a record's metadata. Allowed for the patient, a
// provider holding the patient's active consent, or the owner. Every
// successful read emits a RecordAccessed event; the event and the
// returned data commit or abort together.
func (mrc *MedicalRecordContract) GetRecord(ctx contractapi.TransactionContextInterface, recordHash string) (*models.MedicalRecord, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	record, err := mrc.readActiveRecord(ctx, recordHash)
	if err != nil {
		return nil, err
	}

	allowed, err := mrc.mayRead(ctx, record.Patient, caller)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ledgererr.New(ledgererr.CodeAccessDenied, "caller may not read this record")
	}

	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}
	err = emitEvent(ctx, "RecordAccessed", "RECORD_ACCESSED", map[string]interface{}{
		"recordHash": recordHash,
		"patient":    record.Patient,
		"accessedBy": caller,
		"emergency":  false,
	}, now)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetPatientRecords returns the patient's record hashes in storage
// order. Same access rule as GetRecord.
func (mrc *MedicalRecordContract) GetPatientRecords(ctx contractapi.TransactionContextInterface, patient string) ([]string, error) {
	if err := utils.ValidateIdentity("patient", patient); err != nil {
		return nil, err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	allowed, err := mrc.mayRead(ctx, patient, caller)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ledgererr.New(ledgererr.CodeAccessDenied, "caller may not list this patient's records")
	}

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(
		utils.IndexPatientRecords,
		[]string{patient},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient records: %v", err)
	}
	defer resultsIterator.Close()

	hashes := []string{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate: %v", err)
		}

		_, attrs, err := ctx.GetStub().SplitCompositeKey(queryResponse.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to split composite key: %v", err)
		}
		if len(attrs) == 3 {
			hashes = append(hashes, attrs[2])
		}
	}

	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}
	err = emitEvent(ctx, "RecordAccessed", "RECORD_ACCESSED", map[string]interface{}{
		"patient":    patient,
		"accessedBy": caller,
		"emergency":  false,
		"scope":      "patient-index",
	}, now)
	if err != nil {
		return nil, err
	}

	return hashes, nil
}

// VerifyRecord reports whether an active record with this hash exists.
// Open to any caller, no access gate, no event.
func (mrc *MedicalRecordContract) VerifyRecord(ctx contractapi.TransactionContextInterface, recordHash string) (bool, error) {
	var record models.MedicalRecord
	found, err := getJSON(ctx, utils.CreateRecordKey(recordHash), &record)
	if err != nil {
		return false, err
	}
	return found && record.Active, nil
}

// EmergencyAccess reads a record bypassing consent. Providers and the
// owner only, with a mandatory reason. The audit entry and event are
// not best-effort: if either fails, the whole read fails.
func (mrc *MedicalRecordContract) EmergencyAccess(ctx contractapi.TransactionContextInterface, recordHash, reason string) (*models.MedicalRecord, error) {
	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	isProvider, err := mrc.policy.IsProvider(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !isProvider {
		isOwner, err := mrc.policy.IsOwner(ctx, caller)
		if err != nil {
			return nil, err
		}
		if !isOwner {
			return nil, ledgererr.New(ledgererr.CodeNotAuthorized, "emergency access is limited to providers and the owner")
		}
	}

	record, err := mrc.readActiveRecord(ctx, recordHash)
	if err != nil {
		return nil, err
	}

	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}

	txID := ctx.GetStub().GetTxID()
	entry := &models.EmergencyAccessEntry{
		ObjectType: models.ObjectTypeEmergencyAccess,
		RecordHash: recordHash,
		Patient:    record.Patient,
		AccessedBy: caller,
		Reason:     utils.SanitizeString(reason),
		AccessedAt: now,
		TxID:       txID,
	}
	entryKey, err := ctx.GetStub().CreateCompositeKey(utils.IndexEmergency, []string{recordHash, txID})
	if err != nil {
		return nil, fmt.Errorf("failed to create emergency audit key: %v", err)
	}
	if err := putJSON(ctx, entryKey, entry); err != nil {
		return nil, err
	}

	err = emitEvent(ctx, "RecordAccessed", "RECORD_ACCESSED", map[string]interface{}{
		"recordHash": recordHash,
		"patient":    record.Patient,
		"accessedBy": caller,
		"emergency":  true,
		"reason":     entry.Reason,
	}, now)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetEmergencyAccessLog lists the emergency-access audit entries for a
// record, oldest first. Restricted to the record's patient and the
// owner.
func (mrc *MedicalRecordContract) GetEmergencyAccessLog(ctx contractapi.TransactionContextInterface, recordHash string) ([]*models.EmergencyAccessEntry, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	record, err := mrc.readActiveRecord(ctx, recordHash)
	if err != nil {
		return nil, err
	}
	if caller != record.Patient {
		isOwner, err := mrc.policy.IsOwner(ctx, caller)
		if err != nil {
			return nil, err
		}
		if !isOwner {
			return nil, ledgererr.New(ledgererr.CodeAccessDenied, "caller may not read this audit log")
		}
	}

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(
		utils.IndexEmergency,
		[]string{recordHash},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get emergency access log: %v", err)
	}
	defer resultsIterator.Close()

	entries := []*models.EmergencyAccessEntry{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate: %v", err)
		}

		var entry models.EmergencyAccessEntry
		if err := json.Unmarshal(queryResponse.Value, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal emergency entry: %v", err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// readActiveRecord loads a record, failing NotFound for absent or
// inactive entries
func (mrc *MedicalRecordContract) readActiveRecord(ctx contractapi.TransactionContextInterface, recordHash string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	found, err := getJSON(ctx, utils.CreateRecordKey(recordHash), &record)
	if err != nil {
		return nil, err
	}
	if !found || !record.Active {
		return nil, ledgererr.New(ledgererr.CodeRecordNotFound, "record not found: %s", recordHash)
	}
	return &record, nil
}

// mayRead applies the record access rule: the patient, a provider with
// active consent, or the owner
func (mrc *MedicalRecordContract) mayRead(ctx contractapi.TransactionContextInterface, patient, caller string) (bool, error) {
	if caller == patient {
		return true, nil
	}

	var consent models.Consent
	found, err := getJSON(ctx, utils.CreateConsentKey(patient, caller), &consent)
	if err != nil {
		return false, err
	}
	if found && consent.IsActive() {
		return true, nil
	}

	return mrc.policy.IsOwner(ctx, caller)
}
