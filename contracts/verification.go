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

// VerificationContract keeps the append-only provenance trail: per-
// medicine verification entries, counterfeit alerts and the global
// counters over both.
type VerificationContract struct {
	contractapi.Contract
	policy policy.Policy
}

// NewVerificationContract creates the contract with its authorization
// policy
func NewVerificationContract(p policy.Policy) *VerificationContract {
	return &VerificationContract{policy: p}
}

// VerifyMedicine checks a medicine id against the catalog and appends
// the outcome to the medicine's verification history. Verifiers only.
// Authenticity here means an active catalog entry exists under the id,
// nothing more; the entry is appended even when the answer is false.
func (vc *VerificationContract) VerifyMedicine(ctx contractapi.TransactionContextInterface, medicineID, location, notes string) (bool, error) {
	if err := utils.ValidateRequired("medicine id", medicineID); err != nil {
		return false, err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return false, err
	}
	authorized, err := vc.policy.IsVerifier(ctx, caller)
	if err != nil {
		return false, err
	}
	if !authorized {
		return false, ledgererr.New(ledgererr.CodeNotAuthorized, "caller is not an authorized verifier")
	}

	var medicine models.Medicine
	found, err := getJSON(ctx, utils.CreateMedicineKey(medicineID), &medicine)
	if err != nil {
		return false, err
	}
	authentic := found && medicine.Active

	now, err := txTime(ctx)
	if err != nil {
		return false, err
	}

	seq, err := nextSeq(ctx, utils.CreateVerificationSeqKey(medicineID))
	if err != nil {
		return false, err
	}
	entry := models.NewVerificationRecord(medicineID, seq, caller, authentic, utils.SanitizeString(location), utils.SanitizeString(notes), now)

	entryKey, err := ctx.GetStub().CreateCompositeKey(
		utils.IndexVerifications,
		[]string{medicineID, utils.FormatSeq(seq)},
	)
	if err != nil {
		return false, fmt.Errorf("failed to create verification key: %v", err)
	}
	if err := putJSON(ctx, entryKey, entry); err != nil {
		return false, err
	}

	if _, err := nextSeq(ctx, utils.KeyTotalVerifications); err != nil {
		return false, err
	}

	err = emitEvent(ctx, "MedicineVerified", "MEDICINE_VERIFIED", map[string]interface{}{
		"medicineId": medicineID,
		"verifier":   caller,
		"authentic":  authentic,
	}, now)
	if err != nil {
		return false, err
	}

	return authentic, nil
}

// ReportCounterfeit files a counterfeit alert against a medicine id.
// No authorization check: reports come from patients, pharmacists and
// field inspectors who hold no ledger role, so this is the one mutating
// operation that never consults the policy. The reporter identity is
// still recorded.
func (vc *VerificationContract) ReportCounterfeit(ctx contractapi.TransactionContextInterface, medicineID, alertType, description, location string) error {
	if err := utils.ValidateRequired("medicine id", medicineID); err != nil {
		return err
	}
	if err := utils.ValidateRequired("alert type", alertType); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	seq, err := nextSeq(ctx, utils.CreateAlertSeqKey(medicineID))
	if err != nil {
		return err
	}
	alert := models.NewCounterfeitAlert(medicineID, seq, caller, utils.SanitizeString(alertType), utils.SanitizeString(description), utils.SanitizeString(location), now)

	alertKey, err := ctx.GetStub().CreateCompositeKey(
		utils.IndexAlerts,
		[]string{medicineID, utils.FormatSeq(seq)},
	)
	if err != nil {
		return fmt.Errorf("failed to create alert key: %v", err)
	}
	if err := putJSON(ctx, alertKey, alert); err != nil {
		return err
	}

	if _, err := nextSeq(ctx, utils.KeyTotalAlerts); err != nil {
		return err
	}

	return emitEvent(ctx, "AlertRaised", "ALERT_RAISED", map[string]interface{}{
		"medicineId": medicineID,
		"alertType":  alert.AlertType,
		"reporter":   caller,
	}, now)
}

// GetVerificationHistory returns a medicine's verification entries,
// oldest first
func (vc *VerificationContract) GetVerificationHistory(ctx contractapi.TransactionContextInterface, medicineID string) ([]*models.VerificationRecord, error) {
	if err := utils.ValidateRequired("medicine id", medicineID); err != nil {
		return nil, err
	}

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(
		utils.IndexVerifications,
		[]string{medicineID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get verification history: %v", err)
	}
	defer resultsIterator.Close()

	entries := []*models.VerificationRecord{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate: %v", err)
		}

		var entry models.VerificationRecord
		if err := json.Unmarshal(queryResponse.Value, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verification entry: %v", err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// GetCounterfeitAlerts returns a medicine's counterfeit alerts, oldest
// first
func (vc *VerificationContract) GetCounterfeitAlerts(ctx contractapi.TransactionContextInterface, medicineID string) ([]*models.CounterfeitAlert, error) {
	if err := utils.ValidateRequired("medicine id", medicineID); err != nil {
		return nil, err
	}

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(
		utils.IndexAlerts,
		[]string{medicineID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get counterfeit alerts: %v", err)
	}
	defer resultsIterator.Close()

	alerts := []*models.CounterfeitAlert{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate: %v", err)
		}

		var alert models.CounterfeitAlert
		if err := json.Unmarshal(queryResponse.Value, &alert); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert: %v", err)
		}
		alerts = append(alerts, &alert)
	}
	return alerts, nil
}

// ResolveAlert closes a counterfeit investigation. Owner only; an
// alert is resolved at most once, and only Investigated and the
// resolution fields ever change on it.
func (vc *VerificationContract) ResolveAlert(ctx contractapi.TransactionContextInterface, medicineID string, seq int, resolution string) error {
	if err := utils.ValidateRequired("resolution", resolution); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, vc.policy, caller); err != nil {
		return err
	}

	alertKey, err := ctx.GetStub().CreateCompositeKey(
		utils.IndexAlerts,
		[]string{medicineID, utils.FormatSeq(seq)},
	)
	if err != nil {
		return fmt.Errorf("failed to create alert key: %v", err)
	}
	var alert models.CounterfeitAlert
	found, err := getJSON(ctx, alertKey, &alert)
	if err != nil {
		return err
	}
	if !found {
		return ledgererr.New(ledgererr.CodeAlertNotFound, "alert not found: %s #%d", medicineID, seq)
	}
	if alert.Investigated {
		return ledgererr.New(ledgererr.CodeAlertResolved, "alert already resolved: %s #%d", medicineID, seq)
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	alert.Investigated = true
	alert.Resolution = utils.SanitizeString(resolution)
	alert.ResolvedAt = now
	alert.ResolvedBy = caller
	if err := putJSON(ctx, alertKey, &alert); err != nil {
		return err
	}

	return emitEvent(ctx, "AlertResolved", "ALERT_RESOLVED", map[string]interface{}{
		"medicineId": medicineID,
		"seq":        seq,
		"resolvedBy": caller,
	}, now)
}

// GetVerificationStats returns the ledger-wide verification and alert
// counters
func (vc *VerificationContract) GetVerificationStats(ctx contractapi.TransactionContextInterface) (*models.VerificationStats, error) {
	verifications, err := readCounter(ctx, utils.KeyTotalVerifications)
	if err != nil {
		return nil, err
	}
	alerts, err := readCounter(ctx, utils.KeyTotalAlerts)
	if err != nil {
		return nil, err
	}
	return &models.VerificationStats{
		TotalVerifications: verifications,
		TotalAlerts:        alerts,
	}, nil
}
