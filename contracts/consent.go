package contracts

import (
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/afyachain/medledger/ledgererr"
	"github.com/afyachain/medledger/models"
	"github.com/afyachain/medledger/policy"
	"github.com/afyachain/medledger/utils"
)

// ConsentContract manages per (patient, provider) consent entries. The
// patient is always the caller for mutations: the pair key is derived
// from the caller identity, so nobody can grant or revoke on another
// patient's behalf.
type ConsentContract struct {
	contractapi.Contract
	policy policy.Policy
}

// NewConsentContract creates the contract with its authorization policy
func NewConsentContract(p policy.Policy) *ConsentContract {
	return &ConsentContract{policy: p}
}

// GrantConsent lets the calling patient authorize a provider to read
// their records. Re-granting overwrites the pair entry in place.
func (cc *ConsentContract) GrantConsent(ctx contractapi.TransactionContextInterface, provider string) error {
	if err := utils.ValidateIdentity("provider", provider); err != nil {
		return err
	}

	patient, err := callerID(ctx)
	if err != nil {
		return err
	}

	authorized, err := cc.policy.IsProvider(ctx, provider)
	if err != nil {
		return err
	}
	if !authorized {
		return ledgererr.New(ledgererr.CodeProviderNotAuthorized, "provider is not currently authorized")
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	consent := models.NewConsent(patient, provider, now)
	if err := putJSON(ctx, utils.CreateConsentKey(patient, provider), consent); err != nil {
		return err
	}

	return emitEvent(ctx, "ConsentGranted", "CONSENT_GRANTED", map[string]interface{}{
		"patient":  patient,
		"provider": provider,
	}, now)
}

// RevokeConsent lets the calling patient withdraw a live grant
func (cc *ConsentContract) RevokeConsent(ctx contractapi.TransactionContextInterface, provider string) error {
	if err := utils.ValidateIdentity("provider", provider); err != nil {
		return err
	}

	patient, err := callerID(ctx)
	if err != nil {
		return err
	}

	consentKey := utils.CreateConsentKey(patient, provider)
	var consent models.Consent
	found, err := getJSON(ctx, consentKey, &consent)
	if err != nil {
		return err
	}
	if !found || !consent.IsActive() {
		return ledgererr.New(ledgererr.CodeNoActiveConsent, "no active consent for this provider")
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	consent.Granted = false
	consent.RevokedAt = now
	if err := putJSON(ctx, consentKey, &consent); err != nil {
		return err
	}

	return emitEvent(ctx, "ConsentRevoked", "CONSENT_REVOKED", map[string]interface{}{
		"patient":  patient,
		"provider": provider,
	}, now)
}

// HasConsent reports whether patient currently consents to provider.
// Pure read on the hot record-access path; no event, no gate.
func (cc *ConsentContract) HasConsent(ctx contractapi.TransactionContextInterface, patient, provider string) (bool, error) {
	var consent models.Consent
	found, err := getJSON(ctx, utils.CreateConsentKey(patient, provider), &consent)
	if err != nil {
		return false, err
	}
	return found && consent.IsActive(), nil
}

// GetConsent returns the full pair entry. Restricted to the patient,
// the named provider, and the owner.
func (cc *ConsentContract) GetConsent(ctx contractapi.TransactionContextInterface, patient, provider string) (*models.Consent, error) {
	if err := cc.requirePairParty(ctx, patient, provider); err != nil {
		return nil, err
	}

	var consent models.Consent
	found, err := getJSON(ctx, utils.CreateConsentKey(patient, provider), &consent)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledgererr.New(ledgererr.CodeNoActiveConsent, "no consent entry for this pair")
	}
	return &consent, nil
}

// GetConsentHistory returns every historical version of the pair
// entry, most recent first. Same access rule as GetConsent.
func (cc *ConsentContract) GetConsentHistory(ctx contractapi.TransactionContextInterface, patient, provider string) ([]*models.HistoryRecord, error) {
	if err := cc.requirePairParty(ctx, patient, provider); err != nil {
		return nil, err
	}

	resultsIterator, err := ctx.GetStub().GetHistoryForKey(utils.CreateConsentKey(patient, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to get consent history: %v", err)
	}
	defer resultsIterator.Close()

	history := []*models.HistoryRecord{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate history: %v", err)
		}

		entry := &models.HistoryRecord{
			TxID:     queryResponse.TxId,
			Value:    string(queryResponse.Value),
			IsDelete: queryResponse.IsDelete,
		}
		if queryResponse.Timestamp != nil {
			entry.Timestamp = time.Unix(queryResponse.Timestamp.Seconds, int64(queryResponse.Timestamp.Nanos)).UTC()
		}
		history = append(history, entry)
	}
	return history, nil
}

func (cc *ConsentContract) requirePairParty(ctx contractapi.TransactionContextInterface, patient, provider string) error {
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if caller == patient || caller == provider {
		return nil
	}
	isOwner, err := cc.policy.IsOwner(ctx, caller)
	if err != nil {
		return err
	}
	if !isOwner {
		return ledgererr.New(ledgererr.CodeAccessDenied, "caller is not a party to this consent")
	}
	return nil
}
