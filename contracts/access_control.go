package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/afyachain/medledger/ledgererr"
	"github.com/afyachain/medledger/models"
	"github.com/afyachain/medledger/policy"
	"github.com/afyachain/medledger/utils"
)

// AccessControlContract manages the ledger owner and the provider,
// manufacturer, and verifier role sets consulted by every other
// contract.
type AccessControlContract struct {
	contractapi.Contract
	policy policy.Policy
}

// NewAccessControlContract creates the contract with its authorization
// policy
func NewAccessControlContract(p policy.Policy) *AccessControlContract {
	return &AccessControlContract{policy: p}
}

// InitLedger records the caller as the ledger owner. It can run exactly
// once for the life of the ledger.
func (acc *AccessControlContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	owner, err := acc.policy.Owner(ctx)
	if err != nil {
		return err
	}
	if owner != "" {
		return ledgererr.New(ledgererr.CodeAlreadyInitialized, "ledger owner is already set")
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	if err := putJSON(ctx, utils.KeyOwner, models.NewOwnership(caller, now)); err != nil {
		return err
	}

	return emitEvent(ctx, "LedgerInitialized", "LEDGER_INITIALIZED", map[string]interface{}{
		"owner": caller,
	}, now)
}

// TransferOwnership hands the ledger to a new owner identity. The new
// owner is auto-granted provider and verifier roles; manufacturer
// rights are never implied by ownership and must be granted explicitly
// so the grant lands in the audit trail.
func (acc *AccessControlContract) TransferOwnership(ctx contractapi.TransactionContextInterface, newOwner string) error {
	if err := utils.ValidateIdentity("new owner", newOwner); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, acc.policy, caller); err != nil {
		return err
	}
	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	var ownership models.Ownership
	if _, err := getJSON(ctx, utils.KeyOwner, &ownership); err != nil {
		return err
	}
	ownership.PreviousOwner = ownership.Owner
	ownership.Owner = newOwner
	ownership.Since = now

	if err := putJSON(ctx, utils.KeyOwner, &ownership); err != nil {
		return err
	}

	for _, role := range []string{models.RoleProvider, models.RoleVerifier} {
		assignment := models.NewRoleAssignment(role, newOwner, caller, now)
		if err := putJSON(ctx, utils.CreateRoleKey(role, newOwner), assignment); err != nil {
			return err
		}
	}

	return emitEvent(ctx, "OwnershipTransferred", "OWNERSHIP_TRANSFERRED", map[string]interface{}{
		"previousOwner": ownership.PreviousOwner,
		"newOwner":      newOwner,
	}, now)
}

// AuthorizeProvider adds an identity to the provider set
func (acc *AccessControlContract) AuthorizeProvider(ctx contractapi.TransactionContextInterface, identity string) error {
	return acc.authorizeRole(ctx, models.RoleProvider, identity, "ProviderAuthorized", "PROVIDER_AUTHORIZED")
}

// RevokeProvider removes an identity from the provider set
func (acc *AccessControlContract) RevokeProvider(ctx contractapi.TransactionContextInterface, identity string) error {
	return acc.revokeRole(ctx, models.RoleProvider, identity, "ProviderRevoked", "PROVIDER_REVOKED")
}

// AuthorizeManufacturer adds an identity to the manufacturer set
func (acc *AccessControlContract) AuthorizeManufacturer(ctx contractapi.TransactionContextInterface, identity string) error {
	return acc.authorizeRole(ctx, models.RoleManufacturer, identity, "ManufacturerAuthorized", "MANUFACTURER_AUTHORIZED")
}

// RevokeManufacturer removes an identity from the manufacturer set
func (acc *AccessControlContract) RevokeManufacturer(ctx contractapi.TransactionContextInterface, identity string) error {
	return acc.revokeRole(ctx, models.RoleManufacturer, identity, "ManufacturerRevoked", "MANUFACTURER_REVOKED")
}

// AuthorizeVerifier adds an identity to the verifier set
func (acc *AccessControlContract) AuthorizeVerifier(ctx contractapi.TransactionContextInterface, identity string) error {
	return acc.authorizeRole(ctx, models.RoleVerifier, identity, "VerifierAuthorized", "VERIFIER_AUTHORIZED")
}

// RevokeVerifier removes an identity from the verifier set
func (acc *AccessControlContract) RevokeVerifier(ctx contractapi.TransactionContextInterface, identity string) error {
	return acc.revokeRole(ctx, models.RoleVerifier, identity, "VerifierRevoked", "VERIFIER_REVOKED")
}

// GetOwner returns the current ledger owner, "" before initialization
func (acc *AccessControlContract) GetOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	return acc.policy.Owner(ctx)
}

// IsOwner reports whether identity is the ledger owner
func (acc *AccessControlContract) IsOwner(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return acc.policy.IsOwner(ctx, identity)
}

// IsAuthorizedProvider reports provider-set membership
func (acc *AccessControlContract) IsAuthorizedProvider(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return acc.policy.IsProvider(ctx, identity)
}

// IsAuthorizedManufacturer reports manufacturer-set membership
func (acc *AccessControlContract) IsAuthorizedManufacturer(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return acc.policy.IsManufacturer(ctx, identity)
}

// IsAuthorizedVerifier reports verifier-set membership
func (acc *AccessControlContract) IsAuthorizedVerifier(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return acc.policy.IsVerifier(ctx, identity)
}

func (acc *AccessControlContract) authorizeRole(ctx contractapi.TransactionContextInterface, role, identity, eventName, eventType string) error {
	if err := utils.ValidateIdentity("identity", identity); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, acc.policy, caller); err != nil {
		return err
	}
	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	assignment := models.NewRoleAssignment(role, identity, caller, now)
	if err := putJSON(ctx, utils.CreateRoleKey(role, identity), assignment); err != nil {
		return err
	}

	return emitEvent(ctx, eventName, eventType, map[string]interface{}{
		"identity":  identity,
		"grantedBy": caller,
	}, now)
}

func (acc *AccessControlContract) revokeRole(ctx contractapi.TransactionContextInterface, role, identity, eventName, eventType string) error {
	if err := utils.ValidateIdentity("identity", identity); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, acc.policy, caller); err != nil {
		return err
	}
	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	roleKey := utils.CreateRoleKey(role, identity)
	var assignment models.RoleAssignment
	found, err := getJSON(ctx, roleKey, &assignment)
	if err != nil {
		return err
	}
	if !found || !assignment.IsActive() {
		return ledgererr.New(ledgererr.CodeNoActiveRole, "identity holds no active %s role", role)
	}

	assignment.Active = false
	assignment.RevokedAt = now
	if err := putJSON(ctx, roleKey, &assignment); err != nil {
		return err
	}

	return emitEvent(ctx, eventName, eventType, map[string]interface{}{
		"identity":  identity,
		"revokedBy": caller,
	}, now)
}
