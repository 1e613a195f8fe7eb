// Package policy supplies the authorization checks consulted by every
// contract before a gated operation. The policy is injected at contract
// construction, so stores can be exercised in isolation against fakes.
package policy

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/afyachain/medledger/models"
	"github.com/afyachain/medledger/utils"
)

// Policy answers ownership and role-membership questions. All checks
// are O(1) reads of the access registry's state.
type Policy interface {
	Owner(ctx contractapi.TransactionContextInterface) (string, error)
	IsOwner(ctx contractapi.TransactionContextInterface, identity string) (bool, error)
	IsProvider(ctx contractapi.TransactionContextInterface, identity string) (bool, error)
	IsManufacturer(ctx contractapi.TransactionContextInterface, identity string) (bool, error)
	IsVerifier(ctx contractapi.TransactionContextInterface, identity string) (bool, error)
}

// LedgerPolicy is the production Policy, backed by the access
// registry's world-state entries.
type LedgerPolicy struct{}

var _ Policy = (*LedgerPolicy)(nil)

// NewLedgerPolicy creates a ledger-backed policy
func NewLedgerPolicy() *LedgerPolicy {
	return &LedgerPolicy{}
}

// Owner returns the current ledger owner, "" when the ledger has not
// been initialized
func (p *LedgerPolicy) Owner(ctx contractapi.TransactionContextInterface) (string, error) {
	data, err := ctx.GetStub().GetState(utils.KeyOwner)
	if err != nil {
		return "", fmt.Errorf("failed to read ownership entry: %v", err)
	}
	if data == nil {
		return "", nil
	}

	var ownership models.Ownership
	if err := json.Unmarshal(data, &ownership); err != nil {
		return "", fmt.Errorf("failed to unmarshal ownership entry: %v", err)
	}
	return ownership.Owner, nil
}

// IsOwner reports whether identity is the current ledger owner
func (p *LedgerPolicy) IsOwner(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	owner, err := p.Owner(ctx)
	if err != nil {
		return false, err
	}
	return owner != "" && owner == identity, nil
}

// IsProvider reports whether identity holds an active provider role
func (p *LedgerPolicy) IsProvider(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return p.hasRole(ctx, models.RoleProvider, identity)
}

// IsManufacturer reports whether identity holds an active manufacturer role
func (p *LedgerPolicy) IsManufacturer(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return p.hasRole(ctx, models.RoleManufacturer, identity)
}

// IsVerifier reports whether identity holds an active verifier role
func (p *LedgerPolicy) IsVerifier(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return p.hasRole(ctx, models.RoleVerifier, identity)
}

func (p *LedgerPolicy) hasRole(ctx contractapi.TransactionContextInterface, role, identity string) (bool, error) {
	data, err := ctx.GetStub().GetState(utils.CreateRoleKey(role, identity))
	if err != nil {
		return false, fmt.Errorf("failed to read role assignment: %v", err)
	}
	if data == nil {
		return false, nil
	}

	var assignment models.RoleAssignment
	if err := json.Unmarshal(data, &assignment); err != nil {
		return false, fmt.Errorf("failed to unmarshal role assignment: %v", err)
	}
	return assignment.IsActive(), nil
}
