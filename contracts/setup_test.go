package contracts

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/require"

	"github.com/afyachain/medledger/policy"
	"github.com/afyachain/medledger/testutil"
)

// Test identities. The owner is installed by InitLedger in newFixture;
// every other role is granted per test.
const (
	owner         = "ministry-admin"
	provider      = "dr-amara"
	provider2     = "dr-odhiambo"
	patient       = "wanjiku"
	patient2      = "kamau"
	manufacturer  = "pharmaplus"
	manufacturer2 = "medsupply"
	verifier      = "kebs-lab"
	outsider      = "mallory"
)

type fixture struct {
	ledger       *testutil.Ledger
	access       *AccessControlContract
	consent      *ConsentContract
	records      *MedicalRecordContract
	medicine     *MedicineContract
	verification *VerificationContract
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := policy.NewLedgerPolicy()
	f := &fixture{
		ledger:       testutil.NewLedger(),
		access:       NewAccessControlContract(p),
		consent:      NewConsentContract(p),
		records:      NewMedicalRecordContract(p),
		medicine:     NewMedicineContract(p),
		verification: NewVerificationContract(p),
	}
	require.NoError(t, f.access.InitLedger(f.ledger.As(owner)))
	return f
}

func (f *fixture) authorizeProvider(t *testing.T, identity string) {
	t.Helper()
	require.NoError(t, f.access.AuthorizeProvider(f.ledger.As(owner), identity))
}

func (f *fixture) authorizeManufacturer(t *testing.T, identity string) {
	t.Helper()
	require.NoError(t, f.access.AuthorizeManufacturer(f.ledger.As(owner), identity))
}

func (f *fixture) authorizeVerifier(t *testing.T, identity string) {
	t.Helper()
	require.NoError(t, f.access.AuthorizeVerifier(f.ledger.As(owner), identity))
}

// testHash returns a distinct well-formed sha256 hex digest per seed
func testHash(seed int) string {
	return fmt.Sprintf("%064x", 0xfeed0000+seed)
}

func eventPayload(t *testing.T, event *testutil.Event) map[string]interface{} {
	t.Helper()
	require.NotNil(t, event)
	payload := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	return payload
}

// stubPolicy makes authorization decisions from fixed sets, independent
// of ledger state
type stubPolicy struct {
	owner         string
	providers     map[string]bool
	manufacturers map[string]bool
	verifiers     map[string]bool
}

var _ policy.Policy = (*stubPolicy)(nil)

func (p *stubPolicy) Owner(ctx contractapi.TransactionContextInterface) (string, error) {
	return p.owner, nil
}

func (p *stubPolicy) IsOwner(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return p.owner != "" && identity == p.owner, nil
}

func (p *stubPolicy) IsProvider(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return p.providers[identity], nil
}

func (p *stubPolicy) IsManufacturer(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return p.manufacturers[identity], nil
}

func (p *stubPolicy) IsVerifier(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return p.verifiers[identity], nil
}

// failingPolicy errors on every consultation; tests use it to pin which
// operations never ask for authorization
type failingPolicy struct{}

var _ policy.Policy = failingPolicy{}

func (failingPolicy) Owner(ctx contractapi.TransactionContextInterface) (string, error) {
	return "", fmt.Errorf("policy consulted")
}

func (failingPolicy) IsOwner(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return false, fmt.Errorf("policy consulted")
}

func (failingPolicy) IsProvider(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return false, fmt.Errorf("policy consulted")
}

func (failingPolicy) IsManufacturer(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return false, fmt.Errorf("policy consulted")
}

func (failingPolicy) IsVerifier(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	return false, fmt.Errorf("policy consulted")
}
