package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyachain/medledger/contracts"
	"github.com/afyachain/medledger/policy"
	"github.com/afyachain/medledger/testutil"
)

func TestOwnerBeforeInitialization(t *testing.T) {
	ledger := testutil.NewLedger()
	p := policy.NewLedgerPolicy()

	currentOwner, err := p.Owner(ledger.As("anyone"))
	require.NoError(t, err)
	assert.Equal(t, "", currentOwner)

	isOwner, err := p.IsOwner(ledger.As("anyone"), "anyone")
	require.NoError(t, err)
	assert.False(t, isOwner, "nobody owns an uninitialized ledger")
}

func TestPolicyReadsLedgerState(t *testing.T) {
	ledger := testutil.NewLedger()
	p := policy.NewLedgerPolicy()
	access := contracts.NewAccessControlContract(p)

	require.NoError(t, access.InitLedger(ledger.As("ministry")))
	require.NoError(t, access.AuthorizeProvider(ledger.As("ministry"), "dr-amara"))
	require.NoError(t, access.AuthorizeManufacturer(ledger.As("ministry"), "pharmaplus"))

	isOwner, err := p.IsOwner(ledger.As("anyone"), "ministry")
	require.NoError(t, err)
	assert.True(t, isOwner)

	isProvider, err := p.IsProvider(ledger.As("anyone"), "dr-amara")
	require.NoError(t, err)
	assert.True(t, isProvider)

	isProvider, err = p.IsProvider(ledger.As("anyone"), "pharmaplus")
	require.NoError(t, err)
	assert.False(t, isProvider, "roles do not bleed across sets")

	isManufacturer, err := p.IsManufacturer(ledger.As("anyone"), "pharmaplus")
	require.NoError(t, err)
	assert.True(t, isManufacturer)

	isVerifier, err := p.IsVerifier(ledger.As("anyone"), "dr-amara")
	require.NoError(t, err)
	assert.False(t, isVerifier)
}

func TestPolicySeesRevocation(t *testing.T) {
	ledger := testutil.NewLedger()
	p := policy.NewLedgerPolicy()
	access := contracts.NewAccessControlContract(p)

	require.NoError(t, access.InitLedger(ledger.As("ministry")))
	require.NoError(t, access.AuthorizeVerifier(ledger.As("ministry"), "kebs-lab"))
	require.NoError(t, access.RevokeVerifier(ledger.As("ministry"), "kebs-lab"))

	isVerifier, err := p.IsVerifier(ledger.As("anyone"), "kebs-lab")
	require.NoError(t, err)
	assert.False(t, isVerifier, "a revoked assignment confers nothing")
}

func TestUnknownIdentityHoldsNoRole(t *testing.T) {
	ledger := testutil.NewLedger()
	p := policy.NewLedgerPolicy()

	for name, check := range map[string]func() (bool, error){
		"provider":     func() (bool, error) { return p.IsProvider(ledger.As("anyone"), "ghost") },
		"manufacturer": func() (bool, error) { return p.IsManufacturer(ledger.As("anyone"), "ghost") },
		"verifier":     func() (bool, error) { return p.IsVerifier(ledger.As("anyone"), "ghost") },
	} {
		held, err := check()
		require.NoError(t, err, name)
		assert.False(t, held, name)
	}
}
