package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyachain/medledger/ledgererr"
)

func TestValidateIdentity(t *testing.T) {
	assert.NoError(t, ValidateIdentity("provider", "dr-amara"))

	err := ValidateIdentity("provider", "")
	assert.Equal(t, ledgererr.CodeInvalidIdentity, ledgererr.CodeOf(err))

	err = ValidateIdentity("provider", "   ")
	assert.Equal(t, ledgererr.CodeInvalidIdentity, ledgererr.CodeOf(err))
}

func TestValidateRecordHash(t *testing.T) {
	valid := strings.Repeat("a1", 32)
	assert.NoError(t, ValidateRecordHash(valid))
	assert.NoError(t, ValidateRecordHash(strings.ToUpper(valid)))

	for _, bad := range []string{
		"",
		"deadbeef",
		strings.Repeat("a1", 32) + "ff",
		strings.Repeat("z", 64),
		strings.Repeat("0", 64),
	} {
		err := ValidateRecordHash(bad)
		assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err), "hash %q", bad)
	}
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("name", "Paracetamol"))

	err := ValidateRequired("name", " ")
	require.Error(t, err)
	assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err))
	assert.Contains(t, err.Error(), "name")
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason("patient unconscious"))

	err := ValidateReason("")
	assert.Equal(t, ledgererr.CodeReasonRequired, ledgererr.CodeOf(err))
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(1))
	assert.NoError(t, ValidateQuantity(10000))

	for _, bad := range []int{0, -1, -10000} {
		err := ValidateQuantity(bad)
		assert.Equal(t, ledgererr.CodeInvalidQuantity, ledgererr.CodeOf(err), "quantity %d", bad)
	}
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("expiry date", "2027-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC), parsed)

	parsed, err = ParseDate("expiry date", "2027-01-10T12:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, parsed.Hour())

	_, err = ParseDate("expiry date", "")
	assert.Equal(t, ledgererr.CodeEmptyField, ledgererr.CodeOf(err))

	_, err = ParseDate("expiry date", "10/01/2027")
	assert.Equal(t, ledgererr.CodeInvalidDates, ledgererr.CodeOf(err))
}

func TestValidateDateOrder(t *testing.T) {
	manufacture := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateDateOrder(manufacture, manufacture.AddDate(2, 0, 0)))

	err := ValidateDateOrder(manufacture, manufacture)
	assert.Equal(t, ledgererr.CodeInvalidDates, ledgererr.CodeOf(err), "equal dates are invalid")

	err = ValidateDateOrder(manufacture, manufacture.AddDate(-1, 0, 0))
	assert.Equal(t, ledgererr.CodeInvalidDates, ledgererr.CodeOf(err))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "contamination found", SanitizeString("  contamination found\n"))
	assert.Equal(t, "", SanitizeString("   "))
}
