package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/afyachain/medledger/ledgererr"
)

// Regular expressions for validation
var (
	hashRegex     = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	zeroHashRegex = regexp.MustCompile(`^0{64}$`)
)

// Accepted date layouts for medicine dates
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ValidateIdentity checks a target identity argument
func ValidateIdentity(field, identity string) error {
	if strings.TrimSpace(identity) == "" {
		return ledgererr.New(ledgererr.CodeInvalidIdentity, "%s must not be empty", field)
	}
	return nil
}

// ValidateRecordHash checks a 32-byte content hash in hex form
func ValidateRecordHash(recordHash string) error {
	if recordHash == "" {
		return ledgererr.New(ledgererr.CodeEmptyField, "record hash is required")
	}
	if !hashRegex.MatchString(recordHash) {
		return ledgererr.New(ledgererr.CodeEmptyField, "record hash must be a 64 character hex string")
	}
	if zeroHashRegex.MatchString(recordHash) {
		return ledgererr.New(ledgererr.CodeEmptyField, "record hash must not be the zero hash")
	}
	return nil
}

// ValidateRequired checks a required string field
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ledgererr.New(ledgererr.CodeEmptyField, "%s is required", field)
	}
	return nil
}

// ValidateReason checks the justification argument of audit-sensitive
// operations
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ledgererr.New(ledgererr.CodeReasonRequired, "a non-empty reason is required")
	}
	return nil
}

// ValidateQuantity checks a batch quantity argument
func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return ledgererr.New(ledgererr.CodeInvalidQuantity, "quantity must be positive, got %d", quantity)
	}
	return nil
}

// ParseDate parses a medicine date in RFC3339 or date-only form
func ParseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, ledgererr.New(ledgererr.CodeEmptyField, "%s is required", field)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ledgererr.New(ledgererr.CodeInvalidDates, "%s is not a valid date: %s", field, value)
}

// ValidateDateOrder checks that expiry falls strictly after manufacture
func ValidateDateOrder(manufacture, expiry time.Time) error {
	if !expiry.After(manufacture) {
		return ledgererr.New(ledgererr.CodeInvalidDates,
			"expiry date %s must be after manufacture date %s",
			expiry.Format(time.RFC3339), manufacture.Format(time.RFC3339))
	}
	return nil
}

// SanitizeString trims surrounding whitespace from free-text input
func SanitizeString(input string) string {
	return strings.TrimSpace(input)
}
