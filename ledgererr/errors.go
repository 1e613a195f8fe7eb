// Package ledgererr defines the error taxonomy shared by every contract.
// Errors cross the chaincode boundary as strings, so each error renders
// as "CODE: message" and CodeOf can recover the code on the client side.
package ledgererr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups codes by the class of failure.
type Kind string

const (
	KindAuthorization Kind = "AUTHORIZATION"
	KindValidation    Kind = "VALIDATION"
	KindConflict      Kind = "CONFLICT"
	KindNotFound      Kind = "NOT_FOUND"
)

// Code identifies a single failure mode.
type Code string

const (
	CodeNotAuthorized         Code = "NOT_AUTHORIZED"
	CodeAccessDenied          Code = "ACCESS_DENIED"
	CodeProviderNotAuthorized Code = "PROVIDER_NOT_AUTHORIZED"

	CodeInvalidIdentity Code = "INVALID_IDENTITY"
	CodeEmptyField      Code = "EMPTY_FIELD"
	CodeInvalidDates    Code = "INVALID_DATES"
	CodeInvalidQuantity Code = "INVALID_QUANTITY"
	CodeReasonRequired  Code = "REASON_REQUIRED"

	CodeDuplicateRecord    Code = "DUPLICATE_RECORD"
	CodeDuplicateMedicine  Code = "DUPLICATE_MEDICINE"
	CodeDuplicateBatch     Code = "DUPLICATE_BATCH"
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"
	CodeBatchRecalled      Code = "BATCH_RECALLED"
	CodeAlertResolved      Code = "ALERT_RESOLVED"

	CodeRecordNotFound   Code = "RECORD_NOT_FOUND"
	CodeMedicineNotFound Code = "MEDICINE_NOT_FOUND"
	CodeBatchNotFound    Code = "BATCH_NOT_FOUND"
	CodeNoActiveConsent  Code = "NO_ACTIVE_CONSENT"
	CodeNoActiveRole     Code = "NO_ACTIVE_ROLE"
	CodeAlertNotFound    Code = "ALERT_NOT_FOUND"
)

var kinds = map[Code]Kind{
	CodeNotAuthorized:         KindAuthorization,
	CodeAccessDenied:          KindAuthorization,
	CodeProviderNotAuthorized: KindAuthorization,
	CodeInvalidIdentity:       KindValidation,
	CodeEmptyField:            KindValidation,
	CodeInvalidDates:          KindValidation,
	CodeInvalidQuantity:       KindValidation,
	CodeReasonRequired:        KindValidation,
	CodeDuplicateRecord:       KindConflict,
	CodeDuplicateMedicine:     KindConflict,
	CodeDuplicateBatch:        KindConflict,
	CodeAlreadyInitialized:    KindConflict,
	CodeBatchRecalled:         KindConflict,
	CodeAlertResolved:         KindConflict,
	CodeRecordNotFound:        KindNotFound,
	CodeMedicineNotFound:      KindNotFound,
	CodeBatchNotFound:         KindNotFound,
	CodeNoActiveConsent:       KindNotFound,
	CodeNoActiveRole:          KindNotFound,
	CodeAlertNotFound:         KindNotFound,
}

// Error carries a taxonomy code alongside the human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a coded error.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from an error. It unwraps typed errors first
// and falls back to scanning for a "CODE:" token, which is all that
// survives a trip through a peer's proposal response (peers prepend
// their own context, so the code is rarely at position zero). Returns
// "" when the error carries no recognizable code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	msg := err.Error()
	best := Code("")
	bestPos := -1
	for c := range kinds {
		pos := strings.Index(msg, string(c)+":")
		if pos < 0 {
			continue
		}
		// Reject mid-token hits: NOT_AUTHORIZED inside PROVIDER_NOT_AUTHORIZED.
		if pos > 0 {
			prev := msg[pos-1]
			if prev == '_' || (prev >= 'A' && prev <= 'Z') {
				continue
			}
		}
		if bestPos == -1 || pos < bestPos || (pos == bestPos && len(c) > len(best)) {
			best, bestPos = c, pos
		}
	}
	return best
}

// KindOf reports the taxonomy kind for a code, "" for unknown codes.
func KindOf(code Code) Kind {
	return kinds[code]
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
