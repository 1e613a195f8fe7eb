package models

import "time"

// Consent is the current-state entry for one (patient, provider) pair.
// A re-grant overwrites the flags and timestamps in place; this is not
// a history record. Per-pair history lives in the ledger's key history.
type Consent struct {
	ObjectType string    `json:"objectType"`
	Patient    string    `json:"patient"`
	Provider   string    `json:"provider"`
	Granted    bool      `json:"granted"`
	GrantedAt  time.Time `json:"grantedAt"`
	RevokedAt  time.Time `json:"revokedAt,omitempty"`
}

// NewConsent creates a granted consent entry
func NewConsent(patient, provider string, now time.Time) *Consent {
	return &Consent{
		ObjectType: ObjectTypeConsent,
		Patient:    patient,
		Provider:   provider,
		Granted:    true,
		GrantedAt:  now,
	}
}

// IsActive reports whether the consent currently permits access
func (c *Consent) IsActive() bool {
	return c != nil && c.Granted
}
