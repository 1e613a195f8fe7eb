package models

import "time"

// Role constants for the access registry
const (
	RoleProvider     = "PROVIDER"
	RoleManufacturer = "MANUFACTURER"
	RoleVerifier     = "VERIFIER"
)

// Object type constants stored alongside every world-state entry
const (
	ObjectTypeOwnership       = "ownership"
	ObjectTypeRoleAssignment  = "roleAssignment"
	ObjectTypeConsent         = "consent"
	ObjectTypeMedicalRecord   = "medicalRecord"
	ObjectTypeEmergencyAccess = "emergencyAccess"
	ObjectTypeMedicine        = "medicine"
	ObjectTypeBatch           = "batch"
	ObjectTypeVerification    = "verification"
	ObjectTypeCounterfeit     = "counterfeitAlert"
)

// Ownership is the singleton entry naming the ledger owner
type Ownership struct {
	ObjectType    string    `json:"objectType"`
	Owner         string    `json:"owner"`
	PreviousOwner string    `json:"previousOwner,omitempty"`
	Since         time.Time `json:"since"`
}

// NewOwnership creates the initial ownership entry
func NewOwnership(owner string, now time.Time) *Ownership {
	return &Ownership{
		ObjectType: ObjectTypeOwnership,
		Owner:      owner,
		Since:      now,
	}
}

// RoleAssignment is the current-state entry for one (role, identity)
// pair. Revocation flips Active and stamps RevokedAt; the entry itself
// is never deleted.
type RoleAssignment struct {
	ObjectType string    `json:"objectType"`
	Role       string    `json:"role"`
	Identity   string    `json:"identity"`
	Active     bool      `json:"active"`
	GrantedBy  string    `json:"grantedBy"`
	GrantedAt  time.Time `json:"grantedAt"`
	RevokedAt  time.Time `json:"revokedAt,omitempty"`
}

// NewRoleAssignment creates an active role assignment
func NewRoleAssignment(role, identity, grantedBy string, now time.Time) *RoleAssignment {
	return &RoleAssignment{
		ObjectType: ObjectTypeRoleAssignment,
		Role:       role,
		Identity:   identity,
		Active:     true,
		GrantedBy:  grantedBy,
		GrantedAt:  now,
	}
}

// IsActive reports whether the assignment currently confers the role
func (ra *RoleAssignment) IsActive() bool {
	return ra != nil && ra.Active
}
