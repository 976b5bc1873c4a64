package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role is the kind of family member acting on the progress
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleParent, RoleChild:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown roles
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v := Role(s)
	if !v.Valid() {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = v
	return nil
}

// AuthContext identifies who is calling. It is supplied by the auth layer and trusted as is.
type AuthContext struct {
	FamilyID string `json:"familyId"`
	Role     Role   `json:"role"`
}

// FamilyContact holds where a family's parent notifications are e-mailed
type FamilyContact struct {
	FamilyID  string
	Email     string
	UpdatedAt time.Time
}

// ProgressSnapshot is the stored form of a family's progress document
type ProgressSnapshot struct {
	FamilyID  string
	Document  []byte
	Version   int64
	UpdatedAt time.Time
}
