package domain

import (
	"time"

	"github.com/google/uuid"
)

// Gender enumerates the values stored for a user profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Flags holds account state switches.
type Flags struct {
	Active    bool `json:"is_active"`
	Superuser bool `json:"is_superuser"`
}

// Profile holds the optional personal attributes of a user.
type Profile struct {
	GivenName   string     `json:"first_name,omitempty"`
	MiddleName  string     `json:"middle_name,omitempty"`
	FamilyName  string     `json:"last_name,omitempty"`
	Gender      Gender     `json:"gender,omitempty"`
	Birthdate   *time.Time `json:"birthdate,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
}

// Address mirrors the users_address table.
type Address struct {
	StreetAddress string `json:"street_address"`
	Locality      string `json:"locality"`
	Region        string `json:"region"`
	Country       string `json:"country"`
	PostalCode    string `json:"postal_code,omitempty"`
}

// Timestamps tracks record lifecycle.
type Timestamps struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Identity is the authenticated view of a user. It never carries credentials.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Flags
	Profile
	Address *Address `json:"address,omitempty"`
	Timestamps
}

// Subject renders the JWT subject for the identity.
func (i Identity) Subject() string {
	return SubjectPrefix + i.ID.String()
}

// User is the persisted user record including the password hash.
type User struct {
	Identity
	PasswordHash string
}
