package member

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Business rule constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// Domain errors
var (
	ErrEmptyName    = errors.New("member name cannot be empty")
	ErrNameTooLong  = errors.New("member name cannot exceed 100 characters")
	ErrInvalidEmail = errors.New("member email must be valid")
	ErrInvalidState = errors.New("status must be 'active', 'inactive', or 'archived'")
)

// Member is a gym member with an account in the hosted auth service.
type Member struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Status    string
}

// Contact is the member contact data denormalized onto bookings and waitlist rows.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', FirstName must not be empty
func (m *Member) Validate() error {
	if strings.TrimSpace(m.FirstName) == "" {
		return ErrEmptyName
	}
	if len(m.FirstName)+len(m.LastName) > MaxNameLength {
		return ErrNameTooLong
	}
	if !strings.Contains(m.Email, "@") {
		return ErrInvalidEmail
	}
	if m.Status != StatusActive && m.Status != StatusInactive && m.Status != StatusArchived {
		return ErrInvalidState
	}
	return nil
}

// Contact returns the member's contact details.
func (m *Member) Contact() Contact {
	return Contact{FirstName: m.FirstName, LastName: m.LastName, Email: m.Email, Phone: m.Phone}
}

// FullName joins first and last name, skipping blanks.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Greeting returns the name used to address the member in messages.
func (c Contact) Greeting() string {
	if strings.TrimSpace(c.FirstName) != "" {
		return c.FirstName
	}
	return "there"
}
