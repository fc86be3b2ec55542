package instructor

import (
	"errors"
	"strings"
)

// Domain errors
var (
	ErrEmptyName    = errors.New("instructor name cannot be empty")
	ErrInvalidEmail = errors.New("instructor email must be valid")
)

// Instructor is a trainer assigned to scheduled classes.
type Instructor struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// Validate checks if the Instructor has valid data.
// PRE: Instructor struct is populated
// POST: Returns nil if valid, error otherwise
func (i *Instructor) Validate() error {
	if strings.TrimSpace(i.FirstName) == "" {
		return ErrEmptyName
	}
	if i.Email != "" && !strings.Contains(i.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// FullName joins first and last name.
func (i *Instructor) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}
