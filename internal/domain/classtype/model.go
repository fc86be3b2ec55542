package classtype

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrEmptyName = errors.New("class type name cannot be empty")
)

// Max length constants.
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 2000
)

// ClassType represents a kind of class offered on the timetable (e.g. Spin, HIIT, Yoga).
type ClassType struct {
	ID          string
	Name        string
	Description string // optional, markdown/plain text
}

// Validate checks if the ClassType has valid data.
// PRE: ClassType struct is populated
// POST: Returns nil if valid, error otherwise
func (c *ClassType) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return fmt.Errorf("class type name cannot exceed %d characters", MaxNameLength)
	}
	if len(c.Description) > MaxDescriptionLength {
		return fmt.Errorf("class type description cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}
