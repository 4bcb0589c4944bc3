package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// RelationshipID is a value object identifying a relationship between nodes
type RelationshipID struct {
	value string
}

// NewRelationshipID creates a new random RelationshipID
func NewRelationshipID() RelationshipID {
	return RelationshipID{value: uuid.New().String()}
}

// NewRelationshipIDFromString creates a RelationshipID from an existing string
func NewRelationshipIDFromString(id string) (RelationshipID, error) {
	if id == "" {
		return RelationshipID{}, errors.New("relationship ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return RelationshipID{}, errors.New("relationship ID must be a valid UUID")
	}
	return RelationshipID{value: id}, nil
}

// String returns the string representation of the RelationshipID
func (id RelationshipID) String() string {
	return id.value
}

// Equals checks if two RelationshipIDs are equal
func (id RelationshipID) Equals(other RelationshipID) bool {
	return id.value == other.value
}

// IsZero checks if the RelationshipID is the zero value
func (id RelationshipID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id RelationshipID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *RelationshipID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("RelationshipID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
