package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/studypal/textbase/helper"
)

// Metadata holds free-form document and chunk attributes, stored as JSONB.
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements sql.Scanner for JSONB retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal fills Metadata from JSON bytes or an existing Metadata value
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}
