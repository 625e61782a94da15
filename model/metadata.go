package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Metadata represents an open JSONB metadata bag stored in PostgreSQL.
// Callers may attach arbitrary fields; nothing in the store interprets them.
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(Metadata{})
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("metadata scan: type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
