package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// StringArray stores a list of strings in a single text column as a JSON
// array, so the same model works on postgres, mysql and sqlite.
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		*a = StringArray{}
		return nil
	}
	if !strings.HasPrefix(raw, "[") {
		// Rows written before the JSON encoding hold a comma separated list.
		*a = strings.Split(raw, ",")
		return nil
	}
	return json.Unmarshal([]byte(raw), (*[]string)(a))
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}

// Contains reports whether s is in the array.
func (a StringArray) Contains(s string) bool {
	return slices.Contains(a, s)
}
