package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringMap persists a free-form string map as JSON (jsonb on Postgres).
type StringMap map[string]string

func (m *StringMap) Scan(src any) error {
	if src == nil {
		*m = StringMap{}
		return nil
	}
	raw, err := rawBytes(src)
	if err != nil {
		return fmt.Errorf("StringMap: %w", err)
	}
	if len(raw) == 0 {
		*m = StringMap{}
		return nil
	}
	out := StringMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringMap: %w", err)
	}
	*m = out
	return nil
}

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StringList persists a list of strings as a JSON array.
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = StringList{}
		return nil
	}
	raw, err := rawBytes(src)
	if err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	out := StringList{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	*l = out
	return nil
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func rawBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported Scan type %T", src)
	}
}
