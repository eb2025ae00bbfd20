package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"lingo-quiz/internal/domain"
)

// StringSlice stores a list of strings as a JSON array in a text column.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("StringSlice Scan: %w", err)
	}
	if data == nil {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// TranslationEntries stores translation senses as a JSON array in a text column.
type TranslationEntries []domain.TranslationEntry

func (e TranslationEntries) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	jsonData, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

func (e *TranslationEntries) Scan(value interface{}) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("TranslationEntries Scan: %w", err)
	}
	if data == nil {
		*e = TranslationEntries{}
		return nil
	}
	return json.Unmarshal(data, e)
}

// jsonBytes returns nil for NULL, empty and "null" column values.
func jsonBytes(value interface{}) ([]byte, error) {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, errors.New("unsupported type " + fmt.Sprintf("%T", value))
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	return data, nil
}
