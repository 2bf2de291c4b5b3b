package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Keyword is a keyword reported by the model together with its justification.
type Keyword struct {
	Keyword string `json:"keyword"`
	Reason  string `json:"reason"`
}

// UnmarshalJSON accepts either {"keyword": ..., "reason": ...} or a bare string.
// Non-string members are rendered as text and a missing reason is empty.
func (k *Keyword) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode keyword: %w", err)
		}
		*k = Keyword{Keyword: strings.TrimSpace(s)}
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode keyword: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("decode keyword: null entry")
	}

	*k = Keyword{
		Keyword: textOf(raw["keyword"]),
		Reason:  textOf(raw["reason"]),
	}
	return nil
}

func textOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// Keywords is an ordered keyword list stored as a JSON array. A nil list is stored as "[]".
type Keywords []Keyword

func (Keywords) GormDataType() string {
	return "text"
}

// Value implements driver.Valuer.
func (k Keywords) Value() (driver.Value, error) {
	if k == nil {
		k = Keywords{}
	}
	b, err := json.Marshal([]Keyword(k))
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (k *Keywords) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*k = Keywords{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan keywords: unsupported type %T", src)
	}

	if strings.TrimSpace(string(data)) == "" {
		*k = Keywords{}
		return nil
	}

	var list []Keyword
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("scan keywords: %w", err)
	}
	if list == nil {
		list = []Keyword{}
	}
	*k = list
	return nil
}

// MarshalJSON renders a nil list as [] so API consumers always receive an array.
func (k Keywords) MarshalJSON() ([]byte, error) {
	if k == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Keyword(k))
}
