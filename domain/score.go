package domain

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxMatchScore is the upper bound of a match score.
const MaxMatchScore = 100

// MatchScore is a match percentage in [0, 100]. It is persisted as "NN%" text.
type MatchScore int

// NewMatchScore returns n as a MatchScore, or 0 when n is out of range.
func NewMatchScore(n int) MatchScore {
	if n < 0 || n > MaxMatchScore {
		return 0
	}
	return MatchScore(n)
}

// ParseMatchScore reads values such as "80%", "80" or "79.6 %". Decimals are rounded.
// Anything non-numeric or outside [0, 100] yields 0.
func ParseMatchScore(s string) MatchScore {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0
	}

	if n, err := strconv.Atoi(s); err == nil {
		return NewMatchScore(n)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return NewMatchScore(int(math.Round(f)))
}

func (m MatchScore) Int() int {
	return int(m)
}

func (m MatchScore) String() string {
	return fmt.Sprintf("%d%%", int(m))
}

// Value implements driver.Valuer.
func (m MatchScore) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner. Malformed stored values scan as 0.
func (m *MatchScore) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case string:
		*m = ParseMatchScore(v)
	case []byte:
		*m = ParseMatchScore(string(v))
	case int64:
		*m = NewMatchScore(int(v))
	default:
		return fmt.Errorf("scan match score: unsupported type %T", src)
	}
	return nil
}
