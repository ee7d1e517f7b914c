package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray stores a list of ids as a postgres uuid[] literal. The same text
// form round-trips through sqlite, which keeps checkout attempts portable
// across both drivers.
type UUIDArray []uuid.UUID

// Scan implements sql.Scanner.
func (a *UUIDArray) Scan(src any) error {
	var literal string
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		literal = v
	case []byte:
		literal = string(v)
	default:
		return fmt.Errorf("uuid array: cannot scan %T", src)
	}

	ids, err := parseUUIDLiteral(literal)
	if err != nil {
		return err
	}
	*a = ids
	return nil
}

// Value implements driver.Valuer.
func (a UUIDArray) Value() (driver.Value, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Contains reports whether id is part of the list.
func (a UUIDArray) Contains(id uuid.UUID) bool {
	return slices.Contains(a, id)
}

func parseUUIDLiteral(literal string) (UUIDArray, error) {
	body := strings.TrimSpace(literal)
	body = strings.TrimSuffix(strings.TrimPrefix(body, "{"), "}")

	fields := strings.FieldsFunc(body, func(r rune) bool { return r == ',' })
	out := make(UUIDArray, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(strings.TrimSpace(field), `"`)
		if field == "" {
			continue
		}
		id, err := uuid.Parse(field)
		if err != nil {
			return nil, fmt.Errorf("uuid array: element %q: %w", field, err)
		}
		out = append(out, id)
	}
	return out, nil
}
