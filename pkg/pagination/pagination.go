// Package pagination implements the two paging styles the API exposes:
// keyset cursors over (created_at, id) for feeds and 1-based pages for
// listings that report a total.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer is the row count to fetch so Trim can tell whether another
// page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Cursor is the keyset position of the last row on a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

const cursorSep = "|"

var errCursorFormat = errors.New("invalid cursor format")

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSep + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor is the inverse of EncodeCursor. A blank token means the first
// page and yields nil.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errCursorFormat
	}
	ts, id, ok := strings.Cut(string(raw), cursorSep)
	if !ok {
		return nil, errCursorFormat
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, errCursorFormat
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, errCursorFormat
	}
	return &Cursor{CreatedAt: createdAt, ID: parsedID}, nil
}

// Trim cuts rows fetched with LimitWithBuffer down to one page. The returned
// cursor points at the last kept row and is nil on the final page.
func Trim[T any](rows []T, limit int, position func(T) Cursor) ([]T, *Cursor) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, nil
	}
	rows = rows[:limit]
	next := position(rows[limit-1])
	return rows, &next
}

// Page is a 1-based offset page.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	p.Page = max(p.Page, 1)
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages is ceil(total/limit) using the normalized limit.
func TotalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	l := int64(NormalizeLimit(limit))
	return int((total + l - 1) / l)
}
