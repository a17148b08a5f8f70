package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// PaginationCursor represents decoded cursor for pagination.
type PaginationCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// EncodeCursor encodes a pagination cursor to URL-safe base64.
func EncodeCursor(cursor *PaginationCursor) string {
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor decodes a cursor produced by EncodeCursor.
func DecodeCursor(s string) (*PaginationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	var cursor PaginationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}
	if cursor.ID == "" {
		return nil, errors.New("cursor missing id")
	}

	return &cursor, nil
}

// queryBuilder accumulates WHERE clauses and positional args.
type queryBuilder struct {
	sql  string
	args []any
}

func newQueryBuilder(base string, args ...any) *queryBuilder {
	return &queryBuilder{sql: base, args: args}
}

// next returns the placeholder for the next argument.
func (b *queryBuilder) next() int {
	return len(b.args) + 1
}

// where appends "AND <clause>" where clause contains a single %d placeholder.
func (b *queryBuilder) where(clause string, arg any) {
	b.sql += " AND " + fmt.Sprintf(clause, b.next())
	b.args = append(b.args, arg)
}

// page appends keyset pagination on (column, id) plus ORDER BY and LIMIT.
// One extra row is fetched to determine hasMore.
func (b *queryBuilder) page(column, cursor string, limit int) error {
	return b.pageBy(column, "id", cursor, limit)
}

// pageBy is page with an explicit tiebreaker column.
func (b *queryBuilder) pageBy(column, idColumn, cursor string, limit int) error {
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return ErrInvalidCursor
		}
		n := b.next()
		b.sql += fmt.Sprintf(" AND (%s, %s) < ($%d, $%d)", column, idColumn, n, n+1)
		b.args = append(b.args, c.CreatedAt, c.ID)
	}
	b.sql += fmt.Sprintf(" ORDER BY %s DESC, %s DESC LIMIT $%d", column, idColumn, b.next())
	b.args = append(b.args, limit+1)
	return nil
}

// trimPage drops the extra row and returns the cursor for the next page.
func trimPage[T any](items []T, limit int, key func(T) (string, time.Time)) ([]T, string) {
	if len(items) <= limit {
		return items, ""
	}
	items = items[:limit]
	id, ts := key(items[len(items)-1])
	return items, EncodeCursor(&PaginationCursor{ID: id, CreatedAt: ts})
}

// likeEscaper escapes the LIKE metacharacters with the default escape
// character, a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern that matches s literally anywhere
// in the column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// nullableString returns nil for empty strings.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// prefixed qualifies each column in a comma-separated list with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
