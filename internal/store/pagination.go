package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // Items per page (defaults to 50, at most 100)
	Cursor string // Opaque cursor for the next page (empty for the first page)
}

// PaginatedResult contains one page of an ordered result.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // Empty if no more pages
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total"`
}

// Validate clamps the limit into range.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
}

// EncodeCursor creates an opaque cursor from an offset.
func EncodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// DecodeCursor decodes a cursor back to an offset.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidInput.WithMessage("invalid cursor")
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0, ErrInvalidInput.WithMessage(fmt.Sprintf("invalid cursor %q", cursor))
	}
	return offset, nil
}

// Paginate slices one page out of an already ordered result.
func Paginate[T any](items []T, params PaginationParams) (PaginatedResult[T], error) {
	params.Validate()
	start, err := DecodeCursor(params.Cursor)
	if err != nil {
		return PaginatedResult[T]{}, err
	}

	result := PaginatedResult[T]{Items: []T{}, Total: len(items)}
	if start >= len(items) {
		return result, nil
	}

	end := min(start+params.Limit, len(items))
	result.Items = items[start:end]
	if end < len(items) {
		result.HasMore = true
		result.NextCursor = EncodeCursor(end)
	}
	return result, nil
}
