package entity

import (
	"encoding/base64"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Cursors are opaque to callers: the sort key of a row, base64url-encoded.
// They carry no server-side state, so any node can serve the next page.

// EncodeCursor wraps a sort key into an opaque cursor.
func EncodeCursor(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor unwraps a cursor back into a sort key. An empty cursor decodes
// to the empty key, which sorts before every FQN.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	key, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", apperror.NewBadRequest("invalid pagination cursor")
	}
	return string(key), nil
}

// Page is one window of a paginated list.
type Page[T any] struct {
	Data   []T    `json:"data"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
	Total  int    `json:"total"`
}
