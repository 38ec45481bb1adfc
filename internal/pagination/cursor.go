package pagination

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor is the resume point of a keyset walk: the sort-field value of the
// last returned record plus its identifier as tie-break. The sort value is
// kept as its raw string representation; the planner normalizes it back to
// the semantic type of the active sort field.
type Cursor struct {
	SortValue string `json:"v"`
	ID        string `json:"id"`
}

// EncodeCursor serializes the pair into an opaque URL-safe token. It never
// fails: both members are plain strings.
func EncodeCursor(sortValue, id string) string {
	raw, _ := json.Marshal(Cursor{SortValue: sortValue, ID: id})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor. Any malformed,
// truncated or tampered token yields nil; callers treat nil as "start from
// the beginning", never as a request-aborting error.
func DecodeCursor(token string) *Cursor {
	if token == "" {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	if c.ID == "" {
		return nil
	}

	return &c
}
