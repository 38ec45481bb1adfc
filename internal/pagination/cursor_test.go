package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		sortValue string
		id        string
	}{
		{"time value", "2024-03-01T10:00:00Z", "65e1f0a1b2c3d4e5f6a7b8c9"},
		{"numeric value", "57000", "65e1f0a1b2c3d4e5f6a7b8c9"},
		{"string value", "COW-0042", "65e1f0a1b2c3d4e5f6a7b8c9"},
		{"empty sort value", "", "65e1f0a1b2c3d4e5f6a7b8c9"},
		{"value with separators", "a,b|c:d", "65e1f0a1b2c3d4e5f6a7b8c9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := EncodeCursor(tt.sortValue, tt.id)
			decoded := DecodeCursor(token)

			require.NotNil(t, decoded)
			assert.Equal(t, tt.sortValue, decoded.SortValue)
			assert.Equal(t, tt.id, decoded.ID)
		})
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	valid := EncodeCursor("COW-0042", "65e1f0a1b2c3d4e5f6a7b8c9")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "%%%%"},
		{"not json", "bm90IGpzb24"},
		{"truncated", valid[:len(valid)/2]},
		{"tampered", "x" + valid[1:]},
		{"missing id", EncodeCursor("value", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, DecodeCursor(tt.token))
		})
	}
}
