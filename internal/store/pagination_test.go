package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		input      Page
		wantOffset int
		wantLimit  int
	}{
		{name: "valid", input: Page{Offset: 40, Limit: 20}, wantOffset: 40, wantLimit: 20},
		{name: "zero limit defaults", input: Page{}, wantOffset: 0, wantLimit: 20},
		{name: "negative offset clamps", input: Page{Offset: -5, Limit: 10}, wantOffset: 0, wantLimit: 10},
		{name: "limit capped", input: Page{Limit: 5000}, wantOffset: 0, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.input.Normalize()
			assert.Equal(t, tt.wantOffset, got.Offset)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestPageFromNumber(t *testing.T) {
	assert.Equal(t, Page{Offset: 0, Limit: 20}, PageFromNumber(0, 0))
	assert.Equal(t, Page{Offset: 30, Limit: 15}, PageFromNumber(3, 15))
}

func TestPaginationParams_Validate(t *testing.T) {
	p := PaginationParams{}
	p.Validate()
	assert.Equal(t, 50, p.Limit)

	p = PaginationParams{Limit: 999}
	p.Validate()
	assert.Equal(t, 200, p.Limit)
}

func TestCursorRoundTrip(t *testing.T) {
	key := "notif:usr-1:00001767225600000000000:ntf-abc"
	cursor := EncodeCursor(key)
	assert.NotContains(t, cursor, ":")

	decoded, err := DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	empty, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeCursor("!!!not-base64")
	assert.Error(t, err)
}
