package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryIDUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want LibraryID
	}{
		{`12`, "12"},
		{`"a7"`, "a7"},
		{`null`, ""},
		{`-3`, "-3"},
		{`true`, ""},
		{`{"x":1}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var id LibraryID
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestLibraryCounts(t *testing.T) {
	var lib Library
	raw := `[{"id":1,"name":"A","albums":[{"id":1,"name":"X","songs":[{"id":1,"name":"s1"},{"id":2,"name":"s2"}]},{"id":2,"name":"Y"}]}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &lib))

	artists, albums, songs := lib.Counts()
	assert.Equal(t, 1, artists)
	assert.Equal(t, 2, albums)
	assert.Equal(t, 2, songs)
	assert.False(t, lib.IsEmpty())
	assert.True(t, Library{}.IsEmpty())
}
