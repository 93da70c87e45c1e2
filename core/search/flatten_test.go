package search

import (
	"testing"

	"Melodix/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyGeneratorSkipsCollisions(t *testing.T) {
	seq := []string{"a", "a", "b", "a", "b", "c"}
	i := 0
	g := newKeyGenerator(func() string {
		k := seq[i]
		i++
		return k
	})

	assert.Equal(t, "a", g.Next())
	assert.Equal(t, "b", g.Next())
	assert.Equal(t, "c", g.Next())
	assert.Equal(t, 3, g.Len())
}

func TestKeyGeneratorUnique(t *testing.T) {
	g := NewKeyGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 5000; i++ {
		k := g.Next()
		_, dup := seen[k]
		require.False(t, dup, "key %s generated twice", k)
		seen[k] = struct{}{}
	}
}

func TestFlattenOrderAndTypes(t *testing.T) {
	lib := model.Library{
		{ID: "1", Name: "First", Albums: []model.Album{
			{ID: "1", Name: "One", Songs: []model.Song{{ID: "1", Name: "s1"}, {ID: "2", Name: "s2"}}},
		}},
		{ID: "2", Name: "Second", Albums: []model.Album{
			{ID: "1", Name: "Two", Songs: []model.Song{{ID: "1", Name: "s3"}}},
		}},
	}

	records := Flatten(lib, NewKeyGenerator())
	require.Len(t, records, 7)

	var types []model.RecordType
	for _, r := range records {
		types = append(types, r.Type)
	}
	assert.Equal(t, []model.RecordType{
		model.RecordArtist, model.RecordArtist,
		model.RecordAlbum, model.RecordAlbum,
		model.RecordSong, model.RecordSong, model.RecordSong,
	}, types)

	// 领域 ID "1" 在三种类型中重复出现，主键必须全部不同
	keys := make(map[string]struct{})
	for _, r := range records {
		require.NotEmpty(t, r.GeneratedID)
		keys[r.GeneratedID] = struct{}{}
	}
	assert.Len(t, keys, len(records))
}

func TestFlattenSongReferencesParentArtist(t *testing.T) {
	records := Flatten(scenarioLibrary(), NewKeyGenerator())
	require.Len(t, records, 3)

	song := records[2]
	require.Equal(t, model.RecordSong, song.Type)
	require.NotNil(t, song.Artist)
	require.NotNil(t, song.Album)
	require.NotNil(t, song.Song)

	// Song.artist 指向真正的艺术家，而不是专辑
	assert.Equal(t, "Test Artist", song.Artist.Name)
	assert.Equal(t, "Test Album", song.Album.Name)
	assert.Equal(t, "/covers/1.jpg", song.Album.CoverURL)
	assert.Equal(t, 1, song.Song.TrackNumber)

	album := records[1]
	assert.Equal(t, "Test Artist", album.Artist.Name)
	assert.Nil(t, album.Song)

	artist := records[0]
	assert.Equal(t, "Test Artist", artist.Artist.Name)
	assert.Nil(t, artist.Album)
}

func TestFlattenToleratesEmptyFields(t *testing.T) {
	lib := model.Library{{Albums: []model.Album{{Songs: []model.Song{{}}}}}}

	records := Flatten(lib, NewKeyGenerator())
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "", r.Name)
		assert.NotEmpty(t, r.GeneratedID)
	}

	idx, err := NewIndex(records, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
}
