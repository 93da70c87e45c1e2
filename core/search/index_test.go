package search

import (
	"fmt"
	"testing"

	"Melodix/core/library"
	"Melodix/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioLibrary() model.Library {
	return model.Library{
		{
			ID:   "1",
			Name: "Test Artist",
			Albums: []model.Album{
				{
					ID:       "1",
					Name:     "Test Album",
					CoverURL: "/covers/1.jpg",
					Songs: []model.Song{
						{ID: "1", Name: "Test Song", ContributingArtists: []string{"Test Artist"}, TrackNumber: 1, Path: "1.mp3", Duration: 200},
					},
				},
			},
		},
	}
}

func buildScenario(t *testing.T) *Index {
	t.Helper()
	idx, err := Build(scenarioLibrary())
	require.NoError(t, err)
	require.NotNil(t, idx)
	return idx
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Test Song", []string{"test", "song"}},
		{"  AC/DC - Back in Black!", []string{"ac", "dc", "back", "in", "black"}},
		{"4f1c-9a", []string{"4f1c", "9a"}},
		{"", []string{}},
		{"...", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.input))
		})
	}
}

func TestBuildEmptyLibraryYieldsNoIndex(t *testing.T) {
	idx, err := Build(model.Library{})
	assert.NoError(t, err)
	assert.Nil(t, idx)

	idx, err = Build(nil)
	assert.NoError(t, err)
	assert.Nil(t, idx)

	lib, err := library.Decode([]byte(`[]`))
	require.NoError(t, err)
	idx, err = Build(lib)
	assert.NoError(t, err)
	assert.Nil(t, idx)
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := buildScenario(t)

	assert.Empty(t, idx.Search("", SearchOptions{}))
	assert.Empty(t, idx.Search("   ", SearchOptions{}))
	assert.NotNil(t, idx.Search("", SearchOptions{}))
}

func TestSearchScenario(t *testing.T) {
	idx := buildScenario(t)
	assert.Equal(t, 3, idx.Len())

	results := idx.Search("Test Song", SearchOptions{})
	require.NotEmpty(t, results)
	assert.Equal(t, model.RecordSong, results[0].Type)
	assert.Equal(t, "Test Song", results[0].Name)
	assert.Equal(t, []string{"test", "song"}, results[0].QueryTerms)
	assert.ElementsMatch(t, []string{FieldType, FieldName}, results[0].Match["song"])

	// 少一个字母仍能通过模糊匹配命中
	results = idx.Search("Tst Song", SearchOptions{})
	require.NotEmpty(t, results)
	assert.Equal(t, model.RecordSong, results[0].Type)
	assert.Equal(t, "Test Song", results[0].Name)
	assert.Contains(t, results[0].Terms, "test")
}

func TestSearchNoMatch(t *testing.T) {
	idx := buildScenario(t)
	assert.Empty(t, idx.Search("zzzzqqq", SearchOptions{}))
}

func TestSearchFuzzyDisabled(t *testing.T) {
	idx := buildScenario(t)
	assert.Empty(t, idx.Search("Tst", SearchOptions{NoFuzzy: true}))
	assert.NotEmpty(t, idx.Search("Tst", SearchOptions{}))
}

func TestSearchPrefix(t *testing.T) {
	idx := buildScenario(t)

	assert.Empty(t, idx.Search("Alb", SearchOptions{NoFuzzy: true}))

	results := idx.Search("Alb", SearchOptions{NoFuzzy: true, Prefix: true})
	require.Len(t, results, 1)
	assert.Equal(t, model.RecordAlbum, results[0].Type)
}

func TestSearchCombineAnd(t *testing.T) {
	idx := buildScenario(t)

	or := idx.Search("test album", SearchOptions{NoFuzzy: true})
	assert.Len(t, or, 3)

	and := idx.Search("test album", SearchOptions{NoFuzzy: true, CombineWith: CombineAnd})
	require.Len(t, and, 1)
	assert.Equal(t, "Test Album", and[0].Name)
}

func TestSearchFieldsAndLimit(t *testing.T) {
	idx := buildScenario(t)

	// 只检索 type 字段时 "artist" 只命中艺术家记录
	byType := idx.Search("artist", SearchOptions{Fields: []string{FieldType}, NoFuzzy: true})
	require.Len(t, byType, 1)
	assert.Equal(t, model.RecordArtist, byType[0].Type)

	assert.Empty(t, idx.Search("test", SearchOptions{Fields: []string{"unknown"}}))
	assert.Len(t, idx.Search("test", SearchOptions{Limit: 2}), 2)
}

func TestSearchByGeneratedID(t *testing.T) {
	idx := buildScenario(t)
	song := idx.Search("Test Song", SearchOptions{})[0]

	rec, ok := idx.Get(song.GeneratedID)
	require.True(t, ok)
	assert.Equal(t, "Test Song", rec.Name)

	results := idx.Search(song.GeneratedID, SearchOptions{Fields: []string{FieldGeneratedID}, NoFuzzy: true, CombineWith: CombineAnd})
	require.Len(t, results, 1)
	assert.Equal(t, song.GeneratedID, results[0].GeneratedID)
}

func TestExactSongNameInTopResults(t *testing.T) {
	words := []string{"Midnight", "Lanterns", "River", "Echo", "Glass", "Summer", "Static", "Harbor"}

	var lib model.Library
	songID := 0
	for a := 0; a < 8; a++ {
		artist := model.Artist{ID: model.LibraryID(fmt.Sprint(a)), Name: words[a] + " Collective"}
		for b := 0; b < 4; b++ {
			album := model.Album{ID: model.LibraryID(fmt.Sprint(a*10 + b)), Name: words[(a+b)%len(words)] + " Sessions"}
			for s := 0; s < 6; s++ {
				songID++
				album.Songs = append(album.Songs, model.Song{
					ID:   model.LibraryID(fmt.Sprint(songID)),
					Name: fmt.Sprintf("%s %s", words[(a+s)%len(words)], words[(b+s+1)%len(words)]),
				})
			}
			artist.Albums = append(artist.Albums, album)
		}
		lib = append(lib, artist)
	}
	lib[3].Albums[2].Songs[4].Name = "Lanterns Over Water"

	idx, err := Build(lib)
	require.NoError(t, err)

	results := idx.Search("Lanterns Over Water", SearchOptions{})
	require.NotEmpty(t, results)

	top := results
	if len(top) > 20 {
		top = top[:20]
	}
	found := false
	for _, r := range top {
		if r.Type == model.RecordSong && r.Name == "Lanterns Over Water" {
			found = true
			break
		}
	}
	assert.True(t, found, "exact song name should be within the first 20 results")
	assert.Equal(t, "Lanterns Over Water", results[0].Name)
}

func TestNewIndexRejectsBadKeys(t *testing.T) {
	records := []model.SearchRecord{
		{Type: model.RecordArtist, Name: "A", GeneratedID: "k1"},
		{Type: model.RecordArtist, Name: "B", GeneratedID: "k1"},
	}
	_, err := NewIndex(records, DefaultOptions())
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = NewIndex([]model.SearchRecord{{Type: model.RecordSong, Name: "C"}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestBM25PrefersShorterFields(t *testing.T) {
	short := bm25(1, 1, 10, 1, 2)
	long := bm25(1, 1, 10, 5, 2)
	assert.Greater(t, short, long)

	rare := bm25(1, 1, 10, 2, 2)
	common := bm25(1, 8, 10, 2, 2)
	assert.Greater(t, rare, common)
}
