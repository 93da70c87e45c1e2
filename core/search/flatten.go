package search

import (
	"Melodix/model"
)

// Flatten projects the nested library into search records, one pass per
// record type: all artists, then all albums, then all songs.
//
// Song records point at their real parent artist in Artist and at their
// album in Album.
func Flatten(lib model.Library, keys *KeyGenerator) []model.SearchRecord {
	artistCount, albumCount, songCount := lib.Counts()
	records := make([]model.SearchRecord, 0, artistCount+albumCount+songCount)

	for _, artist := range lib {
		records = append(records, model.SearchRecord{
			Type:        model.RecordArtist,
			Name:        artist.Name,
			ID:          artist.ID,
			GeneratedID: keys.Next(),
			Artist:      model.NewArtistRef(artist),
		})
	}

	for _, artist := range lib {
		for _, album := range artist.Albums {
			records = append(records, model.SearchRecord{
				Type:        model.RecordAlbum,
				Name:        album.Name,
				ID:          album.ID,
				GeneratedID: keys.Next(),
				Artist:      model.NewArtistRef(artist),
				Album:       model.NewAlbumRef(album),
			})
		}
	}

	for _, artist := range lib {
		for _, album := range artist.Albums {
			for _, song := range album.Songs {
				records = append(records, model.SearchRecord{
					Type:        model.RecordSong,
					Name:        song.Name,
					ID:          song.ID,
					GeneratedID: keys.Next(),
					Artist:      model.NewArtistRef(artist),
					Album:       model.NewAlbumRef(album),
					Song:        model.NewSongRef(song),
				})
			}
		}
	}

	return records
}
