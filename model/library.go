package model

import (
	"bytes"
	"encoding/json"
)

// LibraryID 曲库中的实体ID，JSON 中可能是数字也可能是字符串
type LibraryID string

// UnmarshalJSON 接受数字、字符串和 null，其他类型按空ID处理
func (id *LibraryID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = LibraryID(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = LibraryID(n.String())
	default:
		*id = ""
	}
	return nil
}

func (id LibraryID) String() string {
	return string(id)
}

// Song 曲库中的单曲
type Song struct {
	ID                  LibraryID `json:"id"`
	Name                string    `json:"name"`
	ContributingArtists []string  `json:"contributing_artists"`
	TrackNumber         int       `json:"track_number"`
	Path                string    `json:"path"`
	Duration            float64   `json:"duration"` // 秒
}

// Album 曲库中的专辑
type Album struct {
	ID       LibraryID `json:"id"`
	Name     string    `json:"name"`
	CoverURL string    `json:"cover_url"`
	Songs    []Song    `json:"songs"`
}

// Artist 曲库中的艺术家，是曲库文档的顶层元素
type Artist struct {
	ID     LibraryID `json:"id"`
	Name   string    `json:"name"`
	Albums []Album   `json:"albums"`
}

// Library is the read-only artist -> album -> song snapshot loaded from music.json.
type Library []Artist

// Counts returns the number of artists, albums and songs in the library.
func (l Library) Counts() (artists, albums, songs int) {
	for _, artist := range l {
		artists++
		for _, album := range artist.Albums {
			albums++
			songs += len(album.Songs)
		}
	}
	return artists, albums, songs
}

// IsEmpty reports whether the library has no artists at all.
func (l Library) IsEmpty() bool {
	return len(l) == 0
}
