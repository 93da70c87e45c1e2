package model

// RecordType 搜索记录类型
type RecordType string

const (
	RecordArtist RecordType = "Artist"
	RecordAlbum  RecordType = "Album"
	RecordSong   RecordType = "Song"
)

// ArtistRef 搜索记录中对艺术家的引用
type ArtistRef struct {
	ID   LibraryID `json:"id"`
	Name string    `json:"name"`
}

// AlbumRef 搜索记录中对专辑的引用
type AlbumRef struct {
	ID       LibraryID `json:"id"`
	Name     string    `json:"name"`
	CoverURL string    `json:"cover_url"`
}

// SongRef 搜索记录中对单曲的引用
type SongRef struct {
	ID                  LibraryID `json:"id"`
	Name                string    `json:"name"`
	ContributingArtists []string  `json:"contributing_artists"`
	TrackNumber         int       `json:"track_number"`
	Path                string    `json:"path"`
	Duration            float64   `json:"duration"`
}

// SearchRecord is a flattened projection of one library entity.
// GeneratedID is the index primary key; ID is the domain id and is only
// unique within its own type.
type SearchRecord struct {
	Type        RecordType `json:"type"`
	Name        string     `json:"name"`
	ID          LibraryID  `json:"id"`
	GeneratedID string     `json:"generatedID"`
	Artist      *ArtistRef `json:"artist,omitempty"`
	Album       *AlbumRef  `json:"album,omitempty"`
	Song        *SongRef   `json:"song,omitempty"`
}

// NewArtistRef 构建艺术家引用
func NewArtistRef(a Artist) *ArtistRef {
	return &ArtistRef{ID: a.ID, Name: a.Name}
}

// NewAlbumRef 构建专辑引用
func NewAlbumRef(a Album) *AlbumRef {
	return &AlbumRef{ID: a.ID, Name: a.Name, CoverURL: a.CoverURL}
}

// NewSongRef 构建单曲引用
func NewSongRef(s Song) *SongRef {
	return &SongRef{
		ID:                  s.ID,
		Name:                s.Name,
		ContributingArtists: s.ContributingArtists,
		TrackNumber:         s.TrackNumber,
		Path:                s.Path,
		Duration:            s.Duration,
	}
}
