package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"Melodix/config"
	"Melodix/logger"
	"Melodix/model"
	"Melodix/storage"
)

var (
	// ErrLibraryNotFound 曲库文档不存在
	ErrLibraryNotFound = errors.New("library document not found")
	// ErrInvalidLibrary 曲库文档不是合法的 JSON 数组
	ErrInvalidLibrary = errors.New("library document is not a valid artist list")
)

// Source loads the library document.
type Source interface {
	Load(ctx context.Context) (model.Library, error)
	Describe() string
}

// FileSource 从本地 JSON 文件加载曲库
type FileSource struct {
	Path string
}

// Load reads and decodes the file.
func (s FileSource) Load(ctx context.Context) (model.Library, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, s.Path)
		}
		return nil, fmt.Errorf("failed to read library %s: %w", s.Path, err)
	}
	return Decode(data)
}

func (s FileSource) Describe() string {
	return "file:" + s.Path
}

// ObjectReader 是 MinioSource 依赖的最小存储接口
type ObjectReader interface {
	GetObjectBytes(ctx context.Context, objectName string) ([]byte, error)
	Bucket() string
}

// MinioSource 从 MinIO 存储桶加载曲库
type MinioSource struct {
	Client ObjectReader
	Object string
}

// Load fetches the object and decodes it.
func (s MinioSource) Load(ctx context.Context) (model.Library, error) {
	data, err := s.Client.GetObjectBytes(ctx, s.Object)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, s.Describe())
		}
		return nil, fmt.Errorf("failed to fetch library %s: %w", s.Describe(), err)
	}
	return Decode(data)
}

func (s MinioSource) Describe() string {
	return fmt.Sprintf("minio:%s/%s", s.Client.Bucket(), s.Object)
}

// NewSource 根据配置选择曲库来源
func NewSource(cfg *config.Config, client ObjectReader) (Source, error) {
	switch cfg.LibrarySource {
	case config.LibrarySourceFile, "":
		return FileSource{Path: cfg.LibraryPath()}, nil
	case config.LibrarySourceMinio:
		if client == nil {
			return nil, fmt.Errorf("library source %q requires a minio client", cfg.LibrarySource)
		}
		return MinioSource{Client: client, Object: cfg.LibraryObject}, nil
	default:
		return nil, fmt.Errorf("unknown library source %q", cfg.LibrarySource)
	}
}

type rawArtist struct {
	ID     model.LibraryID   `json:"id"`
	Name   string            `json:"name"`
	Albums []json.RawMessage `json:"albums"`
}

type rawAlbum struct {
	ID       model.LibraryID   `json:"id"`
	Name     string            `json:"name"`
	CoverURL string            `json:"cover_url"`
	Songs    []json.RawMessage `json:"songs"`
}

// Decode parses a library document. Only the top level has to be a JSON
// array; individual artists, albums or songs that cannot be decoded are
// skipped with a warning and missing fields stay at their zero value.
func Decode(data []byte) (model.Library, error) {
	var rawArtists []json.RawMessage
	if err := json.Unmarshal(data, &rawArtists); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLibrary, err)
	}

	lib := make(model.Library, 0, len(rawArtists))
	for i, raw := range rawArtists {
		var ra rawArtist
		if err := json.Unmarshal(raw, &ra); err != nil {
			logger.Warn("[Library] 跳过无法解析的艺术家", logger.Int("index", i), logger.ErrorField(err))
			continue
		}

		artist := model.Artist{ID: ra.ID, Name: ra.Name, Albums: make([]model.Album, 0, len(ra.Albums))}
		for j, rawAlb := range ra.Albums {
			var rb rawAlbum
			if err := json.Unmarshal(rawAlb, &rb); err != nil {
				logger.Warn("[Library] 跳过无法解析的专辑",
					logger.String("artist", ra.Name), logger.Int("index", j), logger.ErrorField(err))
				continue
			}

			album := model.Album{ID: rb.ID, Name: rb.Name, CoverURL: rb.CoverURL, Songs: make([]model.Song, 0, len(rb.Songs))}
			for k, rawSong := range rb.Songs {
				var song model.Song
				if err := json.Unmarshal(rawSong, &song); err != nil {
					logger.Warn("[Library] 跳过无法解析的单曲",
						logger.String("album", rb.Name), logger.Int("index", k), logger.ErrorField(err))
					continue
				}
				album.Songs = append(album.Songs, song)
			}
			artist.Albums = append(artist.Albums, album)
		}
		lib = append(lib, artist)
	}
	return lib, nil
}
