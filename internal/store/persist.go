package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"sonata/internal/media"
)

// Persisted file layout. Field names match the original playlist file so an
// existing library is picked up as-is.
type fileRoot struct {
	Playlists    []filePlaylist `json:"playlists"`
	LastPlaylist string         `json:"lastPlaylist"`
}

type filePlaylist struct {
	Name   string      `json:"name"`
	Videos []fileTrack `json:"videos"`
}

type fileTrack struct {
	VideoID      string `json:"videoId"`
	FilePath     string `json:"filePath"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Description  string `json:"description"`
	SubtitlePath string `json:"subtitlePath"`
	IsFavorite   bool   `json:"isFavorite"`
	IsLocalFile  bool   `json:"isLocalFile"`
}

// load reads the snapshot from disk. Any failure leaves the store empty;
// a corrupt library file is indistinguishable from a fresh install.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var root fileRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return
	}
	s.lastPlaylist = root.LastPlaylist
	s.playlists = s.playlists[:0]
	for _, fp := range root.Playlists {
		pl := media.Playlist{ID: uuid.NewString(), Name: fp.Name}
		for _, ft := range fp.Videos {
			kind := media.RemoteLink
			if ft.IsLocalFile {
				kind = media.LocalFile
			}
			pl.Tracks = append(pl.Tracks, media.Track{
				ID:           uuid.NewString(),
				Kind:         kind,
				VideoID:      ft.VideoID,
				FilePath:     ft.FilePath,
				Title:        ft.Title,
				ChannelTitle: ft.ChannelTitle,
				ThumbnailURL: ft.ThumbnailURL,
				Description:  ft.Description,
				SubtitlePath: ft.SubtitlePath,
				IsFavorite:   ft.IsFavorite,
			})
		}
		s.playlists = append(s.playlists, pl)
	}
}

// write saves a full snapshot atomically: write to a temp file in the same
// directory, then rename over the target.
func (s *Store) write() error {
	root := fileRoot{LastPlaylist: s.lastPlaylist}
	for _, pl := range s.playlists {
		fp := filePlaylist{Name: pl.Name, Videos: []fileTrack{}}
		for _, t := range pl.Tracks {
			fp.Videos = append(fp.Videos, fileTrack{
				VideoID:      t.VideoID,
				FilePath:     t.FilePath,
				Title:        t.Title,
				ChannelTitle: t.ChannelTitle,
				ThumbnailURL: t.ThumbnailURL,
				Description:  t.Description,
				SubtitlePath: t.SubtitlePath,
				IsFavorite:   t.IsFavorite,
				IsLocalFile:  t.Kind == media.LocalFile,
			})
		}
		root.Playlists = append(root.Playlists, fp)
	}

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding playlists: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating playlist dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "playlists-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing playlists: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming playlist file: %w", err)
	}
	return nil
}
