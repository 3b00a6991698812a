// Package store owns the playlist collection and its persisted JSON
// representation. The store is loaded once at startup, mutated by playlist and
// track edits, and flushed after every mutation. Durability is best-effort: a
// failed write never blocks or surfaces to the caller.
package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sonata/internal/media"
)

var (
	// ErrDuplicateName is returned when creating a playlist whose name is taken.
	ErrDuplicateName = errors.New("playlist name already exists")
	// ErrLastPlaylist is returned when deleting the only remaining playlist.
	ErrLastPlaylist = errors.New("cannot delete the last remaining playlist")
	// ErrDuplicateTrack is returned when a track with the same locator is
	// already present in the target playlist.
	ErrDuplicateTrack = errors.New("track already in playlist")
	// ErrNotFound is returned for unknown playlist IDs or out-of-range indices.
	ErrNotFound = errors.New("not found")
)

// Store holds all playlists in display order plus the last active playlist
// name for session restore.
type Store struct {
	path         string
	playlists    []media.Playlist
	lastPlaylist string
}

// Open loads the store from path. A missing or unparseable file is treated as
// "no saved state": the store starts empty and Open does not fail.
func Open(path string) *Store {
	s := &Store{path: path}
	s.load()
	return s
}

// Seed creates the default playlists when the store is empty and marks the
// first one active.
func (s *Store) Seed(names ...string) {
	if len(s.playlists) > 0 || len(names) == 0 {
		return
	}
	for _, name := range names {
		s.playlists = append(s.playlists, media.Playlist{
			ID:   uuid.NewString(),
			Name: name,
		})
	}
	s.lastPlaylist = names[0]
	s.persist()
}

// Playlists returns all playlists in display order. The returned slice is
// shared; callers must treat it as read-only.
func (s *Store) Playlists() []media.Playlist {
	return s.playlists
}

// PlaylistAt returns the playlist at the given display index.
func (s *Store) PlaylistAt(index int) (media.Playlist, bool) {
	if index < 0 || index >= len(s.playlists) {
		return media.Playlist{}, false
	}
	return s.playlists[index], true
}

// IndexByName returns the display index of the named playlist, or -1.
func (s *Store) IndexByName(name string) int {
	for i, p := range s.playlists {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// CreatePlaylist appends a new empty playlist. Duplicate names are rejected.
func (s *Store) CreatePlaylist(name string) (media.Playlist, error) {
	if name == "" {
		return media.Playlist{}, fmt.Errorf("create playlist: empty name")
	}
	for _, p := range s.playlists {
		if p.Name == name {
			return media.Playlist{}, ErrDuplicateName
		}
	}
	pl := media.Playlist{ID: uuid.NewString(), Name: name}
	s.playlists = append(s.playlists, pl)
	s.persist()
	return pl, nil
}

// DeletePlaylist removes a playlist by ID. At least one playlist must remain.
func (s *Store) DeletePlaylist(id string) error {
	for i, p := range s.playlists {
		if p.ID != id {
			continue
		}
		if len(s.playlists) <= 1 {
			return ErrLastPlaylist
		}
		s.playlists = append(s.playlists[:i], s.playlists[i+1:]...)
		if s.lastPlaylist == p.Name && len(s.playlists) > 0 {
			s.lastPlaylist = s.playlists[0].Name
		}
		s.persist()
		return nil
	}
	return ErrNotFound
}

// AddTrack appends a track to the identified playlist, assigning it a stable
// ID. A track whose locator is already present is rejected with
// ErrDuplicateTrack; callers typically ignore that error.
func (s *Store) AddTrack(playlistID string, track media.Track) (media.Track, error) {
	pl := s.byID(playlistID)
	if pl == nil {
		return media.Track{}, ErrNotFound
	}
	for _, existing := range pl.Tracks {
		if existing.Kind == track.Kind && existing.Locator() == track.Locator() {
			return existing, ErrDuplicateTrack
		}
	}
	track.ID = uuid.NewString()
	pl.Tracks = append(pl.Tracks, track)
	s.persist()
	return track, nil
}

// RemoveTrack deletes the track at index from the identified playlist.
func (s *Store) RemoveTrack(playlistID string, index int) error {
	pl := s.byID(playlistID)
	if pl == nil || index < 0 || index >= len(pl.Tracks) {
		return ErrNotFound
	}
	pl.Tracks = append(pl.Tracks[:index], pl.Tracks[index+1:]...)
	s.persist()
	return nil
}

// MoveTrack reorders a track from one index to another, preserving the
// relative order of all other tracks.
func (s *Store) MoveTrack(playlistID string, from, to int) error {
	pl := s.byID(playlistID)
	if pl == nil || from < 0 || from >= len(pl.Tracks) || to < 0 || to >= len(pl.Tracks) {
		return ErrNotFound
	}
	if from == to {
		return nil
	}
	track := pl.Tracks[from]
	pl.Tracks = append(pl.Tracks[:from], pl.Tracks[from+1:]...)
	pl.Tracks = append(pl.Tracks[:to], append([]media.Track{track}, pl.Tracks[to:]...)...)
	s.persist()
	return nil
}

// SetTrackSubtitlePath records the cached subtitle file for a track so later
// activations skip re-transcription.
func (s *Store) SetTrackSubtitlePath(playlistID string, index int, path string) error {
	pl := s.byID(playlistID)
	if pl == nil || index < 0 || index >= len(pl.Tracks) {
		return ErrNotFound
	}
	pl.Tracks[index].SubtitlePath = path
	s.persist()
	return nil
}

// SetFavorite flips the informational favorite flag on a track.
func (s *Store) SetFavorite(playlistID string, index int, fav bool) error {
	pl := s.byID(playlistID)
	if pl == nil || index < 0 || index >= len(pl.Tracks) {
		return ErrNotFound
	}
	pl.Tracks[index].IsFavorite = fav
	s.persist()
	return nil
}

// LastPlaylist returns the name of the playlist that was active last session.
func (s *Store) LastPlaylist() string {
	return s.lastPlaylist
}

// SetLastPlaylist records the active playlist name for session restore.
func (s *Store) SetLastPlaylist(name string) {
	if s.lastPlaylist == name {
		return
	}
	s.lastPlaylist = name
	s.persist()
}

// Save flushes the store to disk. Mutations already persist as they happen;
// this exists for the shutdown path.
func (s *Store) Save() error {
	return s.write()
}

func (s *Store) byID(id string) *media.Playlist {
	for i := range s.playlists {
		if s.playlists[i].ID == id {
			return &s.playlists[i]
		}
	}
	return nil
}

// persist writes the snapshot, swallowing any error. Playlist writes are
// small and user-triggered; losing one is preferable to blocking the UI.
func (s *Store) persist() {
	_ = s.write()
}
