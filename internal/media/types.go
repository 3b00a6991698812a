// Package media defines shared types for the sonata application.
package media

// SourceKind says where a track's audio comes from.
type SourceKind int

const (
	// LocalFile is an audio file on disk, played through the external player.
	LocalFile SourceKind = iota
	// RemoteLink is an external video link; playback happens in a browser,
	// the engine only tracks it.
	RemoteLink
)

func (k SourceKind) String() string {
	switch k {
	case LocalFile:
		return "local"
	case RemoteLink:
		return "remote"
	default:
		return "unknown"
	}
}

// Track represents one playable item in a playlist.
type Track struct {
	ID           string     // Stable handle assigned by the store; never persisted
	Kind         SourceKind // Local file or remote link
	VideoID      string     // Remote video identifier (RemoteLink only)
	FilePath     string     // Absolute path to the audio file (LocalFile only)
	Title        string     // Display title
	ChannelTitle string     // Artist or channel name
	ThumbnailURL string     // Thumbnail image URL, may be empty
	Description  string     // Free-form description, may be empty
	SubtitlePath string     // Cached SRT path; set after first transcription
	IsFavorite   bool       // Informational flag
}

// Locator returns the value that identifies a track for duplicate checks:
// the file path for local files, the video ID for remote links.
func (t Track) Locator() string {
	if t.Kind == LocalFile {
		return t.FilePath
	}
	return t.VideoID
}

// Playable reports whether the track satisfies its source-kind invariant.
func (t Track) Playable() bool {
	if t.Kind == LocalFile {
		return t.FilePath != ""
	}
	return t.VideoID != ""
}

// WatchURL returns the browser URL for a remote track, empty for local files.
func (t Track) WatchURL() string {
	if t.Kind != RemoteLink || t.VideoID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + t.VideoID
}

// Playlist is a named ordered sequence of tracks. The name is the user-facing
// unique key within the store.
type Playlist struct {
	ID     string // Stable handle assigned by the store; never persisted
	Name   string
	Tracks []Track
}
