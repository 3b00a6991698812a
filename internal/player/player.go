// Package player provides the external media player contract consumed by the
// playback engine. All player invocations use exec.Command with explicit
// argument slices; control happens over a JSON IPC socket at a randomized
// temp path.
package player

// State is the player's reported playback state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// EventKind discriminates player notifications.
type EventKind int

const (
	// EventState carries a playback state change.
	EventState EventKind = iota
	// EventPosition carries the current position in milliseconds.
	EventPosition
	// EventDuration carries the media duration in milliseconds.
	EventDuration
)

// Event is one asynchronous notification from the player: a state change, a
// position tick, or a duration report.
type Event struct {
	Kind  EventKind
	State State
	Ms    int64
}

// Player is the black-box media pipeline: load/play/pause/seek plus
// asynchronous notifications on Events. Implementations must deliver events
// in the order the underlying player reports them.
type Player interface {
	// Load replaces the current media with the file at path and starts playback.
	Load(path string) error

	Play() error
	Pause() error
	Stop() error

	// Seek jumps to an absolute position in milliseconds.
	Seek(ms int64) error

	// Position returns the last reported position in milliseconds.
	Position() int64
	// Duration returns the last reported duration in milliseconds, 0 if unknown.
	Duration() int64

	// SetVolume sets output volume as a percentage (0-100).
	SetVolume(percent int) error

	// Events returns the notification channel. Closed when the player exits.
	Events() <-chan Event

	// Close shuts the player process down.
	Close() error
}
