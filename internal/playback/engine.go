// Package playback implements the playback orchestration state machine. The
// engine owns the current playlist/track pointers, consults the selection
// rules on track end, starts transcription on track start, and accumulates
// the subtitle markup the shell renders.
//
// The engine is single-threaded by contract: all commands and all Handle
// calls must come from one goroutine. External asynchronous sources (the
// player, the transcription process, the status-restore timer) deliver their
// notifications as messages into that same serial flow.
package playback

import (
	"time"

	"sonata/internal/media"
	"sonata/internal/player"
	"sonata/internal/selection"
	"sonata/internal/srt"
	"sonata/internal/store"
	"sonata/internal/transcribe"
)

// State is the orchestrator's playback state.
type State int

const (
	StateNoTrack State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateStoppedAtEnd
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStoppedAtEnd:
		return "stopped"
	default:
		return "no track"
	}
}

// StatusRestoreDelay is how long a transient status message (such as the
// jump-to-timestamp feedback) stays up before the shell posts a
// StatusRestoreMsg.
const StatusRestoreDelay = 2 * time.Second

// HistoryRecorder receives playback history updates. A nil recorder disables
// history.
type HistoryRecorder interface {
	// RecordPlay notes that a track was activated.
	RecordPlay(track media.Track)
	// SavePosition stores the last known position for a track.
	SavePosition(track media.Track, positionSec, durationSec float64)
}

// Options configures engine construction.
type Options struct {
	Store          *store.Store
	Player         player.Player
	Transcriber    *transcribe.Runner
	History        HistoryRecorder
	AutoTranscribe bool
}

// Engine is the playback orchestrator.
type Engine struct {
	store          *store.Store
	player         player.Player
	transcriber    *transcribe.Runner
	history        HistoryRecorder
	autoTranscribe bool

	playlistIdx int
	trackIdx    int // -1 = none
	state       State

	shuffle bool
	repeat  bool
	session *selection.Session

	// switching guards against a queued natural-stop notification from the
	// previous track being misread as "track ended" during an explicit switch.
	switching bool

	cues   []srt.Cue
	markup string

	status      string
	statusEpoch int

	volume         int
	previousVolume int
	muted          bool
}

// New builds an engine over an opened store. The active playlist is restored
// from the store's last-playlist name.
func New(opts Options) *Engine {
	e := &Engine{
		store:          opts.Store,
		player:         opts.Player,
		transcriber:    opts.Transcriber,
		history:        opts.History,
		autoTranscribe: opts.AutoTranscribe,
		trackIdx:       -1,
		session:        selection.NewSession(),
		volume:         50,
		previousVolume: 50,
	}
	if idx := e.store.IndexByName(e.store.LastPlaylist()); idx >= 0 {
		e.playlistIdx = idx
	}
	return e
}

// State returns the current playback state.
func (e *Engine) State() State { return e.state }

// PlaylistIndex returns the active playlist's display index.
func (e *Engine) PlaylistIndex() int { return e.playlistIdx }

// TrackIndex returns the active track index, -1 when none.
func (e *Engine) TrackIndex() int { return e.trackIdx }

// Shuffle reports whether shuffle mode is on.
func (e *Engine) Shuffle() bool { return e.shuffle }

// Repeat reports whether repeat mode is on.
func (e *Engine) Repeat() bool { return e.repeat }

// Volume returns the current volume percentage.
func (e *Engine) Volume() int { return e.volume }

// Muted reports whether output is muted.
func (e *Engine) Muted() bool { return e.muted }

// Markup returns the current subtitle markup: parsed cues once transcription
// or a cached file has loaded, live progress and diagnostics before that.
func (e *Engine) Markup() string { return e.markup }

// Cues returns the parsed subtitle cues for the active track.
func (e *Engine) Cues() []srt.Cue { return e.cues }

// Status returns the transient status message, empty when none is active.
func (e *Engine) Status() string { return e.status }

// StatusEpoch identifies the current status message; a StatusRestoreMsg with
// a stale epoch is ignored.
func (e *Engine) StatusEpoch() int { return e.statusEpoch }

// Playlist returns the active playlist.
func (e *Engine) Playlist() (media.Playlist, bool) {
	return e.store.PlaylistAt(e.playlistIdx)
}

// CurrentTrack returns the active track, if any.
func (e *Engine) CurrentTrack() (media.Track, bool) {
	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok || e.trackIdx < 0 || e.trackIdx >= len(pl.Tracks) {
		return media.Track{}, false
	}
	return pl.Tracks[e.trackIdx], true
}

// Store exposes the underlying playlist store for management commands.
func (e *Engine) Store() *store.Store { return e.store }

// Player exposes the media player, primarily so the shell can drain its
// event channel.
func (e *Engine) Player() player.Player { return e.player }

// Transcriber exposes the transcription runner for the same reason.
func (e *Engine) Transcriber() *transcribe.Runner { return e.transcriber }

// Position returns the player's position in milliseconds.
func (e *Engine) Position() int64 { return e.player.Position() }

// Duration returns the player's reported duration in milliseconds.
func (e *Engine) Duration() int64 { return e.player.Duration() }

// Shutdown flushes history and the store and terminates any running
// transcription. The played-track session is in-memory only.
func (e *Engine) Shutdown() {
	if e.transcriber != nil {
		e.transcriber.Stop()
	}
	e.savePosition()
	_ = e.store.Save()
}

// withSwitchGuard runs fn with the track-switch flag held. The flag is
// cleared on every exit path, including panics.
func (e *Engine) withSwitchGuard(fn func()) {
	e.switching = true
	defer func() { e.switching = false }()
	fn()
}

func (e *Engine) savePosition() {
	if e.history == nil {
		return
	}
	track, ok := e.CurrentTrack()
	if !ok || track.Kind != media.LocalFile {
		return
	}
	e.history.SavePosition(track,
		float64(e.player.Position())/1000,
		float64(e.player.Duration())/1000)
}
