package playback

import (
	"fmt"

	"sonata/internal/media"
	"sonata/internal/player"
	"sonata/internal/selection"
	"sonata/internal/srt"
	"sonata/internal/transcribe"
)

// Msg is a notification delivered into the engine's serial control flow. The
// shell forwards player events, transcription events, and timer ticks here so
// the state machine's transition table stays in one place.
type Msg interface{ isMsg() }

// PlayerMsg wraps a notification from the external player.
type PlayerMsg struct{ Event player.Event }

// TranscriptMsg wraps a notification from the transcription process.
type TranscriptMsg struct{ Event transcribe.Event }

// StatusRestoreMsg clears the transient status message it was scheduled for.
type StatusRestoreMsg struct{ Epoch int }

func (PlayerMsg) isMsg()        {}
func (TranscriptMsg) isMsg()    {}
func (StatusRestoreMsg) isMsg() {}

// Handle applies one message to the state machine. It must be called from
// the same goroutine as the engine's command methods.
func (e *Engine) Handle(msg Msg) {
	switch m := msg.(type) {
	case PlayerMsg:
		e.handlePlayer(m.Event)
	case TranscriptMsg:
		e.handleTranscript(m.Event)
	case StatusRestoreMsg:
		if m.Epoch == e.statusEpoch {
			e.status = ""
		}
	}
}

func (e *Engine) handlePlayer(ev player.Event) {
	if ev.Kind != player.EventState {
		return
	}

	switch ev.State {
	case player.StatePlaying:
		if e.state == StateLoading || e.state == StatePaused || e.state == StatePlaying {
			e.state = StatePlaying
		}
	case player.StatePaused:
		if e.state == StatePlaying {
			e.state = StatePaused
		}
	case player.StateStopped:
		e.handleStopped()
	}
}

// handleStopped reacts to the player reporting end of media. During an
// explicit track switch the notification belongs to the previous track and
// is ignored; otherwise a local-file track auto-advances per the selection
// rules, staying stopped when nothing follows.
func (e *Engine) handleStopped() {
	if e.switching {
		return
	}

	track, ok := e.CurrentTrack()
	if !ok {
		e.state = StateNoTrack
		return
	}

	e.savePosition()
	e.state = StateStoppedAtEnd

	if track.Kind != media.LocalFile {
		return
	}

	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok || len(pl.Tracks) == 0 {
		return
	}
	next := selection.Next(len(pl.Tracks), e.trackIdx, e.shuffle, e.repeat, e.session)
	if next != selection.None {
		e.Activate(next)
	}
}

func (e *Engine) handleTranscript(ev transcribe.Event) {
	track, ok := e.CurrentTrack()
	if !ok || track.Kind != media.LocalFile || track.FilePath != ev.AudioPath {
		// A late event from a replaced run; drop it.
		return
	}

	switch ev.Kind {
	case transcribe.EventOutput:
		e.markup += srt.Progress(ev.Chunk)

	case transcribe.EventFinished:
		switch ev.Status {
		case transcribe.StatusCrashed:
			e.markup += srt.Diagnostic("[transcription process terminated abnormally]")

		case transcribe.StatusNonZeroExit:
			e.markup += srt.Diagnostic(fmt.Sprintf("[transcription exited with code %d]", ev.ExitCode))
			if ev.Stderr != "" {
				e.markup += srt.Diagnostic("Error output: " + ev.Stderr)
			}

		case transcribe.StatusSuccess:
			e.markup += srt.Diagnostic("[transcription complete, loading subtitles...]")
			e.loadSubtitleFile(ev.OutputPath)
			if len(e.cues) > 0 {
				if pl, ok := e.store.PlaylistAt(e.playlistIdx); ok {
					_ = e.store.SetTrackSubtitlePath(pl.ID, e.trackIdx, ev.OutputPath)
				}
			}
		}
	}
}
