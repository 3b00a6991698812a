package playback

import (
	"errors"
	"fmt"
	"os"

	"sonata/internal/media"
	"sonata/internal/selection"
	"sonata/internal/srt"
	"sonata/internal/transcribe"
)

// Activate starts playback of the track at index in the active playlist.
// Out-of-range indices are a no-op. Activation resets the accumulated
// subtitle markup, marks the index as played for shuffle bookkeeping, and
// either loads a cached subtitle file or starts a transcription.
func (e *Engine) Activate(index int) {
	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok || index < 0 || index >= len(pl.Tracks) {
		return
	}

	e.clearStatus()

	e.withSwitchGuard(func() {
		e.trackIdx = index
		track := pl.Tracks[index]
		e.session.MarkPlayed(index)

		_ = e.player.Stop()
		e.cues = nil
		e.markup = ""

		if e.history != nil {
			e.history.RecordPlay(track)
		}

		if track.Kind == media.RemoteLink {
			// The external video is never embedded; the shell surfaces the
			// watch URL and we only track a "considered playing" flag.
			e.state = StatePlaying
			return
		}

		e.state = StateLoading
		if err := e.player.Load(track.FilePath); err != nil {
			e.markup += srt.Diagnostic(fmt.Sprintf("Error: cannot load %s", track.FilePath))
			e.state = StateStoppedAtEnd
			return
		}
		e.state = StatePlaying

		e.prepareSubtitles(track)
	})
}

// prepareSubtitles loads a valid cached subtitle file directly, otherwise
// starts a transcription run for the track.
func (e *Engine) prepareSubtitles(track media.Track) {
	if track.SubtitlePath != "" {
		if _, err := os.Stat(track.SubtitlePath); err == nil {
			e.loadSubtitleFile(track.SubtitlePath)
			return
		}
	}

	if !e.autoTranscribe || e.transcriber == nil {
		return
	}

	if _, err := e.transcriber.Start(track.FilePath); err != nil {
		if errors.Is(err, transcribe.ErrSpawn) {
			e.markup += srt.Diagnostic("Error: cannot start the transcription tool") +
				srt.Diagnostic("Make sure a Whisper CLI is installed and on PATH")
		} else {
			e.markup += srt.Diagnostic(fmt.Sprintf("Transcription error: %v", err))
		}
		return
	}
	e.markup += srt.Diagnostic("Transcribing audio...") +
		srt.Diagnostic("Subtitles will appear when transcription completes")
}

// loadSubtitleFile parses an SRT file and replaces all previously accumulated
// cues and markup for the track. A missing or unreadable file produces an
// inline diagnostic instead.
func (e *Engine) loadSubtitleFile(path string) {
	cues, err := srt.ParseFile(path)
	if err != nil {
		e.markup += srt.Diagnostic(fmt.Sprintf("Error: %v", err))
		return
	}
	e.cues = cues
	e.markup = srt.Render(cues)
}

// AttachSubtitle loads an existing SRT file for the active track and persists
// its path so later activations reuse it.
func (e *Engine) AttachSubtitle(path string) {
	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok || e.trackIdx < 0 || e.trackIdx >= len(pl.Tracks) {
		return
	}
	e.loadSubtitleFile(path)
	_ = e.store.SetTrackSubtitlePath(pl.ID, e.trackIdx, path)
}

// TogglePlayPause pauses or resumes the active track. For remote links the
// engine cannot control playback; it only flips the local flag. With no
// active track, the first track of a non-empty playlist is activated.
func (e *Engine) TogglePlayPause() {
	track, ok := e.CurrentTrack()
	if !ok {
		if pl, ok := e.store.PlaylistAt(e.playlistIdx); ok && len(pl.Tracks) > 0 {
			e.Activate(0)
		}
		return
	}

	if track.Kind == media.RemoteLink {
		if e.state == StatePlaying {
			e.state = StatePaused
		} else {
			e.state = StatePlaying
		}
		return
	}

	switch e.state {
	case StatePlaying, StateLoading:
		e.state = StatePaused
		_ = e.player.Pause()
	case StateStoppedAtEnd:
		// Nothing is loaded anymore; restart the track from the top.
		e.Activate(e.trackIdx)
	default:
		e.state = StatePlaying
		_ = e.player.Play()
	}
}

// Next activates the track after the current one under the forward rule:
// shuffle draws from the unplayed set, sequential wrap is gated on repeat.
func (e *Engine) Next() {
	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok || len(pl.Tracks) == 0 {
		return
	}
	next := selection.Next(len(pl.Tracks), e.trackIdx, e.shuffle, e.repeat, e.session)
	if next != selection.None {
		e.Activate(next)
	}
}

// Previous activates the preceding track. Backward wrap is unconditional.
func (e *Engine) Previous() {
	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok || len(pl.Tracks) == 0 {
		return
	}
	prev := selection.Previous(len(pl.Tracks), e.trackIdx, e.shuffle, e.repeat, e.session)
	if prev != selection.None {
		e.Activate(prev)
	}
}

// ToggleShuffle flips shuffle mode. Enabling it begins a fresh shuffle epoch.
func (e *Engine) ToggleShuffle() {
	e.shuffle = !e.shuffle
	if e.shuffle {
		e.session.Reset()
	}
}

// ToggleRepeat flips repeat mode. The shuffle session is left untouched.
func (e *Engine) ToggleRepeat() {
	e.repeat = !e.repeat
}

// SelectPlaylist switches the active playlist: the track pointer resets and
// the shuffle session clears. A track already playing from another playlist
// keeps playing until something else is explicitly activated.
func (e *Engine) SelectPlaylist(index int) {
	pl, ok := e.store.PlaylistAt(index)
	if !ok {
		return
	}
	e.playlistIdx = index
	e.trackIdx = -1
	e.session.Reset()
	e.store.SetLastPlaylist(pl.Name)
}

// RemoveTrack deletes the track at index from the active playlist. Removing
// the active track stops playback; removing an earlier track shifts the
// active index down so it keeps pointing at the same logical track.
func (e *Engine) RemoveTrack(index int) {
	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok || index < 0 || index >= len(pl.Tracks) {
		return
	}

	if index == e.trackIdx {
		_ = e.player.Stop()
		if e.transcriber != nil {
			e.transcriber.Stop()
		}
		e.trackIdx = -1
		e.state = StateNoTrack
		e.cues = nil
		e.markup = ""
	} else if index < e.trackIdx {
		e.trackIdx--
	}

	_ = e.store.RemoveTrack(pl.ID, index)
}

// MoveTrack reorders tracks within the active playlist, keeping the active
// pointer on the same logical track.
func (e *Engine) MoveTrack(from, to int) {
	pl, ok := e.store.PlaylistAt(e.playlistIdx)
	if !ok {
		return
	}
	if err := e.store.MoveTrack(pl.ID, from, to); err != nil {
		return
	}
	switch {
	case e.trackIdx == from:
		e.trackIdx = to
	case from < e.trackIdx && to >= e.trackIdx:
		e.trackIdx--
	case from > e.trackIdx && to <= e.trackIdx:
		e.trackIdx++
	}
}

// JumpTo seeks to a subtitle anchor's time in seconds. Out-of-range targets
// and stopped playback produce a status message instead of a seek.
func (e *Engine) JumpTo(seconds float64) {
	if seconds < 0 {
		return
	}
	if e.state != StatePlaying && e.state != StatePaused {
		e.setStatus("Play the track before jumping to a timestamp")
		return
	}
	ms := int64(seconds * 1000)
	if dur := e.player.Duration(); dur > 0 && ms > dur {
		e.setStatus("Timestamp is beyond the end of the track")
		return
	}
	_ = e.player.Seek(ms)
	total := int(seconds + 0.5)
	e.setStatus(fmt.Sprintf("Jumped to %02d:%02d", total/60, total%60))
}

// SetVolume updates volume (1-100) and clears mute, mirroring a manual
// slider move.
func (e *Engine) SetVolume(percent int) {
	if percent < 1 {
		percent = 1
	}
	if percent > 100 {
		percent = 100
	}
	e.muted = false
	e.previousVolume = percent
	e.volume = percent
	_ = e.player.SetVolume(percent)
}

// ToggleMute silences output without moving the stored volume; unmuting
// restores the previous level, falling back to 50 if none was usable.
func (e *Engine) ToggleMute() {
	if e.muted {
		restore := e.previousVolume
		if restore < 1 {
			restore = 50
		}
		e.muted = false
		e.volume = restore
		_ = e.player.SetVolume(restore)
		return
	}
	e.previousVolume = e.volume
	e.muted = true
	_ = e.player.SetVolume(0)
}

// setStatus installs a transient status message and advances the epoch so a
// pending restore for the previous message is ignored.
func (e *Engine) setStatus(message string) {
	e.status = message
	e.statusEpoch++
}

func (e *Engine) clearStatus() {
	e.status = ""
	e.statusEpoch++
}
