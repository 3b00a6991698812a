package playback

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sonata/internal/media"
	"sonata/internal/player"
	"sonata/internal/store"
	"sonata/internal/transcribe"
)

// fakePlayer records calls and lets tests inject behavior. onStop simulates
// players that report the stop synchronously from the command.
type fakePlayer struct {
	loaded   []string
	stops    int
	plays    int
	pauses   int
	seeks    []int64
	volumes  []int
	position int64
	duration int64
	loadErr  error
	onStop   func()
	events   chan player.Event
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{events: make(chan player.Event, 16)}
}

func (p *fakePlayer) Load(path string) error {
	if p.loadErr != nil {
		return p.loadErr
	}
	p.loaded = append(p.loaded, path)
	return nil
}

func (p *fakePlayer) Play() error  { p.plays++; return nil }
func (p *fakePlayer) Pause() error { p.pauses++; return nil }

func (p *fakePlayer) Stop() error {
	p.stops++
	if p.onStop != nil {
		p.onStop()
	}
	return nil
}

func (p *fakePlayer) Seek(ms int64) error         { p.seeks = append(p.seeks, ms); return nil }
func (p *fakePlayer) Position() int64             { return p.position }
func (p *fakePlayer) Duration() int64             { return p.duration }
func (p *fakePlayer) SetVolume(percent int) error { p.volumes = append(p.volumes, percent); return nil }
func (p *fakePlayer) Events() <-chan player.Event { return p.events }
func (p *fakePlayer) Close() error                { return nil }

type fakeHistory struct {
	plays     []string
	positions []float64
}

func (h *fakeHistory) RecordPlay(track media.Track) {
	h.plays = append(h.plays, track.Locator())
}

func (h *fakeHistory) SavePosition(track media.Track, positionSec, durationSec float64) {
	h.positions = append(h.positions, positionSec)
}

// newEngine builds an engine over a temp store holding one playlist with the
// given number of local tracks.
func newEngine(t *testing.T, trackCount int) (*Engine, *fakePlayer, *store.Store) {
	t.Helper()
	st := store.Open(filepath.Join(t.TempDir(), "playlists.json"))
	pl, err := st.CreatePlaylist("Mix")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < trackCount; i++ {
		_, err := st.AddTrack(pl.ID, media.Track{
			Kind:     media.LocalFile,
			FilePath: fmt.Sprintf("/media/%d.mp4", i),
			Title:    fmt.Sprintf("Track %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	fp := newFakePlayer()
	e := New(Options{Store: st, Player: fp})
	return e, fp, st
}

func TestActivate(t *testing.T) {
	e, fp, _ := newEngine(t, 3)
	hist := &fakeHistory{}
	e.history = hist

	e.Activate(1)

	if e.State() != StatePlaying {
		t.Errorf("state = %v, want playing", e.State())
	}
	if e.TrackIndex() != 1 {
		t.Errorf("track index = %d, want 1", e.TrackIndex())
	}
	if len(fp.loaded) != 1 || fp.loaded[0] != "/media/1.mp4" {
		t.Errorf("loaded = %v", fp.loaded)
	}
	if fp.stops != 1 {
		t.Errorf("stops = %d, want 1 (previous playback halted first)", fp.stops)
	}
	if len(hist.plays) != 1 || hist.plays[0] != "/media/1.mp4" {
		t.Errorf("history plays = %v", hist.plays)
	}
	if !e.session.Played(1) {
		t.Error("activated index not marked played")
	}
}

func TestActivateOutOfRange(t *testing.T) {
	e, fp, _ := newEngine(t, 2)
	e.Activate(5)
	e.Activate(-1)
	if e.TrackIndex() != -1 || len(fp.loaded) != 0 {
		t.Errorf("out-of-range activation changed state: idx=%d loaded=%v", e.TrackIndex(), fp.loaded)
	}
}

func TestActivateLoadError(t *testing.T) {
	e, fp, _ := newEngine(t, 1)
	fp.loadErr = errors.New("no such file")

	e.Activate(0)

	if e.State() != StateStoppedAtEnd {
		t.Errorf("state = %v, want stopped", e.State())
	}
	if !strings.Contains(e.Markup(), "cannot load") {
		t.Errorf("markup = %q, want load diagnostic", e.Markup())
	}
}

func TestActivateRemoteLink(t *testing.T) {
	e, fp, st := newEngine(t, 0)
	pl, _ := st.PlaylistAt(0)
	st.AddTrack(pl.ID, media.Track{Kind: media.RemoteLink, VideoID: "abc123", Title: "Clip"})

	e.Activate(0)

	if e.State() != StatePlaying {
		t.Errorf("state = %v, want playing", e.State())
	}
	if len(fp.loaded) != 0 {
		t.Errorf("remote link must not be loaded into the player: %v", fp.loaded)
	}
}

func TestActivateCachedSubtitle(t *testing.T) {
	e, _, st := newEngine(t, 0)

	srtPath := filepath.Join(t.TempDir(), "cached.srt")
	content := "1\n00:00:01,000 --> 00:00:02,000\ncached text\n"
	if err := os.WriteFile(srtPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pl, _ := st.PlaylistAt(0)
	st.AddTrack(pl.ID, media.Track{
		Kind:         media.LocalFile,
		FilePath:     "/media/a.mp4",
		SubtitlePath: srtPath,
	})

	e.Activate(0)

	if len(e.Cues()) != 1 {
		t.Fatalf("cues = %d, want 1 from the cached file", len(e.Cues()))
	}
	if !strings.Contains(e.Markup(), "cached text") {
		t.Errorf("markup = %q", e.Markup())
	}
}

func TestAttachSubtitle(t *testing.T) {
	e, _, st := newEngine(t, 1)
	e.Activate(0)

	srtPath := filepath.Join(t.TempDir(), "manual.srt")
	content := "1\n00:00:01,000 --> 00:00:02,000\nmanual text\n"
	if err := os.WriteFile(srtPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	e.AttachSubtitle(srtPath)

	if len(e.Cues()) != 1 || e.Cues()[0].Text != "manual text" {
		t.Errorf("cues = %+v", e.Cues())
	}
	pl, _ := st.PlaylistAt(0)
	if pl.Tracks[0].SubtitlePath != srtPath {
		t.Errorf("subtitle path not persisted: %q", pl.Tracks[0].SubtitlePath)
	}
}

func TestTogglePlayPause(t *testing.T) {
	e, fp, _ := newEngine(t, 2)

	// No active track: the first track starts
	e.TogglePlayPause()
	if e.TrackIndex() != 0 || e.State() != StatePlaying {
		t.Fatalf("idx=%d state=%v, want first track playing", e.TrackIndex(), e.State())
	}

	e.TogglePlayPause()
	if e.State() != StatePaused || fp.pauses != 1 {
		t.Errorf("state=%v pauses=%d, want paused once", e.State(), fp.pauses)
	}

	e.TogglePlayPause()
	if e.State() != StatePlaying || fp.plays != 1 {
		t.Errorf("state=%v plays=%d, want resumed once", e.State(), fp.plays)
	}
}

func TestTogglePlayPauseRestartsAfterEnd(t *testing.T) {
	e, fp, _ := newEngine(t, 1)
	e.Activate(0)

	e.Handle(PlayerMsg{Event: player.Event{Kind: player.EventState, State: player.StateStopped}})
	if e.State() != StateStoppedAtEnd {
		t.Fatalf("state = %v, want stopped at end", e.State())
	}

	e.TogglePlayPause()
	if e.State() != StatePlaying {
		t.Errorf("state = %v, want playing again", e.State())
	}
	if len(fp.loaded) != 2 {
		t.Errorf("loads = %d, want the track reloaded", len(fp.loaded))
	}
}

func TestTogglePlayPauseRemote(t *testing.T) {
	e, fp, st := newEngine(t, 0)
	pl, _ := st.PlaylistAt(0)
	st.AddTrack(pl.ID, media.Track{Kind: media.RemoteLink, VideoID: "abc"})
	e.Activate(0)

	e.TogglePlayPause()
	if e.State() != StatePaused {
		t.Errorf("state = %v, want paused", e.State())
	}
	e.TogglePlayPause()
	if e.State() != StatePlaying {
		t.Errorf("state = %v, want playing", e.State())
	}
	if fp.plays != 0 || fp.pauses != 0 {
		t.Error("remote toggling must not reach the player")
	}
}

func TestAutoAdvance(t *testing.T) {
	e, _, _ := newEngine(t, 3)
	e.Activate(0)

	e.Handle(PlayerMsg{Event: player.Event{Kind: player.EventState, State: player.StateStopped}})

	if e.TrackIndex() != 1 {
		t.Errorf("track index after natural end = %d, want 1", e.TrackIndex())
	}
	if e.State() != StatePlaying {
		t.Errorf("state = %v, want playing the next track", e.State())
	}
}

func TestAutoAdvanceStopsAtEnd(t *testing.T) {
	e, _, _ := newEngine(t, 2)
	e.Activate(1)

	e.Handle(PlayerMsg{Event: player.Event{Kind: player.EventState, State: player.StateStopped}})

	if e.State() != StateStoppedAtEnd {
		t.Errorf("state = %v, want stopped at end", e.State())
	}
	if e.TrackIndex() != 1 {
		t.Errorf("track index = %d, want unchanged", e.TrackIndex())
	}
}

func TestAutoAdvanceRepeatWraps(t *testing.T) {
	e, _, _ := newEngine(t, 2)
	e.ToggleRepeat()
	e.Activate(1)

	e.Handle(PlayerMsg{Event: player.Event{Kind: player.EventState, State: player.StateStopped}})

	if e.TrackIndex() != 0 || e.State() != StatePlaying {
		t.Errorf("idx=%d state=%v, want wrapped to first track", e.TrackIndex(), e.State())
	}
}

func TestSwitchSuppressesStaleStop(t *testing.T) {
	e, fp, _ := newEngine(t, 3)
	e.Activate(0)

	// A player that reports the stop synchronously from inside the switch
	// must not trigger auto-advance past the track being activated.
	fp.onStop = func() {
		e.Handle(PlayerMsg{Event: player.Event{Kind: player.EventState, State: player.StateStopped}})
	}
	e.Activate(1)

	if e.TrackIndex() != 1 {
		t.Errorf("track index = %d, want 1 (stale stop ignored)", e.TrackIndex())
	}
	if e.State() != StatePlaying {
		t.Errorf("state = %v, want playing", e.State())
	}
}

func TestRemoveTrack(t *testing.T) {
	t.Run("active track", func(t *testing.T) {
		e, fp, st := newEngine(t, 3)
		e.Activate(1)
		fp.stops = 0

		e.RemoveTrack(1)

		if e.State() != StateNoTrack || e.TrackIndex() != -1 {
			t.Errorf("state=%v idx=%d, want no track", e.State(), e.TrackIndex())
		}
		if fp.stops != 1 {
			t.Errorf("stops = %d, want playback halted", fp.stops)
		}
		pl, _ := st.PlaylistAt(0)
		if len(pl.Tracks) != 2 {
			t.Errorf("tracks = %d, want 2", len(pl.Tracks))
		}
	})

	t.Run("earlier track shifts the pointer", func(t *testing.T) {
		e, _, _ := newEngine(t, 3)
		e.Activate(2)

		e.RemoveTrack(0)

		if e.TrackIndex() != 1 {
			t.Errorf("track index = %d, want 1", e.TrackIndex())
		}
		if track, _ := e.CurrentTrack(); track.FilePath != "/media/2.mp4" {
			t.Errorf("current track = %s, want /media/2.mp4", track.FilePath)
		}
	})

	t.Run("later track leaves the pointer", func(t *testing.T) {
		e, _, _ := newEngine(t, 3)
		e.Activate(0)

		e.RemoveTrack(2)

		if e.TrackIndex() != 0 || e.State() != StatePlaying {
			t.Errorf("idx=%d state=%v, want unchanged", e.TrackIndex(), e.State())
		}
	})
}

func TestMoveTrackPointer(t *testing.T) {
	tests := []struct {
		name     string
		active   int
		from, to int
		wantIdx  int
	}{
		{"active track moves", 1, 1, 3, 3},
		{"track crosses pointer forward", 2, 0, 3, 1},
		{"track crosses pointer backward", 1, 3, 0, 2},
		{"move outside the pointer", 0, 2, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newEngine(t, 4)
			e.Activate(tt.active)
			want, _ := e.CurrentTrack()

			e.MoveTrack(tt.from, tt.to)

			if e.TrackIndex() != tt.wantIdx {
				t.Errorf("track index = %d, want %d", e.TrackIndex(), tt.wantIdx)
			}
			if got, _ := e.CurrentTrack(); got.FilePath != want.FilePath {
				t.Errorf("current track = %s, want %s", got.FilePath, want.FilePath)
			}
		})
	}
}

func TestSelectPlaylist(t *testing.T) {
	e, fp, st := newEngine(t, 2)
	st.CreatePlaylist("Other")
	e.Activate(1)
	fp.stops = 0

	e.SelectPlaylist(1)

	if e.PlaylistIndex() != 1 {
		t.Errorf("playlist index = %d, want 1", e.PlaylistIndex())
	}
	if e.TrackIndex() != -1 {
		t.Errorf("track index = %d, want reset", e.TrackIndex())
	}
	if e.session.Played(1) {
		t.Error("shuffle session should reset on playlist switch")
	}
	if st.LastPlaylist() != "Other" {
		t.Errorf("last playlist = %q, want Other", st.LastPlaylist())
	}
	// Whatever is playing keeps playing across the switch
	if fp.stops != 0 {
		t.Error("playlist switch must not stop playback")
	}
}

func TestRestoresLastPlaylist(t *testing.T) {
	st := store.Open(filepath.Join(t.TempDir(), "playlists.json"))
	st.CreatePlaylist("A")
	st.CreatePlaylist("B")
	st.SetLastPlaylist("B")

	e := New(Options{Store: st, Player: newFakePlayer()})
	if e.PlaylistIndex() != 1 {
		t.Errorf("playlist index = %d, want the restored playlist", e.PlaylistIndex())
	}
}

func TestJumpTo(t *testing.T) {
	e, fp, _ := newEngine(t, 1)

	e.JumpTo(10)
	if e.Status() != "Play the track before jumping to a timestamp" {
		t.Errorf("status = %q", e.Status())
	}
	if len(fp.seeks) != 0 {
		t.Error("no seek should happen while stopped")
	}

	e.Activate(0)
	fp.duration = 60_000

	e.JumpTo(90)
	if e.Status() != "Timestamp is beyond the end of the track" {
		t.Errorf("status = %q", e.Status())
	}

	e.JumpTo(65.4)
	if e.Status() != "Timestamp is beyond the end of the track" {
		t.Errorf("status = %q", e.Status())
	}

	e.JumpTo(59.6)
	if len(fp.seeks) != 1 || fp.seeks[0] != 59_600 {
		t.Errorf("seeks = %v, want [59600]", fp.seeks)
	}
	if e.Status() != "Jumped to 01:00" {
		t.Errorf("status = %q, want rounded Jumped to 01:00", e.Status())
	}
}

func TestStatusRestore(t *testing.T) {
	e, _, _ := newEngine(t, 1)
	e.Activate(0)
	e.JumpTo(5)
	stale := e.StatusEpoch()

	e.JumpTo(7)
	e.Handle(StatusRestoreMsg{Epoch: stale})
	if e.Status() == "" {
		t.Fatal("stale restore must not clear a newer status")
	}

	e.Handle(StatusRestoreMsg{Epoch: e.StatusEpoch()})
	if e.Status() != "" {
		t.Errorf("status = %q, want cleared", e.Status())
	}
}

func TestVolumeAndMute(t *testing.T) {
	e, fp, _ := newEngine(t, 1)

	e.SetVolume(150)
	if e.Volume() != 100 {
		t.Errorf("volume = %d, want clamped to 100", e.Volume())
	}
	e.SetVolume(0)
	if e.Volume() != 1 {
		t.Errorf("volume = %d, want clamped to 1", e.Volume())
	}

	e.SetVolume(70)
	e.ToggleMute()
	if !e.Muted() {
		t.Error("mute should be on")
	}
	if last := fp.volumes[len(fp.volumes)-1]; last != 0 {
		t.Errorf("player volume = %d, want 0 while muted", last)
	}

	e.ToggleMute()
	if e.Muted() || e.Volume() != 70 {
		t.Errorf("muted=%v volume=%d, want restored to 70", e.Muted(), e.Volume())
	}

	// A stored level below the floor falls back to 50
	e.previousVolume = 0
	e.muted = true
	e.ToggleMute()
	if e.Volume() != 50 {
		t.Errorf("volume = %d, want fallback 50", e.Volume())
	}
}

func TestTranscriptFlow(t *testing.T) {
	e, _, st := newEngine(t, 1)
	e.Activate(0)

	e.Handle(TranscriptMsg{Event: transcribe.Event{
		Kind:      transcribe.EventOutput,
		AudioPath: "/media/0.mp4",
		Chunk:     "decoding segment 1",
	}})
	if !strings.Contains(e.Markup(), "decoding segment 1") {
		t.Errorf("markup = %q, want progress chunk", e.Markup())
	}

	srtPath := filepath.Join(t.TempDir(), "0.srt")
	content := "1\n00:00:01,000 --> 00:00:02,000\ntranscribed\n"
	if err := os.WriteFile(srtPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	e.Handle(TranscriptMsg{Event: transcribe.Event{
		Kind:       transcribe.EventFinished,
		AudioPath:  "/media/0.mp4",
		OutputPath: srtPath,
		Status:     transcribe.StatusSuccess,
	}})

	if len(e.Cues()) != 1 || e.Cues()[0].Text != "transcribed" {
		t.Errorf("cues = %+v", e.Cues())
	}
	pl, _ := st.PlaylistAt(0)
	if pl.Tracks[0].SubtitlePath != srtPath {
		t.Errorf("subtitle path not persisted: %q", pl.Tracks[0].SubtitlePath)
	}
}

func TestTranscriptFailure(t *testing.T) {
	e, _, _ := newEngine(t, 1)
	e.Activate(0)

	e.Handle(TranscriptMsg{Event: transcribe.Event{
		Kind:      transcribe.EventFinished,
		AudioPath: "/media/0.mp4",
		Status:    transcribe.StatusNonZeroExit,
		ExitCode:  3,
		Stderr:    "model not found",
	}})

	if !strings.Contains(e.Markup(), "exited with code 3") {
		t.Errorf("markup = %q, want exit code diagnostic", e.Markup())
	}
	if !strings.Contains(e.Markup(), "model not found") {
		t.Errorf("markup = %q, want captured stderr", e.Markup())
	}
	if len(e.Cues()) != 0 {
		t.Error("failed transcription must not load cues")
	}
}

func TestTranscriptStaleEventDropped(t *testing.T) {
	e, _, _ := newEngine(t, 2)
	e.Activate(1)

	e.Handle(TranscriptMsg{Event: transcribe.Event{
		Kind:      transcribe.EventOutput,
		AudioPath: "/media/0.mp4",
		Chunk:     "late chunk",
	}})

	if strings.Contains(e.Markup(), "late chunk") {
		t.Error("event for a replaced track must be dropped")
	}
}

func TestShuffleToggleResetsSession(t *testing.T) {
	e, _, _ := newEngine(t, 3)
	e.Activate(0)
	if !e.session.Played(0) {
		t.Fatal("activation should mark the index")
	}

	e.ToggleShuffle()
	if !e.Shuffle() {
		t.Error("shuffle should be on")
	}
	if e.session.Played(0) {
		t.Error("enabling shuffle should begin a fresh epoch")
	}

	e.session.MarkPlayed(1)
	e.ToggleShuffle()
	if e.Shuffle() {
		t.Error("shuffle should be off")
	}
	if !e.session.Played(1) {
		t.Error("disabling shuffle should leave the session alone")
	}
}
