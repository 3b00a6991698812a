// Package tui implements the interactive terminal interface. It is a thin
// shell around playback.Engine: every asynchronous event is converted to a
// message and fed through the single bubbletea update loop, which acts as
// the engine's serial queue.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"sonata/internal/playback"
	"sonata/internal/player"
	"sonata/internal/transcribe"
)

type keyMap struct {
	Toggle     key.Binding
	Next       key.Binding
	Prev       key.Binding
	Shuffle    key.Binding
	Repeat     key.Binding
	Mute       key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Jump       key.Binding
	Delete     key.Binding
	Favorite   key.Binding
	Playlist   key.Binding
	Up         key.Binding
	Down       key.Binding
	Enter      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Prev:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		Shuffle:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		Repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		Mute:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		VolumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		Jump:       key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "jump to time")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove track")),
		Favorite:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		Playlist:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next playlist")),
		Up:         key.NewBinding(key.WithKeys("up"), key.WithHelp("up", "cursor up")),
		Down:       key.NewBinding(key.WithKeys("down"), key.WithHelp("down", "cursor down")),
		Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play selected")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Prev, k.Shuffle, k.Repeat, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Next, k.Prev, k.Enter, k.Up, k.Down},
		{k.Shuffle, k.Repeat, k.Mute, k.VolumeUp, k.VolumeDown, k.Jump},
		{k.Delete, k.Favorite, k.Playlist, k.Help, k.Quit},
	}
}

// playerEventMsg wraps a player event for the update loop.
type playerEventMsg struct{ ev player.Event }

// transcriptEventMsg wraps a transcription event for the update loop.
type transcriptEventMsg struct{ ev transcribe.Event }

// statusRestoreMsg fires after the status restore delay.
type statusRestoreMsg struct{ epoch int }

// Model is the bubbletea model for the player interface.
type Model struct {
	engine *playback.Engine
	keys   keyMap
	help   help.Model

	transcript viewport.Model
	jumpInput  textinput.Model
	jumping    bool

	cursor int
	width  int
	height int
}

// New builds the interface model around an engine.
func New(engine *playback.Engine) Model {
	ti := textinput.New()
	ti.Placeholder = "mm:ss or seconds"
	ti.CharLimit = 9
	ti.Width = 16

	return Model{
		engine:     engine,
		keys:       defaultKeyMap(),
		help:       help.New(),
		transcript: viewport.New(0, 0),
		jumpInput:  ti,
	}
}

// Init starts the event pumps for the player and transcriber channels.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitPlayerEvent(m.engine.Player().Events()),
		waitTranscriptEvent(m.engine.Transcriber().Events()),
	)
}

func waitPlayerEvent(ch <-chan player.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return playerEventMsg{ev}
	}
}

func waitTranscriptEvent(ch <-chan transcribe.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return transcriptEventMsg{ev}
	}
}

// restoreStatus schedules the status line to be cleared unless a newer
// status has replaced it in the meantime.
func (m Model) restoreStatus() tea.Cmd {
	epoch := m.engine.StatusEpoch()
	return tea.Tick(playback.StatusRestoreDelay, func(time.Time) tea.Msg {
		return statusRestoreMsg{epoch: epoch}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.transcript.Width = msg.Width - transcriptChrome
		if h := msg.Height - listHeight(msg.Height) - controlRows; h > 0 {
			m.transcript.Height = h
		} else {
			m.transcript.Height = 1
		}
		return m, nil

	case playerEventMsg:
		m.engine.Handle(playback.PlayerMsg{Event: msg.ev})
		m.syncTranscript()
		return m, waitPlayerEvent(m.engine.Player().Events())

	case transcriptEventMsg:
		m.engine.Handle(playback.TranscriptMsg{Event: msg.ev})
		m.syncTranscript()
		return m, waitTranscriptEvent(m.engine.Transcriber().Events())

	case statusRestoreMsg:
		m.engine.Handle(playback.StatusRestoreMsg{Epoch: msg.epoch})
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.jumping {
		return m.handleJumpKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.engine.TogglePlayPause()
		return m, m.restoreStatus()

	case key.Matches(msg, m.keys.Next):
		m.engine.Next()
		m.cursor = clampCursor(m.engine.TrackIndex(), m.trackCount())
		m.syncTranscript()
		return m, m.restoreStatus()

	case key.Matches(msg, m.keys.Prev):
		m.engine.Previous()
		m.cursor = clampCursor(m.engine.TrackIndex(), m.trackCount())
		m.syncTranscript()
		return m, m.restoreStatus()

	case key.Matches(msg, m.keys.Shuffle):
		m.engine.ToggleShuffle()
		return m, nil

	case key.Matches(msg, m.keys.Repeat):
		m.engine.ToggleRepeat()
		return m, nil

	case key.Matches(msg, m.keys.Mute):
		m.engine.ToggleMute()
		return m, nil

	case key.Matches(msg, m.keys.VolumeUp):
		m.engine.SetVolume(m.engine.Volume() + 5)
		return m, nil

	case key.Matches(msg, m.keys.VolumeDown):
		m.engine.SetVolume(m.engine.Volume() - 5)
		return m, nil

	case key.Matches(msg, m.keys.Jump):
		m.jumping = true
		m.jumpInput.SetValue("")
		return m, m.jumpInput.Focus()

	case key.Matches(msg, m.keys.Delete):
		if m.trackCount() > 0 {
			m.engine.RemoveTrack(m.cursor)
			m.cursor = clampCursor(m.cursor, m.trackCount())
			m.syncTranscript()
		}
		return m, nil

	case key.Matches(msg, m.keys.Favorite):
		m.toggleFavorite()
		return m, nil

	case key.Matches(msg, m.keys.Playlist):
		m.cyclePlaylist()
		m.cursor = 0
		m.syncTranscript()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.trackCount()-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.trackCount() > 0 {
			m.engine.Activate(m.cursor)
			m.syncTranscript()
		}
		return m, m.restoreStatus()
	}
	return m, nil
}

func (m Model) handleJumpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumping = false
		m.jumpInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.jumping = false
		m.jumpInput.Blur()
		if sec, ok := parseTimestamp(m.jumpInput.Value()); ok {
			m.engine.JumpTo(sec)
		}
		return m, m.restoreStatus()
	}
	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	return m, cmd
}

func (m *Model) toggleFavorite() {
	pl, ok := m.engine.Playlist()
	if !ok || m.cursor < 0 || m.cursor >= len(pl.Tracks) {
		return
	}
	track := pl.Tracks[m.cursor]
	m.engine.Store().SetFavorite(pl.ID, m.cursor, !track.IsFavorite)
}

func (m *Model) cyclePlaylist() {
	count := len(m.engine.Store().Playlists())
	if count == 0 {
		return
	}
	m.engine.SelectPlaylist((m.engine.PlaylistIndex() + 1) % count)
}

func (m *Model) syncTranscript() {
	m.transcript.SetContent(renderTranscript(m.engine.Markup()))
	m.transcript.GotoBottom()
}

func (m Model) trackCount() int {
	pl, ok := m.engine.Playlist()
	if !ok {
		return 0
	}
	return len(pl.Tracks)
}

func clampCursor(idx, count int) int {
	if count == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= count {
		return count - 1
	}
	return idx
}

// parseTimestamp accepts "mm:ss" or a plain number of seconds.
func parseTimestamp(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if mm, ss, ok := strings.Cut(s, ":"); ok {
		minutes, err1 := strconv.Atoi(mm)
		seconds, err2 := strconv.Atoi(ss)
		if err1 != nil || err2 != nil || minutes < 0 || seconds < 0 || seconds > 59 {
			return 0, false
		}
		return float64(minutes*60 + seconds), true
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || sec < 0 {
		return 0, false
	}
	return sec, true
}

func formatClock(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
