package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// MPV drives a persistent mpv process in idle mode over its JSON IPC socket.
type MPV struct {
	binary string

	cmd    *exec.Cmd
	conn   net.Conn
	events chan Event

	mu     sync.Mutex // guards conn writes
	closed atomic.Bool

	positionMs atomic.Int64
	durationMs atomic.Int64
	paused     atomic.Bool
	loaded     atomic.Bool

	socketDir string
}

// NewMPV launches mpv idle with audio-only output and connects to its IPC
// socket. The socket lives in a randomized temp directory.
func NewMPV(binary string) (*MPV, error) {
	if binary == "" {
		binary = "mpv"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("player %q not found in PATH: %w", binary, err)
	}

	socketDir, err := os.MkdirTemp("", "sonata-mpv-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	socketPath := filepath.Join(socketDir, "socket")

	cmd := exec.Command(binary,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+socketPath,
	)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(socketDir)
		return nil, fmt.Errorf("starting mpv: %w", err)
	}

	conn, err := waitForSocket(socketPath)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		os.RemoveAll(socketDir)
		return nil, err
	}

	m := &MPV{
		binary:    binary,
		cmd:       cmd,
		conn:      conn,
		events:    make(chan Event, 64),
		socketDir: socketDir,
	}

	for i, prop := range []string{"time-pos", "duration", "pause"} {
		if err := m.command("observe_property", i+1, prop); err != nil {
			m.Close()
			return nil, fmt.Errorf("observing %s: %w", prop, err)
		}
	}

	go m.readLoop()
	return m, nil
}

// waitForSocket polls until mpv creates its IPC socket.
func waitForSocket(path string) (net.Conn, error) {
	for i := 0; i < 50; i++ {
		if conn, err := net.Dial("unix", path); err == nil {
			return conn, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, fmt.Errorf("mpv IPC socket did not appear at %s", path)
}

// Load replaces the current media and starts playing.
func (m *MPV) Load(path string) error {
	if err := m.command("loadfile", path, "replace"); err != nil {
		return err
	}
	m.loaded.Store(true)
	return m.setProperty("pause", false)
}

func (m *MPV) Play() error  { return m.setProperty("pause", false) }
func (m *MPV) Pause() error { return m.setProperty("pause", true) }

func (m *MPV) Stop() error {
	m.loaded.Store(false)
	return m.command("stop")
}

func (m *MPV) Seek(ms int64) error {
	return m.setProperty("time-pos", float64(ms)/1000)
}

func (m *MPV) Position() int64 { return m.positionMs.Load() }
func (m *MPV) Duration() int64 { return m.durationMs.Load() }

func (m *MPV) SetVolume(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return m.setProperty("volume", float64(percent))
}

func (m *MPV) Events() <-chan Event { return m.events }

// Close terminates mpv and releases the socket directory.
func (m *MPV) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	_ = m.command("quit")
	m.conn.Close()
	err := m.cmd.Wait()
	os.RemoveAll(m.socketDir)
	// mpv exits non-zero on quit; that is normal.
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return err
}

func (m *MPV) command(args ...interface{}) error {
	payload := map[string]interface{}{"command": args}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding mpv command: %w", err)
	}
	data = append(data, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.conn.Write(data); err != nil {
		return fmt.Errorf("writing to mpv socket: %w", err)
	}
	return nil
}

func (m *MPV) setProperty(name string, value interface{}) error {
	return m.command("set_property", name, value)
}

// mpvMessage is the union of property-change and lifecycle events mpv emits.
type mpvMessage struct {
	Event  string      `json:"event"`
	Name   string      `json:"name"`
	Data   interface{} `json:"data"`
	Reason string      `json:"reason"`
}

// readLoop decodes IPC lines and translates them into player events. It runs
// until the socket closes, then closes the event channel.
func (m *MPV) readLoop() {
	defer close(m.events)

	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg mpvMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		switch msg.Event {
		case "property-change":
			m.handleProperty(msg)
		case "playback-restart":
			if !m.paused.Load() {
				m.emit(Event{Kind: EventState, State: StatePlaying})
			}
		case "end-file":
			m.loaded.Store(false)
			m.positionMs.Store(0)
			// Explicit stops and loadfile replacements also end the file
			// ("stop"/"redirect"); only a natural or failed end is reported.
			if msg.Reason == "eof" || msg.Reason == "error" {
				m.emit(Event{Kind: EventState, State: StateStopped})
			}
		}
	}
}

func (m *MPV) handleProperty(msg mpvMessage) {
	switch msg.Name {
	case "time-pos":
		if v, ok := msg.Data.(float64); ok {
			ms := int64(v * 1000)
			m.positionMs.Store(ms)
			m.emit(Event{Kind: EventPosition, Ms: ms})
		}
	case "duration":
		if v, ok := msg.Data.(float64); ok {
			ms := int64(v * 1000)
			m.durationMs.Store(ms)
			m.emit(Event{Kind: EventDuration, Ms: ms})
		}
	case "pause":
		if v, ok := msg.Data.(bool); ok {
			m.paused.Store(v)
			if !m.loaded.Load() {
				return
			}
			if v {
				m.emit(Event{Kind: EventState, State: StatePaused})
			} else {
				m.emit(Event{Kind: EventState, State: StatePlaying})
			}
		}
	}
}

// emit delivers an event without ever blocking the read loop; if the consumer
// lags behind the buffer, position ticks are dropped first.
func (m *MPV) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		if ev.Kind != EventPosition {
			// State and duration events must not be lost; block for these.
			m.events <- ev
		}
	}
}
