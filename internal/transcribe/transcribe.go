// Package transcribe manages the external speech-transcription process. At
// most one transcription is ever alive: starting a new one terminates the
// previous process and waits for it to be reaped before spawning the
// replacement, so two runs never race on adjacent output paths.
//
// The tool contract is: <tool> <absoluteAudioPath> --output <absoluteSrtPath>.
// Standard output is advisory progress text, streamed as events; standard
// error is captured and surfaced only on a non-zero exit.
package transcribe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

// ErrSpawn is returned when the tool cannot be started at all. There is no
// retry; the caller surfaces a fixed diagnostic.
var ErrSpawn = errors.New("transcription tool not found or failed to start")

// Status classifies how a transcription run ended.
type Status int

const (
	// StatusSuccess: normal exit, code 0, output file expected on disk.
	StatusSuccess Status = iota
	// StatusNonZeroExit: normal termination with a non-zero code.
	StatusNonZeroExit
	// StatusCrashed: abnormal termination (signal).
	StatusCrashed
)

// EventKind discriminates transcription events.
type EventKind int

const (
	// EventOutput carries a decoded standard-output chunk (live progress).
	EventOutput EventKind = iota
	// EventFinished reports the end of a run.
	EventFinished
)

// Event is one asynchronous notification from the transcription process.
type Event struct {
	Kind       EventKind
	AudioPath  string // source file of the run this event belongs to
	OutputPath string // SRT path the run writes to
	Chunk      string // EventOutput: decoded stdout text
	Status     Status // EventFinished only
	ExitCode   int    // EventFinished, StatusNonZeroExit
	Stderr     string // EventFinished, captured standard error
}

// Runner spawns and monitors the transcription tool.
type Runner struct {
	tool   string
	events chan Event

	mu       sync.Mutex
	cmd      *exec.Cmd
	canceled bool
	cancel   chan struct{}
	done     chan struct{}
}

// NewRunner returns a runner invoking the named tool binary.
func NewRunner(tool string) *Runner {
	if tool == "" {
		tool = "vibe"
	}
	return &Runner{
		tool:   tool,
		events: make(chan Event, 32),
	}
}

// Events returns the notification channel shared by all runs.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// OutputPath computes the deterministic SRT path for an audio file: same
// directory, same base name, .srt extension.
func OutputPath(audioPath string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(filepath.Dir(audioPath), base+".srt")
}

// Start terminates any running transcription, waits for its exit, then spawns
// the tool for audioPath. It returns the output path the run will write.
// A spawn failure returns ErrSpawn and leaves nothing running.
func (r *Runner) Start(audioPath string) (string, error) {
	r.Stop()

	outputPath := OutputPath(audioPath)

	if _, err := exec.LookPath(r.tool); err != nil {
		return "", fmt.Errorf("%w: %q", ErrSpawn, r.tool)
	}

	cmd := exec.Command(r.tool, audioPath, "--output", outputPath)
	// Own process group, so a cancel can take down wrapper scripts and any
	// workers they spawned along with the tool itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	done := make(chan struct{})
	cancel := make(chan struct{})

	r.mu.Lock()
	r.cmd = cmd
	r.canceled = false
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.monitor(cmd, stdout, &stderr, audioPath, outputPath, cancel, done)

	return outputPath, nil
}

// Stop forcibly terminates the running transcription, if any, and waits for
// the process to be reaped. The whole process group dies, so the stdout pipe
// closes promptly even when the tool left children behind. No Finished event
// is emitted for a canceled run.
func (r *Runner) Stop() {
	r.mu.Lock()
	done := r.done
	if r.cmd != nil && !r.canceled {
		r.canceled = true
		close(r.cancel)
		killGroup(r.cmd)
	}
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}

// killGroup terminates the tool's process group, falling back to the direct
// child if the group kill fails.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}

// Running reports whether a transcription process is currently alive.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

// monitor streams stdout chunks, then reaps the process and classifies the
// exit. It owns the lifetime of one run.
func (r *Runner) monitor(cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, audioPath, outputPath string, cancel, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := strings.TrimSpace(string(buf[:n]))
			if chunk != "" && !r.isCanceled() {
				// A cancel must never leave this goroutine wedged on a
				// full event buffer.
				select {
				case r.events <- Event{
					Kind:       EventOutput,
					AudioPath:  audioPath,
					OutputPath: outputPath,
					Chunk:      chunk,
				}:
				case <-cancel:
				}
			}
		}
		if err != nil {
			break
		}
	}

	err := cmd.Wait()

	r.mu.Lock()
	canceled := r.canceled
	r.cmd = nil
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if canceled {
		return
	}

	ev := Event{
		Kind:       EventFinished,
		AudioPath:  audioPath,
		OutputPath: outputPath,
		Stderr:     strings.TrimSpace(stderr.String()),
	}
	switch e := err.(type) {
	case nil:
		ev.Status = StatusSuccess
	case *exec.ExitError:
		if e.ExitCode() == -1 {
			ev.Status = StatusCrashed
		} else {
			ev.Status = StatusNonZeroExit
			ev.ExitCode = e.ExitCode()
		}
	default:
		ev.Status = StatusCrashed
	}
	select {
	case r.events <- ev:
	case <-cancel:
	}
}

func (r *Runner) isCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}
