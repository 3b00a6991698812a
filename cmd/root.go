// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sonata/internal/config"
	"sonata/internal/history"
	"sonata/internal/playback"
	"sonata/internal/player"
	"sonata/internal/store"
	"sonata/internal/transcribe"
	"sonata/internal/tui"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagPlayer       string
	flagTranscriber  string
	flagDataDir      string
	flagNoTranscribe bool
	flagNoHistory    bool
	flagDebug        bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sonata",
	Short: "Play local and linked media from the terminal",
	Long: `Sonata is a terminal media player built around playlists.
It drives mpv over its JSON IPC socket, transcribes local tracks with a
Whisper-style CLI tool, and keeps playback history in SQLite.`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: loadConfig,
	RunE:              playRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPlayer, "player", "", "Media player binary (default: mpv)")
	rootCmd.PersistentFlags().StringVar(&flagTranscriber, "transcriber", "", "Transcription tool binary (default: vibe)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory for playlists and history")
	rootCmd.PersistentFlags().BoolVar(&flagNoTranscribe, "no-transcribe", false, "Disable automatic transcription")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Disable playback history")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(playlistCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if flagTranscriber != "" {
		cfg.Transcriber = flagTranscriber
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagNoTranscribe {
		cfg.AutoTranscribe = false
	}
	if flagNoHistory {
		cfg.History = false
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.SetOutput(os.Stderr)
	if cfg.Debug {
		log.SetPrefix("[sonata] ")
	} else {
		log.SetFlags(0)
	}

	return nil
}

// debugf logs a message if debug mode is enabled.
func debugf(format string, args ...interface{}) {
	if cfg != nil && cfg.Debug {
		log.Printf(format, args...)
	}
}

// openStore opens the playlist store and seeds the default playlists on
// first run.
func openStore() (*store.Store, error) {
	path, err := cfg.PlaylistPath()
	if err != nil {
		return nil, fmt.Errorf("resolving playlist path: %w", err)
	}
	debugf("playlist store: %s", path)

	st := store.Open(path)
	st.Seed("My Playlist", "Favorites")
	return st, nil
}

// playRun launches the interactive player.
func playRun(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the player needs an interactive terminal")
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	var recorder playback.HistoryRecorder
	var hist *history.Store
	if cfg.History {
		path, err := cfg.HistoryPath()
		if err != nil {
			return fmt.Errorf("resolving history path: %w", err)
		}
		hist, err = history.Open(path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer hist.Close()
		recorder = hist
	}

	mpv, err := player.NewMPV(cfg.Player)
	if err != nil {
		return fmt.Errorf("starting %s: %w", cfg.Player, err)
	}
	defer mpv.Close()

	engine := playback.New(playback.Options{
		Store:          st,
		Player:         mpv,
		Transcriber:    transcribe.NewRunner(cfg.Transcriber),
		History:        recorder,
		AutoTranscribe: cfg.AutoTranscribe,
	})

	prog := tea.NewProgram(tui.New(engine), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
