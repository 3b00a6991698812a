package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"sonata/internal/httputil"
	"sonata/internal/linkmeta"
	"sonata/internal/media"
	"sonata/internal/store"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage playlists without opening the player",
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List playlists and their tracks",
	Args:  cobra.NoArgs,
	RunE:  playlistListRun,
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  playlistCreateRun,
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  playlistDeleteRun,
}

var playlistAddCmd = &cobra.Command{
	Use:   "add <playlist> <file>...",
	Short: "Add local files to a playlist",
	Args:  cobra.MinimumNArgs(2),
	RunE:  playlistAddRun,
}

var playlistAddLinkCmd = &cobra.Command{
	Use:   "add-link <playlist> <url>",
	Short: "Add an external video link to a playlist",
	Args:  cobra.ExactArgs(2),
	RunE:  playlistAddLinkRun,
}

var playlistRemoveCmd = &cobra.Command{
	Use:   "remove <playlist> <position>",
	Short: "Remove the track at a 1-based position",
	Args:  cobra.ExactArgs(2),
	RunE:  playlistRemoveRun,
}

var playlistMoveCmd = &cobra.Command{
	Use:   "move <playlist> <from> <to>",
	Short: "Move a track between 1-based positions",
	Args:  cobra.ExactArgs(3),
	RunE:  playlistMoveRun,
}

var playlistCopyCmd = &cobra.Command{
	Use:   "copy <playlist> <position> <target-playlist>",
	Short: "Copy a track into another playlist",
	Args:  cobra.ExactArgs(3),
	RunE:  playlistCopyRun,
}

var playlistSubtitleCmd = &cobra.Command{
	Use:   "subtitle <playlist> <position> <srt-file>",
	Short: "Attach an existing subtitle file to a track",
	Args:  cobra.ExactArgs(3),
	RunE:  playlistSubtitleRun,
}

func init() {
	playlistCmd.AddCommand(playlistListCmd)
	playlistCmd.AddCommand(playlistCreateCmd)
	playlistCmd.AddCommand(playlistDeleteCmd)
	playlistCmd.AddCommand(playlistAddCmd)
	playlistCmd.AddCommand(playlistAddLinkCmd)
	playlistCmd.AddCommand(playlistRemoveCmd)
	playlistCmd.AddCommand(playlistMoveCmd)
	playlistCmd.AddCommand(playlistCopyCmd)
	playlistCmd.AddCommand(playlistSubtitleCmd)
}

// findPlaylist resolves a playlist by name.
func findPlaylist(st *store.Store, name string) (media.Playlist, error) {
	idx := st.IndexByName(name)
	if idx < 0 {
		return media.Playlist{}, fmt.Errorf("no playlist named %q", name)
	}
	pl, _ := st.PlaylistAt(idx)
	return pl, nil
}

func parsePosition(arg string, count int) (int, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil || pos < 1 || pos > count {
		return 0, fmt.Errorf("position %q is out of range (1-%d)", arg, count)
	}
	return pos - 1, nil
}

func playlistListRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	for _, pl := range st.Playlists() {
		fmt.Printf("%s (%d tracks)\n", pl.Name, len(pl.Tracks))
		for i, track := range pl.Tracks {
			marker := " "
			if track.IsFavorite {
				marker = "★"
			}
			fmt.Printf("  %2d. %s %s  [%s]\n", i+1, marker, track.Title, track.Kind)
		}
	}
	return nil
}

func playlistCreateRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	pl, err := st.CreatePlaylist(args[0])
	if err != nil {
		return fmt.Errorf("creating playlist: %w", err)
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("Created playlist %q.\n", pl.Name)
	return nil
}

func playlistDeleteRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	pl, err := findPlaylist(st, args[0])
	if err != nil {
		return err
	}
	if err := st.DeletePlaylist(pl.ID); err != nil {
		if errors.Is(err, store.ErrLastPlaylist) {
			return fmt.Errorf("cannot delete the only remaining playlist")
		}
		return err
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("Deleted playlist %q.\n", pl.Name)
	return nil
}

func playlistAddRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	pl, err := findPlaylist(st, args[0])
	if err != nil {
		return err
	}

	for _, file := range args[1:] {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", file, err)
		}
		track := media.Track{
			Kind:     media.LocalFile,
			FilePath: abs,
			Title:    filepath.Base(abs),
		}
		added, err := st.AddTrack(pl.ID, track)
		if errors.Is(err, store.ErrDuplicateTrack) {
			fmt.Printf("Already in %s: %s\n", pl.Name, added.Title)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("Added %s\n", added.Title)
	}
	return st.Save()
}

func playlistAddLinkRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	pl, err := findPlaylist(st, args[0])
	if err != nil {
		return err
	}

	track, err := linkmeta.NewTrack(args[1], httputil.NewClient())
	if err != nil {
		return fmt.Errorf("adding link: %w", err)
	}
	debugf("resolved link %s to video %s", args[1], track.VideoID)

	added, err := st.AddTrack(pl.ID, track)
	if errors.Is(err, store.ErrDuplicateTrack) {
		fmt.Printf("Already in %s: %s\n", pl.Name, added.Title)
		return nil
	}
	if err != nil {
		return err
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("Added %s\n", added.Title)
	return nil
}

func playlistRemoveRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	pl, err := findPlaylist(st, args[0])
	if err != nil {
		return err
	}
	idx, err := parsePosition(args[1], len(pl.Tracks))
	if err != nil {
		return err
	}

	title := pl.Tracks[idx].Title
	if err := st.RemoveTrack(pl.ID, idx); err != nil {
		return err
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", title)
	return nil
}

func playlistMoveRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	pl, err := findPlaylist(st, args[0])
	if err != nil {
		return err
	}
	from, err := parsePosition(args[1], len(pl.Tracks))
	if err != nil {
		return err
	}
	to, err := parsePosition(args[2], len(pl.Tracks))
	if err != nil {
		return err
	}

	if err := st.MoveTrack(pl.ID, from, to); err != nil {
		return err
	}
	return st.Save()
}

func playlistCopyRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	src, err := findPlaylist(st, args[0])
	if err != nil {
		return err
	}
	idx, err := parsePosition(args[1], len(src.Tracks))
	if err != nil {
		return err
	}
	dst, err := findPlaylist(st, args[2])
	if err != nil {
		return err
	}

	track := src.Tracks[idx]
	added, err := st.AddTrack(dst.ID, track)
	if errors.Is(err, store.ErrDuplicateTrack) {
		fmt.Printf("Already in %s: %s\n", dst.Name, added.Title)
		return nil
	}
	if err != nil {
		return err
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("Copied %s to %s\n", added.Title, dst.Name)
	return nil
}

func playlistSubtitleRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	pl, err := findPlaylist(st, args[0])
	if err != nil {
		return err
	}
	idx, err := parsePosition(args[1], len(pl.Tracks))
	if err != nil {
		return err
	}

	srtPath, err := filepath.Abs(args[2])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[2], err)
	}
	if _, err := os.Stat(srtPath); err != nil {
		return fmt.Errorf("subtitle file missing: %s", srtPath)
	}

	if err := st.SetTrackSubtitlePath(pl.ID, idx, srtPath); err != nil {
		return err
	}
	if err := st.Save(); err != nil {
		return err
	}
	fmt.Printf("Attached %s to %s\n", filepath.Base(srtPath), pl.Tracks[idx].Title)
	return nil
}
