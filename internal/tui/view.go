package tui

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sonata/internal/media"
	"sonata/internal/playback"
)

const (
	controlRows      = 4
	transcriptChrome = 4
	maxListRows      = 12
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	playlistStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	cueTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

func listHeight(total int) int {
	h := total / 2
	if h > maxListRows {
		h = maxListRows
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString(m.transcript.View())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) headerView() string {
	pl, ok := m.engine.Playlist()
	name := "(no playlist)"
	if ok {
		name = pl.Name
	}

	flags := make([]string, 0, 3)
	if m.engine.Shuffle() {
		flags = append(flags, "shuffle")
	}
	if m.engine.Repeat() {
		flags = append(flags, "repeat")
	}
	if m.engine.Muted() {
		flags = append(flags, "muted")
	} else {
		flags = append(flags, fmt.Sprintf("vol %d%%", m.engine.Volume()))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("sonata "),
		playlistStyle.Render(name),
		dimStyle.Render("  ["+strings.Join(flags, " ")+"]"),
	)
}

func (m Model) listView() string {
	pl, ok := m.engine.Playlist()
	if !ok || len(pl.Tracks) == 0 {
		return dimStyle.Render("  playlist is empty")
	}

	rows := listHeight(m.height)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(pl.Tracks) {
		end = len(pl.Tracks)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.trackRow(pl.Tracks[i], i))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) trackRow(track media.Track, idx int) string {
	marker := "  "
	if idx == m.engine.TrackIndex() {
		switch m.engine.State() {
		case playback.StatePlaying:
			marker = "▶ "
		case playback.StatePaused:
			marker = "⏸ "
		case playback.StateLoading:
			marker = "… "
		default:
			marker = "■ "
		}
	}

	label := track.Title
	if track.ChannelTitle != "" && track.Kind == media.RemoteLink {
		label += dimStyle.Render(" · " + track.ChannelTitle)
	}
	if track.IsFavorite {
		label += " ★"
	}

	line := fmt.Sprintf("%s%2d. %s", marker, idx+1, label)
	switch {
	case idx == m.cursor:
		return selectedStyle.Render(line)
	case idx == m.engine.TrackIndex():
		return playingStyle.Render(line)
	default:
		return line
	}
}

func (m Model) statusView() string {
	if m.jumping {
		return "jump to: " + m.jumpInput.View()
	}
	if status := m.engine.Status(); status != "" {
		return statusStyle.Render(status)
	}

	track, ok := m.engine.CurrentTrack()
	if !ok {
		return dimStyle.Render(m.engine.State().String())
	}
	if track.Kind == media.RemoteLink {
		return dimStyle.Render(fmt.Sprintf("%s  %s", m.engine.State(), track.WatchURL()))
	}
	return dimStyle.Render(fmt.Sprintf("%s  %s / %s",
		m.engine.State(),
		formatClock(m.engine.Position()),
		formatClock(m.engine.Duration())))
}

var (
	anchorTagRe = regexp.MustCompile(`<a href="[^"]*">([^<]*)</a>`)
	paraOpenRe  = regexp.MustCompile(`<p(?: class="([a-z]+)")?>`)
)

// renderTranscript converts the engine's paragraph markup into styled
// terminal lines.
func renderTranscript(markup string) string {
	if markup == "" {
		return dimStyle.Render("no subtitles")
	}

	var b strings.Builder
	for _, para := range strings.Split(markup, "</p>") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		class := ""
		if loc := paraOpenRe.FindStringSubmatchIndex(para); loc != nil {
			if loc[2] >= 0 {
				class = para[loc[2]:loc[3]]
			}
			para = para[loc[1]:]
		}
		para = anchorTagRe.ReplaceAllString(para, cueTimeStyle.Render("$1"))
		para = html.UnescapeString(para)

		switch class {
		case "notice":
			b.WriteString(noticeStyle.Render(para))
		case "progress":
			b.WriteString(progressStyle.Render(para))
		default:
			b.WriteString(para)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
