// Package ui is the terminal playlist editor.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/justestif/go-tuttitracks/internal/editor"
	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/reorder"
)

type pane int

const (
	playlistPane pane = iota
	likedPane
)

// resultMsg is a handled editor event.
type resultMsg editor.Result

// noticeMsg is a failed background move.
type noticeMsg struct {
	err error
}

// Model is the editor screen: the playlist on the left and a page of liked
// tracks on the right.
//
// Every change goes through the dispatcher as an event. Update only posts
// events; the session is read back when their results arrive.
type Model struct {
	session    *editor.Session
	dispatcher *editor.Dispatcher
	board      *Board
	notices    *Notices
	logger     *log.Logger

	keys   keyMap
	help   help.Model
	name   textinput.Model
	naming bool

	focus       pane
	cursor      int
	likedCursor int
	dragging    bool
	pending     int // posted events without a result yet

	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel creates the editor screen. board must be the presenter the
// session was created with, and notices its notifier.
func NewModel(session *editor.Session, d *editor.Dispatcher, board *Board, notices *Notices, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	name := textinput.New()
	name.Placeholder = "Playlist name"
	name.CharLimit = 100

	return &Model{
		session:    session,
		dispatcher: d,
		board:      board,
		notices:    notices,
		logger:     logger,
		keys:       newKeyMap(),
		help:       help.New(),
		name:       name,
	}
}

// Init loads the first page of liked tracks and starts listening for
// results.
func (m *Model) Init() tea.Cmd {
	m.post(editor.PageChanged{})
	return tea.Batch(
		waitForResult(m.dispatcher),
		waitForNotice(m.notices),
	)
}

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case resultMsg:
		m.applyResult(editor.Result(msg))
		return m, waitForResult(m.dispatcher)

	case noticeMsg:
		m.setError(msg.err)
		return m, waitForNotice(m.notices)

	case tea.KeyMsg:
		if m.naming {
			return m.handleNameKeys(msg)
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.cancel):
		if m.dragging {
			m.dragging = false
			m.post(editor.DragCancelled{})
			m.board.Set(m.session.Items())
		}

	case key.Matches(msg, m.keys.focus):
		if !m.dragging {
			if m.focus == playlistPane {
				m.focus = likedPane
			} else {
				m.focus = playlistPane
			}
		}

	case key.Matches(msg, m.keys.add):
		m.addSelected()

	case key.Matches(msg, m.keys.pick):
		if m.focus == likedPane {
			m.addSelected()
			break
		}
		m.togglePick()

	case key.Matches(msg, m.keys.remove):
		if m.focus == playlistPane && !m.dragging {
			if items := m.board.Items(); m.cursor < len(items) {
				m.post(editor.TrackRemoved{ID: items[m.cursor].ID})
			}
		}

	case key.Matches(msg, m.keys.save):
		if !m.dragging {
			m.naming = true
			m.name.SetValue(m.session.Name())
			m.name.CursorEnd()
			return m, m.name.Focus()
		}

	case key.Matches(msg, m.keys.next):
		m.post(editor.PageChanged{Delta: 1})

	case key.Matches(msg, m.keys.prev):
		m.post(editor.PageChanged{Delta: -1})
	}
	return m, nil
}

func (m *Model) handleNameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.naming = false
		m.name.Blur()
		m.post(editor.PlaylistSaved{Name: strings.TrimSpace(m.name.Value())})
		return m, nil
	case tea.KeyEsc:
		m.naming = false
		m.name.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	return m, cmd
}

// moveCursor moves the cursor of the focused pane. While a track is picked
// up it travels with the cursor.
func (m *Model) moveCursor(delta int) {
	if m.focus == likedPane {
		m.likedCursor = clamp(m.likedCursor+delta, len(m.likedTracks()))
		return
	}
	next := m.cursor + delta
	if m.dragging {
		if !m.board.Swap(m.cursor, next) {
			return
		}
	}
	m.cursor = clamp(next, m.board.Len())
}

func (m *Model) togglePick() {
	if m.dragging {
		m.dragging = false
		m.post(editor.DragEnded{Index: m.cursor})
		return
	}
	if m.board.Len() < 2 {
		return
	}
	// The board must match the session before tracks start moving on it.
	if m.pending > 0 {
		m.status, m.statusErr = "Still applying changes, try again", true
		return
	}
	m.dragging = true
	m.post(editor.DragStarted{Index: m.cursor})
}

func (m *Model) addSelected() {
	if m.focus != likedPane || m.dragging {
		return
	}
	tracks := m.likedTracks()
	if m.likedCursor >= len(tracks) {
		return
	}
	t := tracks[m.likedCursor]
	m.post(editor.TrackAdded{Item: reorder.Item{ID: t.ID, Name: trackLabel(t)}})
}

func (m *Model) post(ev any) {
	if err := m.dispatcher.Post(ev); err != nil {
		m.setError(err)
		return
	}
	m.pending++
}

func (m *Model) applyResult(res editor.Result) {
	m.pending = max(m.pending-1, 0)
	if res.Err != nil {
		m.logger.Debug("event failed", "event", fmt.Sprintf("%T", res.Event), "err", res.Err)
		if _, ok := res.Event.(editor.DragStarted); ok {
			m.dragging = false
		}
		m.setError(res.Err)
	} else {
		m.status, m.statusErr = describe(res), false
		if _, ok := res.Event.(editor.PageChanged); ok {
			m.likedCursor = clamp(m.likedCursor, len(m.likedTracks()))
		}
	}

	if !m.dragging {
		m.board.Set(m.session.Items())
		m.cursor = clamp(m.cursor, m.board.Len())
	}
}

func (m *Model) setError(err error) {
	switch {
	case errors.Is(err, reorder.ErrRemoteRequestFailed):
		m.status = "Move not saved: " + err.Error()
	case errors.Is(err, editor.ErrStopped):
		m.status = "Editor stopped"
	default:
		m.status = err.Error()
	}
	m.statusErr = true
}

func describe(res editor.Result) string {
	switch ev := res.Event.(type) {
	case editor.PlaylistSaved:
		return fmt.Sprintf("Saved %q", ev.Name)
	case editor.TrackAdded:
		return "Added " + ev.Item.Name
	case editor.TrackRemoved:
		return "Removed track"
	case editor.DragEnded:
		if out, ok := res.Value.(reorder.Outcome); ok && out.Kind == reorder.OutcomeDispatched {
			return fmt.Sprintf("Moved track %d to %d", out.Request.CurrentIndex+1, out.Request.NewIndex+1)
		}
	}
	return ""
}

func (m *Model) likedTracks() []features.Track {
	if page := m.session.Liked(); page != nil {
		return page.Tracks
	}
	return nil
}

// View renders the editor.
func (m *Model) View() string {
	title := m.session.Name()
	if title == "" {
		title = "New playlist"
	}
	if m.session.PlaylistID() == "" {
		title += " (unsaved)"
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.paneStyle(playlistPane).Render(m.renderPlaylist()),
		m.paneStyle(likedPane).Render(m.renderLiked()),
	)

	var b strings.Builder
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	b.WriteString(panes)
	b.WriteString("\n")
	if m.naming {
		b.WriteString(m.name.View())
		b.WriteString("\n")
	}
	if m.status != "" {
		style := styles.ok
		if m.statusErr {
			style = styles.err
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) paneStyle(p pane) lipgloss.Style {
	if m.focus == p {
		return styles.focused
	}
	return styles.pane
}

func (m *Model) renderPlaylist() string {
	items := m.board.Items()
	if len(items) == 0 {
		return styles.dim.Render("No tracks yet")
	}
	lines := make([]string, len(items))
	for i, it := range items {
		line := fmt.Sprintf("%2d. %s", i+1, it.Name)
		switch {
		case i == m.cursor && m.dragging:
			line = styles.picked.Render("≡ " + line)
		case i == m.cursor && m.focus == playlistPane:
			line = styles.cursor.Render("> " + line)
		default:
			line = "  " + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderLiked() string {
	page := m.session.Liked()
	if page == nil {
		return styles.dim.Render("Loading liked tracks...")
	}
	if len(page.Tracks) == 0 {
		return styles.dim.Render("No liked tracks")
	}

	lines := make([]string, 0, len(page.Tracks)+1)
	lines = append(lines, styles.dim.Render(fmt.Sprintf("Liked %d-%d of %d",
		page.Offset+1, page.Offset+len(page.Tracks), page.Total)))
	for i, t := range page.Tracks {
		line := trackLabel(t)
		if i == m.likedCursor && m.focus == likedPane {
			line = styles.cursor.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func trackLabel(t features.Track) string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " - " + t.Name
}

// clamp keeps i within [0, n).
func clamp(i, n int) int {
	return max(min(i, n-1), 0)
}

func waitForResult(d *editor.Dispatcher) tea.Cmd {
	return func() tea.Msg {
		select {
		case res := <-d.Results():
			return resultMsg(res)
		case <-d.Done():
			return nil
		}
	}
}

func waitForNotice(n *Notices) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-n.C()
		if !ok {
			return nil
		}
		return noticeMsg{err: err}
	}
}
