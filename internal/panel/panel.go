// Package panel implements the interactive steamback panel: a list of
// snapshot rows with confirmation-gated restore, delete and reuse actions,
// a backup-now affordance for the running game, and toast-style status.
package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/deckops/steamback/internal/client"
	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/steam"
)

type eventsMsg struct {
	ch  <-chan models.LifetimeEvent
	err error
}

// pendingConfirm is a modal awaiting the user's decision. The command fires
// only on explicit confirmation; cancelling issues no RPC at all.
type pendingConfirm struct {
	prompt string
	cmd    tea.Cmd
}

// Model is the bubbletea model for the panel.
type Model struct {
	client *client.Client
	layout *steam.Layout
	keys   keyMap

	width  int
	height int

	supported    []models.GameInfo
	saves        []models.SaveInfo
	lastUsed     *models.SaveInfo
	running      map[int]bool
	runningGame  *models.GameInfo
	canBackupNow bool

	events  <-chan models.LifetimeEvent
	cursor  int
	confirm *pendingConfirm

	status    string
	statusSeq int
	lastErr   string
	loading   bool
}

// New creates a panel model talking to the given daemon.
func New(c *client.Client, layout *steam.Layout) Model {
	return Model{
		client:  c,
		layout:  layout,
		keys:    newKeyMap(),
		running: map[int]bool{},
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchGames(m.client, m.layout),
		fetchSaves(m.client),
		fetchLastUsed(m.client),
		connectEvents(m.client),
	)
}

func connectEvents(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ch, err := c.Events(context.Background())
		return eventsMsg{ch: ch, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case gamesMsg:
		m.loading = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.supported = msg.supported
		return m, m.resolveRunningGame()

	case savesMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.saves = msg.infos
		m.clampCursor()
		return m, nil

	case lastUsedMsg:
		if msg.err == nil {
			m.lastUsed = msg.save
		}
		return m, nil

	case probeMsg:
		if m.runningGame != nil && msg.gameID == m.runningGame.GameID && msg.err == nil {
			m.canBackupNow = msg.wouldWork
		}
		return m, nil

	case eventsMsg:
		if msg.err != nil {
			m.lastErr = "event stream unavailable: " + msg.err.Error()
			return m, nil
		}
		m.events = msg.ch
		return m, waitForEvent(m.events)

	case lifetimeMsg:
		if !msg.ok {
			m.lastErr = "event stream closed"
			return m, nil
		}
		return m.handleLifetime(msg.event)

	case actionDoneMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		cmds := []tea.Cmd{m.setStatus(msg.toast)}
		if msg.refresh {
			cmds = append(cmds, fetchSaves(m.client), fetchLastUsed(m.client))
			if m.runningGame != nil {
				cmds = append(cmds, probeBackup(m.client, *m.runningGame))
			}
		}
		return m, tea.Batch(cmds...)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch {
		case key.Matches(msg, m.keys.Enter):
			cmd := m.confirm.cmd
			m.confirm = nil
			return *m, cmd
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
			m.confirm = nil
			return *m, m.setStatus("Cancelled")
		}
		return *m, nil
	}

	rows := m.buildRows()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return *m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		return *m, tea.Batch(fetchGames(m.client, m.layout), fetchSaves(m.client), fetchLastUsed(m.client))
	case key.Matches(msg, m.keys.Enter):
		if m.cursor < len(rows) {
			return m.activate(rows[m.cursor])
		}
	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(rows) {
			return m.deleteRow(rows[m.cursor])
		}
	}
	return *m, nil
}

// activate runs a row's primary action. Backup needs no confirmation, the
// destructive actions do.
func (m *Model) activate(r row) (tea.Model, tea.Cmd) {
	if r.disabled {
		return *m, m.setStatus("Stop the game before using this snapshot")
	}

	switch r.kind {
	case rowBackupNow:
		return *m, doBackup(m.client, *m.runningGame)
	case rowReuse:
		name := m.lastUsed.GameInfo.GameName
		m.confirm = &pendingConfirm{
			prompt: fmt.Sprintf("Apply the last restored snapshot to %s again?", name),
			cmd:    doReuse(m.client, name),
		}
	case rowSnapshot:
		prompt := fmt.Sprintf("Revert %s to this snapshot?", r.save.GameInfo.GameName)
		if r.save.IsUndo {
			prompt = fmt.Sprintf("Undo the recent %s changes?", r.save.GameInfo.GameName)
		}
		m.confirm = &pendingConfirm{
			prompt: prompt,
			cmd:    doRestore(m.client, r.save),
		}
	}
	return *m, nil
}

func (m *Model) deleteRow(r row) (tea.Model, tea.Cmd) {
	if r.kind != rowSnapshot {
		return *m, nil
	}
	if r.disabled {
		return *m, m.setStatus("Stop the game before deleting this snapshot")
	}
	m.confirm = &pendingConfirm{
		prompt: "Delete this snapshot permanently? There is no undo for delete.",
		cmd:    doDelete(m.client, r.save),
	}
	return *m, nil
}

func (m *Model) handleLifetime(ev models.LifetimeEvent) (tea.Model, tea.Cmd) {
	m.running[ev.AppID] = ev.Running
	if !ev.Running {
		delete(m.running, ev.AppID)
	}

	cmds := []tea.Cmd{waitForEvent(m.events)}
	if ev.Running {
		cmds = append(cmds, m.resolveRunningGame())
	} else {
		if m.runningGame != nil && m.runningGame.GameID == ev.AppID {
			m.runningGame = nil
			m.canBackupNow = false
		}
		// the daemon may have taken an exit backup, pick it up
		cmds = append(cmds, fetchSaves(m.client))
	}
	return *m, tea.Batch(cmds...)
}

// resolveRunningGame matches the running-app set against the supported game
// list and, when a match is found, probes whether a backup would succeed.
func (m *Model) resolveRunningGame() tea.Cmd {
	for i := range m.supported {
		if m.running[m.supported[i].GameID] {
			// the probe result belongs to the previous game
			if m.runningGame == nil || m.runningGame.GameID != m.supported[i].GameID {
				m.canBackupNow = false
			}
			m.runningGame = &m.supported[i]
			return probeBackup(m.client, m.supported[i])
		}
	}
	return nil
}

func (m *Model) setStatus(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	m.status = text
	m.statusSeq++
	return clearStatusAfter(m.statusSeq, statusDuration)
}

func (m *Model) clampCursor() {
	if n := len(m.buildRows()); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	} else if n == 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Steamback"))
	b.WriteString("\n\n")

	if m.confirm != nil {
		modal := modalStyle.Render(m.confirm.prompt + "\n\n" +
			helpStyle.Render("enter confirm · esc cancel"))
		if m.width > 0 {
			modal = lipgloss.Place(m.width, lipgloss.Height(modal), lipgloss.Center, lipgloss.Top, modal)
		}
		b.WriteString(modal)
		b.WriteString("\n")
		return b.String()
	}

	switch {
	case m.loading:
		b.WriteString(descStyle.Render("Loading..."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render("error: " + m.lastErr))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter select · d delete · r refresh · q quit"))
	return b.String()
}

func (m Model) renderRows() string {
	rows := m.buildRows()
	if len(rows) == 0 {
		return descStyle.Render("No snapshots yet. Play a supported game to create one.") + "\n"
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Snapshots (%d supported games)", len(m.supported))))
	b.WriteString("\n")
	for i, r := range rows {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		style := rowStyle
		label := r.label
		if r.disabled {
			style = disabledStyle
			label += " (running)"
		}
		b.WriteString(prefix + style.Render(label) + "\n")
		b.WriteString("    " + descStyle.Render(r.desc) + "\n")
	}
	return b.String()
}
