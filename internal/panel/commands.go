package panel

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deckops/steamback/internal/client"
	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/steam"
)

const statusDuration = 4 * time.Second

type gamesMsg struct {
	supported []models.GameInfo
	err       error
}

type savesMsg struct {
	infos []models.SaveInfo
	err   error
}

type lastUsedMsg struct {
	save *models.SaveInfo
	err  error
}

type probeMsg struct {
	gameID    int
	wouldWork bool
	err       error
}

type lifetimeMsg struct {
	event models.LifetimeEvent
	ok    bool // false when the stream closed
}

type actionDoneMsg struct {
	toast   string
	refresh bool
	err     error
}

type clearStatusMsg struct{ seq int }

// fetchGames resolves installed games locally, keeps only those in mounted
// library folders, and asks the daemon which of them it supports.
func fetchGames(c *client.Client, layout *steam.Layout) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		libs, err := layout.LibraryPaths()
		if err != nil {
			return gamesMsg{err: err}
		}
		mounted, err := c.FindMounted(ctx, libs)
		if err != nil {
			return gamesMsg{err: err}
		}
		mountedSet := map[string]struct{}{}
		for _, d := range mounted {
			mountedSet[d] = struct{}{}
		}

		all, err := layout.AllGameInfo()
		if err != nil {
			return gamesMsg{err: err}
		}
		var candidates []models.GameInfo
		for _, gi := range all {
			if _, ok := mountedSet[gi.InstallRoot]; ok {
				candidates = append(candidates, gi)
			}
		}

		supported, err := c.FindSupported(ctx, candidates)
		if err != nil {
			return gamesMsg{err: err}
		}
		sortGames(supported)
		return gamesMsg{supported: supported}
	}
}

func fetchSaves(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		infos, err := c.GetSaveInfos(context.Background())
		return savesMsg{infos: infos, err: err}
	}
}

func fetchLastUsed(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		si, err := c.GetLastUsedSaveInfo(context.Background())
		return lastUsedMsg{save: si, err: err}
	}
}

// probeBackup asks the daemon, via a dry run, whether a real backup of the
// game would succeed. Drives the backup-now affordance.
func probeBackup(c *client.Client, gi models.GameInfo) tea.Cmd {
	return func() tea.Msg {
		_, ok, err := c.DoBackup(context.Background(), gi, true)
		return probeMsg{gameID: gi.GameID, wouldWork: ok, err: err}
	}
}

func doBackup(c *client.Client, gi models.GameInfo) tea.Cmd {
	return func() tea.Msg {
		si, ok, err := c.DoBackup(context.Background(), gi, false)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if !ok || si == nil {
			return actionDoneMsg{toast: "No backup needed"}
		}
		return actionDoneMsg{toast: "Snapshot taken of " + gi.GameName, refresh: true}
	}
}

func doRestore(c *client.Client, si models.SaveInfo) tea.Cmd {
	return func() tea.Msg {
		if err := c.DoRestore(context.Background(), si); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{toast: "Reverted " + si.GameInfo.GameName + " save files", refresh: true}
	}
}

func doReuse(c *client.Client, name string) tea.Cmd {
	return func() tea.Msg {
		if err := c.DoReuse(context.Background()); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{toast: "Applied last restore to " + name, refresh: true}
	}
}

func doDelete(c *client.Client, si models.SaveInfo) tea.Cmd {
	return func() tea.Msg {
		if err := c.DoDelete(context.Background(), si); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{toast: "Deleted snapshot", refresh: true}
	}
}

// waitForEvent blocks on the lifetime stream until the next event.
func waitForEvent(ch <-chan models.LifetimeEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return lifetimeMsg{event: ev, ok: ok}
	}
}

func clearStatusAfter(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
