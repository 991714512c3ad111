package panel

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/deckops/steamback/internal/models"
)

type rowKind int

const (
	rowBackupNow rowKind = iota
	rowReuse
	rowSnapshot
)

// row is one actionable line in the panel.
type row struct {
	kind     rowKind
	label    string
	desc     string
	save     models.SaveInfo // set for rowSnapshot
	disabled bool
}

// buildRows lays the panel out: the backup-now affordance, the reuse-last
// shortcut, then every snapshot. Rows whose game is currently running are
// disabled rather than hidden.
func (m *Model) buildRows() []row {
	var rows []row

	if m.runningGame != nil && m.canBackupNow {
		rows = append(rows, row{
			kind:  rowBackupNow,
			label: fmt.Sprintf("Backup now: %s", m.runningGame.GameName),
			desc:  "Take a snapshot of the current save files",
		})
	}

	if m.lastUsed != nil {
		rows = append(rows, row{
			kind:     rowReuse,
			label:    fmt.Sprintf("Redo restore: %s", m.lastUsed.GameInfo.GameName),
			desc:     "Applies the last restored snapshot again",
			disabled: m.running[m.lastUsed.GameInfo.GameID],
		})
	}

	for _, si := range m.saves {
		verb := "Revert"
		desc := fmt.Sprintf("Snapshot from %s (%s)",
			time.UnixMilli(si.Timestamp).Format("2006-01-02 15:04"),
			relativeTime(time.UnixMilli(si.Timestamp), time.Now()))
		if si.IsUndo {
			verb = "Undo"
			desc = fmt.Sprintf("Reverts recent %s changes", si.GameInfo.GameName)
		}
		rows = append(rows, row{
			kind:     rowSnapshot,
			label:    fmt.Sprintf("%s: %s", verb, si.GameInfo.GameName),
			desc:     desc,
			save:     si,
			disabled: m.running[si.GameInfo.GameID],
		})
	}
	return rows
}

// sortGames orders games by display name with locale-aware comparison.
func sortGames(infos []models.GameInfo) {
	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(infos, func(i, j int) bool {
		return coll.CompareString(infos[i].GameName, infos[j].GameName) < 0
	})
}

// relativeTime renders a short "3 hours ago" style phrase.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
