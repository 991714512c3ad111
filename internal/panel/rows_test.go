package panel

import (
	"strings"
	"testing"
	"time"

	"github.com/deckops/steamback/internal/models"
)

func TestBuildRows_SnapshotLabels(t *testing.T) {
	now := time.Now().UnixMilli()
	m := Model{
		running: map[int]bool{},
		saves: []models.SaveInfo{
			{
				GameInfo:  models.GameInfo{GameID: 1, GameName: "Celeste"},
				Timestamp: now,
				Filename:  "undo_1_1",
				IsUndo:    true,
			},
			{
				GameInfo:  models.GameInfo{GameID: 2, GameName: "Hades"},
				Timestamp: now - 3*60*60*1000,
				Filename:  "save_2_1",
			},
		},
	}

	rows := m.buildRows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if !strings.HasPrefix(rows[0].label, "Undo") {
		t.Errorf("undo row label: %q", rows[0].label)
	}
	if !strings.Contains(rows[0].desc, "Reverts recent Celeste changes") {
		t.Errorf("undo row desc: %q", rows[0].desc)
	}

	if !strings.HasPrefix(rows[1].label, "Revert") {
		t.Errorf("snapshot row label: %q", rows[1].label)
	}
	if !strings.Contains(rows[1].desc, "Snapshot from") || !strings.Contains(rows[1].desc, "3 hours ago") {
		t.Errorf("snapshot row desc: %q", rows[1].desc)
	}
}

func TestBuildRows_RunningGameDisabled(t *testing.T) {
	m := Model{
		running: map[int]bool{2: true},
		saves: []models.SaveInfo{
			{GameInfo: models.GameInfo{GameID: 2, GameName: "Hades"}, Filename: "save_2_1"},
			{GameInfo: models.GameInfo{GameID: 3, GameName: "Tunic"}, Filename: "save_3_1"},
		},
	}

	rows := m.buildRows()
	if !rows[0].disabled {
		t.Error("row for running game must be disabled")
	}
	if rows[1].disabled {
		t.Error("row for stopped game must be enabled")
	}
}

func TestBuildRows_BackupNowAffordance(t *testing.T) {
	gi := models.GameInfo{GameID: 2, GameName: "Hades"}

	m := Model{running: map[int]bool{2: true}, runningGame: &gi}
	if rows := m.buildRows(); len(rows) != 0 {
		t.Errorf("no backup-now row without a successful probe, got %v", rows)
	}

	m.canBackupNow = true
	rows := m.buildRows()
	if len(rows) != 1 || rows[0].kind != rowBackupNow {
		t.Fatalf("expected only the backup-now row, got %v", rows)
	}
	if !strings.Contains(rows[0].label, "Hades") {
		t.Errorf("backup-now label: %q", rows[0].label)
	}
}

func TestSortGames_LocaleAware(t *testing.T) {
	infos := []models.GameInfo{
		{GameName: "celeste"},
		{GameName: "Órbita"},
		{GameName: "Brotato"},
		{GameName: "Apex"},
	}
	sortGames(infos)

	want := []string{"Apex", "Brotato", "celeste", "Órbita"}
	for i, name := range want {
		if infos[i].GameName != name {
			t.Fatalf("expected order %v, got %v", want, infos)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{90 * time.Second, "1 minute ago"},
		{10 * time.Minute, "10 minutes ago"},
		{90 * time.Minute, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{30 * time.Hour, "1 day ago"},
		{75 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		if got := relativeTime(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("relativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
