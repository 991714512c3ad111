package panel

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deckops/steamback/internal/client"
	"github.com/deckops/steamback/internal/models"
)

// countingDaemon serves ok envelopes and counts how many RPC calls arrive.
func countingDaemon(t *testing.T) (*client.Client, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "result": "ok"}`))
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL), &calls
}

func TestConfirmModal_CancelIssuesNoCall(t *testing.T) {
	c, calls := countingDaemon(t)
	m := Model{
		client:  c,
		keys:    newKeyMap(),
		running: map[int]bool{},
		confirm: &pendingConfirm{
			prompt: "Delete this snapshot permanently? There is no undo for delete.",
			cmd:    doDelete(c, models.SaveInfo{Filename: "save_620_1"}),
		},
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	got := updated.(Model)

	if got.confirm != nil {
		t.Fatal("cancelling must dismiss the modal")
	}
	if got.status != "Cancelled" {
		t.Errorf("expected cancelled status, got %q", got.status)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("cancelling must not reach the daemon, saw %d calls", n)
	}
}

func TestConfirmModal_EnterFiresPendingCommand(t *testing.T) {
	c, calls := countingDaemon(t)
	m := Model{
		client:  c,
		keys:    newKeyMap(),
		running: map[int]bool{},
		confirm: &pendingConfirm{
			prompt: "Revert Portal 2 to this snapshot?",
			cmd:    doRestore(c, models.SaveInfo{Filename: "save_620_1"}),
		},
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := updated.(Model)

	if got.confirm != nil {
		t.Fatal("confirming must dismiss the modal")
	}
	if cmd == nil {
		t.Fatal("expected the pending command to be returned")
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("no call may happen before the command runs, saw %d", n)
	}

	if _, ok := cmd().(actionDoneMsg); !ok {
		t.Error("expected the pending command to report completion")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly one call after confirming, got %d", n)
	}
}

func TestResolveRunningGame_SwitchResetsProbe(t *testing.T) {
	m := Model{
		supported: []models.GameInfo{
			{GameID: 1, GameName: "Apex"},
			{GameID: 2, GameName: "Brotato"},
		},
		running: map[int]bool{2: true},
	}
	m.runningGame = &m.supported[0]
	m.canBackupNow = true

	cmd := m.resolveRunningGame()

	if m.runningGame == nil || m.runningGame.GameID != 2 {
		t.Fatalf("expected running game 2, got %+v", m.runningGame)
	}
	if m.canBackupNow {
		t.Error("previous game's probe result must not carry over")
	}
	if cmd == nil {
		t.Error("expected a probe for the newly running game")
	}
}

func TestResolveRunningGame_SameGameKeepsProbe(t *testing.T) {
	m := Model{
		supported: []models.GameInfo{{GameID: 1, GameName: "Apex"}},
		running:   map[int]bool{1: true},
	}
	m.runningGame = &m.supported[0]
	m.canBackupNow = true

	m.resolveRunningGame()

	if !m.canBackupNow {
		t.Error("probe result for the same game must survive re-resolution")
	}
}
