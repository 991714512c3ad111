package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deckops/steamback/internal/config"
	"github.com/deckops/steamback/internal/database"
	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/steam"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// setupWatcher builds a steam root with one installed game whose saves live
// in the userdata remote directory, plus a watcher over it. The returned path
// is the game's save root.
func setupWatcher(t *testing.T) (*WatcherService, *SnapshotService, string) {
	t.Helper()
	steamRoot := t.TempDir()
	dataDir := t.TempDir()

	mustWrite(t, filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf"), `"libraryfolders"
{
	"0"
	{
		"path"		"`+steamRoot+`"
	}
}
`)
	mustWrite(t, filepath.Join(steamRoot, "steamapps", "appmanifest_620.acf"), `"AppState"
{
	"appid"		"620"
	"name"		"Portal 2"
	"installdir"		"Portal 2"
}
`)

	gameDir := filepath.Join(steamRoot, "userdata", "111", "620")
	mustWrite(t, filepath.Join(gameDir, "remotecache.vdf"), `"620"
{
	"ChangeNumber"		"1"
	"SAVE_GAME_0"
	{
		"root"		"2"
	}
}
`)
	saveRoot := filepath.Join(gameDir, "remote")
	mustWrite(t, filepath.Join(saveRoot, "SAVE_GAME_0"), "save data")

	cfg := &config.Config{
		Steam:  config.SteamConfig{RootDir: steamRoot, AccountIDs: []int{111}},
		Data:   config.DataConfig{Dir: dataDir, DatabasePath: filepath.Join(dataDir, "test.db")},
		Backup: config.BackupConfig{MaxSaves: 50, AlwaysBackup: true},
	}

	db, err := database.New(cfg.Data.DatabasePath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	layout := steam.NewLayout(steamRoot)
	svc := NewSnapshotService(db, cfg, layout, NewAuditService(db))
	w := NewWatcherService(svc, layout, time.Minute)
	return w, svc, saveRoot
}

func nextEvent(t *testing.T, ch chan models.LifetimeEvent) models.LifetimeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lifetime event")
		return models.LifetimeEvent{}
	}
}

func (w *WatcherService) isDirty(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	g, ok := w.running[id]
	return ok && g.dirty
}

func TestWatcher_StartStopAndExitBackup(t *testing.T) {
	w, svc, _ := setupWatcher(t)

	current := map[int]struct{}{620: {}}
	w.scan = func(context.Context) (map[int]struct{}, error) { return current, nil }

	ch := w.Subscribe()
	defer w.Unsubscribe(ch)

	ctx := context.Background()
	w.poll(ctx)

	ev := nextEvent(t, ch)
	if ev.AppID != 620 || !ev.Running {
		t.Fatalf("expected start event for 620, got %+v", ev)
	}
	if ids := w.RunningIDs(); len(ids) != 1 || ids[0] != 620 {
		t.Fatalf("expected running set [620], got %v", ids)
	}

	// a second poll with the same set must not re-announce the game
	w.poll(ctx)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event while running set unchanged: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	// save data changed while the game ran
	w.markDirty(620)

	current = map[int]struct{}{}
	w.poll(ctx)

	ev = nextEvent(t, ch)
	if ev.AppID != 620 || ev.Running {
		t.Fatalf("expected stop event for 620, got %+v", ev)
	}

	infos, err := svc.GetSaveInfos()
	if err != nil {
		t.Fatalf("get saveinfos: %v", err)
	}
	if len(infos) != 1 || infos[0].GameInfo.GameID != 620 {
		t.Fatalf("expected an exit backup for 620, got %v", infos)
	}
}

func TestWatcher_CleanExitSkipsBackup(t *testing.T) {
	w, svc, _ := setupWatcher(t)

	current := map[int]struct{}{620: {}}
	w.scan = func(context.Context) (map[int]struct{}, error) { return current, nil }

	ctx := context.Background()
	w.poll(ctx)

	// no save writes while the game ran
	current = map[int]struct{}{}
	w.poll(ctx)

	infos, err := svc.GetSaveInfos()
	if err != nil {
		t.Fatalf("get saveinfos: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("clean exit must skip the backup, got %v", infos)
	}
}

func TestWatcher_SaveWriteMarksDirty(t *testing.T) {
	w, _, saveRoot := setupWatcher(t)

	current := map[int]struct{}{620: {}}
	w.scan = func(context.Context) (map[int]struct{}, error) { return current, nil }

	w.poll(context.Background())
	if w.isDirty(620) {
		t.Fatal("game must start out clean")
	}

	mustWrite(t, filepath.Join(saveRoot, "SAVE_GAME_0"), "changed save data")

	deadline := time.Now().Add(2 * time.Second)
	for !w.isDirty(620) {
		if time.Now().After(deadline) {
			t.Fatal("save write was never noticed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
