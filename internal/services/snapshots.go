package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/deckops/steamback/internal/config"
	"github.com/deckops/steamback/internal/database"
	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/steam"
)

var (
	// ErrNotSupported indicates the game has no readable remotecache data,
	// so its saves cannot be mirrored.
	ErrNotSupported = errors.New("game not supported for backup")
	// ErrNoAccounts indicates no Steam account ID has been configured or
	// detected yet.
	ErrNoAccounts = errors.New("no steam accounts configured")
	// ErrBadFilename indicates a snapshot filename that does not match the
	// save_<id>_<ts> / undo_<id>_<ts> pattern.
	ErrBadFilename = errors.New("invalid snapshot filename")
)

// filenamePattern is the only shape of snapshot name the service will touch
// on disk. Everything destructive validates against it first.
var filenamePattern = regexp.MustCompile(`^(save|undo)_\d+_\d+$`)

// SnapshotService owns the snapshot mirror under the data directory and the
// catalog rows describing it.
type SnapshotService struct {
	db     *database.DB
	cfg    *config.Config
	layout *steam.Layout
	audit  *AuditService

	// opMu serializes mutating operations. Two concurrent restores into
	// the same game directory would interleave file copies.
	opMu sync.Mutex

	mu         sync.Mutex
	accountIDs map[int]struct{}
	lastUsed   *models.SaveInfo
}

// NewSnapshotService creates a SnapshotService, seeding account IDs from the
// configuration.
func NewSnapshotService(db *database.DB, cfg *config.Config, layout *steam.Layout, audit *AuditService) *SnapshotService {
	s := &SnapshotService{
		db:         db,
		cfg:        cfg,
		layout:     layout,
		audit:      audit,
		accountIDs: map[int]struct{}{},
	}
	for _, id := range cfg.Steam.AccountIDs {
		s.accountIDs[id] = struct{}{}
	}
	return s
}

// AddAccountID registers a Steam account whose userdata should be mirrored.
func (s *SnapshotService) AddAccountID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountIDs[id] = struct{}{}
}

// AccountIDs returns the registered account IDs in ascending order.
func (s *SnapshotService) AccountIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.accountIDs))
	for id := range s.accountIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AutoDetectAccounts scans the Steam userdata directory and registers every
// account found there.
func (s *SnapshotService) AutoDetectAccounts() ([]int, error) {
	ids, err := s.layout.DetectAccountIDs()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.AddAccountID(id)
	}
	return ids, nil
}

// GetLastUsed returns the most recently restored or reused snapshot, or nil.
func (s *SnapshotService) GetLastUsed() *models.SaveInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *SnapshotService) setLastUsed(si *models.SaveInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = si
}

// savesDir returns the snapshot mirror directory, creating it if needed.
func (s *SnapshotService) savesDir() (string, error) {
	dir := s.cfg.SavesDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}

// gameDirs returns the per-account userdata directories for a game.
func (s *SnapshotService) gameDirs(gameID int) ([]string, error) {
	ids := s.AccountIDs()
	if len(ids) == 0 {
		return nil, ErrNoAccounts
	}
	dirs := make([]string, 0, len(ids))
	for _, id := range ids {
		dirs = append(dirs, s.layout.GameDir(id, gameID))
	}
	return dirs, nil
}

func (s *SnapshotService) newSaveInfo(gi models.GameInfo, isUndo bool) models.SaveInfo {
	kind := "save"
	if isUndo {
		kind = "undo"
	}
	ts := time.Now().UnixMilli()
	return models.SaveInfo{
		GameInfo:  gi,
		Timestamp: ts,
		Filename:  fmt.Sprintf("%s_%d_%d", kind, gi.GameID, ts),
		IsUndo:    isUndo,
	}
}

// saveInfoDir returns the base mirror directory for a snapshot. Multi-root
// games use this path plus the per-root suffix.
func (s *SnapshotService) saveInfoDir(si *models.SaveInfo) (string, error) {
	dir, err := s.savesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, si.Filename), nil
}

// DoBackup snapshots a game's save files. It returns (nil, false) when no
// backup is possible or needed, (nil, true) for a feasible dry run, and the
// new SaveInfo for a real backup.
func (s *SnapshotService) DoBackup(gi *models.GameInfo, dryRun, applyLastUsed bool) (*models.SaveInfo, bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	log.Printf("[Snapshot] attempting backup of %d (%s)", gi.GameID, gi.GameName)
	rcf, err := s.readRcf(gi)
	if err != nil {
		return nil, false, err
	}
	if len(rcf) == 0 {
		return nil, false, nil
	}

	newest, err := s.newestSave(gi.GameID)
	if err != nil {
		return nil, false, err
	}
	if newest != nil && !s.cfg.Backup.AlwaysBackup {
		if newest.Timestamp > s.rcfTimestamp(rcf, gi) {
			log.Printf("[Snapshot] skipping backup for %d: no changed files", gi.GameID)
			return nil, false, nil
		}
	}

	if dryRun {
		return nil, true, nil
	}

	si := s.newSaveInfo(*gi, false)
	if err := s.insertSnapshot(&si); err != nil {
		return nil, false, err
	}
	if err := s.copyAllToSnapshot(&si, rcf); err != nil {
		return nil, false, err
	}
	if applyLastUsed {
		s.setLastUsed(&si)
	}
	if err := s.cullOldSaves(); err != nil {
		return nil, false, err
	}
	s.audit.Log(AuditEntry{Action: "backup", GameID: gi.GameID, Filename: si.Filename})
	return &si, true, nil
}

// DoRestore copies a snapshot back into the game's save roots, creating an
// undo snapshot first unless the snapshot being restored is itself an undo.
func (s *SnapshotService) DoRestore(si *models.SaveInfo) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.restoreLocked(si)
}

func (s *SnapshotService) restoreLocked(si *models.SaveInfo) error {
	if !filenamePattern.MatchString(si.Filename) {
		return ErrBadFilename
	}

	gi := &si.GameInfo
	rcf, err := s.readRcf(gi)
	if err != nil {
		return err
	}
	if len(rcf) == 0 {
		return ErrNotSupported
	}

	if !si.IsUndo {
		log.Printf("[Snapshot] generating undo files for %d", gi.GameID)
		undo := s.newSaveInfo(*gi, true)
		if err := s.insertSnapshot(&undo); err != nil {
			return err
		}
		if err := s.copyAllToSnapshot(&undo, rcf); err != nil {
			return err
		}
	}

	log.Printf("[Snapshot] attempting restore of %s", si.Filename)
	if err := s.copyAllFromSnapshot(si, rcf); err != nil {
		return err
	}

	// restoring may have created a second undo, cull back down to one
	if err := s.cullOldSaves(); err != nil {
		return err
	}
	s.setLastUsed(si)
	s.audit.Log(AuditEntry{Action: "restore", GameID: gi.GameID, Filename: si.Filename})
	return nil
}

// DoReuse re-applies the last used snapshot to the game, records the result
// as a fresh snapshot and retires the old one. No-op when nothing has been
// restored yet.
func (s *SnapshotService) DoReuse() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	last := s.GetLastUsed()
	if last == nil {
		return nil
	}

	gi := &last.GameInfo
	rcf, err := s.readRcf(gi)
	if err != nil {
		return err
	}
	if len(rcf) == 0 {
		return ErrNotSupported
	}

	if err := s.copyAllFromSnapshot(last, rcf); err != nil {
		return err
	}

	log.Printf("[Snapshot] generating new save files for reuse")
	next := s.newSaveInfo(*gi, false)
	if err := s.insertSnapshot(&next); err != nil {
		return err
	}
	if err := s.copyAllToSnapshot(&next, rcf); err != nil {
		return err
	}
	s.setLastUsed(&next)

	if err := s.deleteLocked(last); err != nil {
		return err
	}
	s.audit.Log(AuditEntry{Action: "reuse", GameID: gi.GameID, Filename: next.Filename})
	return nil
}

// DoDelete removes a snapshot's mirror directories and catalog row.
func (s *SnapshotService) DoDelete(si *models.SaveInfo) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.deleteLocked(si); err != nil {
		return err
	}
	s.audit.Log(AuditEntry{Action: "delete", GameID: si.GameInfo.GameID, Filename: si.Filename})
	return nil
}

func (s *SnapshotService) deleteLocked(si *models.SaveInfo) error {
	if err := s.deleteSaveDirs(si.Filename); err != nil {
		return err
	}
	return s.deleteRow(si.Filename)
}

// deleteSaveDirs removes every mirror directory belonging to a snapshot,
// including the suffixed siblings of multi-root games.
func (s *SnapshotService) deleteSaveDirs(filename string) error {
	if !filenamePattern.MatchString(filename) {
		return ErrBadFilename
	}

	dir, err := s.savesDir()
	if err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(dir, filename+"*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		log.Printf("[Snapshot] deleting %s", m)
		if err := os.RemoveAll(m); err != nil {
			return err
		}
	}
	return nil
}

// copyAllToSnapshot mirrors every save root of the game into the snapshot
// directories. A partially written snapshot is removed on failure.
func (s *SnapshotService) copyAllToSnapshot(si *models.SaveInfo, rcf []string) error {
	base, err := s.saveInfoDir(si)
	if err != nil {
		return err
	}
	for src, suffix := range si.GameInfo.SaveGamesRoots {
		if err := copyByRcf(rcf, src, base+suffix); err != nil {
			_ = s.deleteSaveDirs(si.Filename)
			_ = s.deleteRow(si.Filename)
			return err
		}
	}
	return nil
}

// copyAllFromSnapshot copies the mirrored files back into the game's roots.
func (s *SnapshotService) copyAllFromSnapshot(si *models.SaveInfo, rcf []string) error {
	base, err := s.saveInfoDir(si)
	if err != nil {
		return err
	}
	for dest, suffix := range si.GameInfo.SaveGamesRoots {
		if err := copyByRcf(rcf, base+suffix, dest); err != nil {
			return err
		}
	}
	return nil
}

// copyByRcf copies every rcf-listed file that exists under srcDir into
// destDir, preserving modification times. Files missing from the source are
// skipped: the rcf lists everything Steam has ever synced, not what exists.
func copyByRcf(rcf []string, srcDir, destDir string) error {
	copied := 0
	for _, rel := range rcf {
		src := filepath.Join(srcDir, rel)
		info, err := os.Stat(src)
		if err != nil || info.IsDir() {
			continue
		}
		dest := filepath.Join(destDir, rel)
		if err := copyFile(src, dest, info.ModTime()); err != nil {
			return err
		}
		copied++
	}
	log.Printf("[Snapshot] copied %d files from %s to %s", copied, srcDir, destDir)
	return nil
}

func copyFile(src, dest string, mtime time.Time) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dest, mtime, mtime)
}

// rcfTimestamp returns the newest modification time, in epoch milliseconds,
// of any rcf-listed file under the game's save roots. Zero when none exist.
func (s *SnapshotService) rcfTimestamp(rcf []string, gi *models.GameInfo) int64 {
	var max int64
	for root := range gi.SaveGamesRoots {
		for _, rel := range rcf {
			info, err := os.Stat(filepath.Join(root, rel))
			if err != nil {
				continue
			}
			if ts := info.ModTime().UnixMilli(); ts > max {
				max = ts
			}
		}
	}
	return max
}
