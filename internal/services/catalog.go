package services

import (
	"database/sql"
	"encoding/json"
	"log"

	"github.com/deckops/steamback/internal/models"
)

// GetSaveInfos returns every catalogued snapshot, undos first, then newest
// first. Rows with unreadable metadata are dropped from the catalog so the
// next listing is clean.
func (s *SnapshotService) GetSaveInfos() ([]models.SaveInfo, error) {
	rows, err := s.db.Query(`
		SELECT filename, game_id, game_name, install_root, save_games_roots, timestamp, is_undo
		FROM snapshots ORDER BY is_undo DESC, timestamp DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var infos []models.SaveInfo
	var corrupt []string
	for rows.Next() {
		si, ok, err := scanSaveInfo(rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			corrupt = append(corrupt, si.Filename)
			continue
		}
		infos = append(infos, si)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, filename := range corrupt {
		log.Printf("[Snapshot] dropping corrupt catalog row %s", filename)
		_ = s.deleteRow(filename)
	}
	return infos, nil
}

// newestSave returns the most recent non-undo snapshot for a game, or nil.
func (s *SnapshotService) newestSave(gameID int) (*models.SaveInfo, error) {
	row := s.db.QueryRow(`
		SELECT filename, game_id, game_name, install_root, save_games_roots, timestamp, is_undo
		FROM snapshots WHERE game_id = ? AND is_undo = 0
		ORDER BY timestamp DESC LIMIT 1
	`, gameID)

	si, ok, err := scanSaveInfo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &si, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSaveInfo reads one catalog row. ok is false when the roots metadata
// fails to parse; the filename is still returned so the caller can drop the
// row.
func scanSaveInfo(r rowScanner) (models.SaveInfo, bool, error) {
	var si models.SaveInfo
	var rootsJSON string
	err := r.Scan(&si.Filename, &si.GameInfo.GameID, &si.GameInfo.GameName,
		&si.GameInfo.InstallRoot, &rootsJSON, &si.Timestamp, &si.IsUndo)
	if err != nil {
		return si, false, err
	}
	if err := json.Unmarshal([]byte(rootsJSON), &si.GameInfo.SaveGamesRoots); err != nil {
		return si, false, nil
	}
	return si, true, nil
}

func (s *SnapshotService) insertSnapshot(si *models.SaveInfo) error {
	rootsJSON, err := json.Marshal(si.GameInfo.SaveGamesRoots)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO snapshots (filename, game_id, game_name, install_root, save_games_roots, timestamp, is_undo)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, si.Filename, si.GameInfo.GameID, si.GameInfo.GameName,
		si.GameInfo.InstallRoot, string(rootsJSON), si.Timestamp, si.IsUndo)
	return err
}

func (s *SnapshotService) deleteRow(filename string) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE filename = ?`, filename)
	return err
}

// cullOldSaves keeps the most recent undo and the most recent MaxSaves
// regular snapshots, deleting the rest oldest-first.
func (s *SnapshotService) cullOldSaves() error {
	infos, err := s.GetSaveInfos()
	if err != nil {
		return err
	}

	var undos, saves []models.SaveInfo
	for _, si := range infos {
		if si.IsUndo {
			undos = append(undos, si)
		} else {
			saves = append(saves, si)
		}
	}

	deleteOldest := func(infos []models.SaveInfo, keep int) error {
		for len(infos) > keep {
			victim := infos[len(infos)-1]
			infos = infos[:len(infos)-1]
			log.Printf("[Snapshot] culling %s", victim.Filename)
			if err := s.deleteLocked(&victim); err != nil {
				return err
			}
		}
		return nil
	}

	if err := deleteOldest(undos, 1); err != nil {
		return err
	}
	return deleteOldest(saves, s.cfg.Backup.MaxSaves)
}
