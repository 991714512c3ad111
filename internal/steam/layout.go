// Package steam knows the on-disk layout of a Steam installation: userdata
// accounts, library folders, app manifests and the per-game cloud-sync
// directories steamback mirrors.
package steam

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/vdf"
)

// Layout resolves paths inside a Steam root directory.
type Layout struct {
	Root string
}

// NewLayout creates a Layout for the given Steam root directory.
func NewLayout(root string) *Layout {
	return &Layout{Root: root}
}

// UserDataDir returns the userdata directory holding per-account state.
func (l *Layout) UserDataDir() string {
	return filepath.Join(l.Root, "userdata")
}

// DetectAccountIDs lists the Steam account IDs present under userdata.
// Entry "0" is the anonymous account and is skipped.
func (l *Layout) DetectAccountIDs() ([]int, error) {
	entries, err := os.ReadDir(l.UserDataDir())
	if err != nil {
		return nil, err
	}

	var ids []int
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "0" {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GameDir returns the per-account cloud state directory for a game.
func (l *Layout) GameDir(accountID, gameID int) string {
	return filepath.Join(l.UserDataDir(), strconv.Itoa(accountID), strconv.Itoa(gameID))
}

// SteamAppsDir returns the steamapps directory under an install root.
func SteamAppsDir(installRoot string) string {
	return filepath.Join(installRoot, "steamapps")
}

// InstallDir reads the installdir field from the game's appmanifest, or ""
// when the manifest is missing or does not carry one.
func InstallDir(gi *models.GameInfo) string {
	manifest := filepath.Join(SteamAppsDir(gi.InstallRoot), fmt.Sprintf("appmanifest_%d.acf", gi.GameID))
	kv, err := vdf.ParseFlatFile(manifest)
	if err != nil {
		return ""
	}
	return kv["installdir"]
}

// LibraryPaths returns every Steam library root configured on this system.
func (l *Layout) LibraryPaths() ([]string, error) {
	return vdf.ParseLibraryFoldersFile(filepath.Join(l.Root, "steamapps", "libraryfolders.vdf"))
}

// AllGameInfo scans every library for app manifests and returns a GameInfo
// per installed game. Unreadable libraries (unmounted SD cards) are skipped.
func (l *Layout) AllGameInfo() ([]models.GameInfo, error) {
	libs, err := l.LibraryPaths()
	if err != nil {
		return nil, err
	}

	var infos []models.GameInfo
	for _, lib := range libs {
		appsDir := SteamAppsDir(lib)
		entries, err := os.ReadDir(appsDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, "appmanifest_") || filepath.Ext(name) != ".acf" {
				continue
			}
			kv, err := vdf.ParseFlatFile(filepath.Join(appsDir, name))
			if err != nil {
				continue
			}
			id, err := strconv.Atoi(kv["appid"])
			if err != nil || kv["name"] == "" {
				continue
			}
			infos = append(infos, models.GameInfo{
				GameID:      id,
				GameName:    kv["name"],
				InstallRoot: lib,
			})
		}
	}
	return infos, nil
}

// GameInfoByID finds one installed game across all libraries.
func (l *Layout) GameInfoByID(gameID int) (*models.GameInfo, error) {
	infos, err := l.AllGameInfo()
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].GameID == gameID {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("game %d not installed", gameID)
}
