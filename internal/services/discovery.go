package services

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/steam"
	"github.com/deckops/steamback/internal/vdf"
)

// readRcf reads the remotecache file list for a game from every account's
// userdata. On first contact it also discovers and validates the game's save
// roots, populating gi.SaveGamesRoots. A nil result with nil error means the
// game cannot be backed up.
func (s *SnapshotService) readRcf(gi *models.GameInfo) ([]string, error) {
	dirs, err := s.gameDirs(gi.GameID)
	if err != nil {
		return nil, err
	}

	var rcf []string
	for _, d := range dirs {
		path := filepath.Join(d, "remotecache.vdf")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		entries, err := vdf.ParseRemoteCacheFile(path)
		if err != nil {
			return nil, err
		}
		rcf = append(rcf, entries...)
	}

	if len(gi.SaveGamesRoots) == 0 {
		roots := s.findSaveGames(gi, rcf)

		// keep only roots where at least one rcf-listed file actually
		// exists, to validate our guess about where saves live
		var valid []string
		for _, r := range roots {
			if rcfValid(r, rcf) {
				valid = append(valid, r)
			}
		}
		if len(valid) == 0 {
			log.Printf("[Snapshot] unable to back up %d (%s): not yet supported", gi.GameID, gi.GameName)
			return nil, nil
		}

		// the first root keeps the bare mirror directory name, later
		// ones get a _n suffix
		rootsMap := map[string]string{}
		for i, r := range valid {
			suffix := ""
			if i > 0 {
				suffix = fmt.Sprintf("_%d", i)
			}
			rootsMap[r] = suffix
		}
		gi.SaveGamesRoots = rootsMap
	}

	return rcf, nil
}

// DiscoverRoots runs rcf discovery for a game and returns its save root
// directories. Used by the watcher to know which directories to observe.
func (s *SnapshotService) DiscoverRoots(gi *models.GameInfo) ([]string, error) {
	rcf, err := s.readRcf(gi)
	if err != nil {
		return nil, err
	}
	if len(rcf) == 0 {
		return nil, ErrNotSupported
	}
	roots := make([]string, 0, len(gi.SaveGamesRoots))
	for r := range gi.SaveGamesRoots {
		roots = append(roots, r)
	}
	return roots, nil
}

// findSaveGames collects candidate save directories for a game: userdata
// remotes, the usual linux/proton locations, then autocloud scan results.
func (s *SnapshotService) findSaveGames(gi *models.GameInfo, rcf []string) []string {
	var found []string

	dirs, err := s.gameDirs(gi.GameID)
	if err != nil {
		return nil
	}
	for _, d := range dirs {
		for _, sub := range []string{"remote", filepath.Join("ac", "LinuxXdgDataHome")} {
			full := filepath.Join(d, sub)
			if info, err := os.Stat(full); err == nil && info.IsDir() {
				found = append(found, full)
			}
		}
	}

	// the remaining strategies need the game's install directory
	if steam.InstallDir(gi) == "" {
		log.Printf("[Snapshot] no installdir for game %d, skipping location scan", gi.GameID)
		return dedupe(found)
	}

	found = append(found, s.searchLikelyLocations(gi, rcf)...)

	autoclouds := s.findAutoclouds(gi, true)
	if len(autoclouds) == 0 {
		autoclouds = s.findAutoclouds(gi, false)
	}
	for _, a := range autoclouds {
		if root := saveRootFromAutocloud(rcf, a); root != "" {
			log.Printf("[Snapshot] mapping autocloud %s to root %s", a, root)
			found = append(found, root)
		}
	}

	return dedupe(found)
}

// gameSavesRoot returns where save files would live for a linux-native or
// proton game. isSystem redirects the lookup from the game's install root to
// the system Steam root.
func (s *SnapshotService) gameSavesRoot(gi *models.GameInfo, isLinux, isSystem bool) string {
	root := gi.InstallRoot
	if isSystem {
		root = s.layout.Root
	}
	apps := steam.SteamAppsDir(root)
	if isLinux {
		return filepath.Join(apps, "common", steam.InstallDir(gi))
	}
	return filepath.Join(apps, "compatdata", strconv.Itoa(gi.GameID),
		"pfx", "drive_c", "users", "steamuser")
}

// searchLikelyLocations probes the standard save locations and returns the
// ones where rcf files actually exist. Games installed on an SD card are
// checked against the system Steam root first.
func (s *SnapshotService) searchLikelyLocations(gi *models.GameInfo, rcf []string) []string {
	var roots []string
	addRoots := func(isSystem bool) {
		roots = append(roots, s.gameSavesRoot(gi, true, isSystem))

		winRoot := s.gameSavesRoot(gi, false, isSystem)
		for _, sub := range []string{
			"Documents",
			"Application Data",
			filepath.Join("AppData", "LocalLow"),
			filepath.Join("Local Settings", "Application Data"),
		} {
			roots = append(roots, filepath.Join(winRoot, sub))
		}
	}

	if strings.HasPrefix(gi.InstallRoot, "/run") {
		addRoots(true)
	}
	addRoots(false)

	var found []string
	for _, r := range roots {
		if rcfValid(r, rcf) {
			found = append(found, r)
		}
	}
	return found
}

// findAutoclouds walks the game's install tree for steam_autocloud.vdf
// markers and returns the directories containing them.
func (s *SnapshotService) findAutoclouds(gi *models.GameInfo, isLinux bool) []string {
	rootDir := s.gameSavesRoot(gi, isLinux, false)

	var dirs []string
	_ = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == "steam_autocloud.vdf" {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	return dirs
}

// saveRootFromAutocloud maps an autocloud directory to the save root the rcf
// filenames are relative to, by stripping the rcf names' common directory
// prefix off the autocloud path. Empty rcf means no mapping is possible.
//
// rcf entries use / as the separator on every platform, Valve normalizes.
func saveRootFromAutocloud(rcf []string, autocloud string) string {
	if len(rcf) == 0 {
		return ""
	}

	prev := rcf[0]
	firstDiff := len(prev)
	for _, r := range rcf {
		n := len(prev)
		if len(r) < n {
			n = len(r)
		}
		for i := 0; i < n; i++ {
			if prev[i] != r[i] {
				if firstDiff > i {
					firstDiff = i
				}
				break
			}
		}
		prev = r
	}
	if firstDiff > len(prev) {
		firstDiff = len(prev)
	}

	// the common prefix may end mid-filename, cut back to the last /
	// so what remains is known to be a directory path
	prefix := prev[:firstDiff]
	if i := strings.LastIndex(prefix, "/"); i != -1 {
		prefix = prefix[:i]
		if prefix != "" && strings.HasSuffix(autocloud, prefix) {
			autocloud = autocloud[:len(autocloud)-len(prefix)]
		}
	}
	return filepath.Clean(autocloud)
}

// rcfValid reports whether at least one rcf-listed file exists under root.
func rcfValid(root string, rcf []string) bool {
	for _, rel := range rcf {
		if info, err := os.Stat(filepath.Join(root, rel)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func dedupe(dirs []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, d := range dirs {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// FindSupported filters a list of games down to those whose saves steamback
// can mirror. Scan errors on one game never fail the whole call.
func (s *SnapshotService) FindSupported(infos []models.GameInfo) []models.GameInfo {
	var supported []models.GameInfo
	for i := range infos {
		gi := infos[i]
		rcf, err := s.readRcf(&gi)
		if err != nil {
			log.Printf("[Snapshot] error scanning rcf for %d: %v", gi.GameID, err)
			continue
		}
		if len(rcf) == 0 {
			continue
		}
		supported = append(supported, gi)
	}
	return supported
}

// FindMounted filters a list of directories down to those that exist on
// disk, weeding out configured-but-ejected storage.
func (s *SnapshotService) FindMounted(dirs []string) []string {
	var mounted []string
	for _, d := range dirs {
		if _, err := os.Stat(d); err == nil {
			mounted = append(mounted, d)
		}
	}
	return mounted
}
