// Package models defines the wire shapes shared by the daemon, the panel
// client and the tests.
package models

// GameInfo identifies an installed Steam game.
type GameInfo struct {
	GameID      int    `json:"game_id"`
	GameName    string `json:"game_name"`
	InstallRoot string `json:"install_root"`

	// SaveGamesRoots maps each discovered save directory to the suffix of
	// its mirror directory: "" for the first root, "_1", "_2"... after.
	// Populated by the daemon during rcf discovery, absent until then.
	SaveGamesRoots map[string]string `json:"save_games_roots,omitempty"`
}

// SaveInfo describes one recorded snapshot of a game's save data.
type SaveInfo struct {
	GameInfo  GameInfo `json:"game_info"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
	Filename  string   `json:"filename"`
	IsUndo    bool     `json:"is_undo"`
}
