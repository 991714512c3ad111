package models

import "encoding/json"

// Envelope is the reply wrapper for every RPC method. Clients must check
// Success before touching Result.
type Envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error,omitempty"`
}

// FindMountedRequest asks which of the given directories exist on disk.
type FindMountedRequest struct {
	Dirs []string `json:"dirs"`
}

// FindSupportedRequest asks which of the given games can be backed up.
type FindSupportedRequest struct {
	GameInfos []GameInfo `json:"game_infos"`
}

// BackupRequest triggers a backup, or probes feasibility when DryRun is set.
type BackupRequest struct {
	GameInfo      GameInfo `json:"game_info"`
	DryRun        bool     `json:"dry_run"`
	ApplyLastUsed bool     `json:"apply_last_used,omitempty"`
}

// RestoreRequest restores the named snapshot into the game's save roots.
type RestoreRequest struct {
	SaveInfo SaveInfo `json:"save_info"`
}

// DeleteRequest removes the named snapshot.
type DeleteRequest struct {
	SaveInfo SaveInfo `json:"save_info"`
}

// AccountIDRequest registers a Steam account ID with the daemon.
type AccountIDRequest struct {
	IDNum int `json:"id_num"`
}

// LifetimeEvent reports a game starting or stopping. The field names match
// the Steam client's application lifetime notification shape.
type LifetimeEvent struct {
	AppID   int  `json:"unAppID"`
	Running bool `json:"bRunning"`
}
