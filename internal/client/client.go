// Package client is a Go client for the steamback daemon: typed wrappers
// over the plugin-method endpoints plus the lifetime event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/deckops/steamback/internal/models"
)

// Client talks to a running steamback daemon.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the daemon at base, e.g. "http://127.0.0.1:8844".
func New(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

// call posts req to /api/<method>, checks the envelope's success flag and
// unmarshals the result into out when out is non-nil.
func (c *Client) call(ctx context.Context, method string, req, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/api/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var env models.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decoding reply: %w", method, err)
	}
	if !env.Success {
		if env.Error != "" {
			return fmt.Errorf("%s: %s", method, env.Error)
		}
		return fmt.Errorf("%s failed", method)
	}
	if out != nil && len(env.Result) > 0 && string(env.Result) != "null" {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decoding result: %w", method, err)
		}
	}
	return nil
}

// FindMounted returns the subset of dirs that exist on the daemon's host.
func (c *Client) FindMounted(ctx context.Context, dirs []string) ([]string, error) {
	var mounted []string
	err := c.call(ctx, "find_mounted", models.FindMountedRequest{Dirs: dirs}, &mounted)
	return mounted, err
}

// FindSupported returns the games whose saves the daemon can mirror.
func (c *Client) FindSupported(ctx context.Context, infos []models.GameInfo) ([]models.GameInfo, error) {
	var supported []models.GameInfo
	err := c.call(ctx, "find_supported", models.FindSupportedRequest{GameInfos: infos}, &supported)
	return supported, err
}

// GetSaveInfos lists every snapshot, undos first, then newest first.
func (c *Client) GetSaveInfos(ctx context.Context) ([]models.SaveInfo, error) {
	var infos []models.SaveInfo
	err := c.call(ctx, "get_saveinfos", struct{}{}, &infos)
	return infos, err
}

// DoBackup snapshots a game. ok is false when the daemon reports that no
// backup is possible or needed; for dry runs a true ok with a nil SaveInfo
// means a real backup would succeed.
func (c *Client) DoBackup(ctx context.Context, gi models.GameInfo, dryRun bool) (*models.SaveInfo, bool, error) {
	var raw json.RawMessage
	err := c.call(ctx, "do_backup", models.BackupRequest{GameInfo: gi, DryRun: dryRun}, &raw)
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false, nil
	}

	var si models.SaveInfo
	if err := json.Unmarshal(raw, &si); err != nil {
		return nil, false, err
	}
	if si.Filename == "" {
		// empty marker object: dry run reporting feasibility
		return nil, true, nil
	}
	return &si, true, nil
}

// DoRestore copies a snapshot back into the game's save directories.
func (c *Client) DoRestore(ctx context.Context, si models.SaveInfo) error {
	return c.call(ctx, "do_restore", models.RestoreRequest{SaveInfo: si}, nil)
}

// DoReuse re-applies the last used snapshot.
func (c *Client) DoReuse(ctx context.Context) error {
	return c.call(ctx, "do_reuse", struct{}{}, nil)
}

// DoDelete removes a snapshot permanently.
func (c *Client) DoDelete(ctx context.Context, si models.SaveInfo) error {
	return c.call(ctx, "do_delete", models.DeleteRequest{SaveInfo: si}, nil)
}

// GetLastUsedSaveInfo returns the most recently restored snapshot, or nil.
func (c *Client) GetLastUsedSaveInfo(ctx context.Context) (*models.SaveInfo, error) {
	var si *models.SaveInfo
	err := c.call(ctx, "get_last_used_save_info", struct{}{}, &si)
	return si, err
}

// SetAccountID registers a Steam account ID with the daemon.
func (c *Client) SetAccountID(ctx context.Context, id int) error {
	return c.call(ctx, "set_account_id", models.AccountIDRequest{IDNum: id}, nil)
}

// Version returns the daemon's build information.
func (c *Client) Version(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/version", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var info map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return info, nil
}
