// Package handlers provides the HTTP handlers for the daemon's RPC surface.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deckops/steamback/internal/models"
	"github.com/deckops/steamback/internal/services"
)

// PluginHandler exposes the snapshot engine as plugin-method endpoints. Every
// reply is an envelope carrying a success flag the caller must check.
type PluginHandler struct {
	snapshots *services.SnapshotService
}

// NewPluginHandler creates a new PluginHandler instance.
func NewPluginHandler(snapshots *services.SnapshotService) *PluginHandler {
	return &PluginHandler{snapshots: snapshots}
}

func replyOK(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func replyErr(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// FindMounted returns the subset of the given directories that exist.
// POST /api/find_mounted
func (h *PluginHandler) FindMounted(c *gin.Context) {
	var req models.FindMountedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, http.StatusBadRequest, err)
		return
	}
	mounted := h.snapshots.FindMounted(req.Dirs)
	if mounted == nil {
		mounted = []string{}
	}
	replyOK(c, mounted)
}

// FindSupported returns the subset of the given games whose saves can be
// mirrored, with their save roots populated.
// POST /api/find_supported
func (h *PluginHandler) FindSupported(c *gin.Context) {
	var req models.FindSupportedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, http.StatusBadRequest, err)
		return
	}
	supported := h.snapshots.FindSupported(req.GameInfos)
	if supported == nil {
		supported = []models.GameInfo{}
	}
	replyOK(c, supported)
}

// GetSaveInfos lists every snapshot, undos first, then newest first.
// POST /api/get_saveinfos
func (h *PluginHandler) GetSaveInfos(c *gin.Context) {
	infos, err := h.snapshots.GetSaveInfos()
	if err != nil {
		replyErr(c, http.StatusInternalServerError, err)
		return
	}
	if infos == nil {
		infos = []models.SaveInfo{}
	}
	replyOK(c, infos)
}

// DoBackup snapshots a game, or probes feasibility when dry_run is set. The
// result is null when no backup is possible or needed, an empty object for a
// feasible dry run, and the new SaveInfo otherwise.
// POST /api/do_backup
func (h *PluginHandler) DoBackup(c *gin.Context) {
	var req models.BackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, http.StatusBadRequest, err)
		return
	}

	si, ok, err := h.snapshots.DoBackup(&req.GameInfo, req.DryRun, req.ApplyLastUsed)
	if err != nil {
		replyErr(c, http.StatusInternalServerError, err)
		return
	}
	switch {
	case !ok:
		replyOK(c, nil)
	case req.DryRun:
		replyOK(c, struct{}{})
	default:
		replyOK(c, si)
	}
}

// DoRestore copies a snapshot back into the game's save directories.
// POST /api/do_restore
func (h *PluginHandler) DoRestore(c *gin.Context) {
	var req models.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, http.StatusBadRequest, err)
		return
	}
	if err := h.snapshots.DoRestore(&req.SaveInfo); err != nil {
		replyErr(c, http.StatusInternalServerError, err)
		return
	}
	replyOK(c, "ok")
}

// DoReuse re-applies the last used snapshot. No-op when nothing has been
// restored yet.
// POST /api/do_reuse
func (h *PluginHandler) DoReuse(c *gin.Context) {
	if err := h.snapshots.DoReuse(); err != nil {
		replyErr(c, http.StatusInternalServerError, err)
		return
	}
	replyOK(c, "ok")
}

// DoDelete removes a snapshot permanently.
// POST /api/do_delete
func (h *PluginHandler) DoDelete(c *gin.Context) {
	var req models.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, http.StatusBadRequest, err)
		return
	}
	if err := h.snapshots.DoDelete(&req.SaveInfo); err != nil {
		replyErr(c, http.StatusInternalServerError, err)
		return
	}
	replyOK(c, "ok")
}

// GetLastUsedSaveInfo returns the most recently restored snapshot or null.
// POST /api/get_last_used_save_info
func (h *PluginHandler) GetLastUsedSaveInfo(c *gin.Context) {
	replyOK(c, h.snapshots.GetLastUsed())
}

// SetAccountID registers a Steam account ID.
// POST /api/set_account_id
func (h *PluginHandler) SetAccountID(c *gin.Context) {
	var req models.AccountIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, http.StatusBadRequest, err)
		return
	}
	h.snapshots.AddAccountID(req.IDNum)
	replyOK(c, "ok")
}
