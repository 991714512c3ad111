package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deckops/steamback/internal/handlers"
	"github.com/deckops/steamback/internal/middleware"
	"github.com/deckops/steamback/internal/services"
	"github.com/deckops/steamback/internal/version"
)

// New wires the RPC surface and the event stream into a gin engine.
func New(snapshots *services.SnapshotService, watcher *services.WatcherService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.DefaultBodyLimit())

	pluginHandler := handlers.NewPluginHandler(snapshots)
	eventsHandler := handlers.NewEventsHandler(watcher)

	api := r.Group("/api")
	{
		api.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info())
		})
		api.GET("/events", eventsHandler.Stream)

		api.POST("/find_mounted", pluginHandler.FindMounted)
		api.POST("/find_supported", pluginHandler.FindSupported)
		api.POST("/get_saveinfos", pluginHandler.GetSaveInfos)
		api.POST("/do_backup", pluginHandler.DoBackup)
		api.POST("/do_restore", pluginHandler.DoRestore)
		api.POST("/do_reuse", pluginHandler.DoReuse)
		api.POST("/do_delete", pluginHandler.DoDelete)
		api.POST("/get_last_used_save_info", pluginHandler.GetLastUsedSaveInfo)
		api.POST("/set_account_id", pluginHandler.SetAccountID)
	}

	return r
}
