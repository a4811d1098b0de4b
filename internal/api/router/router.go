package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/retro-booth/internal/api/handlers/meta"
	"github.com/aliskhannn/retro-booth/internal/api/handlers/photo"
	"github.com/aliskhannn/retro-booth/internal/api/handlers/settings"
	"github.com/aliskhannn/retro-booth/internal/api/handlers/ws"
	"github.com/aliskhannn/retro-booth/internal/api/middleware"
	"github.com/aliskhannn/retro-booth/internal/metrics"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Photo    *photo.Handler
	Settings *settings.Handler
	Meta     *meta.Handler
	Hub      *ws.Hub
}

func Setup(h Handlers, allowedOrigins []string) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.Metrics())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/metrics", func(c *ginext.Context) {
		metrics.Handler().ServeHTTP(c.Writer, c.Request)
	})

	api := r.Group("/api")

	api.POST("/shutter", h.Photo.Shutter) // live capture, upload fallback
	api.POST("/photos", h.Photo.Import)   // import a file
	api.GET("/photos", h.Photo.List)      // desk in draw order
	api.GET("/gallery", h.Photo.Gallery)  // newest first

	api.GET("/photos/:id", h.Photo.Get)
	api.GET("/photos/:id/image", h.Photo.Image)
	api.GET("/photos/:id/preview", h.Photo.Preview)
	api.PATCH("/photos/:id", h.Photo.Edit)
	api.PUT("/photos/:id/position", h.Photo.Move)
	api.PUT("/photos/:id/rotation", h.Photo.Rotate)
	api.PUT("/photos/:id/scale", h.Photo.Resize)
	api.PUT("/photos/:id/caption", h.Photo.SetCaption)
	api.POST("/photos/:id/front", h.Photo.BringToFront)
	api.POST("/photos/:id/filter/next", h.Photo.CycleFilter)
	api.POST("/photos/:id/caption/random", h.Photo.RandomCaption)
	api.POST("/photos/:id/caption/ai", h.Photo.AICaption)
	api.POST("/photos/:id/remix", h.Photo.Remix)
	api.DELETE("/photos/:id", h.Photo.Delete)

	api.POST("/export", h.Photo.Export)
	api.GET("/exports", h.Photo.Exports)
	api.GET("/exports/:name", h.Photo.ExportFile)
	api.DELETE("/exports/:name", h.Photo.DeleteExport)

	api.GET("/settings", h.Settings.Get)
	api.PATCH("/settings", h.Settings.Update)
	api.POST("/settings/filters/:id", h.Settings.ToggleFilter)
	api.POST("/settings/camera/switch", h.Settings.SwitchCamera)

	api.GET("/filters", h.Meta.Filters)
	api.GET("/templates", h.Meta.Templates)
	api.GET("/onboarding", h.Meta.Onboarding)

	api.GET("/ws", h.Hub.Serve)

	return r
}
