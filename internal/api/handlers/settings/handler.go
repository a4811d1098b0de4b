package settings

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/api/respond"
	"github.com/aliskhannn/retro-booth/internal/model"
	settingssvc "github.com/aliskhannn/retro-booth/internal/service/settings"
)

type service interface {
	Get() model.Settings
	Update(patch model.SettingsPatch) (model.Settings, error)
	ToggleFilter(id string) (model.Settings, error)
	SwitchCamera() model.Settings
}

// Handler serves the booth settings.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Get returns the current settings.
func (h *Handler) Get(c *ginext.Context) {
	respond.OK(c, h.service.Get())
}

// Update applies a partial settings update. An invalid field rejects the whole patch.
func (h *Handler) Update(c *ginext.Context) {
	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	s, err := h.service.Update(patch)
	if err != nil {
		fail(c, err)
		return
	}

	zlog.Logger.Info().Msg("settings updated")
	respond.OK(c, s)
}

// ToggleFilter adds or removes a filter from the active set.
func (h *Handler) ToggleFilter(c *ginext.Context) {
	s, err := h.service.ToggleFilter(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, s)
}

// SwitchCamera flips between the front and back camera.
func (h *Handler) SwitchCamera(c *ginext.Context) {
	s := h.service.SwitchCamera()
	zlog.Logger.Info().Str("camera_mode", string(s.CameraMode)).Msg("camera switched")
	respond.OK(c, s)
}

func fail(c *ginext.Context, err error) {
	if errors.Is(err, settingssvc.ErrInvalidSettings) {
		zlog.Logger.Warn().Err(err).Msg("rejected settings change")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}
	zlog.Logger.Err(err).Msg("failed to change settings")
	respond.Fail(c, http.StatusInternalServerError, err)
}
