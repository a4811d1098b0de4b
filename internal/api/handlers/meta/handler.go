// Package meta serves the static catalogs and the onboarding flag.
package meta

import (
	"context"
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/api/respond"
	"github.com/aliskhannn/retro-booth/internal/filter"
	"github.com/aliskhannn/retro-booth/internal/model"
	"github.com/aliskhannn/retro-booth/internal/processor"
)

// guideFlag reports once that the onboarding guide should be shown.
type guideFlag interface {
	ShowOnce(ctx context.Context) (bool, error)
}

// Handler serves catalogs and onboarding.
type Handler struct {
	onboarding guideFlag
}

// NewHandler creates a new Handler.
func NewHandler(o guideFlag) *Handler {
	return &Handler{onboarding: o}
}

// Filters returns the filter catalog.
func (h *Handler) Filters(c *ginext.Context) {
	respond.OK(c, filter.Catalog())
}

// TemplateInfo describes one card template.
type TemplateInfo struct {
	ID     model.Template `json:"id"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
}

// Templates returns the template catalog with card sizes in desk units.
func (h *Handler) Templates(c *ginext.Context) {
	out := make([]TemplateInfo, 0, len(model.Templates))
	for _, t := range model.Templates {
		w, hgt := processor.CardSize(t)
		out = append(out, TemplateInfo{ID: t, Width: w, Height: hgt})
	}
	respond.OK(c, out)
}

// Onboarding reports whether the guide should be shown. It answers true only once.
func (h *Handler) Onboarding(c *ginext.Context) {
	show, err := h.onboarding.ShowOnce(c.Request.Context())
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to read onboarding flag")
		respond.Fail(c, http.StatusInternalServerError, errors.New("failed to read onboarding flag"))
		return
	}
	respond.OK(c, map[string]bool{"show": show})
}
