// Package advisor decides how a photo should be cropped from the position of its main face.
package advisor

import (
	"context"
	"math"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/ai"
	"github.com/aliskhannn/retro-booth/internal/model"
)

// centerTolerance is how far, in percent, a face may sit from the middle and still count as centered.
const centerTolerance = 10.0

// photoUpdater applies the crop decision to the store.
type photoUpdater interface {
	Update(ctx context.Context, id string, patch model.PhotoPatch) (model.Photo, bool)
}

// Advisor runs the face query and applies the crop decision.
type Advisor struct {
	locator ai.FaceLocator
	photos  photoUpdater
}

// New creates an Advisor.
func New(locator ai.FaceLocator, photos photoUpdater) *Advisor {
	return &Advisor{locator: locator, photos: photos}
}

// Decide maps a face location to a crop decision.
//
// A centered face keeps the whole frame visible. An off-center face gets a cover crop focused on it.
// Without a face the whole frame stays visible.
func Decide(loc model.FaceLocation) model.CropDecision {
	if !loc.Found {
		return model.CropDecision{Mode: model.CropContain, Focus: model.Center}
	}

	if math.Abs(loc.X-50) < centerTolerance && math.Abs(loc.Y-50) < centerTolerance {
		return model.CropDecision{Mode: model.CropContain, Focus: model.Center}
	}

	return model.CropDecision{
		Mode:  model.CropCover,
		Focus: model.ClampPercent(model.Point{X: loc.X, Y: loc.Y}),
	}
}

// Advise asks the model where the face is and updates the photo.
// Failures are logged and swallowed: the photo keeps its cover/center defaults.
// It reports whether a decision was applied.
func (a *Advisor) Advise(ctx context.Context, id string, image []byte, mimeType string) bool {
	loc, err := a.locator.LocateFace(ctx, image, mimeType)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("photo_id", id).Msg("smart crop failed")
		return false
	}

	decision := Decide(loc)
	_, ok := a.photos.Update(ctx, id, model.PhotoPatch{
		CropMode:   &decision.Mode,
		FocusPoint: &decision.Focus,
	})
	if !ok {
		zlog.Logger.Info().Str("photo_id", id).Msg("photo removed before smart crop finished")
		return false
	}

	zlog.Logger.Info().
		Str("photo_id", id).
		Str("crop_mode", string(decision.Mode)).
		Float64("focus_x", decision.Focus.X).
		Float64("focus_y", decision.Focus.Y).
		Msg("smart crop applied")

	return true
}
