// Package settings holds the booth-wide preferences applied to new photos.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aliskhannn/retro-booth/internal/caption"
	"github.com/aliskhannn/retro-booth/internal/filter"
	"github.com/aliskhannn/retro-booth/internal/model"
)

var ErrInvalidSettings = errors.New("invalid settings")

var (
	personalities = []string{"humorous", "standard", "scientific"}
	lengths       = []string{"detailed", "standard", "short"}
	themes        = []string{"neutral", "warm", "cool"}
	iconStyles    = []string{"classic", "minimal", "retro"}
	fontSizes     = []string{"small", "medium", "large"}
)

// Defaults returns the settings of a fresh booth.
func Defaults() model.Settings {
	return model.Settings{
		AllowResize:     true,
		AllowRotation:   true,
		ShowDateStamp:   true,
		EnableSounds:    true,
		ActiveFilters:   []string{filter.Normal, "bw", "vintage"},
		DefaultTemplate: model.TemplateClassic,
		CaptionPool:     caption.DefaultText,
		AIPersonality:   "standard",
		AILength:        "short",
		Theme:           "neutral",
		IconStyle:       "classic",
		FontSize:        "medium",
		CameraMode:      model.CameraUser,
	}
}

// Service guards the current settings. Callers always get a copy.
type Service struct {
	mu       sync.RWMutex
	settings model.Settings
}

// NewService creates a Service starting from initial.
func NewService(initial model.Settings) *Service {
	return &Service{settings: initial.Clone()}
}

// Get returns a snapshot of the current settings.
func (s *Service) Get() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// CameraMode returns the facing mode the shutter reads from.
func (s *Service) CameraMode() model.CameraMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.CameraMode
}

// Update validates and applies a partial update. Nothing changes when validation fails.
func (s *Service) Update(patch model.SettingsPatch) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings.Clone()
	if err := apply(&next, patch); err != nil {
		return model.Settings{}, err
	}

	s.settings = next
	return next.Clone(), nil
}

// ToggleFilter adds or removes a filter from the active set.
// Removing the last active filter is refused silently. Adding a fourth drops the oldest.
func (s *Service) ToggleFilter(id string) (model.Settings, error) {
	if !filter.Valid(id) {
		return model.Settings{}, fmt.Errorf("%w: unknown filter %q", ErrInvalidSettings, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.settings.ActiveFilters
	if i := slices.Index(active, id); i >= 0 {
		if len(active) > 1 {
			s.settings.ActiveFilters = slices.Delete(slices.Clone(active), i, i+1)
		}
		return s.settings.Clone(), nil
	}

	next := append(slices.Clone(active), id)
	if len(next) > model.MaxActiveFilters {
		next = next[len(next)-model.MaxActiveFilters:]
	}
	s.settings.ActiveFilters = next

	return s.settings.Clone(), nil
}

// SwitchCamera flips between the user-facing and environment-facing camera.
func (s *Service) SwitchCamera() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings.CameraMode == model.CameraEnvironment {
		s.settings.CameraMode = model.CameraUser
	} else {
		s.settings.CameraMode = model.CameraEnvironment
	}

	return s.settings.Clone()
}

// SetDefaultTemplate changes the template given to new photos.
func (s *Service) SetDefaultTemplate(t model.Template) (model.Settings, error) {
	return s.Update(model.SettingsPatch{DefaultTemplate: &t})
}

func apply(s *model.Settings, p model.SettingsPatch) error {
	if p.AllowResize != nil {
		s.AllowResize = *p.AllowResize
	}
	if p.AllowRotation != nil {
		s.AllowRotation = *p.AllowRotation
	}
	if p.ShowDateStamp != nil {
		s.ShowDateStamp = *p.ShowDateStamp
	}
	if p.EnableSounds != nil {
		s.EnableSounds = *p.EnableSounds
	}
	if p.ActiveFilters != nil {
		if err := validateFilters(p.ActiveFilters); err != nil {
			return err
		}
		s.ActiveFilters = slices.Clone(p.ActiveFilters)
	}
	if p.DefaultTemplate != nil {
		if !p.DefaultTemplate.Valid() {
			return fmt.Errorf("%w: unknown template %q", ErrInvalidSettings, *p.DefaultTemplate)
		}
		s.DefaultTemplate = *p.DefaultTemplate
	}
	if p.CaptionPool != nil {
		s.CaptionPool = *p.CaptionPool
	}

	enums := []struct {
		name    string
		value   *string
		target  *string
		allowed []string
	}{
		{"ai_personality", p.AIPersonality, &s.AIPersonality, personalities},
		{"ai_length", p.AILength, &s.AILength, lengths},
		{"theme", p.Theme, &s.Theme, themes},
		{"icon_style", p.IconStyle, &s.IconStyle, iconStyles},
		{"font_size", p.FontSize, &s.FontSize, fontSizes},
	}
	for _, e := range enums {
		if e.value == nil {
			continue
		}
		if !slices.Contains(e.allowed, *e.value) {
			return fmt.Errorf("%w: %s must be one of %v", ErrInvalidSettings, e.name, e.allowed)
		}
		*e.target = *e.value
	}

	return nil
}

func validateFilters(ids []string) error {
	if len(ids) == 0 || len(ids) > model.MaxActiveFilters {
		return fmt.Errorf("%w: between 1 and %d active filters required", ErrInvalidSettings, model.MaxActiveFilters)
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !filter.Valid(id) {
			return fmt.Errorf("%w: unknown filter %q", ErrInvalidSettings, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate filter %q", ErrInvalidSettings, id)
		}
		seen[id] = true
	}

	return nil
}
