package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/retro-booth/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, []string{"normal", "bw", "vintage"}, s.ActiveFilters)
	assert.Equal(t, model.TemplateClassic, s.DefaultTemplate)
	assert.Equal(t, "short", s.AILength)
	assert.Equal(t, model.CameraUser, s.CameraMode)
	assert.NotEmpty(t, s.CaptionPool)
}

func TestGet_ReturnsCopy(t *testing.T) {
	svc := NewService(Defaults())
	s := svc.Get()
	s.ActiveFilters[0] = "cyber"
	assert.Equal(t, "normal", svc.Get().ActiveFilters[0])
}

func TestToggleFilter(t *testing.T) {
	svc := NewService(Defaults())

	s, err := svc.ToggleFilter("bw")
	require.NoError(t, err)
	assert.Equal(t, []string{"normal", "vintage"}, s.ActiveFilters)

	s, err = svc.ToggleFilter("kodak")
	require.NoError(t, err)
	assert.Equal(t, []string{"normal", "vintage", "kodak"}, s.ActiveFilters)

	// A fourth filter evicts the oldest.
	s, err = svc.ToggleFilter("fuji")
	require.NoError(t, err)
	assert.Equal(t, []string{"vintage", "kodak", "fuji"}, s.ActiveFilters)

	_, err = svc.ToggleFilter("sparkles")
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestToggleFilter_KeepsLastOne(t *testing.T) {
	initial := Defaults()
	initial.ActiveFilters = []string{"warm"}
	svc := NewService(initial)

	s, err := svc.ToggleFilter("warm")
	require.NoError(t, err)
	assert.Equal(t, []string{"warm"}, s.ActiveFilters)
}

func TestUpdate_Validates(t *testing.T) {
	svc := NewService(Defaults())

	bad := []model.SettingsPatch{
		{ActiveFilters: []string{}},
		{ActiveFilters: []string{"normal", "bw", "warm", "cool"}},
		{ActiveFilters: []string{"bw", "bw"}},
		{ActiveFilters: []string{"nope"}},
		{DefaultTemplate: ptr(model.Template("poster"))},
		{AIPersonality: ptr("grumpy")},
		{AILength: ptr("epic")},
		{Theme: ptr("neon")},
		{IconStyle: ptr("3d")},
		{FontSize: ptr("huge")},
	}
	for _, p := range bad {
		_, err := svc.Update(p)
		assert.ErrorIs(t, err, ErrInvalidSettings)
	}

	assert.Equal(t, Defaults(), svc.Get())
}

func TestUpdate_AppliesAtomically(t *testing.T) {
	svc := NewService(Defaults())

	_, err := svc.Update(model.SettingsPatch{AllowRotation: ptr(false), Theme: ptr("neon")})
	require.Error(t, err)
	assert.True(t, svc.Get().AllowRotation)

	s, err := svc.Update(model.SettingsPatch{
		AllowRotation: ptr(false),
		CaptionPool:   ptr("one\ntwo"),
		AIPersonality: ptr("humorous"),
		FontSize:      ptr("large"),
	})
	require.NoError(t, err)
	assert.False(t, s.AllowRotation)
	assert.Equal(t, "one\ntwo", s.CaptionPool)
	assert.Equal(t, "humorous", s.AIPersonality)
	assert.Equal(t, "large", s.FontSize)
	assert.True(t, s.AllowResize)
}

func TestSwitchCamera(t *testing.T) {
	svc := NewService(Defaults())
	assert.Equal(t, model.CameraEnvironment, svc.SwitchCamera().CameraMode)
	assert.Equal(t, model.CameraEnvironment, svc.CameraMode())
	assert.Equal(t, model.CameraUser, svc.SwitchCamera().CameraMode)
}

func TestSetDefaultTemplate(t *testing.T) {
	svc := NewService(Defaults())

	s, err := svc.SetDefaultTemplate(model.TemplateCinema)
	require.NoError(t, err)
	assert.Equal(t, model.TemplateCinema, s.DefaultTemplate)

	_, err = svc.SetDefaultTemplate("poster")
	assert.ErrorIs(t, err, ErrInvalidSettings)
}
