package model

// CameraMode selects the live feed read by the shutter.
type CameraMode string

const (
	CameraUser        CameraMode = "user"
	CameraEnvironment CameraMode = "environment"
)

// MaxActiveFilters is the size limit of the user's active filter set.
const MaxActiveFilters = 3

// Settings governs the defaults applied when a photo is created.
// It is never applied retroactively to existing photos.
type Settings struct {
	AllowResize     bool       `json:"allow_resize"`
	AllowRotation   bool       `json:"allow_rotation"`
	ShowDateStamp   bool       `json:"show_date_stamp"`
	EnableSounds    bool       `json:"enable_sounds"`
	ActiveFilters   []string   `json:"active_filters"`
	DefaultTemplate Template   `json:"default_template"`
	CaptionPool     string     `json:"caption_pool"`
	AIPersonality   string     `json:"ai_personality"` // humorous, standard, scientific
	AILength        string     `json:"ai_length"`      // detailed, standard, short
	Theme           string     `json:"theme"`          // neutral, warm, cool
	IconStyle       string     `json:"icon_style"`     // classic, minimal, retro
	FontSize        string     `json:"font_size"`      // small, medium, large
	CameraMode      CameraMode `json:"camera_mode"`
}

// SettingsPatch carries a partial settings update.
type SettingsPatch struct {
	AllowResize     *bool     `json:"allow_resize,omitempty"`
	AllowRotation   *bool     `json:"allow_rotation,omitempty"`
	ShowDateStamp   *bool     `json:"show_date_stamp,omitempty"`
	EnableSounds    *bool     `json:"enable_sounds,omitempty"`
	ActiveFilters   []string  `json:"active_filters,omitempty"`
	DefaultTemplate *Template `json:"default_template,omitempty"`
	CaptionPool     *string   `json:"caption_pool,omitempty"`
	AIPersonality   *string   `json:"ai_personality,omitempty"`
	AILength        *string   `json:"ai_length,omitempty"`
	Theme           *string   `json:"theme,omitempty"`
	IconStyle       *string   `json:"icon_style,omitempty"`
	FontSize        *string   `json:"font_size,omitempty"`
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.ActiveFilters = append([]string(nil), s.ActiveFilters...)
	return s
}

// DefaultFilter returns the filter given to new photos.
func (s Settings) DefaultFilter() string {
	if len(s.ActiveFilters) == 0 {
		return "normal"
	}
	return s.ActiveFilters[0]
}
