package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/ar.defaults.json"

// Tap queue overflow policies.
const (
	OverflowDropOldest = "drop_oldest"
	OverflowRejectNew  = "reject_new"
)

// Config is the root configuration for the AR layer. Every field is
// optional; the Get* accessors supply defaults for omitted fields so
// partial files are safe.
type Config struct {
	// Camera clip planes passed to the tracking service when the
	// projection matrix is refreshed each frame.
	NearClip *float64 `json:"near_clip,omitempty"`
	FarClip  *float64 `json:"far_clip,omitempty"`

	// Tap input queue
	TapQueueCapacity  *int    `json:"tap_queue_capacity,omitempty"`
	TapOverflowPolicy *string `json:"tap_overflow_policy,omitempty"` // "drop_oldest" or "reject_new"

	// Grey level the colour buffer is cleared to before the camera
	// background is drawn (0-255).
	BackgroundGray *float64 `json:"background_gray,omitempty"`

	// Log trackable added/removed/selected events through monitoring.Logf.
	LogLifecycle *bool `json:"log_lifecycle,omitempty"`

	// Optional sqlite journal of lifecycle events. Empty disables it.
	JournalPath *string `json:"journal_path,omitempty"`

	// Desktop preview window
	PreviewWidth  *int     `json:"preview_width,omitempty"`
	PreviewHeight *int     `json:"preview_height,omitempty"`
	PreviewFovDeg *float64 `json:"preview_fov_deg,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field populated with the
// built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		NearClip:          ptrFloat64(0.1),
		FarClip:           ptrFloat64(100.0),
		TapQueueCapacity:  ptrInt(16),
		TapOverflowPolicy: ptrString(OverflowDropOldest),
		BackgroundGray:    ptrFloat64(0),
		LogLifecycle:      ptrBool(true),
		JournalPath:       ptrString(""),
		PreviewWidth:      ptrInt(960),
		PreviewHeight:     ptrInt(540),
		PreviewFovDeg:     ptrFloat64(60),
	}
}

// LoadConfig loads a Config from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.NearClip != nil && *c.NearClip <= 0 {
		return fmt.Errorf("near_clip must be positive, got %f", *c.NearClip)
	}
	if c.GetFarClip() <= c.GetNearClip() {
		return fmt.Errorf("far_clip (%f) must be greater than near_clip (%f)", c.GetFarClip(), c.GetNearClip())
	}
	if c.TapQueueCapacity != nil && *c.TapQueueCapacity < 1 {
		return fmt.Errorf("tap_queue_capacity must be at least 1, got %d", *c.TapQueueCapacity)
	}
	if c.TapOverflowPolicy != nil {
		switch *c.TapOverflowPolicy {
		case OverflowDropOldest, OverflowRejectNew:
		default:
			return fmt.Errorf("tap_overflow_policy must be %q or %q, got %q",
				OverflowDropOldest, OverflowRejectNew, *c.TapOverflowPolicy)
		}
	}
	if c.BackgroundGray != nil {
		if *c.BackgroundGray < 0 || *c.BackgroundGray > 255 {
			return fmt.Errorf("background_gray must be between 0 and 255, got %f", *c.BackgroundGray)
		}
	}
	if c.PreviewWidth != nil && *c.PreviewWidth <= 0 {
		return fmt.Errorf("preview_width must be positive, got %d", *c.PreviewWidth)
	}
	if c.PreviewHeight != nil && *c.PreviewHeight <= 0 {
		return fmt.Errorf("preview_height must be positive, got %d", *c.PreviewHeight)
	}
	if c.PreviewFovDeg != nil {
		if *c.PreviewFovDeg <= 0 || *c.PreviewFovDeg >= 180 {
			return fmt.Errorf("preview_fov_deg must be in (0, 180), got %f", *c.PreviewFovDeg)
		}
	}
	return nil
}

// GetNearClip returns the near_clip value or the default.
func (c *Config) GetNearClip() float64 {
	if c.NearClip == nil {
		return 0.1
	}
	return *c.NearClip
}

// GetFarClip returns the far_clip value or the default.
func (c *Config) GetFarClip() float64 {
	if c.FarClip == nil {
		return 100.0
	}
	return *c.FarClip
}

// GetTapQueueCapacity returns the tap_queue_capacity value or the default.
func (c *Config) GetTapQueueCapacity() int {
	if c.TapQueueCapacity == nil {
		return 16
	}
	return *c.TapQueueCapacity
}

// GetTapOverflowPolicy returns the tap_overflow_policy value or the default.
func (c *Config) GetTapOverflowPolicy() string {
	if c.TapOverflowPolicy == nil || *c.TapOverflowPolicy == "" {
		return OverflowDropOldest
	}
	return *c.TapOverflowPolicy
}

// GetBackgroundGray returns the background_gray value or the default.
func (c *Config) GetBackgroundGray() float64 {
	if c.BackgroundGray == nil {
		return 0
	}
	return *c.BackgroundGray
}

// GetLogLifecycle returns the log_lifecycle value or the default.
func (c *Config) GetLogLifecycle() bool {
	if c.LogLifecycle == nil {
		return true
	}
	return *c.LogLifecycle
}

// GetJournalPath returns the journal_path value, empty when disabled.
func (c *Config) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

// GetPreviewWidth returns the preview_width value or the default.
func (c *Config) GetPreviewWidth() int {
	if c.PreviewWidth == nil {
		return 960
	}
	return *c.PreviewWidth
}

// GetPreviewHeight returns the preview_height value or the default.
func (c *Config) GetPreviewHeight() int {
	if c.PreviewHeight == nil {
		return 540
	}
	return *c.PreviewHeight
}

// GetPreviewFovDeg returns the preview_fov_deg value or the default.
func (c *Config) GetPreviewFovDeg() float64 {
	if c.PreviewFovDeg == nil {
		return 60
	}
	return *c.PreviewFovDeg
}
