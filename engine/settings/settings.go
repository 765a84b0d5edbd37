// Package settings holds the renderer tunables and persists them as a TOML file with one table
// per subsystem (ssao, bloom, tonemap, shadow, renderer).
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/pelletier/go-toml/v2"
)

// SSAO configures the ambient occlusion pass. When State is false the occlusion texture is
// cleared to fully visible instead of computed.
type SSAO struct {
	State      bool    `toml:"state"`
	Radius     float32 `toml:"radius"`
	Bias       float32 `toml:"bias"`
	Power      int     `toml:"power"`
	KernelSize int     `toml:"kernel_size"`
}

// Bloom configures the bright-pass mip chain.
type Bloom struct {
	State         bool    `toml:"state"`
	Threshold     float32 `toml:"threshold"`
	SoftThreshold float32 `toml:"soft_threshold"`
	Levels        int     `toml:"levels"`
	Strength      float32 `toml:"strength"`
}

// Tonemap configures the final exposure and gamma mapping.
type Tonemap struct {
	Exposure float32 `toml:"exposure"`
	Gamma    float32 `toml:"gamma"`
	// ExposureSeconds is the duration of exposure transitions.
	ExposureSeconds float32 `toml:"exposure_seconds"`
}

// Shadow configures shadow map allocation.
type Shadow struct {
	Resolution int `toml:"resolution"`
	// CascadePlanes are the far view distances of each cascade, strictly increasing.
	CascadePlanes []float32 `toml:"cascade_planes"`
	Bias          float32   `toml:"bias"`
	PointBias     float32   `toml:"point_bias"`
	PointFar      float32   `toml:"point_far"`
}

// Renderer configures the G-buffer.
type Renderer struct {
	MSAA int `toml:"msaa"`
}

// Settings is the complete renderer configuration.
type Settings struct {
	SSAO     SSAO     `toml:"ssao"`
	Bloom    Bloom    `toml:"bloom"`
	Tonemap  Tonemap  `toml:"tonemap"`
	Shadow   Shadow   `toml:"shadow"`
	Renderer Renderer `toml:"renderer"`
}

// Defaults returns the settings used when no file overrides them.
//
// Returns:
//   - Settings: the default settings
func Defaults() Settings {
	return Settings{
		SSAO:     SSAO{State: true, Radius: 0.5, Bias: 0.25, Power: 2, KernelSize: 32},
		Bloom:    Bloom{State: true, Threshold: 1, SoftThreshold: 0.5, Levels: 5, Strength: 0.04},
		Tonemap:  Tonemap{Exposure: 1, Gamma: 2.2, ExposureSeconds: 0.5},
		Shadow:   Shadow{Resolution: 2048, CascadePlanes: []float32{10, 50, 200, 1000}, Bias: 0.005, PointBias: 0.02, PointFar: 25},
		Renderer: Renderer{MSAA: 4},
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.Shadow.CascadePlanes = append([]float32(nil), s.Shadow.CascadePlanes...)
	return s
}

// Normalized returns s with every out-of-range value replaced by its default. Each replacement is
// logged as a warning.
//
// Returns:
//   - Settings: the normalized settings
func (s Settings) Normalized() Settings {
	d := Defaults()
	s = s.Clone()
	fix := func(key string, bad bool, apply func()) {
		if bad {
			common.Logger().Warn("settings: invalid value replaced by default", "key", key)
			apply()
		}
	}

	fix("ssao.radius", s.SSAO.Radius <= 0, func() { s.SSAO.Radius = d.SSAO.Radius })
	fix("ssao.bias", s.SSAO.Bias < 0, func() { s.SSAO.Bias = d.SSAO.Bias })
	fix("ssao.power", s.SSAO.Power < 1, func() { s.SSAO.Power = d.SSAO.Power })
	fix("ssao.kernel_size", s.SSAO.KernelSize < 1 || s.SSAO.KernelSize > 64, func() { s.SSAO.KernelSize = d.SSAO.KernelSize })
	fix("bloom.levels", s.Bloom.Levels < 1, func() { s.Bloom.Levels = d.Bloom.Levels })
	fix("bloom.soft_threshold", s.Bloom.SoftThreshold < 0 || s.Bloom.SoftThreshold > 1, func() { s.Bloom.SoftThreshold = d.Bloom.SoftThreshold })
	fix("tonemap.exposure", s.Tonemap.Exposure <= 0, func() { s.Tonemap.Exposure = d.Tonemap.Exposure })
	fix("tonemap.gamma", s.Tonemap.Gamma <= 0, func() { s.Tonemap.Gamma = d.Tonemap.Gamma })
	fix("shadow.resolution", s.Shadow.Resolution < 1, func() { s.Shadow.Resolution = d.Shadow.Resolution })
	fix("shadow.cascade_planes", !increasing(s.Shadow.CascadePlanes), func() { s.Shadow.CascadePlanes = d.Shadow.CascadePlanes })
	fix("shadow.point_far", s.Shadow.PointFar <= 0, func() { s.Shadow.PointFar = d.Shadow.PointFar })
	fix("renderer.msaa", s.Renderer.MSAA != 1 && s.Renderer.MSAA != 4, func() { s.Renderer.MSAA = d.Renderer.MSAA })
	return s
}

func increasing(planes []float32) bool {
	if len(planes) == 0 || len(planes) > 8 || planes[0] <= 0 {
		return false
	}
	for i := 1; i < len(planes); i++ {
		if planes[i] <= planes[i-1] {
			return false
		}
	}
	return true
}

// Decode parses TOML on top of the defaults, so keys missing from data keep their default.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Settings: the normalized settings
//   - error: a decode error
func Decode(data []byte) (Settings, error) {
	s := Defaults()
	if err := toml.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("settings: decode: %w", err)
	}
	return s.Normalized(), nil
}

// Encode renders s as TOML.
func Encode(s Settings) ([]byte, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("settings: encode: %w", err)
	}
	return data, nil
}

// LoadFile reads path. A missing file yields the defaults without error.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - Settings: the settings
//   - error: a read or decode error
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("settings: read %s: %w", path, err)
	}
	return Decode(data)
}

// SaveFile writes s to path.
func SaveFile(path string, s Settings) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}
