package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	vk "github.com/goki/vulkan"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/reactor/engine/core"
	"github.com/spaghettifunk/reactor/engine/platform"
	"github.com/spaghettifunk/reactor/engine/renderer/vulkan"
)

type WindowConfig struct {
	// The application name used in windowing.
	Title string `toml:"title"`
	// Window starting position.
	X int `toml:"x"`
	Y int `toml:"y"`
	// Window starting size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererSettings struct {
	FramesInFlight      uint32 `toml:"frames_in_flight"`
	// MSAA sample count: 1, 2, 4 or 8.
	Samples             uint32 `toml:"samples"`
	ShadowMapResolution uint32 `toml:"shadow_map_resolution"`
	Validation          bool   `toml:"validation"`
	VSync               bool   `toml:"vsync"`
}

type ShaderSettings struct {
	// Directory holding the compiled .spv files.
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

type ToneMappingSettings struct {
	Exposure          float32 `toml:"exposure"`
	Contrast          float32 `toml:"contrast"`
	Saturation        float32 `toml:"saturation"`
	VignetteIntensity float32 `toml:"vignette_intensity"`
	VignetteFalloff   float32 `toml:"vignette_falloff"`
	FogDensity        float32 `toml:"fog_density"`
}

type ApplicationConfig struct {
	Window      WindowConfig        `toml:"window"`
	Log         core.LogConfig      `toml:"log"`
	Renderer    RendererSettings    `toml:"renderer"`
	Shaders     ShaderSettings      `toml:"shaders"`
	ToneMapping ToneMappingSettings `toml:"tone_mapping"`
}

func DefaultConfig() ApplicationConfig {
	tm := vulkan.DefaultToneMapping()
	return ApplicationConfig{
		Window: WindowConfig{
			Title:  "Reactor",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Log: core.DefaultLogConfig(),
		Renderer: RendererSettings{
			FramesInFlight:      vulkan.DefaultFramesInFlight,
			Samples:             uint32(vulkan.DefaultSampleCount),
			ShadowMapResolution: vulkan.DefaultShadowMapResolution,
		},
		Shaders: ShaderSettings{
			Dir:       "assets/shaders",
			HotReload: true,
		},
		ToneMapping: ToneMappingSettings{
			Exposure:          tm.Exposure,
			Contrast:          tm.Contrast,
			Saturation:        tm.Saturation,
			VignetteIntensity: tm.VignetteIntensity,
			VignetteFalloff:   tm.VignetteFalloff,
			FogDensity:        tm.FogDensity,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; unknown keys are an error.
func LoadConfig(path string) (ApplicationConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return cfg, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c ApplicationConfig) Validate() error {
	var errs []error
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be non-zero", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > 3 {
		errs = append(errs, fmt.Errorf("frames_in_flight %d must be between 1 and 3", c.Renderer.FramesInFlight))
	}
	switch c.Renderer.Samples {
	case 1, 2, 4, 8:
	default:
		errs = append(errs, fmt.Errorf("samples %d must be 1, 2, 4 or 8", c.Renderer.Samples))
	}
	if r := c.Renderer.ShadowMapResolution; r == 0 || r&(r-1) != 0 {
		errs = append(errs, fmt.Errorf("shadow_map_resolution %d must be a power of two", r))
	}
	if c.Shaders.Dir == "" {
		errs = append(errs, errors.New("shaders.dir must be set"))
	}
	return errors.Join(errs...)
}

func (c ApplicationConfig) PlatformWindow() platform.WindowConfig {
	return platform.WindowConfig{
		Title:  c.Window.Title,
		X:      c.Window.X,
		Y:      c.Window.Y,
		Width:  c.Window.Width,
		Height: c.Window.Height,
	}
}

func (c ApplicationConfig) RendererConfig() vulkan.RendererConfig {
	return vulkan.RendererConfig{
		ApplicationName:     c.Window.Title,
		FramesInFlight:      c.Renderer.FramesInFlight,
		Samples:             vk.SampleCountFlagBits(c.Renderer.Samples),
		ShadowMapResolution: c.Renderer.ShadowMapResolution,
		Validation:          c.Renderer.Validation,
		VSync:               c.Renderer.VSync,
		ToneMapping: vulkan.ToneMapping{
			Exposure:          c.ToneMapping.Exposure,
			Contrast:          c.ToneMapping.Contrast,
			Saturation:        c.ToneMapping.Saturation,
			VignetteIntensity: c.ToneMapping.VignetteIntensity,
			VignetteFalloff:   c.ToneMapping.VignetteFalloff,
			FogDensity:        c.ToneMapping.FogDensity,
		},
	}
}
