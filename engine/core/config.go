package core

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Extent of the offscreen draw and depth images. Sized for the largest
	// monitor so window resizes never touch them.
	MaxWidth       uint32  `toml:"max_width"`
	MaxHeight      uint32  `toml:"max_height"`
	RenderScale    float32 `toml:"render_scale"`
	EnableCulling  bool    `toml:"enable_culling"`
	FenceTimeoutMS uint64  `toml:"fence_timeout_ms"`
	Validation     bool    `toml:"validation"`
	ShaderDir      string  `toml:"shader_dir"`
	Effect         int     `toml:"effect"`
}

type SceneConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Scene    SceneConfig    `toml:"scene"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Title:  "Lumen",
			X:      100,
			Y:      100,
			Width:  1920,
			Height: 1080,
		},
		Renderer: RendererConfig{
			MaxWidth:       2560,
			MaxHeight:      1440,
			RenderScale:    1.0,
			FenceTimeoutMS: 1000,
			ShaderDir:      "shaders",
		},
		Scene: SceneConfig{
			Path: "assets/structure.glb",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing file
// is not an error. A .env file next to it is loaded before the LUMEN_*
// environment overrides are applied.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	case os.IsNotExist(err):
		LogDebug("config file %s not found, using defaults", path)
	default:
		return cfg, errors.Wrapf(err, "failed to read config file %s", path)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrapf(err, "failed to load %s", envFile)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("LUMEN_SCENE"); ok {
		cfg.Scene.Path = v
	}
	if v, ok := os.LookupEnv("LUMEN_LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("LUMEN_VALIDATION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "LUMEN_VALIDATION")
		}
		cfg.Renderer.Validation = b
	}
	if v, ok := os.LookupEnv("LUMEN_ENABLE_CULLING"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "LUMEN_ENABLE_CULLING")
		}
		cfg.Renderer.EnableCulling = b
	}
	return nil
}

func (c Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Newf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MaxWidth == 0 || c.Renderer.MaxHeight == 0 {
		return errors.Newf("invalid draw image size %dx%d", c.Renderer.MaxWidth, c.Renderer.MaxHeight)
	}
	if c.Renderer.RenderScale <= 0 || c.Renderer.RenderScale > 1 {
		return errors.Newf("render_scale must be in (0, 1], got %f", c.Renderer.RenderScale)
	}
	if c.Renderer.FenceTimeoutMS == 0 {
		return errors.New("fence_timeout_ms must be positive")
	}
	return nil
}
