// Package config provides configuration loading and access for the caustics tools.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Caustics  CausticsConfig  `yaml:"caustics"`
	Scene     SceneConfig     `yaml:"scene"`
	View      ViewConfig      `yaml:"view"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Calibrate CalibrateConfig `yaml:"calibrate"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CausticsConfig holds the pipeline parameters.
type CausticsConfig struct {
	Frames       int        `yaml:"frames"`       // -1 = recompute every update
	IOR          float64    `yaml:"ior"`          // Front surface n2/n1
	BacksideIOR  float64    `yaml:"backside_ior"` // Back surface n2/n1
	Backside     bool       `yaml:"backside"`
	WorldRadius  float64    `yaml:"world_radius"` // World-space feature size
	Intensity    float64    `yaml:"intensity"`
	Resolution   int        `yaml:"resolution"` // Buffer size in texels
	Color        [3]float64 `yaml:"color"`
	CausticsOnly bool       `yaml:"caustics_only"`
	Light        [3]float64 `yaml:"light"`       // Direction toward the light
	TrackLight   string     `yaml:"track_light"` // Marker name; overrides light when set
	NearPlane    float64    `yaml:"near_plane"`
	RayOffset    float64    `yaml:"ray_offset"`
	Debug        bool       `yaml:"debug"`
}

// SceneConfig describes the demo scene.
type SceneConfig struct {
	Segments int            `yaml:"segments"` // Sphere tessellation (rings = segments/2)
	Objects  []ObjectConfig `yaml:"objects"`
	Markers  []MarkerConfig `yaml:"markers"`
	Ground   GroundConfig   `yaml:"ground"`
}

// ObjectConfig is one refractive object.
type ObjectConfig struct {
	Name     string     `yaml:"name"`
	Shape    string     `yaml:"shape"` // sphere | box
	Position [3]float64 `yaml:"position"`
	Rotation [3]float64 `yaml:"rotation"` // Euler XYZ in degrees
	Scale    [3]float64 `yaml:"scale"`    // Zero = unit scale
	Radius   float64    `yaml:"radius"`   // Sphere radius
	Size     [3]float64 `yaml:"size"`     // Box edge lengths
	Tint     [3]float64 `yaml:"tint"`
	Opacity  float64    `yaml:"opacity"`
}

// MarkerConfig is a named transform-only node, e.g. a light to track.
type MarkerConfig struct {
	Name     string     `yaml:"name"`
	Position [3]float64 `yaml:"position"`
}

// GroundConfig holds the receiving ground plane.
type GroundConfig struct {
	Height float64    `yaml:"height"`
	Size   float64    `yaml:"size"`
	Albedo [3]float64 `yaml:"albedo"`
}

// ViewConfig holds the orbit camera used to look at the scene.
type ViewConfig struct {
	Distance float64    `yaml:"distance"`
	Yaw      float64    `yaml:"yaw"`   // Degrees around +Y
	Pitch    float64    `yaml:"pitch"` // Degrees above the horizon
	FovY     float64    `yaml:"fovy"`  // Degrees
	Target   [3]float64 `yaml:"target"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow int    `yaml:"perf_window"` // Rolling window of timed updates
	StatsEvery int    `yaml:"stats_every"` // Buffer stats cadence in updates
	OutputDir  string `yaml:"output_dir"`
}

// CalibrateConfig holds the auto-exposure search settings.
type CalibrateConfig struct {
	TargetP99  float64 `yaml:"target_p99"`
	MaxIter    int     `yaml:"max_iter"`
	Resolution int     `yaml:"resolution"` // Bake resolution during the search
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW32   float32 // Screen.Width as float32
	ScreenH32   float32 // Screen.Height as float32
	Rings       int     // Sphere rings from Scene.Segments
	PitchRad    float64 // View.Pitch in radians
	YawRad      float64 // View.Yaw in radians
	FovYRad     float64 // View.FovY in radians
	ObjectIndex map[string]int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate checks the settings the loader itself depends on. Pipeline
// parameters are validated where they are consumed.
func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, obj := range c.Scene.Objects {
		switch obj.Shape {
		case "sphere", "box":
		default:
			return fmt.Errorf("scene object %d: unknown shape %q", i, obj.Shape)
		}
		if obj.Name == "" {
			continue
		}
		if seen[obj.Name] {
			return fmt.Errorf("scene object %d: duplicate name %q", i, obj.Name)
		}
		seen[obj.Name] = true
	}
	for i, m := range c.Scene.Markers {
		if m.Name == "" {
			return fmt.Errorf("scene marker %d: missing name", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("scene marker %d: duplicate name %q", i, m.Name)
		}
		seen[m.Name] = true
	}
	if c.Scene.Segments < 3 {
		return fmt.Errorf("scene segments %d: need at least 3", c.Scene.Segments)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.Rings = max(2, c.Scene.Segments/2)
	c.Derived.PitchRad = c.View.Pitch * math.Pi / 180
	c.Derived.YawRad = c.View.Yaw * math.Pi / 180
	c.Derived.FovYRad = c.View.FovY * math.Pi / 180

	// Unset scale and opacity fall back to identity values
	for i := range c.Scene.Objects {
		obj := &c.Scene.Objects[i]
		if obj.Scale == [3]float64{} {
			obj.Scale = [3]float64{1, 1, 1}
		}
		if obj.Tint == [3]float64{} {
			obj.Tint = [3]float64{1, 1, 1}
		}
		if obj.Opacity == 0 {
			obj.Opacity = 0.35
		}
	}

	c.Derived.ObjectIndex = make(map[string]int, len(c.Scene.Objects))
	for i, obj := range c.Scene.Objects {
		if obj.Name != "" {
			c.Derived.ObjectIndex[obj.Name] = i
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
