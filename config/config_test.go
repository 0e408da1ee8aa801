package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Caustics.Frames)
	assert.Equal(t, 1.1, cfg.Caustics.IOR)
	assert.Equal(t, 0.3125, cfg.Caustics.WorldRadius)
	assert.Equal(t, [3]float64{5, 5, 5}, cfg.Caustics.Light)
	assert.Equal(t, 0.1, cfg.Caustics.NearPlane)
	assert.Equal(t, 0.1, cfg.Caustics.RayOffset)
	require.Len(t, cfg.Scene.Objects, 2)
	assert.Equal(t, "sun", cfg.Scene.Markers[0].Name)

	assert.Equal(t, float32(1280), cfg.Derived.ScreenW32)
	assert.Equal(t, 24, cfg.Derived.Rings)
	assert.InDelta(t, 0.5236, cfg.Derived.PitchRad, 1e-4)
	assert.Equal(t, 1, cfg.Derived.ObjectIndex["block"])

	// Objects without an explicit scale get unit scale.
	assert.Equal(t, [3]float64{1, 1, 1}, cfg.Scene.Objects[0].Scale)
}

func TestLoadOverlay(t *testing.T) {
	path := writeFile(t, `
caustics:
  frames: -1
  ior: 1.5
  backside: true
scene:
  objects:
    - name: ball
      shape: sphere
      radius: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, -1, cfg.Caustics.Frames)
	assert.Equal(t, 1.5, cfg.Caustics.IOR)
	assert.True(t, cfg.Caustics.Backside)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.05, cfg.Caustics.Intensity)
	assert.Equal(t, 1280, cfg.Screen.Width)

	// Lists are replaced, not merged.
	require.Len(t, cfg.Scene.Objects, 1)
	ball := cfg.Scene.Objects[0]
	assert.Equal(t, 2.0, ball.Radius)
	assert.Equal(t, 0.35, ball.Opacity)
	assert.Equal(t, [3]float64{1, 1, 1}, ball.Tint)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "caustics: [1, 2"},
		{"unknown shape", "scene:\n  objects:\n    - shape: torus\n"},
		{"duplicate name", "scene:\n  objects:\n    - {name: a, shape: box}\n    - {name: a, shape: sphere}\n"},
		{"marker clashes with object", "scene:\n  objects:\n    - {name: a, shape: box}\n  markers:\n    - {name: a}\n"},
		{"unnamed marker", "scene:\n  markers:\n    - {position: [1, 2, 3]}\n"},
		{"too few segments", "scene:\n  segments: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Caustics.Intensity = 0.2

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Caustics, back.Caustics)
	assert.Equal(t, cfg.Scene, back.Scene)
}

func TestGlobal(t *testing.T) {
	prev := global
	t.Cleanup(func() { global = prev })

	global = nil
	assert.Panics(t, func() { Cfg() })

	MustInit("")
	assert.Equal(t, 60, Cfg().Screen.TargetFPS)

	assert.Panics(t, func() { MustInit(filepath.Join(t.TempDir(), "missing.yaml")) })
}
