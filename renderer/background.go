package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/scene"
)

// BackgroundRenderer draws a vertical sky gradient behind the scene.
type BackgroundRenderer struct {
	shader        rl.Shader
	resolutionLoc int32
	baseColorLoc  int32

	screenW, screenH float32
	baseColor        []float32
	initialized      bool
}

// NewBackgroundRenderer creates a background renderer. base is the zenith
// colour; the horizon is a darker shade of it.
func NewBackgroundRenderer(screenW, screenH int32, base scene.Color) *BackgroundRenderer {
	return &BackgroundRenderer{
		screenW:   float32(screenW),
		screenH:   float32(screenH),
		baseColor: vec3(base),
	}
}

// Init compiles the shader. It must be called after the window is created.
func (b *BackgroundRenderer) Init() error {
	if b.initialized {
		return nil
	}
	shader, err := loadShader("", "background.fs")
	if err != nil {
		return err
	}
	b.shader = shader
	b.resolutionLoc = rl.GetShaderLocation(b.shader, "resolution")
	b.baseColorLoc = rl.GetShaderLocation(b.shader, "baseColor")
	rl.SetShaderValue(b.shader, b.baseColorLoc, b.baseColor, rl.ShaderUniformVec3)
	b.initialized = true
	b.Resize(int32(b.screenW), int32(b.screenH))
	return nil
}

// Resize updates the gradient resolution.
func (b *BackgroundRenderer) Resize(w, h int32) {
	b.screenW, b.screenH = float32(w), float32(h)
	if b.initialized {
		rl.SetShaderValue(b.shader, b.resolutionLoc, []float32{b.screenW, b.screenH}, rl.ShaderUniformVec2)
	}
}

// Draw fills the screen with the gradient, or a flat colour when the shader
// failed to load.
func (b *BackgroundRenderer) Draw() {
	if !b.initialized {
		rl.ClearBackground(rl.NewColor(to8(float64(b.baseColor[0])), to8(float64(b.baseColor[1])), to8(float64(b.baseColor[2])), 255))
		return
	}
	rl.BeginShaderMode(b.shader)
	rl.DrawRectangle(0, 0, int32(b.screenW), int32(b.screenH), rl.White)
	rl.EndShaderMode()
}

// Unload frees resources.
func (b *BackgroundRenderer) Unload() {
	if b.initialized {
		rl.UnloadShader(b.shader)
		b.initialized = false
	}
}
