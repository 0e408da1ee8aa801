package renderer

import (
	"embed"
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

//go:embed shaders/*.vs shaders/*.fs
var shaderFS embed.FS

// loadShader compiles an embedded shader pair. An empty vs selects the
// raylib default vertex shader.
func loadShader(vs, fs string) (rl.Shader, error) {
	var vsCode string
	if vs != "" {
		b, err := shaderFS.ReadFile("shaders/" + vs)
		if err != nil {
			return rl.Shader{}, fmt.Errorf("reading %s: %w", vs, err)
		}
		vsCode = string(b)
	}
	b, err := shaderFS.ReadFile("shaders/" + fs)
	if err != nil {
		return rl.Shader{}, fmt.Errorf("reading %s: %w", fs, err)
	}
	shader := rl.LoadShaderFromMemory(vsCode, string(b))
	if shader.ID == 0 {
		return rl.Shader{}, fmt.Errorf("compiling %s: shader failed to load", fs)
	}
	return shader, nil
}

// ShaderSource returns an embedded shader source, for tools that compile
// shaders on their own.
func ShaderSource(name string) (string, error) {
	b, err := shaderFS.ReadFile("shaders/" + name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
