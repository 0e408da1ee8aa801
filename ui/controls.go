package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/caustics"
)

// ControlsPanel lists the overlay toggles with their keys.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x, c.y = x, y
}

// Draw renders the panel and returns the Y below it.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry) int32 {
	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	totalItems := 0
	for _, cat := range categories {
		totalItems += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(totalItems)*lineHeight + int32(len(categories))*4 + padding*2 + lineHeight + 4
	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	y := c.y + padding
	rl.DrawText("Overlays", c.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight
		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(c.x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lineHeight
		}
		y += 4
	}
	return c.y + panelHeight
}

func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	nameColor := r.Theme.LabelColor
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
		nameColor = rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

func categoryLabel(cat string) string {
	switch cat {
	case "caustics":
		return "Caustics"
	case "debug":
		return "Debug"
	case "panels":
		return "Panels"
	default:
		return cat
	}
}

// ParamSlider binds one slider to a parameter.
type ParamSlider struct {
	Label    string
	Min, Max float32
	Format   string
	Get      func(*caustics.Params) float64
	Set      func(*caustics.Params, float64)
}

// ParamSliders are the tunable parameters shown in the panel.
var ParamSliders = []ParamSlider{
	{
		Label: "IOR", Min: 0.5, Max: 2, Format: "%.3f",
		Get: func(p *caustics.Params) float64 { return p.IOR },
		Set: func(p *caustics.Params, v float64) { p.IOR = v },
	},
	{
		Label: "Backside IOR", Min: 0.5, Max: 2, Format: "%.3f",
		Get: func(p *caustics.Params) float64 { return p.BacksideIOR },
		Set: func(p *caustics.Params, v float64) { p.BacksideIOR = v },
	},
	{
		Label: "Intensity", Min: 0.001, Max: 0.5, Format: "%.3f",
		Get: func(p *caustics.Params) float64 { return p.Intensity },
		Set: func(p *caustics.Params, v float64) { p.Intensity = v },
	},
	{
		Label: "World Radius", Min: 0.01, Max: 2, Format: "%.3f",
		Get: func(p *caustics.Params) float64 { return p.WorldRadius },
		Set: func(p *caustics.Params, v float64) { p.WorldRadius = v },
	},
}

// ApplySlider sets slider s on p, clamped to the slider range. It reports
// whether the value changed.
func ApplySlider(p *caustics.Params, s ParamSlider, v float32) bool {
	v = min(max(v, s.Min), s.Max)
	if float32(s.Get(p)) == v {
		return false
	}
	s.Set(p, float64(v))
	return true
}

// ParamsPanel edits the caustics parameters with raygui sliders.
type ParamsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewParamsPanel creates a parameter panel.
func NewParamsPanel(x, y, width int32) *ParamsPanel {
	return &ParamsPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (pp *ParamsPanel) SetPosition(x, y int32) {
	pp.x, pp.y = x, y
}

// Draw renders the sliders for p and returns the edited parameters and
// whether any slider moved.
func (pp *ParamsPanel) Draw(p caustics.Params) (caustics.Params, bool) {
	r := pp.renderer
	padding := r.Theme.Padding
	rowHeight := int32(36)
	panelHeight := padding*2 + 22 + rowHeight*int32(len(ParamSliders))
	r.DrawPanel(pp.x, pp.y, pp.width, panelHeight)

	x := float32(pp.x + padding)
	y := pp.y + padding
	rl.DrawText("Caustics", pp.x+padding, y, 16, rl.White)
	y += 22

	sliderWidth := float32(pp.width - padding*2 - 60)
	changed := false
	for _, s := range ParamSliders {
		rl.DrawText(s.Label, int32(x), y, r.Theme.FontSize, r.Theme.LabelColor)
		cur := float32(s.Get(&p))
		v := gui.SliderBar(
			rl.Rectangle{X: x, Y: float32(y + 14), Width: sliderWidth, Height: 16},
			"", "",
			cur, s.Min, s.Max,
		)
		rl.DrawText(fmt.Sprintf(s.Format, s.Get(&p)), int32(x+sliderWidth+6), y+16, r.Theme.FontSize, r.Theme.ValueColor)
		if v != cur && ApplySlider(&p, s, v) {
			changed = true
		}
		y += rowHeight
	}
	return p, changed
}
