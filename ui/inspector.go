package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/telemetry"
)

// BufferInspectorData is what the buffer inspector shows.
type BufferInspectorData struct {
	Front    telemetry.BufferStats
	Back     telemetry.BufferStats
	Backside bool
}

// BufferInspector shows statistics of the caustics buffers.
type BufferInspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
	sections []SectionDescriptor
}

// NewBufferInspector creates a buffer inspector.
func NewBufferInspector(x, y, width int32) *BufferInspector {
	return &BufferInspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		sections: BufferSections(),
	}
}

// SetPosition updates the panel position.
func (ins *BufferInspector) SetPosition(x, y int32) {
	ins.x, ins.y = x, y
}

// Draw renders the panel and returns the Y below it.
func (ins *BufferInspector) Draw(data BufferInspectorData) int32 {
	r := ins.renderer
	padding := r.Theme.Padding

	height := padding*2 + 20
	for _, sd := range ins.sections {
		height += r.SectionHeight(sd, data)
	}
	r.DrawPanel(ins.x, ins.y, ins.width, height)

	y := ins.y + padding
	rl.DrawText("Caustics Buffers", ins.x+padding, y, 16, rl.White)
	y += 20
	for _, sd := range ins.sections {
		y = r.DrawSection(ins.x+padding, y, sd, data, ins.width-padding*2)
	}
	return ins.y + height
}

// BufferSections describes the inspector layout: one section per buffer.
// The back section is hidden while back faces are not estimated.
func BufferSections() []SectionDescriptor {
	front := func(d any) telemetry.BufferStats { return d.(BufferInspectorData).Front }
	back := func(d any) telemetry.BufferStats { return d.(BufferInspectorData).Back }
	return []SectionDescriptor{
		{ID: "front", Title: "Front", Fields: bufferFields(front)},
		{
			ID:      "back",
			Title:   "Back",
			Fields:  bufferFields(back),
			Visible: func(d any) bool { return d.(BufferInspectorData).Backside },
		},
	}
}

func bufferFields(stats func(any) telemetry.BufferStats) []FieldDescriptor {
	return []FieldDescriptor{
		{
			ID: "mean", Label: "Mean", Widget: WidgetText, Format: "%.4f",
			Getter: func(d any) float32 { return float32(stats(d).Mean) },
		},
		{
			ID: "max", Label: "Max", Widget: WidgetText, Format: "%.4f",
			Getter: func(d any) float32 { return float32(stats(d).Max) },
		},
		{
			ID: "p99", Label: "P99", Widget: WidgetBar, Range: DefaultRange(), Format: "%.3f",
			Getter: func(d any) float32 { return float32(stats(d).P99) },
		},
		{
			ID: "coverage", Label: "Coverage", Widget: WidgetBar, Range: DefaultRange(), Format: "%.2f",
			Getter: func(d any) float32 { return float32(stats(d).Coverage) },
		},
		{
			ID: "lit_p99", Label: "Lit P99", Widget: WidgetText,
			TextGetter: func(d any) string {
				s := stats(d)
				if s.Coverage == 0 {
					return "-"
				}
				return fmt.Sprintf("%.4f", s.LitP99)
			},
		},
	}
}
