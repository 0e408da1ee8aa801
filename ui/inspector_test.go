package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/caustics/telemetry"
)

func TestBufferSections(t *testing.T) {
	data := BufferInspectorData{
		Front: telemetry.BufferStats{Mean: 0.25, Max: 2, P99: 0.75, Coverage: 0.5, LitP99: 1.5},
		Back:  telemetry.BufferStats{},
	}
	sections := BufferSections()
	require.Len(t, sections, 2)

	values := make(map[string]float32)
	for _, fd := range sections[0].Fields {
		if fd.Getter != nil {
			values[fd.ID] = fd.Getter(data)
		}
	}
	assert.Equal(t, map[string]float32{"mean": 0.25, "max": 2, "p99": 0.75, "coverage": 0.5}, values)
	assert.Equal(t, "1.5000", fieldText(sections[0].Fields[4], data))
	assert.Equal(t, "-", fieldText(sections[1].Fields[4], data), "unlit buffer")

	assert.Nil(t, sections[0].Visible)
	assert.False(t, sections[1].Visible(data))
	data.Backside = true
	assert.True(t, sections[1].Visible(data))
}

func TestSectionHeight(t *testing.T) {
	r := NewRenderer()
	sd := SectionDescriptor{
		Title: "S",
		Fields: []FieldDescriptor{
			{Widget: WidgetText},
			{Widget: WidgetBar},
			{Widget: WidgetSpacer},
			{Widget: WidgetText, Visible: func(any) bool { return false }},
		},
	}
	th := r.Theme
	assert.Equal(t, th.LineHeight*2+th.LineHeight+2+6+4, r.SectionHeight(sd, nil))

	sd.Visible = func(any) bool { return false }
	assert.Equal(t, int32(0), r.SectionHeight(sd, nil))
}

func TestFieldRangeNormalize(t *testing.T) {
	r := FieldRange{Min: -1, Max: 3}
	assert.Equal(t, float32(0.5), r.Normalize(1))
	assert.Equal(t, float32(0), r.Normalize(-5))
	assert.Equal(t, float32(1), r.Normalize(10))
	assert.Equal(t, float32(0), FieldRange{}.Normalize(1))
}
