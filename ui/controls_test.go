package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pthm-cable/caustics/caustics"
)

func TestParamSlidersCoverDefaults(t *testing.T) {
	p := caustics.DefaultParams()
	for _, s := range ParamSliders {
		v := float32(s.Get(&p))
		assert.GreaterOrEqual(t, v, s.Min, s.Label)
		assert.LessOrEqual(t, v, s.Max, s.Label)
	}
}

func TestApplySlider(t *testing.T) {
	p := caustics.DefaultParams()
	ior := ParamSliders[0]

	assert.False(t, ApplySlider(&p, ior, float32(p.IOR)), "same value is no change")
	assert.True(t, ApplySlider(&p, ior, 1.25))
	assert.Equal(t, 1.25, p.IOR)

	assert.True(t, ApplySlider(&p, ior, 10))
	assert.Equal(t, 2.0, p.IOR, "clamped to the slider range")
	assert.False(t, ApplySlider(&p, ior, 3))

	radius := ParamSliders[3]
	assert.True(t, ApplySlider(&p, radius, 0.5))
	assert.Equal(t, 0.5, p.WorldRadius)
	assert.Equal(t, 2.0, p.IOR, "other parameters untouched")
	assert.NoError(t, p.Validate())
}
