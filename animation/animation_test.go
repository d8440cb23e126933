package animation

import (
	"testing"
	"time"

	"github.com/delaneyj/proptree/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurvesEndpoints(t *testing.T) {
	for name, c := range map[string]Curve{
		"linear":      Linear,
		"ease":        Ease,
		"ease-in":     EaseIn,
		"ease-out":    EaseOut,
		"ease-in-out": EaseInOut,
	} {
		assert.InDelta(t, 0, c(0), 1e-9, name)
		assert.InDelta(t, 1, c(1), 1e-9, name)
	}
	// symmetric curve crosses the midpoint
	assert.InDelta(t, 0.5, EaseInOut(0.5), 1e-4)
	assert.Less(t, EaseIn(0.25), 0.25)
	assert.Greater(t, EaseOut(0.25), 0.25)
}

func TestParseCurve(t *testing.T) {
	c, err := ParseCurve("")
	require.NoError(t, err)
	assert.Equal(t, 0.3, c(0.3))

	c, err = ParseCurve("cubic-bezier(0, 0, 1, 1)")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, c(0.3), 1e-4)

	_, err = ParseCurve("bounce")
	assert.Error(t, err)
	_, err = ParseCurve("cubic-bezier(2, 0, 1, 1)")
	assert.Error(t, err)
	_, err = ParseCurve("cubic-bezier(0, 0, 1)")
	assert.Error(t, err)
}

func TestOverlaySample(t *testing.T) {
	anim := Animation{Duration: 500 * time.Millisecond}
	o := Start(anim, value.Number(0), value.Number(100), time.Second)

	assert.Equal(t, value.Number(0), o.Sample(time.Second))
	assert.Equal(t, value.Number(50), o.Sample(time.Second+250*time.Millisecond))
	assert.False(t, o.Done(time.Second+499*time.Millisecond))
	assert.True(t, o.Done(time.Second+500*time.Millisecond))
	assert.Equal(t, value.Number(100), o.Sample(time.Second+500*time.Millisecond))
	assert.Equal(t, value.Number(100), o.Sample(2*time.Second))
}

func TestOverlayDelay(t *testing.T) {
	anim := Animation{Duration: 100 * time.Millisecond, Delay: 50 * time.Millisecond}
	o := Start(anim, value.Number(0), value.Number(10), 0)

	assert.Equal(t, value.Number(0), o.Sample(40*time.Millisecond))
	assert.Equal(t, value.Number(5), o.Sample(100*time.Millisecond))
	assert.True(t, o.Done(150*time.Millisecond))
}

func TestOverlayZeroDuration(t *testing.T) {
	o := Start(Animation{}, value.Number(1), value.Number(2), 0)
	assert.True(t, o.Done(0))
	assert.Equal(t, value.Number(2), o.Sample(0))
}
