package simtemp

import (
	"testing"

	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for token, want := range map[string]Mode{
		"normal":   ModeNormal,
		"noisy":    ModeNoisy,
		"ramp":     ModeRamp,
		"normal\n": ModeNormal,
		"ramp\n":   ModeRamp,
	} {
		m, err := ParseMode(token)
		require.NoError(t, err, token)
		require.Equal(t, want, m, token)
	}

	for _, token := range []string{
		"", "Normal", "NOISY", " ramp", "ramp ", "ramp\n\n", "fast",
	} {
		_, err := ParseMode(token)
		require.Equal(t, errors.ConfigurationInvalid, errors.KindOf(err), token)
	}
}

// The saw-tooth climbs in 10 mC steps, overshoots to 46010 for one
// tick, and wraps back to 44000.
func TestNormalSawtooth(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	var prev int32 = initialTempMC
	sawOvershoot := false
	sawWrap := false
	for range 450 {
		e.tick()
		cur := e.TempMC()
		require.GreaterOrEqual(t, cur, int32(44000))
		require.LessOrEqual(t, cur, int32(46010))
		if cur == 46010 {
			sawOvershoot = true
		}
		if prev == 46010 {
			require.Equal(t, int32(44000), cur)
			sawWrap = true
		}
		prev = cur
	}
	require.True(t, sawOvershoot)
	require.True(t, sawWrap)
}

// The ramp climbs and descends in 50 mC steps between the bounds.
func TestRampTriangle(t *testing.T) {
	e, err := NewEngine(WithMode("ramp"))
	require.NoError(t, err)

	var prev int32 = initialTempMC
	sawDescent := false
	for range 200 {
		e.tick()
		cur := e.TempMC()
		require.GreaterOrEqual(t, cur, int32(44000))
		require.LessOrEqual(t, cur, int32(46000))
		if cur < prev {
			sawDescent = true
		}
		prev = cur
	}
	require.True(t, sawDescent)
}

// Noise stays clamped inside the declared bounds.
func TestNoisyBounds(t *testing.T) {
	e, err := NewEngine(WithMode("noisy"))
	require.NoError(t, err)

	for range 500 {
		e.tick()
		cur := e.TempMC()
		require.GreaterOrEqual(t, cur, int32(44000))
		require.LessOrEqual(t, cur, int32(46000))
	}
}

// An unrecognized mode tag keeps the reading but preserves the sample
// cadence.
func TestUnknownModeKeepsCadence(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	e.mu.Lock()
	e.mode = Mode(99)
	e.mu.Unlock()

	e.tick()
	e.tick()

	require.Equal(t, int32(initialTempMC), e.TempMC())
	require.Equal(t, uint32(2), e.Stats().Updates)

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()
	e.tick()
	require.Equal(t, int32(initialTempMC), mustRead(t, s).TempMC)
}
