package simtemp

import (
	"testing"

	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/stretchr/testify/require"
)

// Boundary values for every setter: the limits are accepted, one past
// them is rejected, and rejections leave state unchanged.
func TestSetterBoundaries(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	require.NoError(t, e.SetSamplingMS(1))
	require.NoError(t, e.SetSamplingMS(10000))
	require.Error(t, e.SetSamplingMS(0))
	require.Error(t, e.SetSamplingMS(10001))
	require.Equal(t, uint32(10000), e.SamplingMS())

	require.NoError(t, e.SetThresholdMC(-20000))
	require.NoError(t, e.SetThresholdMC(60000))
	require.Error(t, e.SetThresholdMC(-20001))
	require.Error(t, e.SetThresholdMC(60001))
	require.Equal(t, int32(60000), e.ThresholdMC())

	require.NoError(t, e.SetMode("noisy"))
	require.Error(t, e.SetMode("loud"))
	require.Equal(t, ModeNoisy, e.Mode())
}

// Round-trip law: a valid write reads back as the same value.
func TestAttrRoundTrip(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	require.NoError(t, e.WriteAttr(AttrSamplingMS, "250"))
	v, err := e.ReadAttr(AttrSamplingMS)
	require.NoError(t, err)
	require.Equal(t, "250\n", v)

	require.NoError(t, e.WriteAttr(AttrThresholdMC, "-20000\n"))
	v, err = e.ReadAttr(AttrThresholdMC)
	require.NoError(t, err)
	require.Equal(t, "-20000\n", v)

	require.NoError(t, e.WriteAttr(AttrMode, "ramp\n"))
	v, err = e.ReadAttr(AttrMode)
	require.NoError(t, err)
	require.Equal(t, "ramp\n", v)
}

// Idempotence: repeating a valid write changes nothing and advances
// no counter.
func TestSetterIdempotence(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	require.NoError(t, e.SetSamplingMS(250))
	before := e.Stats()
	require.NoError(t, e.SetSamplingMS(250))
	require.NoError(t, e.SetThresholdMC(45000))
	require.NoError(t, e.SetThresholdMC(45000))
	require.NoError(t, e.SetMode("normal"))
	require.NoError(t, e.SetMode("normal"))

	require.Equal(t, uint32(250), e.SamplingMS())
	require.Equal(t, before, e.Stats())
}

// Rejected writes surface through last_error and stay until the next
// failure overwrites them.
func TestLastErrorSticky(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	require.Error(t, e.WriteAttr(AttrSamplingMS, "0"))
	require.Equal(t, errors.ConfigurationInvalid.Code(), e.Stats().LastError)

	// A successful write does not clear it.
	require.NoError(t, e.WriteAttr(AttrSamplingMS, "250"))
	v, err := e.ReadAttr(AttrSamplingMS)
	require.NoError(t, err)
	require.Equal(t, "250\n", v)
	require.Equal(t, errors.ConfigurationInvalid.Code(), e.Stats().LastError)
}

// Unparseable and unknown attribute writes are rejected.
func TestAttrRejections(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	require.Error(t, e.WriteAttr(AttrSamplingMS, "abc"))
	require.Error(t, e.WriteAttr(AttrThresholdMC, "12.5"))
	require.Error(t, e.WriteAttr(AttrMode, "Ramp"))
	require.Error(t, e.WriteAttr(AttrStats, "0"))
	require.Error(t, e.WriteAttr("bogus", "0"))

	_, err = e.ReadAttr("bogus")
	require.Equal(t, errors.ConfigurationInvalid, errors.KindOf(err))

	// State is untouched by the rejections.
	require.Equal(t, uint32(DefaultSamplingMS), e.SamplingMS())
	require.Equal(t, int32(DefaultThresholdMC), e.ThresholdMC())
	require.Equal(t, ModeNormal, e.Mode())
}

// The stats attribute renders the three counters in their textual
// form.
func TestStatsText(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	e.tick()
	e.tick()
	require.Error(t, e.SetSamplingMS(0))

	v, err := e.ReadAttr(AttrStats)
	require.NoError(t, err)
	require.Equal(t, "updates=2\nalerts=0\nlast_error=-22\n", v)
}
