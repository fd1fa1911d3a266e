package simtemp

import (
	"context"
	"testing"
	"time"

	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/stretchr/testify/require"
)

// A fresh session's first read waits for the next tick; no stale
// sample is delivered.
func TestFirstReadBlocks(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	// Samples exist before the session opens.
	e.tick()
	e.tick()

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.ReadSample(ctx)
	require.Equal(t, errors.Cancellation, errors.KindOf(err))

	e.tick()
	require.Equal(t, int32(44030), mustRead(t, s).TempMC)
}

// An interrupted wait leaves the cursor unchanged; the next read
// returns the next produced sample.
func TestInterrupt(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := s.ReadSample(ctx)
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.Equal(t, errors.Cancellation, errors.KindOf(err))
	case <-time.After(time.Second):
		t.Fatal("read not interrupted")
	}

	e.tick()
	require.Equal(t, int32(44010), mustRead(t, s).TempMC)
}

// A device-style read delivers exactly one full record.
func TestDeviceRead(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()

	e.tick()

	buf := make([]byte, SampleSize)
	n, err := s.Read(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, SampleSize, n)

	var smp Sample
	require.NoError(t, smp.UnmarshalBinary(buf))
	require.Equal(t, int32(44010), smp.TempMC)
	require.Equal(t, FlagNewSample, smp.Flags)
}

// A short buffer fails the read without consuming the sample, and the
// failure is visible in last_error.
func TestReadBufferTooSmall(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()

	e.tick()

	_, err = s.Read(context.Background(), make([]byte, 8))
	require.Equal(t, errors.BufferTooSmall, errors.KindOf(err))
	require.Equal(t, errors.BufferTooSmall.Code(), e.Stats().LastError)

	// The sample was not dropped.
	buf := make([]byte, SampleSize)
	n, err := s.Read(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, SampleSize, n)

	var smp Sample
	require.NoError(t, smp.UnmarshalBinary(buf))
	require.Equal(t, int32(44010), smp.TempMC)
}

// Poll reports the readable and priority bits independently and does
// not mutate the session.
func TestPoll(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()

	r, _ := s.Poll()
	require.Equal(t, Readiness(0), r)

	e.tick()
	r, _ = s.Poll()
	require.Equal(t, Readable, r)

	// Polling again observes the same state.
	r, _ = s.Poll()
	require.Equal(t, Readable, r)

	// Dropping the threshold below the reading flips the polarity
	// relative to this session's view.
	require.NoError(t, e.SetThresholdMC(44000))
	r, _ = s.Poll()
	require.Equal(t, Readable|Priority, r)

	// Consuming the sample clears both bits.
	mustRead(t, s)
	r, _ = s.Poll()
	require.Equal(t, Readiness(0), r)
}

// The channel returned by Poll is closed on the next tick, so callers
// can suspend until a state change.
func TestPollWake(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()

	r, wake := s.Poll()
	require.Equal(t, Readiness(0), r)

	select {
	case <-wake:
		t.Fatal("woken without a tick")
	case <-time.After(20 * time.Millisecond):
	}

	e.tick()

	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("not woken by tick")
	}

	r, _ = s.Poll()
	require.Equal(t, Readable, r)
}

// Reading a closed session is rejected.
func TestClosedSession(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	s, err := e.Open()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ReadSample(context.Background())
	require.Equal(t, errors.StateInvalid, errors.KindOf(err))
}

// Sessions are created against the current polarity, so a session
// opened above the threshold does not count a boot edge.
func TestSessionInitialPolarity(t *testing.T) {
	e, err := NewEngine(WithThresholdMC(44000))
	require.NoError(t, err)

	s, err := e.Open()
	require.NoError(t, err)
	defer s.Close()

	e.tick()
	smp := mustRead(t, s)
	require.True(t, smp.Alert())
	require.Equal(t, uint32(0), e.Stats().Alerts)
}
