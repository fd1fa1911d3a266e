package simtemp

import (
	"context"
	"log/slog"

	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/google/uuid"
)

type (
	// Session is a per-consumer cursor over the engine's sample
	// stream, tracking the last observed sequence number and alert
	// polarity. A session must not be used from multiple goroutines
	// concurrently.
	Session struct {
		engine    *Engine
		id        string
		lastSeq   uint32
		lastAlert bool
		closed    bool
	}

	// Readiness is the bitmask returned by Poll.
	Readiness uint8
)

// Readiness bits. Both are independent; both may be set.
const (
	// Readable indicates a sample newer than the session cursor.
	Readable Readiness = 1 << iota

	// Priority indicates the alert polarity flipped since the session
	// last observed it.
	Priority
)

// Open creates a session whose cursor starts at the current state, so
// its first read waits for the next tick rather than returning an
// already-present sample.
func (e *Engine) Open() (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		e.mu.Lock()
		e.lastError = errors.NoMemory.Code()
		e.mu.Unlock()
		return nil, &errors.Error{
			Message:     "cannot allocate session",
			Kind:        errors.NoMemory,
			NestedError: err,
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, shutdownError()
	}

	s := &Session{
		engine:    e,
		id:        id.String(),
		lastSeq:   e.seq,
		lastAlert: e.current >= e.threshold,
	}
	e.log.Debug(context.Background(), "session opened",
		slog.String("session", s.id))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Close discards the session cursor. A read blocked on this session
// must be cancelled by the caller first.
func (s *Session) Close() error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	s.closed = true
	e.log.Debug(context.Background(), "session closed",
		slog.String("session", s.id))
	return nil
}

// ReadSample blocks until a sample strictly newer than the session
// cursor exists, then returns it and advances the cursor. It returns
// a Cancellation error if ctx ends first and a Shutdown error if the
// engine stops.
func (s *Session) ReadSample(ctx context.Context) (Sample, error) {
	return s.read(ctx, nil)
}

// Read encodes the next sample into p, behaving like a device read:
// exactly one full record per call, never a partial one. It fails
// with BufferTooSmall if p cannot hold a record, leaving the cursor
// in place so the sample is not dropped.
func (s *Session) Read(ctx context.Context, p []byte) (int, error) {
	_, err := s.read(ctx, func(smp Sample) error {
		if len(p) < SampleSize {
			return &errors.Error{
				Message:       "buffer smaller than sample record",
				Kind:          errors.BufferTooSmall,
				PropertyName:  "len",
				PropertyValue: len(p),
			}
		}
		smp.put(p)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return SampleSize, nil
}

// read implements the blocking read protocol. deliver runs outside
// the engine mutex; a delivery error aborts the read without
// advancing the cursor, so the next call observes the sample again.
// The cursor update is the commit point.
func (s *Session) read(
	ctx context.Context,
	deliver func(Sample) error,
) (Sample, error) {
	e := s.engine

	e.mu.Lock()
	if s.closed {
		e.mu.Unlock()
		return Sample{}, &errors.Error{
			Message: "session closed",
			Kind:    errors.StateInvalid,
		}
	}

	// Suspend until the sequence advances past the session cursor.
	prev := s.lastSeq
	for e.seq == prev {
		if e.stopped {
			e.mu.Unlock()
			return Sample{}, shutdownError()
		}
		wake := e.wake
		e.mu.Unlock()

		select {
		case <-wake:
		case <-e.done:
			return Sample{}, shutdownError()
		case <-ctx.Done():
			return Sample{}, errors.Context(ctx, "sample read")
		}

		e.mu.Lock()
	}

	// Snapshot the reading atomically with its sequence number, and
	// account the alert edge against this session's last polarity.
	alert := e.current >= e.threshold
	if alert != s.lastAlert {
		e.alerts++
	}
	smp := Sample{
		TimestampNS: uint64(e.clock.Now().UnixNano()),
		TempMC:      e.current,
		Flags:       FlagNewSample,
	}
	if alert {
		smp.Flags |= FlagThresholdCrossed
	}
	seq := e.seq
	e.mu.Unlock()

	if deliver != nil {
		if err := deliver(smp); err != nil {
			e.fail(err)
			e.log.Err(ctx, err)
			return Sample{}, err
		}
	}

	e.mu.Lock()
	s.lastSeq = seq
	s.lastAlert = alert
	e.mu.Unlock()
	return smp, nil
}

// Poll answers two independent questions for this session without
// consuming anything: is a new sample waiting, and has the alert
// polarity flipped since the session last looked. The returned
// channel is closed on the next tick (or on shutdown), so callers
// can layer a bounded wait over the probe.
func (s *Session) Poll() (Readiness, <-chan struct{}) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	var r Readiness
	if e.seq != s.lastSeq {
		r |= Readable
	}
	if (e.current >= e.threshold) != s.lastAlert {
		r |= Priority
	}
	return r, e.wake
}
