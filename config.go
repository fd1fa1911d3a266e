package simtemp

import (
	"context"
	"fmt"

	"github.com/AlonsoVallejo/simtemp/errors"
)

// Configuration limits.
const (
	MinSamplingMS = 1
	MaxSamplingMS = 10000

	MinThresholdMC = -20000
	MaxThresholdMC = 60000
)

// Stats are the engine's aggregate counters.
type Stats struct {
	// Updates is the total number of ticks that produced a sample.
	Updates uint32

	// Alerts is the total number of alert-polarity edges observed by
	// read sessions. With multiple sessions this is a liveness
	// signal, not a precise global edge count.
	Alerts uint32

	// LastError is the code of the most recent recorded error, or 0.
	LastError int
}

// String renders the counters in their textual reporting form.
func (s Stats) String() string {
	return fmt.Sprintf("updates=%d\nalerts=%d\nlast_error=%d\n",
		s.Updates, s.Alerts, s.LastError)
}

// SetSamplingMS commits a new sampling period in milliseconds, used
// from the next timer re-arm onward. Values outside [1, 10000] are
// rejected and leave the period unchanged.
func (e *Engine) SetSamplingMS(v uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v < MinSamplingMS || v > MaxSamplingMS {
		return e.reject("sampling_ms", v)
	}
	e.sampling = v
	return nil
}

// SetThresholdMC commits a new alert threshold in milli-degrees
// Celsius, used on the next polarity evaluation. Values outside
// [-20000, 60000] are rejected and leave the threshold unchanged.
func (e *Engine) SetThresholdMC(v int32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v < MinThresholdMC || v > MaxThresholdMC {
		return e.reject("threshold_mC", v)
	}
	e.threshold = v
	return nil
}

// SetMode commits a new generator mode from its textual token. A
// single trailing newline is stripped; anything but an exact valid
// token is rejected and leaves the mode unchanged.
func (e *Engine) SetMode(token string) error {
	m, err := ParseMode(token)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastError = errors.ConfigurationInvalid.Code()
		e.log.Err(context.Background(), err)
		return err
	}
	e.mode = m
	return nil
}

// SamplingMS returns the configured sampling period in milliseconds.
func (e *Engine) SamplingMS() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampling
}

// ThresholdMC returns the configured alert threshold.
func (e *Engine) ThresholdMC() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// Mode returns the configured generator mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// TempMC returns the current simulated reading. Diagnostic only;
// consumers observe readings through sessions.
func (e *Engine) TempMC() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Stats returns the aggregate counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Updates:   e.updates,
		Alerts:    e.alerts,
		LastError: e.lastError,
	}
}

// reject records and returns an out-of-range configuration error.
// Called with the engine mutex held.
func (e *Engine) reject(name string, value any) error {
	err := &errors.Error{
		Message:       "configuration value out of range",
		Kind:          errors.ConfigurationInvalid,
		PropertyName:  name,
		PropertyValue: value,
	}
	e.lastError = errors.ConfigurationInvalid.Code()
	e.log.Err(context.Background(), err)
	return err
}
