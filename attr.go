package simtemp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlonsoVallejo/simtemp/errors"
)

// Attribute names exposed by the textual configuration surface.
const (
	AttrSamplingMS  = "sampling_ms"
	AttrThresholdMC = "threshold_mC"
	AttrMode        = "mode"
	AttrStats       = "stats"
)

// WriteAttr applies a textual write to a named attribute, the way a
// host exposes the engine to operators. One trailing newline is
// stripped from the value before parsing.
func (e *Engine) WriteAttr(name, value string) error {
	switch name {
	case AttrSamplingMS:
		v, err := strconv.ParseUint(strings.TrimSuffix(value, "\n"), 10, 32)
		if err != nil {
			return e.invalidAttr(name, value)
		}
		return e.SetSamplingMS(uint32(v))

	case AttrThresholdMC:
		v, err := strconv.ParseInt(strings.TrimSuffix(value, "\n"), 10, 32)
		if err != nil {
			return e.invalidAttr(name, value)
		}
		return e.SetThresholdMC(int32(v))

	case AttrMode:
		// SetMode strips the single trailing newline itself.
		return e.SetMode(value)

	case AttrStats:
		return &errors.Error{
			Message:      "attribute is read-only",
			Kind:         errors.ConfigurationInvalid,
			PropertyName: name,
		}
	}

	return &errors.Error{
		Message:      "unknown attribute",
		Kind:         errors.ConfigurationInvalid,
		PropertyName: name,
	}
}

// ReadAttr returns the textual form of a named attribute: decimal
// text for the integer fields, the literal token for the mode, and
// the multi-line counter report for stats.
func (e *Engine) ReadAttr(name string) (string, error) {
	switch name {
	case AttrSamplingMS:
		return fmt.Sprintf("%d\n", e.SamplingMS()), nil
	case AttrThresholdMC:
		return fmt.Sprintf("%d\n", e.ThresholdMC()), nil
	case AttrMode:
		return e.Mode().String() + "\n", nil
	case AttrStats:
		return e.Stats().String(), nil
	}
	return "", &errors.Error{
		Message:      "unknown attribute",
		Kind:         errors.ConfigurationInvalid,
		PropertyName: name,
	}
}

// invalidAttr records and returns an unparseable-value error.
func (e *Engine) invalidAttr(name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reject(name, value)
}
