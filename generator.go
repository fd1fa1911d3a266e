package simtemp

import (
	"math/rand/v2"
	"strings"

	"github.com/AlonsoVallejo/simtemp/errors"
)

// Mode selects the temperature generator.
type Mode int

// The available generator modes.
const (
	ModeNormal Mode = iota
	ModeNoisy
	ModeRamp
)

// Simulated reading behavior in milli-degrees Celsius.
const (
	tempFloorMC  = 44000
	tempCeilMC   = 46000
	normalStepMC = 10
	rampStepMC   = 50
	noiseSpanMC  = 100
)

// String returns the textual token for the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeNoisy:
		return "noisy"
	case ModeRamp:
		return "ramp"
	}
	return "unknown"
}

// ParseMode parses a mode token. A single trailing newline is
// stripped; tokens are otherwise matched exactly.
func ParseMode(s string) (Mode, error) {
	switch strings.TrimSuffix(s, "\n") {
	case "normal":
		return ModeNormal, nil
	case "noisy":
		return ModeNoisy, nil
	case "ramp":
		return ModeRamp, nil
	}
	return 0, &errors.Error{
		Message:       "unrecognized mode",
		Kind:          errors.ConfigurationInvalid,
		PropertyName:  "mode",
		PropertyValue: s,
	}
}

// step advances the reading by one tick of the current mode. Called
// with the engine mutex held.
func (e *Engine) step() {
	switch e.mode {
	case ModeNormal:
		// The wrap check runs before the increment, so the one-step
		// overshoot past the ceiling stays visible for a full period.
		if e.current > tempCeilMC {
			e.current = tempFloorMC
		} else {
			e.current += normalStepMC
		}

	case ModeNoisy:
		e.current += int32(rand.IntN(2*noiseSpanMC+1) - noiseSpanMC)
		if e.current < tempFloorMC {
			e.current = tempFloorMC
		} else if e.current > tempCeilMC {
			e.current = tempCeilMC
		}

	case ModeRamp:
		e.current += e.rampDir * rampStepMC
		if e.current >= tempCeilMC {
			e.current = tempCeilMC
			e.rampDir = -1
		} else if e.current <= tempFloorMC {
			e.current = tempFloorMC
			e.rampDir = 1
		}

	default:
		// An unrecognized mode keeps the reading; the tick still
		// counts as a produced sample so the cadence contract holds.
	}
}
