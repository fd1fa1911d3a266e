package simtemp

import (
	"encoding/binary"

	"github.com/AlonsoVallejo/simtemp/errors"
)

// Sample flag bits.
const (
	// FlagNewSample is set on every successfully delivered record.
	FlagNewSample uint32 = 1 << iota

	// FlagThresholdCrossed is set when the reading was at or above the
	// threshold at the moment of materialization.
	FlagThresholdCrossed
)

// SampleSize is the wire size of an encoded sample record in bytes.
const SampleSize = 16

// Sample is one temperature record as handed to consumers. The wire
// form is packed little-endian: timestamp, temperature, flags.
type Sample struct {
	// TimestampNS is nanoseconds at the moment the sample was
	// materialized for the consumer.
	TimestampNS uint64 `json:"timestamp_ns"`

	// TempMC is the temperature in milli-degrees Celsius.
	TempMC int32 `json:"temp_mC"`

	// Flags is the event bitset.
	Flags uint32 `json:"flags"`
}

// Alert reports whether the threshold-crossed bit is set.
func (s Sample) Alert() bool {
	return s.Flags&FlagThresholdCrossed != 0
}

// MarshalBinary encodes the record into its packed wire layout.
func (s Sample) MarshalBinary() ([]byte, error) {
	b := make([]byte, SampleSize)
	s.put(b)
	return b, nil
}

// put writes the wire layout into b, which must hold SampleSize bytes.
func (s Sample) put(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], s.TimestampNS)
	binary.LittleEndian.PutUint32(b[8:12], uint32(s.TempMC))
	binary.LittleEndian.PutUint32(b[12:16], s.Flags)
}

// UnmarshalBinary decodes a packed record.
func (s *Sample) UnmarshalBinary(b []byte) error {
	if len(b) != SampleSize {
		return &errors.Error{
			Message:       "sample record must be exactly 16 bytes",
			Kind:          errors.BufferTooSmall,
			PropertyName:  "len",
			PropertyValue: len(b),
		}
	}
	s.TimestampNS = binary.LittleEndian.Uint64(b[0:8])
	s.TempMC = int32(binary.LittleEndian.Uint32(b[8:12]))
	s.Flags = binary.LittleEndian.Uint32(b[12:16])
	return nil
}
