package simtemp

import (
	"encoding/binary"
	"testing"

	"github.com/AlonsoVallejo/simtemp/errors"
	"github.com/stretchr/testify/require"
)

// The wire form is exactly 16 bytes, packed little-endian.
func TestSampleLayout(t *testing.T) {
	smp := Sample{
		TimestampNS: 0x0102030405060708,
		TempMC:      -1500,
		Flags:       FlagNewSample | FlagThresholdCrossed,
	}

	b, err := smp.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, SampleSize)

	require.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(b[0:8]))
	require.Equal(t, int32(-1500), int32(binary.LittleEndian.Uint32(b[8:12])))
	require.Equal(t, uint32(0x3), binary.LittleEndian.Uint32(b[12:16]))

	var got Sample
	require.NoError(t, got.UnmarshalBinary(b))
	require.Equal(t, smp, got)
}

func TestSampleUnmarshalShort(t *testing.T) {
	var smp Sample
	err := smp.UnmarshalBinary(make([]byte, 15))
	require.Equal(t, errors.BufferTooSmall, errors.KindOf(err))
}

// The binary encoding carries the record as an octet stream.
func TestBinaryEncoding(t *testing.T) {
	smp := Sample{TimestampNS: 42, TempMC: 44010, Flags: FlagNewSample}

	data, err := Binary{}.Serialize(smp)
	require.NoError(t, err)
	require.Equal(t, "application/octet-stream", data.ContentType)
	require.Len(t, data.Payload, SampleSize)

	got, err := Binary{}.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, smp, got)

	_, err = Binary{}.Deserialize(&Data{
		Payload:     data.Payload,
		ContentType: "application/json",
	})
	require.ErrorIs(t, err, ErrUnsupportedContentType)
}
