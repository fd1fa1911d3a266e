package simtemp

import (
	"encoding/json"
	stderr "errors"

	"github.com/AlonsoVallejo/simtemp/errors"
)

type (
	// Encoding translates a sample payload type T to and from its
	// transmitted form. All methods *must* be thread-safe.
	Encoding[T any] interface {
		Serialize(T) (*Data, error)
		Deserialize(*Data) (T, error)
	}

	// Data represents encoded values along with their transmitted content type.
	Data struct {
		Payload       []byte
		ContentType   string
		PayloadFormat byte
	}

	// Binary is the packed little-endian sample-record encoding.
	Binary struct{}

	// JSON is a simple implementation of a JSON encoding.
	JSON[T any] struct{}
)

// ErrUnsupportedContentType should be returned if the content type is not
// supported by this encoding.
var ErrUnsupportedContentType = stderr.New("unsupported content type")

// Utility to serialize with an engine error.
func serialize[T any](encoding Encoding[T], value T) (*Data, error) {
	data, err := encoding.Serialize(value)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return nil, e
		}
		return nil, &errors.Error{
			Message:     "cannot serialize payload",
			Kind:        errors.TransportFailure,
			NestedError: err,
		}
	}
	return data, nil
}

// Serialize encodes the sample record into its 16-byte wire form.
func (Binary) Serialize(s Sample) (*Data, error) {
	b, err := s.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Data{b, "application/octet-stream", 0}, nil
}

// Deserialize decodes a 16-byte sample record.
func (Binary) Deserialize(data *Data) (Sample, error) {
	var s Sample
	switch data.ContentType {
	case "", "application/octet-stream":
		err := s.UnmarshalBinary(data.Payload)
		return s, err
	default:
		return s, ErrUnsupportedContentType
	}
}

// Serialize translates the Go type T into JSON bytes.
func (JSON[T]) Serialize(t T) (*Data, error) {
	bytes, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return &Data{bytes, "application/json", 1}, nil
}

// Deserialize translates JSON bytes into the Go type T.
func (JSON[T]) Deserialize(data *Data) (T, error) {
	var t T
	switch data.ContentType {
	case "", "application/json":
		err := json.Unmarshal(data.Payload, &t)
		return t, err
	default:
		return t, ErrUnsupportedContentType
	}
}
