package errors

import "log/slog"

// Attrs exposes the error's fields as structured logging attributes.
func (e *Error) Attrs() []slog.Attr {
	a := make([]slog.Attr, 0, 4)

	a = append(a, slog.Int("kind", int(e.Kind)))

	if e.NestedError != nil {
		a = append(a, slog.Any("nested_error", e.NestedError))
	}

	switch e.Kind {
	case ConfigurationInvalid, StateInvalid:
		a = append(a,
			slog.String("property_name", e.PropertyName),
			slog.Any("property_value", e.PropertyValue),
		)
	case BufferTooSmall:
		a = append(a, slog.Any("buffer_size", e.PropertyValue))
	}

	return a
}
