package detector

import "errors"

var (
	// ErrInvalidTraceLength means the coordinate and value sequences differ
	// in length.
	ErrInvalidTraceLength = errors.New("invalid trace length")

	// ErrDegenerateAxis means a working derivative is not finite, usually
	// because two adjacent coordinates are equal.
	ErrDegenerateAxis = errors.New("degenerate coordinate axis")

	// ErrNonFiniteSample means an input value is NaN or infinite.
	ErrNonFiniteSample = errors.New("non-finite sample")

	// ErrEmptyCalibrationWindow means the calibration region holds no usable
	// sample.
	ErrEmptyCalibrationWindow = errors.New("empty calibration window")
)
