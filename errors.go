package tdms

import "errors"

// Error kinds returned by this package. Callers should use [errors.Is]
// against these sentinels; wrapped detail is available via [errors.Unwrap]
// or by inspecting the error string.
var (
	// ErrIO indicates that the underlying reader, writer, or seeker failed.
	ErrIO = errors.New("tdms: i/o failure")

	// ErrReadFailed indicates that reading data from the underlying file or
	// reader failed, typically because fewer bytes were available than the
	// format declared.
	ErrReadFailed = errors.New("tdms: failed to read data")

	// ErrWriteFailed indicates that writing data to the underlying writer
	// failed.
	ErrWriteFailed = errors.New("tdms: failed to write data")

	// ErrInvalidFileFormat indicates that the TDMS file structure is
	// malformed or doesn't conform to the specification.
	ErrInvalidFileFormat = errors.New("tdms: invalid file format")

	// ErrInvalidTag indicates a segment's lead-in did not start with the
	// expected "TDSm" or "TDSh" magic bytes.
	ErrInvalidTag = errors.New("tdms: invalid segment tag")

	// ErrUnsupportedVersion indicates that the TDMS file uses a version not
	// supported by this library (anything other than 4712 or 4713).
	ErrUnsupportedVersion = errors.New("tdms: unsupported version")

	// ErrTruncatedSegment indicates a segment's declared length exceeds the
	// bytes actually available, or it carries the "writer crashed"
	// sentinel next-segment-offset. Both cases are recoverable by treating
	// the segment as the last one and truncating to what's present.
	ErrTruncatedSegment = errors.New("tdms: truncated segment")

	// ErrMalformedPath indicates an object path has unbalanced quotes or
	// otherwise doesn't match the path grammar.
	ErrMalformedPath = errors.New("tdms: malformed object path")

	// ErrInvalidUTF8 indicates a length-prefixed string did not contain
	// valid UTF-8.
	ErrInvalidUTF8 = errors.New("tdms: invalid utf-8 in string")

	// ErrLengthOverflow indicates a length-prefixed field declared a size
	// too large to be plausible (and would otherwise cause an enormous or
	// overflowing allocation).
	ErrLengthOverflow = errors.New("tdms: length prefix overflow")

	// ErrTypeMismatch indicates a write to an existing channel with a data
	// type different from the one it was created with, or a read request
	// for a channel using a different target type.
	ErrTypeMismatch = errors.New("tdms: data type mismatch")

	// ErrIncorrectType indicates a [Property] accessor was called for a
	// type other than the property's actual [DataType].
	ErrIncorrectType = errors.New("tdms: incorrect property type")

	// ErrUnknownTypeCode indicates a property or raw-data type code is not
	// one of the recognised TDMS type codes.
	ErrUnknownTypeCode = errors.New("tdms: unknown type code")

	// ErrUnsupportedType indicates an operation (usually encoding) was
	// attempted on a data type this library cannot produce, such as
	// extended-precision floats.
	ErrUnsupportedType = errors.New("tdms: unsupported data type")

	// ErrDAQmxUnsupportedOperation indicates an attempt to modify the raw
	// layout of a DAQmx-scaled channel. DAQmx raw data is round-trip only.
	ErrDAQmxUnsupportedOperation = errors.New("tdms: DAQmx raw layout cannot be modified")

	// ErrClosed indicates an operation on a [Writer] or [AsyncWriter] after
	// Close was already called.
	ErrClosed = errors.New("tdms: already closed")

	// ErrInterleaveMismatch indicates a [Writer] configured for interleaved
	// output was flushed with channels carrying different pending value
	// counts, which interleaved layout cannot represent.
	ErrInterleaveMismatch = errors.New("tdms: interleaved channels must carry equal value counts")

	// ErrUnknownChannel indicates an operation referenced a channel or
	// group that hasn't been created on this [Writer].
	ErrUnknownChannel = errors.New("tdms: unknown channel or group")
)
