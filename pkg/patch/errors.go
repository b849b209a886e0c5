package patch

import "errors"

// ErrFormat is returned when a directive's tag or structure does not
// match what the patch container format requires.
var ErrFormat = errors.New("patch: invalid directive format")

// ErrTruncated is returned when the input ends before a directive could
// be read in full.
var ErrTruncated = errors.New("patch: truncated patch stream")

// ErrUnsupportedVersion is returned when a patch stream declares a
// version this package does not understand.
var ErrUnsupportedVersion = errors.New("patch: unsupported patch version")

// ErrExpectedBegin is returned when the first directive in a stream is
// not BEGIN.
var ErrExpectedBegin = errors.New("patch: first directive must be BEGIN")
