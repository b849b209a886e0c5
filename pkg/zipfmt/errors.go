package zipfmt

import "errors"

// ErrFormat is returned when a record's signature or internal structure
// does not match what the container format requires.
var ErrFormat = errors.New("zipfmt: invalid archive format")

// ErrTruncated is returned when the input ends before a record could be
// read in full.
var ErrTruncated = errors.New("zipfmt: truncated archive data")

// ErrIllegalState is returned when an operation is attempted that the
// object's lifecycle does not permit, such as mutating an archive after
// it has been finalized.
var ErrIllegalState = errors.New("zipfmt: illegal state")

// ErrUnpaired is returned when LoadArchive finds a local section with no matching
// central directory entry, or vice versa.
var ErrUnpaired = errors.New("zipfmt: unpaired local section or central directory entry")
