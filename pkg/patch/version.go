// Package patch implements the patch container format: a framed directive
// stream (BEGIN, COPY, REFRESH, PATCH, NEW) that describes how to
// transform an old archive into a new one.
package patch

// Version identifies the on-wire layout of PATCH directives. Readers must
// accept both Version1 and Version2; only PATCH's payload depends on it
// (§6.2).
type Version uint32

const (
	Version1 Version = 1
	Version2 Version = 2

	// CurrentVersion is what a Writer from NewWriter emits.
	CurrentVersion = Version2
)

// Supported reports whether a patch stream carrying this version can be
// read by this package.
func (v Version) Supported() bool {
	return v == Version1 || v == Version2
}
