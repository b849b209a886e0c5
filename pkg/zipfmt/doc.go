// Package zipfmt implements a bit-exact reader/writer for the deflate-based
// PKZIP archive container: local file records, the central directory, the
// end-of-central-directory trailer, and an in-memory archive builder.
//
// It supports stored and deflated entries only. It does not support
// encryption, multi-volume archives, or ZIP64 size extensions.
package zipfmt
