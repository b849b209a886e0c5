// Package engine defines the pluggable delta and compression capability
// interfaces the patch generator and applier consume, plus a registry that
// looks engines up by their stable numeric id.
package engine

// Delta engine ids. NONE is reserved across both registries for "no
// transformation". JAVAXDELTA is the default a version-1 patch stream
// implies when it omits the delta-engine-id field.
const (
	DeltaNone       uint32 = 0
	DeltaJavaXDelta uint32 = 1
	DeltaBsdiff     uint32 = 2
)

// Compression engine ids.
const (
	CompressionEngineNone       uint32 = 0
	CompressionEngineDeflateRaw uint32 = 1
	CompressionEngineXZ         uint32 = 2
)

// DeltaGenerator computes a byte-level delta between an old and a new
// payload. accepts is consulted by the generator before generate, in the
// order engines were registered; the first acceptor wins.
type DeltaGenerator interface {
	ID() uint32
	Accepts(oldBytes, newBytes []byte) bool
	Generate(oldBytes, newBytes []byte) ([]byte, error)
}

// DeltaApplier reconstructs a new payload from an old payload and a delta
// produced by the DeltaGenerator sharing its id.
type DeltaApplier interface {
	ID() uint32
	Apply(oldBytes, deltaBytes []byte) ([]byte, error)
}

// Compressor optionally compresses a delta or payload blob before it is
// written into a patch stream.
type Compressor interface {
	ID() uint32
	Accepts(data []byte) bool
	Compress(data []byte) ([]byte, error)
}

// Uncompressor reverses a Compressor sharing its id.
type Uncompressor interface {
	ID() uint32
	Uncompress(data []byte) ([]byte, error)
}
