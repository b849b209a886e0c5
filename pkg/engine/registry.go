package engine

import "fmt"

// ErrUnknownEngine is returned when an id referenced by a patch directive
// has no corresponding registered engine.
type ErrUnknownEngine struct {
	Kind string
	ID   uint32
}

func (e *ErrUnknownEngine) Error() string {
	return fmt.Sprintf("engine: unknown %s engine id %d", e.Kind, e.ID)
}

// Registry holds delta and compression engines, and the ordered lists used
// by the generator's accepts-based selection (§4.4). Ordering of
// DeltaGenerators() and Compressors() is registration order; it is
// authoritative for tie-breaking.
type Registry struct {
	deltaGenerators []DeltaGenerator
	deltaAppliers   map[uint32]DeltaApplier
	compressors     []Compressor
	uncompressors   map[uint32]Uncompressor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		deltaAppliers: make(map[uint32]DeltaApplier),
		uncompressors: make(map[uint32]Uncompressor),
	}
}

// RegisterDelta adds a delta generator/applier pair, keyed by the id they
// share. Registration order determines generator selection priority.
func (r *Registry) RegisterDelta(g DeltaGenerator, a DeltaApplier) {
	r.deltaGenerators = append(r.deltaGenerators, g)
	r.deltaAppliers[a.ID()] = a
}

// RegisterCompression adds a compressor/uncompressor pair, keyed by the id
// they share. Registration order determines compressor selection priority.
func (r *Registry) RegisterCompression(c Compressor, u Uncompressor) {
	r.compressors = append(r.compressors, c)
	r.uncompressors[u.ID()] = u
}

// DeltaGenerators returns the registered delta generators in registration
// (priority) order.
func (r *Registry) DeltaGenerators() []DeltaGenerator {
	return r.deltaGenerators
}

// Compressors returns the registered compressors in registration
// (priority) order.
func (r *Registry) Compressors() []Compressor {
	return r.compressors
}

// DeltaApplier looks up a delta applier by id.
func (r *Registry) DeltaApplier(id uint32) (DeltaApplier, error) {
	a, ok := r.deltaAppliers[id]
	if !ok {
		return nil, &ErrUnknownEngine{Kind: "delta", ID: id}
	}
	return a, nil
}

// Uncompressor looks up an uncompressor by id.
func (r *Registry) Uncompressor(id uint32) (Uncompressor, error) {
	u, ok := r.uncompressors[id]
	if !ok {
		return nil, &ErrUnknownEngine{Kind: "compression", ID: id}
	}
	return u, nil
}

// Defaults returns a Registry pre-populated with the engines this module
// ships: identity compression, DEFLATE-RAW compression, XZ compression,
// and bsdiff delta. JAVAXDELTA has no generator here (nothing in this
// module produces JAVAXDELTA deltas going forward) but version-1 patch
// streams that reference it as a default still need an applier registered
// to be consumed at all; callers that must read foreign version-1
// streams should register one explicitly.
func Defaults() *Registry {
	r := NewRegistry()
	r.RegisterCompression(newIdentityCompressor(), newIdentityUncompressor())
	r.RegisterCompression(newDeflateCompressor(), newDeflateUncompressor())
	r.RegisterCompression(newXZCompressor(), newXZUncompressor())
	r.RegisterDelta(newBsdiffGenerator(), newBsdiffApplier())
	return r
}
