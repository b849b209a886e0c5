package engine

import (
	"fmt"

	"github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"
)

// bsdiffGenerator produces bsdiff deltas. It declines pairs where either
// side is empty: those are better served by NEW (nothing to delta
// against) than by a delta engine call.
type bsdiffGenerator struct{}

func newBsdiffGenerator() *bsdiffGenerator { return &bsdiffGenerator{} }

func (g *bsdiffGenerator) ID() uint32 { return DeltaBsdiff }

func (g *bsdiffGenerator) Accepts(oldBytes, newBytes []byte) bool {
	return len(oldBytes) > 0 && len(newBytes) > 0
}

func (g *bsdiffGenerator) Generate(oldBytes, newBytes []byte) ([]byte, error) {
	delta, err := bsdiff.Bytes(oldBytes, newBytes)
	if err != nil {
		return nil, fmt.Errorf("engine: bsdiff generate: %w", err)
	}
	return delta, nil
}

type bsdiffApplier struct{}

func newBsdiffApplier() *bsdiffApplier { return &bsdiffApplier{} }

func (a *bsdiffApplier) ID() uint32 { return DeltaBsdiff }

func (a *bsdiffApplier) Apply(oldBytes, deltaBytes []byte) ([]byte, error) {
	out, err := bspatch.Bytes(oldBytes, deltaBytes)
	if err != nil {
		return nil, fmt.Errorf("engine: bsdiff apply: %w", err)
	}
	return out, nil
}
