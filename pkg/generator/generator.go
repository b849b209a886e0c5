// Package generator implements the patch generator: it diffs two loaded
// archives and emits an optimal-by-local-rule directive sequence,
// delegating binary deltas and secondary compression to pluggable
// engines from pkg/engine.
package generator

import (
	"fmt"
	"io"

	"github.com/saworbit/zipatch/pkg/cas"
	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/saworbit/zipatch/pkg/merkle"
	"github.com/saworbit/zipatch/pkg/patch"
	"github.com/saworbit/zipatch/pkg/zipfmt"
)

// Options configures optional ambient services around a Generate call. The
// zero value disables all of them: no delta cache lookups, no integrity
// root computation.
type Options struct {
	// Cache, if set, is consulted before running a delta generator and
	// populated with every delta it computes.
	Cache *cas.DeltaCache

	// Integrity, if set, is used to compute Report.IntegrityRoot over the
	// new archive's central directory.
	Integrity *merkle.IntegrityManager
}

// Generate writes a patch stream to w that transforms old into new, and
// returns a Report summarizing the directives it emitted. Both archives
// must already be finalized. It is equivalent to GenerateWithOptions with
// the zero Options value.
func Generate(w io.Writer, old, new *zipfmt.Archive, registry *engine.Registry) (*Report, error) {
	return GenerateWithOptions(w, old, new, registry, Options{})
}

// GenerateWithOptions is Generate with the ambient delta cache and
// integrity root computation wired in.
//
// Directives are emitted in the order of new's central directory, after a
// BEGIN carrying a copy of that central directory. Engine selection
// within registry.DeltaGenerators() and registry.Compressors() is
// first-acceptor-wins, in registration order, which makes output
// reproducible given identical inputs. The NONE compressor is skipped
// during compressor selection; a delta stays uncompressed only when no
// other registered compressor accepts it.
func GenerateWithOptions(w io.Writer, old, new *zipfmt.Archive, registry *engine.Registry, opts Options) (*Report, error) {
	pw, err := patch.NewWriter(w)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	newCentral := new.CentralDirectory()
	begin := &patch.BeginMetadata{
		Central: append([]*zipfmt.CentralDirectoryFile(nil), newCentral...),
		EOCD:    new.EOCD(),
	}
	if err := pw.WriteBegin(begin); err != nil {
		return nil, fmt.Errorf("generator: write BEGIN: %w", err)
	}
	report.DirectiveBytes += (&patch.Directive{Command: patch.CmdBegin, Begin: begin}).StructureLength(patch.CurrentVersion)

	for _, newCD := range newCentral {
		oldCD := old.FindCentralDirectoryEntry(newCD.FileName)

		if oldCD == nil {
			if err := emitNew(pw, report, new, newCD); err != nil {
				return nil, err
			}
			continue
		}

		if newCD.PositionIndependentEquals(oldCD) {
			if err := emitCopy(pw, report, oldCD); err != nil {
				return nil, err
			}
			continue
		}

		if payloadIdentical(newCD, oldCD) {
			if err := emitRefresh(pw, report, new, oldCD, newCD); err != nil {
				return nil, err
			}
			continue
		}

		emitted, err := tryEmitPatch(pw, report, old, new, registry, opts.Cache, oldCD, newCD)
		if err != nil {
			return nil, err
		}
		if !emitted {
			if err := emitNew(pw, report, new, newCD); err != nil {
				return nil, err
			}
		}
	}

	if opts.Integrity != nil && len(newCentral) > 0 {
		tree, err := opts.Integrity.BuildTree(merkle.DigestsFromCentralDirectory(newCentral))
		if err != nil {
			return nil, fmt.Errorf("generator: build integrity tree: %w", err)
		}
		report.IntegrityRoot = merkle.GetRoot(tree)
	}

	return report, nil
}

// payloadIdentical reports whether two central directory entries describe
// bit-identical payload bytes, independent of metadata like flags,
// timestamps, comment, or extra field.
func payloadIdentical(a, b *zipfmt.CentralDirectoryFile) bool {
	return a.CRC32 == b.CRC32 &&
		a.CompressedSize == b.CompressedSize &&
		a.CompressionMethod == b.CompressionMethod
}

func emitCopy(pw *patch.Writer, report *Report, oldCD *zipfmt.CentralDirectoryFile) error {
	if err := pw.WriteCopy(oldCD.RelativeOffsetOfHeader); err != nil {
		return fmt.Errorf("generator: write COPY for %q: %w", oldCD.FileName, err)
	}
	report.CopyCount++
	report.BytesAvoided += oldCD.CompressedSize
	report.DirectiveBytes += (&patch.Directive{Command: patch.CmdCopy}).StructureLength(patch.CurrentVersion)
	return nil
}

func emitRefresh(pw *patch.Writer, report *Report, new *zipfmt.Archive, oldCD, newCD *zipfmt.CentralDirectoryFile) error {
	newLocal := new.FindLocalSection(newCD.FileName)
	if newLocal == nil {
		return fmt.Errorf("generator: no local section for %q in new archive", newCD.FileName)
	}
	rm := &patch.RefreshMetadata{
		LocalFile:      newLocal.LocalFile,
		DataDescriptor: newLocal.DataDescriptor,
	}
	if err := pw.WriteRefresh(oldCD.RelativeOffsetOfHeader, rm); err != nil {
		return fmt.Errorf("generator: write REFRESH for %q: %w", newCD.FileName, err)
	}
	report.RefreshCount++
	report.BytesAvoided += newCD.CompressedSize
	report.DirectiveBytes += (&patch.Directive{Command: patch.CmdRefresh, Refresh: rm}).StructureLength(patch.CurrentVersion)
	return nil
}

func emitNew(pw *patch.Writer, report *Report, new *zipfmt.Archive, newCD *zipfmt.CentralDirectoryFile) error {
	newLocal := new.FindLocalSection(newCD.FileName)
	if newLocal == nil {
		return fmt.Errorf("generator: no local section for %q in new archive", newCD.FileName)
	}
	nm := &patch.NewMetadata{
		Refresh: patch.RefreshMetadata{
			LocalFile:      newLocal.LocalFile,
			DataDescriptor: newLocal.DataDescriptor,
		},
		Blob: newLocal.FileData,
	}
	if err := pw.WriteNew(nm); err != nil {
		return fmt.Errorf("generator: write NEW for %q: %w", newCD.FileName, err)
	}
	report.NewCount++
	report.BytesIntroduced += uint64(len(nm.Blob))
	report.DirectiveBytes += (&patch.Directive{Command: patch.CmdNew, New: nm}).StructureLength(patch.CurrentVersion)
	return nil
}

// tryEmitPatch attempts step 5 of the plan (§4.4): find the first
// accepting delta generator, compute a delta, optionally compress it, and
// emit PATCH. It returns emitted=false (with a nil error) when no
// registered delta generator accepts the pair, signaling the caller to
// fall through to NEW.
func tryEmitPatch(pw *patch.Writer, report *Report, old, new *zipfmt.Archive, registry *engine.Registry, cache *cas.DeltaCache, oldCD, newCD *zipfmt.CentralDirectoryFile) (bool, error) {
	oldLocal := old.FindLocalSection(oldCD.FileName)
	newLocal := new.FindLocalSection(newCD.FileName)
	if oldLocal == nil || newLocal == nil {
		return false, fmt.Errorf("generator: missing local section for %q", newCD.FileName)
	}

	var chosen engine.DeltaGenerator
	for _, gen := range registry.DeltaGenerators() {
		if gen.Accepts(oldLocal.FileData, newLocal.FileData) {
			chosen = gen
			break
		}
	}
	if chosen == nil {
		return false, nil
	}

	delta, err := deltaForPair(cache, report, chosen, oldLocal.FileData, newLocal.FileData)
	if err != nil {
		return false, fmt.Errorf("generator: delta engine %d failed on %q: %w", chosen.ID(), newCD.FileName, err)
	}

	blob := delta
	compressionID := engine.CompressionEngineNone
	for _, c := range registry.Compressors() {
		if c.ID() == engine.CompressionEngineNone {
			continue
		}
		if c.Accepts(delta) {
			compressed, err := c.Compress(delta)
			if err != nil {
				return false, fmt.Errorf("generator: compression engine %d failed on %q: %w", c.ID(), newCD.FileName, err)
			}
			blob = compressed
			compressionID = c.ID()
			break
		}
	}

	pm := patch.NewPatchMetadata(patch.RefreshMetadata{
		LocalFile:      newLocal.LocalFile,
		DataDescriptor: newLocal.DataDescriptor,
	}, chosen.ID(), compressionID, blob)

	if err := pw.WritePatch(oldCD.RelativeOffsetOfHeader, &pm); err != nil {
		return false, fmt.Errorf("generator: write PATCH for %q: %w", newCD.FileName, err)
	}

	report.PatchCount++
	report.BytesAvoided += newCD.CompressedSize
	report.BytesIntroduced += uint64(len(blob))
	report.DirectiveBytes += (&patch.Directive{Command: patch.CmdPatch, Patch: &pm}).StructureLength(patch.CurrentVersion)
	return true, nil
}

// deltaForPair computes the delta between oldBytes and newBytes with gen,
// consulting cache first and populating it on a miss. With a nil cache it
// always computes and never touches Report's cache counters.
func deltaForPair(cache *cas.DeltaCache, report *Report, gen engine.DeltaGenerator, oldBytes, newBytes []byte) ([]byte, error) {
	if cache == nil {
		return gen.Generate(oldBytes, newBytes)
	}

	key, err := cache.Key(oldBytes, newBytes, gen.ID())
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}

	if cached, ok, err := cache.Get(key); err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	} else if ok {
		report.CacheHits++
		return cached, nil
	}
	report.CacheMisses++

	delta, err := gen.Generate(oldBytes, newBytes)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(key, delta); err != nil {
		return nil, fmt.Errorf("cache put: %w", err)
	}
	return delta, nil
}
