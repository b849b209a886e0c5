// Package applier implements the patch applier: it consumes a directive
// stream plus the old archive as side input and deterministically
// reconstructs the new archive.
package applier

import (
	"fmt"
	"io"

	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/saworbit/zipatch/pkg/patch"
	"github.com/saworbit/zipatch/pkg/zipfmt"
)

// Apply reconstructs a new archive from oldArchiveBytes and the directive
// stream read from patchStream, writing the resulting archive to w.
//
// The first directive must be BEGIN; its carried central directory
// ("planCentralDirectory") supplies the output archive's catalog metadata
// entry-for-entry, in order, as each subsequent directive is consumed.
// Local section bytes are reconstructed per directive kind and finalized
// once the stream is exhausted, so output offsets are recomputed from
// what was actually emitted rather than copied from the plan.
func Apply(w io.Writer, oldArchiveBytes []byte, patchStream io.Reader, registry *engine.Registry) error {
	old, err := zipfmt.LoadArchive(oldArchiveBytes)
	if err != nil {
		return fmt.Errorf("applier: load old archive: %w", err)
	}

	pr, err := patch.NewReader(patchStream)
	if err != nil {
		return fmt.Errorf("applier: read patch header: %w", err)
	}

	begin, err := pr.ReadNext()
	if err != nil {
		return fmt.Errorf("applier: read BEGIN: %w", err)
	}
	if begin.Command != patch.CmdBegin {
		return fmt.Errorf("applier: %w", patch.ErrExpectedBegin)
	}
	plan := begin.Begin.Central

	output := zipfmt.NewArchive()

	for i := 0; ; i++ {
		d, err := pr.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("applier: read directive %d: %w", i, err)
		}
		if i >= len(plan) {
			return fmt.Errorf("applier: directive %d has no corresponding plan entry", i)
		}
		cd := plan[i]

		ls, err := reconstruct(old, d, registry)
		if err != nil {
			return fmt.Errorf("applier: directive %d (%s, plan entry %q): %w", i, d.Command, cd.FileName, err)
		}
		if err := output.Append(ls, cd); err != nil {
			return fmt.Errorf("applier: append directive %d: %w", i, err)
		}
	}

	output.Finalize()
	if err := output.Serialize(w); err != nil {
		return fmt.Errorf("applier: serialize output: %w", err)
	}
	return nil
}

func reconstruct(old *zipfmt.Archive, d *patch.Directive, registry *engine.Registry) (*zipfmt.LocalSectionParts, error) {
	switch d.Command {
	case patch.CmdCopy:
		return reconstructCopy(old, d.Offset)
	case patch.CmdRefresh:
		return reconstructRefresh(old, d.Offset, d.Refresh)
	case patch.CmdPatch:
		return reconstructPatch(old, d.Offset, d.Patch, registry)
	case patch.CmdNew:
		return &zipfmt.LocalSectionParts{
			LocalFile:      d.New.Refresh.LocalFile,
			FileData:       d.New.Blob,
			DataDescriptor: d.New.Refresh.DataDescriptor,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected directive %s in entry position", patch.ErrFormat, d.Command)
	}
}

func reconstructCopy(old *zipfmt.Archive, offset uint64) (*zipfmt.LocalSectionParts, error) {
	ls := old.FindLocalSectionByOffset(offset)
	if ls == nil {
		return nil, fmt.Errorf("no local section at old offset %d", offset)
	}
	return ls, nil
}

func reconstructRefresh(old *zipfmt.Archive, offset uint64, m *patch.RefreshMetadata) (*zipfmt.LocalSectionParts, error) {
	oldLS := old.FindLocalSectionByOffset(offset)
	if oldLS == nil {
		return nil, fmt.Errorf("no local section at old offset %d", offset)
	}
	return &zipfmt.LocalSectionParts{
		LocalFile:      m.LocalFile,
		FileData:       oldLS.FileData,
		DataDescriptor: m.DataDescriptor,
	}, nil
}

func reconstructPatch(old *zipfmt.Archive, offset uint64, m *patch.PatchMetadata, registry *engine.Registry) (*zipfmt.LocalSectionParts, error) {
	oldLS := old.FindLocalSectionByOffset(offset)
	if oldLS == nil {
		return nil, fmt.Errorf("no local section at old offset %d", offset)
	}

	deltaBytes := m.Blob
	if m.CompressionEngineID() != engine.CompressionEngineNone {
		u, err := registry.Uncompressor(m.CompressionEngineID())
		if err != nil {
			return nil, err
		}
		deltaBytes, err = u.Uncompress(m.Blob)
		if err != nil {
			return nil, fmt.Errorf("uncompress delta blob: %w", err)
		}
	}

	applierEngine, err := registry.DeltaApplier(m.DeltaEngineID())
	if err != nil {
		return nil, err
	}
	newPayload, err := applierEngine.Apply(oldLS.FileData, deltaBytes)
	if err != nil {
		return nil, fmt.Errorf("apply delta: %w", err)
	}

	return &zipfmt.LocalSectionParts{
		LocalFile:      m.Refresh.LocalFile,
		FileData:       newPayload,
		DataDescriptor: m.Refresh.DataDescriptor,
	}, nil
}
