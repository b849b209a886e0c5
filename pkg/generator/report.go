package generator

import "github.com/saworbit/zipatch/pkg/patch"

// Report is a structured summary of a Generate call: an external
// observable, not part of the patch bit stream. It mirrors the
// per-directive-kind explain output original archive-patching tools
// print at the end of a run.
type Report struct {
	CopyCount    int
	RefreshCount int
	PatchCount   int
	NewCount     int

	// DirectiveBytes is the sum of every emitted directive's serialized
	// length, including BEGIN.
	DirectiveBytes int64

	// BytesAvoided is the sum, over COPY/REFRESH/PATCH directives, of the
	// new entry's compressed payload size — the bytes that did not need
	// to be retransmitted in full.
	BytesAvoided uint64

	// BytesIntroduced is the sum, over PATCH/NEW directives, of the blob
	// bytes actually written into the patch stream.
	BytesIntroduced uint64

	// CacheHits and CacheMisses count DeltaCache lookups made while
	// computing PATCH directives. Both stay zero when Generate is called
	// without a cache.
	CacheHits   int
	CacheMisses int

	// IntegrityRoot is the merkle root over the new archive's central
	// directory entries, populated when Generate is called with an
	// IntegrityManager. It is not part of the patch bit stream.
	IntegrityRoot []byte
}

// EntryCount returns the total number of per-entry directives (excludes
// BEGIN).
func (r *Report) EntryCount() int {
	return r.CopyCount + r.RefreshCount + r.PatchCount + r.NewCount
}

// ReportFromDirectives rebuilds a Report by walking an already-written
// directive stream, without access to either archive. This is what backs
// an `explain` operation on a patch file after the fact: BytesAvoided and
// BytesIntroduced are recovered from directive fields rather than the
// central directory, since that's all a bare patch stream carries. A
// REFRESH or PATCH entry's compressed size comes from its data descriptor
// when it has one, otherwise from its local header. A COPY directive
// carries only an offset, so COPY entries add nothing to BytesAvoided here.
func ReportFromDirectives(directives []*patch.Directive) *Report {
	report := &Report{}

	compressedSize := func(m *patch.RefreshMetadata) uint64 {
		if m.DataDescriptor != nil {
			return m.DataDescriptor.CompressedSize
		}
		return m.LocalFile.CompressedSize
	}

	for _, d := range directives {
		report.DirectiveBytes += d.StructureLength(patch.CurrentVersion)

		switch d.Command {
		case patch.CmdBegin:
			continue
		case patch.CmdCopy:
			report.CopyCount++
		case patch.CmdRefresh:
			report.RefreshCount++
			if d.Refresh != nil {
				report.BytesAvoided += compressedSize(d.Refresh)
			}
		case patch.CmdPatch:
			report.PatchCount++
			if d.Patch != nil {
				report.BytesAvoided += compressedSize(&d.Patch.Refresh)
				report.BytesIntroduced += uint64(len(d.Patch.Blob))
			}
		case patch.CmdNew:
			report.NewCount++
			if d.New != nil {
				report.BytesIntroduced += uint64(len(d.New.Blob))
			}
		}
	}

	return report
}
