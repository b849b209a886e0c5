package patch

import "io"

// Writer emits a patch container: a version header followed by directives
// in call order. The caller is responsible for writing BEGIN first.
type Writer struct {
	w       io.Writer
	version Version
}

// NewWriter writes the version header to w and returns a Writer that
// emits directives at CurrentVersion's layout.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterVersion(w, CurrentVersion)
}

// NewWriterVersion is like NewWriter but pins a specific patch version,
// for producing version-1 streams in tests or for backward-compatible
// output.
func NewWriterVersion(w io.Writer, version Version) (*Writer, error) {
	if !version.Supported() {
		return nil, fmtUnsupportedVersion(version)
	}
	if err := writeUint32(w, uint64(version)); err != nil {
		return nil, err
	}
	return &Writer{w: w, version: version}, nil
}

// WriteDirective serializes one directive.
func (pw *Writer) WriteDirective(d *Directive) error {
	return d.write(pw.w, pw.version)
}

// WriteBegin is a convenience wrapper for the mandatory first directive.
func (pw *Writer) WriteBegin(m *BeginMetadata) error {
	return pw.WriteDirective(&Directive{Command: CmdBegin, Begin: m})
}

// WriteCopy writes a COPY directive for the local section at offset.
func (pw *Writer) WriteCopy(offset uint64) error {
	return pw.WriteDirective(&Directive{Command: CmdCopy, Offset: offset})
}

// WriteRefresh writes a REFRESH directive for the local section at
// offset.
func (pw *Writer) WriteRefresh(offset uint64, m *RefreshMetadata) error {
	return pw.WriteDirective(&Directive{Command: CmdRefresh, Offset: offset, Refresh: m})
}

// WritePatch writes a PATCH directive for the local section at offset.
func (pw *Writer) WritePatch(offset uint64, m *PatchMetadata) error {
	return pw.WriteDirective(&Directive{Command: CmdPatch, Offset: offset, Patch: m})
}

// WriteNew writes a NEW directive.
func (pw *Writer) WriteNew(m *NewMetadata) error {
	return pw.WriteDirective(&Directive{Command: CmdNew, New: m})
}
