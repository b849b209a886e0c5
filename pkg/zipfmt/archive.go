package zipfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Archive is an in-memory PKZIP-family container: an ordered local section,
// an ordered central directory, and an EOCD trailer. It is built up by
// appending entries and made ready for serialization by Finalize.
type Archive struct {
	local     []*LocalSectionParts
	central   []*CentralDirectoryFile
	eocd      EndOfCentralDirectory
	finalized bool
}

// NewArchive returns an empty, unfinalized Archive.
func NewArchive() *Archive {
	return &Archive{}
}

// Append adds a paired local section and central directory entry to the
// end of the archive. It fails once the archive has been finalized.
func (a *Archive) Append(local *LocalSectionParts, cd *CentralDirectoryFile) error {
	if a.finalized {
		return fmt.Errorf("%w: cannot append after finalize", ErrIllegalState)
	}
	if local.LocalFile.FileName != cd.FileName {
		return fmt.Errorf("%w: local/central name mismatch: %q vs %q", ErrFormat, local.LocalFile.FileName, cd.FileName)
	}
	a.local = append(a.local, local)
	a.central = append(a.central, cd)
	return nil
}

// LocalSections returns the archive's local section entries in insertion
// order. The returned slice must not be mutated.
func (a *Archive) LocalSections() []*LocalSectionParts {
	return a.local
}

// CentralDirectory returns the archive's central directory entries in
// insertion order. The returned slice must not be mutated.
func (a *Archive) CentralDirectory() []*CentralDirectoryFile {
	return a.central
}

// EOCD returns the archive's end-of-central-directory trailer. Its offset
// and length fields are only meaningful after Finalize.
func (a *Archive) EOCD() EndOfCentralDirectory {
	return a.eocd
}

// FindCentralDirectoryEntry returns the central directory entry with the
// given file name, or nil if none matches.
func (a *Archive) FindCentralDirectoryEntry(name string) *CentralDirectoryFile {
	for _, cd := range a.central {
		if cd.FileName == name {
			return cd
		}
	}
	return nil
}

// FindLocalSectionByOffset returns the local section whose central
// directory entry has the given relative offset, or nil if none matches.
// This is how a patch applier resolves a COPY/REFRESH/PATCH directive's
// offset field back into the old archive's parsed structures instead of
// re-seeking into raw bytes.
func (a *Archive) FindLocalSectionByOffset(offset uint64) *LocalSectionParts {
	for _, cd := range a.central {
		if cd.RelativeOffsetOfHeader == offset {
			return a.FindLocalSection(cd.FileName)
		}
	}
	return nil
}

// FindLocalSection returns the local section with the given file name, or
// nil if none matches.
func (a *Archive) FindLocalSection(name string) *LocalSectionParts {
	for _, ls := range a.local {
		if ls.LocalFile.FileName == name {
			return ls
		}
	}
	return nil
}

// Finalize recomputes every central-directory entry's relative offset and
// the EOCD's summary fields from the current local section and central
// directory contents. It is idempotent: calling it again after a prior
// Finalize with unchanged contents recomputes the same values. After the
// first call, Append fails.
func (a *Archive) Finalize() {
	var offset int64
	for i, ls := range a.local {
		a.central[i].RelativeOffsetOfHeader = uint64(offset)
		offset += ls.StructureLength()
	}

	var cdLen int64
	for _, cd := range a.central {
		cdLen += cd.StructureLength()
	}

	a.eocd = EndOfCentralDirectory{
		DiskNumber:                0,
		DiskNumberStartCentralDir: 0,
		NumEntriesThisDisk:        uint32(len(a.central)),
		TotalEntries:              uint32(len(a.central)),
		LengthOfCentralDirectory:  uint64(cdLen),
		OffsetOfStartOfCentralDir: uint64(offset),
		Comment:                   a.eocd.Comment,
	}
	a.finalized = true
}

// Finalized reports whether Finalize has been called.
func (a *Archive) Finalized() bool {
	return a.finalized
}

// Serialize writes the archive's local section, central directory, and
// EOCD to w, in that order. The archive must have been finalized first,
// with no mutation since.
func (a *Archive) Serialize(w io.Writer) error {
	if !a.finalized {
		return fmt.Errorf("%w: archive must be finalized before serialization", ErrIllegalState)
	}
	for _, ls := range a.local {
		if err := ls.Write(w); err != nil {
			return err
		}
	}
	for _, cd := range a.central {
		if err := cd.Write(w); err != nil {
			return err
		}
	}
	return a.eocd.Write(w)
}

// LoadArchive parses a complete archive image. It first locates the
// central directory through the EOCD's offset field and collects each
// entry's compressed size, then reads local sections sequentially up to
// that offset (any bytes there that do not start with the LocalFile
// signature are a format error), then reads central directory entries
// until the EOCD signature, then the EOCD itself. Each central directory entry is paired
// to its local section by file name; unpaired entries on either side are a
// format error.
func LoadArchive(data []byte) (*Archive, error) {
	cdStart, err := findCentralDirectoryStart(data)
	if err != nil {
		return nil, err
	}

	cdSizeByName, err := scanCentralDirectorySizes(data[cdStart:])
	if err != nil {
		return nil, err
	}

	a := &Archive{}

	r := bytes.NewReader(data[:cdStart])
	for r.Len() > 0 {
		if !nextIsLocalFileSignature(r) {
			return nil, fmt.Errorf("%w: trailing bytes before central directory that are not a LocalFile", ErrFormat)
		}
		parts := &LocalSectionParts{}
		hint := cdSizeByName[peekLocalFileName(r)]
		if err := parts.Read(r, hint); err != nil {
			return nil, err
		}
		a.local = append(a.local, parts)
	}

	cdr := bytes.NewReader(data[cdStart:])
	seenNames := make(map[string]bool, len(a.local))
	for {
		peek, err := peekUint32(cdr)
		if err != nil {
			return nil, err
		}
		if peek == SignatureEndOfCentralDirectory {
			break
		}
		cd := &CentralDirectoryFile{}
		if err := cd.Read(cdr); err != nil {
			return nil, err
		}
		a.central = append(a.central, cd)
		seenNames[cd.FileName] = true
	}

	eocd := EndOfCentralDirectory{}
	if err := eocd.Read(cdr); err != nil {
		return nil, err
	}
	a.eocd = eocd

	if err := pairByName(a.local, a.central); err != nil {
		return nil, err
	}

	a.finalized = true
	return a, nil
}

func pairByName(local []*LocalSectionParts, central []*CentralDirectoryFile) error {
	localNames := make(map[string]bool, len(local))
	for _, ls := range local {
		if localNames[ls.LocalFile.FileName] {
			return fmt.Errorf("%w: duplicate local entry name %q", ErrFormat, ls.LocalFile.FileName)
		}
		localNames[ls.LocalFile.FileName] = true
	}
	centralNames := make(map[string]bool, len(central))
	for _, cd := range central {
		if centralNames[cd.FileName] {
			return fmt.Errorf("%w: duplicate central directory entry name %q", ErrFormat, cd.FileName)
		}
		centralNames[cd.FileName] = true
		if !localNames[cd.FileName] {
			return fmt.Errorf("%w: central directory entry %q has no matching local section", ErrUnpaired, cd.FileName)
		}
	}
	for name := range localNames {
		if !centralNames[name] {
			return fmt.Errorf("%w: local section %q has no matching central directory entry", ErrUnpaired, name)
		}
	}
	return nil
}

// findCentralDirectoryStart locates the byte offset where the central
// directory begins by walking the EOCD backward from the end of the
// buffer: the EOCD carries the exact offset directly, which is more
// robust than scanning forward through local sections whose descriptor
// flag can otherwise leave their true length ambiguous.
func findCentralDirectoryStart(data []byte) (int, error) {
	sig := []byte{0x50, 0x4b, 0x05, 0x06}
	idx := bytes.LastIndex(data, sig)
	if idx < 0 {
		return 0, fmt.Errorf("%w: no end-of-central-directory record found", ErrFormat)
	}
	eocd := EndOfCentralDirectory{}
	if err := eocd.Read(bytes.NewReader(data[idx:])); err != nil {
		return 0, err
	}
	return int(eocd.OffsetOfStartOfCentralDir), nil
}

// scanCentralDirectorySizes performs a lightweight pre-pass over the
// central directory to build a name -> authoritative compressed size map,
// used to size local-section reads for entries using deferred descriptors.
func scanCentralDirectorySizes(cdAndTrailer []byte) (map[string]uint64, error) {
	out := make(map[string]uint64)
	r := bytes.NewReader(cdAndTrailer)
	for {
		peek, err := peekUint32(r)
		if err != nil {
			return nil, err
		}
		if peek == SignatureEndOfCentralDirectory {
			return out, nil
		}
		cd := &CentralDirectoryFile{}
		if err := cd.Read(r); err != nil {
			return nil, err
		}
		out[cd.FileName] = cd.CompressedSize
	}
}

func peekUint32(r *bytes.Reader) (uint64, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if _, seekErr := r.Seek(pos, io.SeekStart); seekErr != nil {
			return 0, seekErr
		}
		return 0, wrapShortRead(err)
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return uint64(binary.LittleEndian.Uint32(buf[:])), nil
}

func nextIsLocalFileSignature(r *bytes.Reader) bool {
	peek, err := peekUint32(r)
	if err != nil {
		return false
	}
	return peek == SignatureLocalFile
}

// peekLocalFileName reads ahead past the local header's fixed fields to
// recover the file name without disturbing r's position, so the caller can
// look up its compressed-size hint before the real Read call consumes it.
func peekLocalFileName(r *bytes.Reader) string {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return ""
	}
	defer r.Seek(pos, io.SeekStart)

	lf := LocalFile{}
	if err := lf.Read(r); err != nil {
		return ""
	}
	return lf.FileName
}
