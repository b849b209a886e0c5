package patch

import "io"

// Directive is a single entry in a patch stream: a command tag, an
// optional offset into the old archive, and command-specific metadata.
// Exactly one of Begin, Refresh, Patch, New is populated, per Command.
type Directive struct {
	Command Command
	Offset  uint64

	Begin   *BeginMetadata
	Refresh *RefreshMetadata
	Patch   *PatchMetadata
	New     *NewMetadata
}

func (d *Directive) read(r io.Reader, version Version) error {
	tag, err := readByte(r)
	if err != nil {
		return err
	}
	d.Command = Command(tag)

	switch d.Command {
	case CmdBegin:
		d.Begin = &BeginMetadata{}
		return d.Begin.Read(r)
	case CmdCopy:
		offset, err := readUint32(r)
		if err != nil {
			return err
		}
		d.Offset = offset
		return nil
	case CmdRefresh:
		offset, err := readUint32(r)
		if err != nil {
			return err
		}
		d.Offset = offset
		d.Refresh = &RefreshMetadata{}
		return d.Refresh.Read(r)
	case CmdPatch:
		offset, err := readUint32(r)
		if err != nil {
			return err
		}
		d.Offset = offset
		d.Patch = &PatchMetadata{}
		return d.Patch.Read(r, version)
	case CmdNew:
		d.New = &NewMetadata{}
		return d.New.Read(r)
	default:
		return ErrFormat
	}
}

func (d *Directive) write(w io.Writer, version Version) error {
	if err := writeByteTag(w, byte(d.Command)); err != nil {
		return err
	}
	switch d.Command {
	case CmdBegin:
		return d.Begin.Write(w)
	case CmdCopy:
		return writeUint32(w, d.Offset)
	case CmdRefresh:
		if err := writeUint32(w, d.Offset); err != nil {
			return err
		}
		return d.Refresh.Write(w)
	case CmdPatch:
		if err := writeUint32(w, d.Offset); err != nil {
			return err
		}
		return d.Patch.Write(w, version)
	case CmdNew:
		return d.New.Write(w)
	default:
		return ErrFormat
	}
}

func writeByteTag(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// StructureLength returns the exact number of bytes Writer.WriteDirective
// will emit for d at the given version, without serializing it. The
// generator's Report uses this to total directive-stream overhead.
func (d *Directive) StructureLength(version Version) int64 {
	const tagLen = 1
	const offsetLen = 4

	switch d.Command {
	case CmdBegin:
		return tagLen + d.Begin.StructureLength()
	case CmdCopy:
		return tagLen + offsetLen
	case CmdRefresh:
		return tagLen + offsetLen + d.Refresh.StructureLength()
	case CmdPatch:
		return tagLen + offsetLen + d.Patch.StructureLength(version)
	case CmdNew:
		return tagLen + d.New.StructureLength()
	default:
		return 0
	}
}
