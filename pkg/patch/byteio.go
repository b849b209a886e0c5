package patch

import (
	"encoding/binary"
	"fmt"
	"io"
)

func readUint32(r io.Reader) (uint64, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapShortRead(err)
	}
	return uint64(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeUint32(w io.Writer, v uint64) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

// readByte reads the one-byte directive tag. Unlike the other primitives
// in this file it does not wrap io.EOF into ErrTruncated: a clean EOF
// exactly here is how Reader.ReadNext recognizes the end of the stream.
func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func wrapShortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}
