package zipfmt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// readUint16 reads a 16-bit little-endian unsigned integer into a 32-bit
// slot, per the widths mandated for the container format.
func readUint16(r io.Reader) (uint32, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapShortRead(err)
	}
	return uint32(binary.LittleEndian.Uint16(buf[:])), nil
}

// readUint32 reads a 32-bit little-endian unsigned integer into a 64-bit
// slot, to avoid sign pollution on 32-bit platforms.
func readUint32(r io.Reader) (uint64, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapShortRead(err)
	}
	return uint64(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeUint16(w io.Writer, v uint32) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	_, err := w.Write(buf[:])
	return err
}

func writeUint32(w io.Writer, v uint64) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

// readUTF8 reads exactly n raw bytes and returns them as a string. The
// length is externally supplied by the caller (the record's length field);
// it is a byte count, not a rune count.
func readUTF8(r io.Reader, n uint32) (string, error) {
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", wrapShortRead(err)
	}
	return string(buf), nil
}

func writeUTF8(w io.Writer, s string) error {
	if len(s) == 0 {
		return nil
	}
	_, err := io.WriteString(w, s)
	return err
}

func readBytes(r io.Reader, n uint32) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapShortRead(err)
	}
	return buf, nil
}

func wrapShortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}

func checkSignature(r io.Reader, want uint64, name string) error {
	got, err := readUint32(r)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: bad %s signature: got 0x%08x, want 0x%08x", ErrFormat, name, got, want)
	}
	return nil
}
