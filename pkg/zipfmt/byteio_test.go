package zipfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestUint16RoundTrip(t *testing.T) {
	tests := []uint32{0, 1, 0xff, 0x1234, 0xffff}

	for _, v := range tests {
		var buf bytes.Buffer
		if err := writeUint16(&buf, v); err != nil {
			t.Fatalf("writeUint16(%d) error = %v", v, err)
		}
		got, err := readUint16(&buf)
		if err != nil {
			t.Fatalf("readUint16() error = %v", err)
		}
		if got != v {
			t.Errorf("round trip = %d, want %d", got, v)
		}
	}
}

func TestUint32RoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 0xff, 0x12345678, 0xffffffff}

	for _, v := range tests {
		var buf bytes.Buffer
		if err := writeUint32(&buf, v); err != nil {
			t.Fatalf("writeUint32(%d) error = %v", v, err)
		}
		got, err := readUint32(&buf)
		if err != nil {
			t.Fatalf("readUint32() error = %v", err)
		}
		if got != v {
			t.Errorf("round trip = %d, want %d", got, v)
		}
	}
}

func TestReadUint16ShortRead(t *testing.T) {
	_, err := readUint16(bytes.NewReader([]byte{0x01}))
	if err == nil {
		t.Fatal("expected error on short read, got nil")
	}
}

func TestUTF8RoundTrip(t *testing.T) {
	tests := []string{"", "a.txt", "path/to/entry.bin", "unicode-éè"}

	for _, s := range tests {
		var buf bytes.Buffer
		if err := writeUTF8(&buf, s); err != nil {
			t.Fatalf("writeUTF8(%q) error = %v", s, err)
		}
		got, err := readUTF8(&buf, uint32(len(s)))
		if err != nil {
			t.Fatalf("readUTF8() error = %v", err)
		}
		if got != s {
			t.Errorf("round trip = %q, want %q", got, s)
		}
	}
}

func TestReadBytesZeroLength(t *testing.T) {
	got, err := readBytes(bytes.NewReader(nil), 0)
	if err != nil {
		t.Fatalf("readBytes(0) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("readBytes(0) = %v, want empty", got)
	}
}

func TestCheckSignature(t *testing.T) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, SignatureLocalFile); err != nil {
		t.Fatal(err)
	}
	if err := checkSignature(&buf, SignatureLocalFile, "LocalFile"); err != nil {
		t.Errorf("checkSignature() error = %v, want nil", err)
	}
}

func TestCheckSignatureMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, SignatureCentralDirectoryFile); err != nil {
		t.Fatal(err)
	}
	err := checkSignature(&buf, SignatureLocalFile, "LocalFile")
	if err == nil {
		t.Fatal("expected signature mismatch error, got nil")
	}
}

func TestWrapShortRead(t *testing.T) {
	if err := wrapShortRead(io.EOF); err == nil {
		t.Error("wrapShortRead(io.EOF) = nil, want non-nil")
	}
	if err := wrapShortRead(io.ErrUnexpectedEOF); err == nil {
		t.Error("wrapShortRead(io.ErrUnexpectedEOF) = nil, want non-nil")
	}
}
