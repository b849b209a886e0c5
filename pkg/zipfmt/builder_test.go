package zipfmt

import (
	"bytes"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
)

func TestBuilderDeflateIsRaw(t *testing.T) {
	b := NewBuilder()
	if err := b.Add("a.txt", time.Now(), []byte("hello, hello, hello")); err != nil {
		t.Fatal(err)
	}
	archive := b.Finish()

	ls := archive.LocalSections()[0]

	fr := flate.NewReader(bytes.NewReader(ls.FileData))
	defer fr.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(fr); err != nil {
		t.Fatalf("raw deflate stream did not decode: %v", err)
	}
	if out.String() != "hello, hello, hello" {
		t.Errorf("decoded = %q, want %q", out.String(), "hello, hello, hello")
	}
}

func TestBuilderWithoutDataDescriptor(t *testing.T) {
	b := NewBuilder()
	b.UseDataDescriptor = false
	if err := b.Add("a.txt", time.Now(), []byte("hello")); err != nil {
		t.Fatal(err)
	}
	archive := b.Finish()

	ls := archive.LocalSections()[0]
	if ls.DataDescriptor != nil {
		t.Error("DataDescriptor is present, want nil")
	}
	if ls.LocalFile.UncompressedSize != 5 {
		t.Errorf("UncompressedSize = %d, want 5", ls.LocalFile.UncompressedSize)
	}

	var buf bytes.Buffer
	if err := archive.Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := LoadArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if got.LocalSections()[0].LocalFile.UncompressedSize != 5 {
		t.Error("round trip lost uncompressed size")
	}
}

func TestBuilderAddAfterFinishFails(t *testing.T) {
	b := NewBuilder()
	b.Finish()
	if err := b.Add("a.txt", time.Now(), []byte("x")); err == nil {
		t.Fatal("expected error adding after Finish(), got nil")
	}
}

func TestBuilderEmptyContent(t *testing.T) {
	b := NewBuilder()
	if err := b.Add("empty.txt", time.Now(), []byte{}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	archive := b.Finish()

	var buf bytes.Buffer
	if err := archive.Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := LoadArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	_, _, uncompressedSize := got.LocalSections()[0].AuthoritativeSizes()
	if uncompressedSize != 0 {
		t.Errorf("uncompressedSize = %d, want 0", uncompressedSize)
	}
}
