package zipfmt

import (
	"bytes"
	"hash/crc32"
	"testing"
	"time"
)

func TestEmptyArchiveRoundTrip(t *testing.T) {
	a := NewArchive()
	a.Finalize()

	var buf bytes.Buffer
	if err := a.Serialize(&buf); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	got, err := LoadArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if len(got.LocalSections()) != 0 {
		t.Errorf("local sections = %d, want 0", len(got.LocalSections()))
	}
	if len(got.CentralDirectory()) != 0 {
		t.Errorf("central directory entries = %d, want 0", len(got.CentralDirectory()))
	}
	eocd := got.EOCD()
	if eocd.LengthOfCentralDirectory != 0 {
		t.Errorf("EOCD.LengthOfCentralDirectory = %d, want 0", eocd.LengthOfCentralDirectory)
	}
	if eocd.OffsetOfStartOfCentralDir != 0 {
		t.Errorf("EOCD.OffsetOfStartOfCentralDir = %d, want 0", eocd.OffsetOfStartOfCentralDir)
	}
}

func TestSingleEntryRoundTripDescriptorOn(t *testing.T) {
	b := NewBuilder()
	when := time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)
	if err := b.Add("a.txt", when, []byte("hello")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	archive := b.Finish()

	var buf bytes.Buffer
	if err := archive.Serialize(&buf); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	got, err := LoadArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if len(got.LocalSections()) != 1 {
		t.Fatalf("local sections = %d, want 1", len(got.LocalSections()))
	}

	ls := got.LocalSections()[0]
	crc, compressedSize, uncompressedSize := ls.AuthoritativeSizes()
	wantCRC := uint64(crc32.ChecksumIEEE([]byte("hello")))
	if crc != wantCRC {
		t.Errorf("CRC32 = 0x%x, want 0x%x", crc, wantCRC)
	}
	if wantCRC != 0x3610a686 {
		t.Fatalf("test fixture CRC32(\"hello\") = 0x%x, spec expects 0x3610a686", wantCRC)
	}
	if uncompressedSize != 5 {
		t.Errorf("uncompressedSize = %d, want 5", uncompressedSize)
	}
	if compressedSize == 0 {
		t.Error("compressedSize = 0, want nonzero")
	}
	if ls.LocalFile.CRC32 != 0 || ls.LocalFile.CompressedSize != 0 || ls.LocalFile.UncompressedSize != 0 {
		t.Errorf("LocalFile sizes should be zeroed when descriptor flag is set, got %+v", ls.LocalFile)
	}
	if ls.DataDescriptor == nil {
		t.Fatal("DataDescriptor is nil, want present")
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	b := NewBuilder()
	if err := b.Add("a.txt", time.Now(), []byte("x")); err != nil {
		t.Fatal(err)
	}
	archive := b.Finish()
	first := archive.EOCD()

	archive.Finalize()
	second := archive.EOCD()

	if first != second {
		t.Errorf("finalize is not idempotent: %+v != %+v", first, second)
	}
}

func TestAppendAfterFinalizeFails(t *testing.T) {
	a := NewArchive()
	a.Finalize()

	err := a.Append(&LocalSectionParts{LocalFile: LocalFile{FileName: "x"}}, &CentralDirectoryFile{FileName: "x"})
	if err == nil {
		t.Fatal("expected error appending after finalize, got nil")
	}
}

func TestLoadArchiveUnpairedFails(t *testing.T) {
	a := NewArchive()
	if err := a.Append(
		&LocalSectionParts{LocalFile: LocalFile{FileName: "a"}, FileData: []byte{}},
		&CentralDirectoryFile{FileName: "a"},
	); err != nil {
		t.Fatal(err)
	}
	// Manually add an unpaired central directory entry.
	a.central = append(a.central, &CentralDirectoryFile{FileName: "orphan"})
	a.Finalize()

	var buf bytes.Buffer
	if err := a.Serialize(&buf); err != nil {
		t.Fatal(err)
	}

	_, err := LoadArchive(buf.Bytes())
	if err == nil {
		t.Fatal("expected unpaired-entry error, got nil")
	}
}

func TestMultiEntryOrderPreserved(t *testing.T) {
	b := NewBuilder()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		if err := b.Add(n, time.Now(), []byte(n+n+n)); err != nil {
			t.Fatal(err)
		}
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
	if len(got.LocalSections()) != len(names) {
		t.Fatalf("local sections = %d, want %d", len(got.LocalSections()), len(names))
	}
	for i, n := range names {
		if got.LocalSections()[i].LocalFile.FileName != n {
			t.Errorf("entry %d name = %q, want %q", i, got.LocalSections()[i].LocalFile.FileName, n)
		}
	}
}
