package zipfmt

import (
	"bytes"
	"testing"
)

func TestLocalFileRoundTrip(t *testing.T) {
	lf := LocalFile{
		VersionNeededToExtract: 20,
		GeneralPurposeBitFlag:  SetDataDescriptor(0, true),
		CompressionMethod:      CompressionDeflate,
		LastModifiedFileTime:   0x1234,
		LastModifiedFileDate:   0x5678,
		CRC32:                  0,
		CompressedSize:         0,
		UncompressedSize:       0,
		FileName:               "a.txt",
		ExtraField:             []byte{0x01, 0x02},
	}

	var buf bytes.Buffer
	if err := lf.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if int64(buf.Len()) != lf.StructureLength() {
		t.Errorf("StructureLength() = %d, want %d", lf.StructureLength(), buf.Len())
	}

	var got LocalFile
	if err := got.Read(&buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.FileName != lf.FileName || !bytes.Equal(got.ExtraField, lf.ExtraField) ||
		got.VersionNeededToExtract != lf.VersionNeededToExtract ||
		got.GeneralPurposeBitFlag != lf.GeneralPurposeBitFlag ||
		got.CompressionMethod != lf.CompressionMethod ||
		got.LastModifiedFileTime != lf.LastModifiedFileTime ||
		got.LastModifiedFileDate != lf.LastModifiedFileDate ||
		got.CRC32 != lf.CRC32 || got.CompressedSize != lf.CompressedSize ||
		got.UncompressedSize != lf.UncompressedSize {
		t.Errorf("round trip = %+v, want %+v", got, lf)
	}
}

func TestLocalFileBadSignature(t *testing.T) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, SignatureCentralDirectoryFile); err != nil {
		t.Fatal(err)
	}
	var lf LocalFile
	if err := lf.Read(&buf); err == nil {
		t.Fatal("expected format error, got nil")
	}
}

func TestDataDescriptorReadWithSignature(t *testing.T) {
	dd := DataDescriptor{CRC32: 0x3610a686, CompressedSize: 5, UncompressedSize: 5}
	var buf bytes.Buffer
	if err := dd.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got DataDescriptor
	if err := got.Read(&buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != dd {
		t.Errorf("round trip = %+v, want %+v", got, dd)
	}
}

func TestDataDescriptorReadWithoutSignature(t *testing.T) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, 0x3610a686); err != nil {
		t.Fatal(err)
	}
	if err := writeUint32(&buf, 5); err != nil {
		t.Fatal(err)
	}
	if err := writeUint32(&buf, 5); err != nil {
		t.Fatal(err)
	}

	var got DataDescriptor
	if err := got.Read(&buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := DataDescriptor{CRC32: 0x3610a686, CompressedSize: 5, UncompressedSize: 5}
	if got != want {
		t.Errorf("signature-absent read = %+v, want %+v", got, want)
	}
}

func TestCentralDirectoryFileRoundTrip(t *testing.T) {
	cd := CentralDirectoryFile{
		VersionMadeBy:          20,
		VersionNeededToExtract: 20,
		GeneralPurposeBitFlag:  0x0008,
		CompressionMethod:      CompressionDeflate,
		LastModifiedFileTime:   0x1234,
		LastModifiedFileDate:   0x5678,
		CRC32:                  0x3610a686,
		CompressedSize:         3,
		UncompressedSize:       5,
		DiskNumberStart:        0,
		InternalFileAttributes: 0,
		ExternalFileAttributes: 0,
		RelativeOffsetOfHeader: 42,
		FileName:               "a.txt",
		ExtraField:             []byte{0xAA},
		FileComment:            "hello",
	}

	var buf bytes.Buffer
	if err := cd.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if int64(buf.Len()) != cd.StructureLength() {
		t.Errorf("StructureLength() = %d, want %d", cd.StructureLength(), buf.Len())
	}

	var got CentralDirectoryFile
	if err := got.Read(&buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.Equals(&cd) {
		t.Errorf("round trip = %+v, want %+v", got, cd)
	}
}

func TestCentralDirectoryFilePositionIndependentEquals(t *testing.T) {
	base := CentralDirectoryFile{
		CRC32:                  1,
		CompressedSize:         2,
		UncompressedSize:       3,
		FileName:               "a.txt",
		RelativeOffsetOfHeader: 100,
	}
	moved := base
	moved.RelativeOffsetOfHeader = 500

	if base.Equals(&moved) {
		t.Error("Equals() with differing offsets = true, want false")
	}
	if !base.PositionIndependentEquals(&moved) {
		t.Error("PositionIndependentEquals() with differing offsets = false, want true")
	}

	changedName := base
	changedName.FileName = "b.txt"
	if base.PositionIndependentEquals(&changedName) {
		t.Error("PositionIndependentEquals() with differing names = true, want false")
	}
}

func TestEndOfCentralDirectoryRoundTrip(t *testing.T) {
	e := EndOfCentralDirectory{
		DiskNumber:                0,
		DiskNumberStartCentralDir: 0,
		NumEntriesThisDisk:        3,
		TotalEntries:              3,
		LengthOfCentralDirectory:  120,
		OffsetOfStartOfCentralDir: 500,
		Comment:                   "build 42",
	}

	var buf bytes.Buffer
	if err := e.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if int64(buf.Len()) != e.StructureLength() {
		t.Errorf("StructureLength() = %d, want %d", e.StructureLength(), buf.Len())
	}

	var got EndOfCentralDirectory
	if err := got.Read(&buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestGeneralPurposeBitFlagHelpers(t *testing.T) {
	flags := SetDataDescriptor(0, true)
	if !HasDataDescriptor(flags) {
		t.Error("HasDataDescriptor() = false after SetDataDescriptor(true)")
	}
	flags = SetDataDescriptor(flags, false)
	if HasDataDescriptor(flags) {
		t.Error("HasDataDescriptor() = true after SetDataDescriptor(false)")
	}

	flags = SetDeflateOption(0, DeflateOptionMax)
	if DeflateOption(flags) != DeflateOptionMax {
		t.Errorf("DeflateOption() = %d, want %d", DeflateOption(flags), DeflateOptionMax)
	}
}
