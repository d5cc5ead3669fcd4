package table

import (
	"bytes"
	"testing"
)

func TestNewDefinitionBlockChecksum(t *testing.T) {
	aml := []byte{0x08, 'V', 'A', 'L', '_', 0x0A, 0x2A}
	tbl := NewDefinitionBlock(SignatureSSDT, 2, "TESTTBL", aml)

	if got := tbl.Header.Length; got != uint32(HeaderLen+len(aml)) {
		t.Fatalf("Length = %d; want %d", got, HeaderLen+len(aml))
	}
	if sum := tbl.Checksum(); sum != 0 {
		t.Fatalf("Checksum() = %#x; want 0", sum)
	}
	if !tbl.Valid() {
		t.Fatal("Valid() = false; want true")
	}
}

func TestValidDetectsCorruption(t *testing.T) {
	tbl := NewDefinitionBlock(SignatureDSDT, 2, "TESTTBL", []byte{0xA3})
	tbl.Data = []byte{0xA4}
	if tbl.Valid() {
		t.Fatal("Valid() = true for a corrupted payload")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	aml := []byte{0x10, 0x06, '\\', '_', 'S', 'B', '_'}
	tbl := NewDefinitionBlock(SignatureDSDT, 2, "ROUNDTRP", aml)

	decoded, err := Decode(tbl.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Header != tbl.Header {
		t.Fatalf("header mismatch:\ngot  %+v\nwant %+v", decoded.Header, tbl.Header)
	}
	if !bytes.Equal(decoded.Data, aml) {
		t.Fatalf("Data = % x; want % x", decoded.Data, aml)
	}
	if !decoded.Valid() {
		t.Fatal("decoded table failed validation")
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(make([]byte, HeaderLen-1)); err != ErrTableTooShort {
		t.Errorf("short image: err = %v; want %v", err, ErrTableTooShort)
	}

	tbl := NewDefinitionBlock(SignatureSSDT, 2, "TRUNC", []byte{0xA3, 0xA3})
	image := tbl.Encode()
	if _, err := Decode(image[:len(image)-1]); err != ErrTableTruncated {
		t.Errorf("truncated image: err = %v; want %v", err, ErrTableTruncated)
	}
}

func TestChecksumData(t *testing.T) {
	if got := ChecksumData([]byte{0x80, 0x7F, 0x01}); got != 0 {
		t.Errorf("ChecksumData = %#x; want 0", got)
	}
	if got := ChecksumData([]byte{0x01, 0x02}); got != 3 {
		t.Errorf("ChecksumData = %#x; want 3", got)
	}
}
