package aml

import (
	"bytes"
	"testing"
)

// opRegion assembles an OperationRegion declaration in SystemMemory space at
// offset 0 with the given byte length.
func opRegion(name string, length uint16) []byte {
	return seq(
		[]byte{opExtendedPrefix, extOpOperationRegion}, []byte(name),
		[]byte{byte(RegionSpaceSystemMemory)}, byteData(0), wordData(length),
	)
}

// fieldUnits assembles a Field declaration over the named region.
func fieldUnits(region string, flags byte, list ...byte) []byte {
	return append([]byte{opExtendedPrefix, extOpField},
		pkgLen(seq([]byte(region), []byte{flags}, list))...)
}

func TestFieldUnitsDoNotDisturbNeighbors(t *testing.T) {
	// FLD1 is a full byte, FLD2 and FLD3 split the next one 3/5. Writing the
	// middle unit must preserve both neighbors.
	block := seq(
		opRegion("REG0", 0x100),
		fieldUnits("REG0", 0x00,
			'F', 'L', 'D', '1', 8,
			'F', 'L', 'D', '2', 3,
			'F', 'L', 'D', '3', 5),
		methodBlock(0, seq(
			[]byte{opStore}, byteData(0xAB), []byte{'F', 'L', 'D', '1'},
			[]byte{opStore}, byteData(0x05), []byte{'F', 'L', 'D', '2'},
			[]byte{opStore}, byteData(0x1F), []byte{'F', 'L', 'D', '3'},
			// Return(FLD1 | FLD2<<8 | FLD3<<16)
			[]byte{opReturn, opOr, 'F', 'L', 'D', '1',
				opOr,
				opShiftLeft, 'F', 'L', 'D', '2'}, byteData(8), []byte{opZero,
				opShiftLeft, 'F', 'L', 'D', '3'}, byteData(16), []byte{opZero,
				opZero, opZero},
		)),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0x1F05AB {
		t.Fatalf("packed field readback = %#x; want 0x1f05ab", result.Integer)
	}
}

func TestFieldWriteAsOnesRule(t *testing.T) {
	// Two views of the same byte: FULL preserves, the second view sets the
	// bits it does not cover when written.
	block := seq(
		opRegion("REG0", 0x10),
		fieldUnits("REG0", 0x00, 'F', 'U', 'L', 'L', 8),
		fieldUnits("REG0", 0x20,
			'L', 'O', 'W', '_', 4,
			'H', 'I', 'G', 'H', 4),
		methodBlock(0, seq(
			[]byte{opStore, opZero, 'F', 'U', 'L', 'L'},
			[]byte{opStore}, byteData(0x03), []byte{'L', 'O', 'W', '_'},
			[]byte{opReturn, 'F', 'U', 'L', 'L'},
		)),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0xF3 {
		t.Fatalf("FULL = %#x; want 0xf3", result.Integer)
	}
}

func TestBufferFieldSharesStorage(t *testing.T) {
	block := seq(
		[]byte{opName, 'B', 'U', 'F', '0'}, bufferData(4),
		[]byte{opCreateByteFld, 'B', 'U', 'F', '0'}, byteData(1), []byte{'B', 'F', 'L', 'D'},
		methodBlock(0, seq(
			[]byte{opStore}, byteData(0x7E), []byte{'B', 'F', 'L', 'D'},
			[]byte{opReturn, opDerefOf, opIndex, 'B', 'U', 'F', '0'}, byteData(1), []byte{opZero},
		)),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0x7E {
		t.Fatalf("BUF0[1] = %#x; want 0x7e", result.Integer)
	}
}

func TestCreateFieldBitGranular(t *testing.T) {
	// An 8-bit field starting at bit 4 straddles two buffer bytes.
	block := seq(
		[]byte{opName, 'B', 'U', 'F', '1'}, bufferData(2),
		[]byte{opExtendedPrefix, extOpCreateField, 'B', 'U', 'F', '1'},
		byteData(4), byteData(8), []byte{'B', 'F', 'L', '2'},
		methodBlock(0, seq(
			[]byte{opStore}, byteData(0xA5), []byte{'B', 'F', 'L', '2'},
			[]byte{opReturn, 'B', 'U', 'F', '1'},
		)),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectBuffer)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if want := []byte{0x50, 0x0A}; !bytes.Equal(result.Buffer, want) {
		t.Fatalf("BUF1 = % x; want % x", result.Buffer, want)
	}
}

func TestBufferFieldWriteZeroExtendsShortSource(t *testing.T) {
	// A one-byte buffer stored into a 16-bit field supplies zeros for the
	// bits it does not cover.
	block := seq(
		[]byte{opName, 'B', 'U', 'F', '2'}, bufferData(2, 0x11, 0x22),
		[]byte{opExtendedPrefix, extOpCreateField, 'B', 'U', 'F', '2'},
		byteData(0), byteData(16), []byte{'B', 'F', '1', '6'},
		methodBlock(0, seq(
			[]byte{opStore}, bufferData(1, 0xFF), []byte{'B', 'F', '1', '6'},
			[]byte{opReturn, 'B', 'F', '1', '6'},
		)),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0x00FF {
		t.Fatalf("BF16 = %#x; want 0xff", result.Integer)
	}
}

func TestIndexFieldRoundTrip(t *testing.T) {
	// IF01 lives behind the INDX/DATA register pair. Reading it back must
	// reprogram INDX with the unit's offset.
	indexField := append([]byte{opExtendedPrefix, extOpIndexField},
		pkgLen(seq(
			[]byte{'I', 'N', 'D', 'X', 'D', 'A', 'T', 'A', 0x00},
			[]byte{'I', 'F', '0', '0', 8, 'I', 'F', '0', '1', 8},
		))...)

	block := seq(
		opRegion("REGI", 0x10),
		fieldUnits("REGI", 0x00, 'I', 'N', 'D', 'X', 8, 'D', 'A', 'T', 'A', 8),
		indexField,
		methodBlock(0, seq(
			[]byte{opStore}, byteData(0x5A), []byte{'I', 'F', '0', '1'},
			// Return(IF01<<8 | INDX)
			[]byte{opReturn, opOr,
				opShiftLeft, 'I', 'F', '0', '1'}, byteData(8), []byte{opZero,
				'I', 'N', 'D', 'X', opZero},
		)),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0x5A01 {
		t.Fatalf("IF01<<8|INDX = %#x; want 0x5a01", result.Integer)
	}
}

// tooEarlyHandler stands in for a region backing that has not come up yet.
type tooEarlyHandler struct{}

func (tooEarlyHandler) Create(RegionSpace, uint64, uint64) (interface{}, error) { return nil, nil }
func (tooEarlyHandler) Destroy(interface{})                                     {}
func (tooEarlyHandler) Read(interface{}, uint64, uint32) (uint64, error) {
	return 0, errTooEarly
}
func (tooEarlyHandler) Write(interface{}, uint64, uint32, uint64) error { return errTooEarly }

func TestFieldReadBeforeBackingIsZero(t *testing.T) {
	// A region whose backing is not ready reads as zero and swallows writes,
	// so early namespace code can probe registers safely.
	block := seq(
		seq(
			[]byte{opExtendedPrefix, extOpOperationRegion, 'R', 'E', 'G', 'X'},
			[]byte{byte(RegionSpaceCMOS)}, byteData(0), byteData(4),
		),
		fieldUnits("REGX", 0x00, 'F', 'L', 'D', 'X', 8),
		methodBlock(0, seq(
			[]byte{opStore}, byteData(0x42), []byte{'F', 'L', 'D', 'X'},
			[]byte{opReturn, 'F', 'L', 'D', 'X'},
		)),
	)

	host := NewDefaultHost()
	host.InstallRegionHandler(RegionSpaceCMOS, tooEarlyHandler{})
	ip := NewInterpreter(host, nil)
	if err := ip.initializeNamespace(); err != nil {
		t.Fatalf("initializeNamespace: %v", err)
	}
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0 {
		t.Fatalf("unbacked field read = %#x; want 0", result.Integer)
	}
}
