package aml

import (
	"bytes"
	"testing"
)

func TestIntegerOperators(t *testing.T) {
	local0 := byte(opLocal0)

	cases := []struct {
		name string
		body []byte
		want uint64
	}{
		{"Add", seq([]byte{opReturn, opAdd}, byteData(5), byteData(7), []byte{opZero}), 12},
		{"Subtract", seq([]byte{opReturn, opSubtract}, byteData(10), byteData(3), []byte{opZero}), 7},
		{"Multiply", seq([]byte{opReturn, opMultiply}, byteData(6), byteData(7), []byte{opZero}), 42},
		{"Mod", seq([]byte{opReturn, opMod}, byteData(17), byteData(5), []byte{opZero}), 2},
		{"ShiftLeft", seq([]byte{opReturn, opShiftLeft}, byteData(1), byteData(4), []byte{opZero}), 16},
		{"ShiftRight", seq([]byte{opReturn, opShiftRight}, byteData(0x80), byteData(3), []byte{opZero}), 16},
		{"And", seq([]byte{opReturn, opAnd}, byteData(0xF0), byteData(0x3C), []byte{opZero}), 0x30},
		{"Or", seq([]byte{opReturn, opOr}, byteData(0xF0), byteData(0x3C), []byte{opZero}), 0xFC},
		{"Xor", seq([]byte{opReturn, opXor}, byteData(0xF0), byteData(0x3C), []byte{opZero}), 0xCC},
		{"Nand", seq([]byte{opReturn, opNand}, byteData(0xF0), byteData(0x3C), []byte{opZero}), 0xFFFFFFFFFFFFFFCF},
		{"Nor", seq([]byte{opReturn, opNor}, byteData(0xF0), byteData(0x3C), []byte{opZero}), 0xFFFFFFFFFFFFFF03},
		{"Not", seq([]byte{opReturn, opNot}, byteData(0x0F), []byte{opZero}), 0xFFFFFFFFFFFFFFF0},

		{"DivideQuotient", seq([]byte{opReturn, opDivide}, byteData(17), byteData(5), []byte{opZero, opZero}), 3},
		{"DivideRemainder", seq(
			[]byte{opDivide}, byteData(17), byteData(5), []byte{local0, opZero},
			[]byte{opReturn, local0},
		), 2},

		{"FindSetLeftBit", seq([]byte{opReturn, opFindSetLeftBit}, byteData(0x10), []byte{opZero}), 5},
		{"FindSetRightBit", seq([]byte{opReturn, opFindSetRightBit}, byteData(0x18), []byte{opZero}), 4},
		{"FindSetLeftBitZero", seq([]byte{opReturn, opFindSetLeftBit}, []byte{opZero, opZero}), 0},

		{"LEqualTrue", seq([]byte{opReturn, opLEqual}, byteData(5), byteData(5)), 0xFFFFFFFFFFFFFFFF},
		{"LEqualFalse", seq([]byte{opReturn, opLEqual}, byteData(5), byteData(6)), 0},
		{"LLess", seq([]byte{opReturn, opLLess}, byteData(4), byteData(5)), 0xFFFFFFFFFFFFFFFF},
		{"LGreater", seq([]byte{opReturn, opLGreater}, byteData(4), byteData(5)), 0},
		{"LAnd", seq([]byte{opReturn, opLAnd}, byteData(1), []byte{opZero}), 0},
		{"LOr", seq([]byte{opReturn, opLOr}, []byte{opZero}, byteData(1)), 0xFFFFFFFFFFFFFFFF},
		{"LNot", seq([]byte{opReturn, opLNot, opZero}), 0xFFFFFFFFFFFFFFFF},

		{"Increment", seq(
			[]byte{opStore}, byteData(5), []byte{local0},
			[]byte{opIncrement, local0},
			[]byte{opReturn, local0},
		), 6},
		{"Decrement", seq(
			[]byte{opStore}, byteData(5), []byte{local0},
			[]byte{opDecrement, local0},
			[]byte{opReturn, local0},
		), 4},

		{"FromBCD", seq([]byte{opReturn, opExtendedPrefix, extOpFromBCD},
			[]byte{opWordPrefix, 0x34, 0x12}, []byte{opZero}), 1234},
		{"ToBCD", seq([]byte{opReturn, opExtendedPrefix, extOpToBCD},
			wordData(1234), []byte{opZero}), 0x1234},
		{"ToIntegerHex", seq([]byte{opReturn, opToInteger}, strData("0x1A"), []byte{opZero}), 26},
		{"ToIntegerDecimal", seq([]byte{opReturn, opToInteger}, strData("123"), []byte{opZero}), 123},
		{"Revision", []byte{opReturn, opExtendedPrefix, extOpRevision}, interpreterRevision},

		{"SizeOfString", seq(
			[]byte{opStore}, strData("abc"), []byte{local0},
			[]byte{opReturn, opSizeOf, local0},
		), 3},
		{"SizeOfBuffer", seq(
			[]byte{opStore}, bufferData(3, 0x11, 0x22, 0x33), []byte{local0},
			[]byte{opReturn, opSizeOf, local0},
		), 3},
		{"ObjectTypeString", seq(
			[]byte{opStore}, strData("ab"), []byte{local0},
			[]byte{opReturn, opObjectType, local0},
		), uint64(ObjectString)},

		{"DerefOfIndexedBuffer", seq(
			[]byte{opStore}, bufferData(3, 0x11, 0x22, 0x33), []byte{local0},
			[]byte{opReturn, opDerefOf, opIndex, local0}, byteData(1), []byte{opZero},
		), 0x22},

		{"CondRefOfMissing", []byte{opReturn, opExtendedPrefix, extOpCondRefOf, 'F', 'O', 'O', 'X', local0}, 0},
		{"CondRefOfFound", []byte{opReturn, opExtendedPrefix, extOpCondRefOf, '\\', '_', 'S', 'B', '_', local0}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := runForInteger(t, tc.body); got != tc.want {
				t.Errorf("got %#x; want %#x", got, tc.want)
			}
		})
	}
}

func TestAddConvertsStringOperand(t *testing.T) {
	// A hex string operand is implicitly converted before the addition.
	body := []byte{opReturn, opAdd, opArg0, opArg0 + 1, opZero}
	if got := runForInteger(t, body, intArg(0x1234), strArg("0x5678")); got != 0x68AC {
		t.Fatalf("Add(0x1234, \"0x5678\") = %#x; want 0x68ac", got)
	}
}

func TestBufferFieldCrossesByteBoundary(t *testing.T) {
	// An 8-bit view at bit offset 4 straddles bytes 0 and 1.
	block := seq(
		[]byte{opName, 'B', 'U', 'F', '0'}, bufferData(4, 0xAA, 0x55, 0xF0, 0x0F),
		[]byte{opExtendedPrefix, extOpCreateField, 'B', 'U', 'F', '0'},
		byteData(4), byteData(8), []byte{'X', 'F', 'L', 'D'},
		methodBlock(0, []byte{opReturn, 'X', 'F', 'L', 'D'}),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0x5A {
		t.Fatalf("XFLD = %#x; want 0x5a", result.Integer)
	}
}

func TestMatch(t *testing.T) {
	// Package{1, 3, 7}
	pkg := append([]byte{opPackage}, pkgLen(seq(
		[]byte{3}, byteData(1), byteData(3), byteData(7),
	))...)

	// Match(pkg, MGE, operand, MTR, Zero, Zero)
	matchBody := func(operand byte) []byte {
		return seq(
			[]byte{opReturn, opMatch}, pkg,
			[]byte{matchOperatorGreaterOrEqual}, byteData(operand),
			[]byte{matchOperatorTrue, opZero},
			[]byte{opZero},
		)
	}

	if got := runForInteger(t, matchBody(5)); got != 2 {
		t.Errorf("Match(>= 5) = %d; want index 2", got)
	}
	if got := runForInteger(t, matchBody(8)); got != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("Match(>= 8) = %#x; want all ones", got)
	}
}

func TestMatchExactAndMiss(t *testing.T) {
	// Package{1, 2, 3, 4, 5}
	pkg := append([]byte{opPackage}, pkgLen(seq(
		[]byte{5}, byteData(1), byteData(2), byteData(3), byteData(4), byteData(5),
	))...)

	matchBody := func(op, operand byte) []byte {
		return seq(
			[]byte{opReturn, opMatch}, pkg,
			[]byte{op}, byteData(operand),
			[]byte{matchOperatorTrue, opZero},
			[]byte{opZero},
		)
	}

	if got := runForInteger(t, matchBody(matchOperatorEqual, 3)); got != 2 {
		t.Errorf("Match(== 3) = %d; want index 2", got)
	}
	if got := runForInteger(t, matchBody(matchOperatorGreater, 99)); got != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("Match(> 99) = %#x; want all ones", got)
	}
}

func TestStringOperators(t *testing.T) {
	local0 := byte(opLocal0)

	cases := []struct {
		name string
		body []byte
		want string
	}{
		{"Concatenate", seq([]byte{opReturn, opConcat}, strData("foo"), strData("bar"), []byte{opZero}), "foobar"},
		{"Mid", seq([]byte{opReturn, opMid}, strData("hello world"), byteData(6), byteData(5), []byte{opZero}), "world"},
		{"MidClamped", seq([]byte{opReturn, opMid}, strData("abc"), byteData(2), byteData(10), []byte{opZero}), "c"},
		{"ToDecimalStringInteger", seq([]byte{opReturn, opToDecimalString}, byteData(123), []byte{opZero}), "123"},
		{"ToDecimalStringBuffer", seq(
			[]byte{opStore}, bufferData(2, 1, 255), []byte{local0},
			[]byte{opReturn, opToDecimalString, local0, opZero},
		), "1,255"},
		{"ToHexStringInteger", seq([]byte{opReturn, opToHexString}, wordData(0xBEEF), []byte{opZero}), "000000000000beef"},
		{"ToString", seq(
			[]byte{opStore}, bufferData(4, 'A', 'B', 0, 'C'), []byte{local0},
			[]byte{opReturn, opToString, local0, opZero},
		), "AB"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := runForString(t, tc.body); got != tc.want {
				t.Errorf("got %q; want %q", got, tc.want)
			}
		})
	}
}

func TestBufferOperators(t *testing.T) {
	cases := []struct {
		name string
		body []byte
		want []byte
	}{
		{"ConcatenateIntegers",
			seq([]byte{opReturn, opConcat}, byteData(1), byteData(2), []byte{opZero}),
			[]byte{1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0}},
		{"ToBufferString",
			seq([]byte{opReturn, opToBuffer}, strData("hi"), []byte{opZero}),
			[]byte{'h', 'i', 0}},
		{"BufferPadsToDeclaredSize",
			seq([]byte{opReturn}, bufferData(4, 0xAA)),
			[]byte{0xAA, 0, 0, 0}},
		{"ConcatenateResourceTemplates",
			seq([]byte{opReturn, opConcatRes},
				bufferData(5, 0x22, 0x04, 0x00, 0x79, 0x00),
				bufferData(2, 0x79, 0x00),
				[]byte{opZero}),
			[]byte{0x22, 0x04, 0x00, 0x79, 0x61}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := runForBuffer(t, tc.body); !bytes.Equal(got, tc.want) {
				t.Errorf("got % x; want % x", got, tc.want)
			}
		})
	}
}

func TestPackageLateBinding(t *testing.T) {
	// PKG0 references FOO0 before it is defined; the reference resolves on
	// first use.
	block := seq(
		[]byte{opName, 'P', 'K', 'G', '0', opPackage},
		pkgLen(seq([]byte{2, 'F', 'O', 'O', '0'}, byteData(7))),
		seq([]byte{opName, 'F', 'O', 'O', '0'}, byteData(42)),
		methodBlock(0, []byte{opReturn, opDerefOf, opIndex, 'P', 'K', 'G', '0', opZero, opZero}),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 42 {
		t.Fatalf("MAIN() = %d; want 42", result.Integer)
	}
}

func TestVariablePackagePadsToCount(t *testing.T) {
	local0 := byte(opLocal0)
	varPkg := append([]byte{opVarPackage}, pkgLen(seq(byteData(4), byteData(1)))...)
	body := seq(
		[]byte{opStore}, varPkg, []byte{local0},
		[]byte{opReturn, opSizeOf, local0},
	)

	if got := runForInteger(t, body); got != 4 {
		t.Fatalf("SizeOf(VarPackage(4){1}) = %d; want 4", got)
	}
}

func TestStoreIntoPackageElement(t *testing.T) {
	local0 := byte(opLocal0)
	pkg := append([]byte{opPackage}, pkgLen(seq([]byte{2}, byteData(1), byteData(2)))...)
	body := seq(
		[]byte{opStore}, pkg, []byte{local0},
		[]byte{opStore}, byteData(9), []byte{opIndex, local0}, byteData(1), []byte{opZero},
		[]byte{opReturn, opDerefOf, opIndex, local0}, byteData(1), []byte{opZero},
	)

	if got := runForInteger(t, body); got != 9 {
		t.Fatalf("pkg[1] = %d; want 9", got)
	}
}

func TestMutexAcquireRelease(t *testing.T) {
	local0 := byte(opLocal0)
	body := seq(
		[]byte{opExtendedPrefix, extOpMutex, 'M', 'T', 'X', '0', 0x00},
		[]byte{opStore, opExtendedPrefix, extOpAcquire, 'M', 'T', 'X', '0', 0xFF, 0xFF, local0},
		[]byte{opExtendedPrefix, extOpRelease, 'M', 'T', 'X', '0'},
		[]byte{opReturn, local0},
	)

	if got := runForInteger(t, body); got != 0 {
		t.Fatalf("Acquire = %#x; want 0", got)
	}
}

func TestEventSignalWait(t *testing.T) {
	body := seq(
		[]byte{opExtendedPrefix, extOpEvent, 'E', 'V', 'T', '0'},
		[]byte{opExtendedPrefix, extOpSignal, 'E', 'V', 'T', '0'},
		[]byte{opReturn, opExtendedPrefix, extOpWait, 'E', 'V', 'T', '0'}, wordData(0xFFFF),
	)

	if got := runForInteger(t, body); got != 0 {
		t.Fatalf("Wait = %#x; want 0", got)
	}
}

func TestWaitTimesOutWithoutSignal(t *testing.T) {
	body := seq(
		[]byte{opExtendedPrefix, extOpEvent, 'E', 'V', 'T', '0'},
		[]byte{opReturn, opExtendedPrefix, extOpWait, 'E', 'V', 'T', '0'}, byteData(1),
	)

	if got := runForInteger(t, body); got != 0xFFFFFFFFFFFFFFFF {
		t.Fatalf("Wait = %#x; want all ones", got)
	}
}

func TestCopyObjectDuplicatesValue(t *testing.T) {
	local0, local1 := byte(opLocal0), byte(opLocal0+1)
	body := seq(
		[]byte{opStore}, strData("abc"), []byte{local0},
		[]byte{opCopyObject, local0, local1},
		[]byte{opReturn, opSizeOf, local1},
	)

	if got := runForInteger(t, body); got != 3 {
		t.Fatalf("SizeOf(copy) = %d; want 3", got)
	}
}
