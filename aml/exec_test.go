package aml

import (
	"testing"

	"goacpi/table"
)

//
// AML assembly helpers. Definition blocks are hand-assembled from opcode
// bytes; pkgLen computes the variable-length package length encoding.
//

func seq(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// pkgLen prepends the AML package length, which counts its own bytes.
func pkgLen(payload []byte) []byte {
	length := len(payload) + 1
	if length < 0x40 {
		return append([]byte{byte(length)}, payload...)
	}
	length++
	return append([]byte{0x40 | byte(length&0x0F), byte(length >> 4)}, payload...)
}

func byteData(v byte) []byte { return []byte{opBytePrefix, v} }

func wordData(v uint16) []byte { return []byte{opWordPrefix, byte(v), byte(v >> 8)} }

func strData(s string) []byte {
	return append(append([]byte{opStringPrefix}, s...), 0)
}

// bufferData assembles a Buffer term with the given declared size and
// initializer bytes.
func bufferData(size byte, init ...byte) []byte {
	payload := append(byteData(size), init...)
	return append([]byte{opBuffer}, pkgLen(payload)...)
}

// namedMethod assembles a Method declaration.
func namedMethod(name string, flags byte, body []byte) []byte {
	payload := append(append([]byte(name), flags), body...)
	return append([]byte{opMethod}, pkgLen(payload)...)
}

// methodBlock assembles a block declaring \MAIN around the given body.
func methodBlock(argCount byte, body []byte) []byte {
	return namedMethod("MAIN", argCount, body)
}

func intArg(v uint64) *Object {
	return &Object{Type: ObjectInteger, refCount: 1, Integer: v}
}

func strArg(s string) *Object {
	return &Object{Type: ObjectString, refCount: 1, String: []byte(s)}
}

func testInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	ip := NewInterpreter(NewDefaultHost(), nil)
	if err := ip.initializeNamespace(); err != nil {
		t.Fatalf("initializeNamespace: %v", err)
	}
	return ip
}

func loadBlock(t *testing.T, ip *Interpreter, aml []byte) *Object {
	t.Helper()
	handle, err := ip.loadTable(table.NewDefinitionBlock(table.SignatureDSDT, 2, "AMLTEST", aml))
	if err != nil {
		t.Fatalf("load definition block: %v", err)
	}
	return handle
}

// runMethod loads a block declaring \MAIN with the given body and invokes it.
func runMethod(t *testing.T, body []byte, returnType ObjectType, args ...*Object) *Object {
	t.Helper()
	ip := testInterpreter(t)
	loadBlock(t, ip, methodBlock(byte(len(args)), body))

	result, err := ip.ExecuteMethod("\\MAIN", args, returnType)
	if err != nil {
		t.Fatalf("ExecuteMethod(\\MAIN): %v", err)
	}
	if result == nil {
		t.Fatal("ExecuteMethod(\\MAIN) returned no value")
	}
	return result
}

func runForInteger(t *testing.T, body []byte, args ...*Object) uint64 {
	t.Helper()
	return runMethod(t, body, ObjectInteger, args...).Integer
}

func runForString(t *testing.T, body []byte, args ...*Object) string {
	t.Helper()
	return string(runMethod(t, body, ObjectString, args...).String)
}

func runForBuffer(t *testing.T, body []byte, args ...*Object) []byte {
	t.Helper()
	return runMethod(t, body, ObjectBuffer, args...).Buffer
}

func TestMethodReturnsSumOfArguments(t *testing.T) {
	// Return(Add(Arg0, Arg1, Zero))
	body := []byte{opReturn, opAdd, opArg0, opArg0 + 1, opZero}
	if got := runForInteger(t, body, intArg(5), intArg(7)); got != 12 {
		t.Fatalf("MAIN(5, 7) = %d; want 12", got)
	}
}

func TestMethodWithoutReturnYieldsZero(t *testing.T) {
	ip := testInterpreter(t)
	loadBlock(t, ip, methodBlock(0, []byte{opNoop}))

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result == nil || result.Integer != 0 {
		t.Fatalf("result = %v; want Integer 0", result)
	}
}

func TestIfElse(t *testing.T) {
	// If (Arg0) { Return(One) } Else { Return(2) }
	body := seq(
		[]byte{opIf}, pkgLen([]byte{opArg0, opReturn, opOne}),
		[]byte{opElse}, pkgLen(seq([]byte{opReturn}, byteData(2))),
	)

	if got := runForInteger(t, body, intArg(1)); got != 1 {
		t.Errorf("MAIN(1) = %d; want 1", got)
	}
	if got := runForInteger(t, body, intArg(0)); got != 2 {
		t.Errorf("MAIN(0) = %d; want 2", got)
	}
}

func TestWhileLoopBreak(t *testing.T) {
	// Store(Zero, Local0)
	// While (LLess(Local0, 10)) {
	//     Increment(Local0)
	//     If (LEqual(Local0, 3)) { Break }
	// }
	// Return(Local0)
	local0 := byte(opLocal0)
	ifBreak := seq([]byte{opIf}, pkgLen(seq(
		[]byte{opLEqual, local0}, byteData(3),
		[]byte{opBreak},
	)))
	loop := seq([]byte{opWhile}, pkgLen(seq(
		[]byte{opLLess, local0}, byteData(10),
		[]byte{opIncrement, local0},
		ifBreak,
	)))
	body := seq(
		[]byte{opStore, opZero, local0},
		loop,
		[]byte{opReturn, local0},
	)

	if got := runForInteger(t, body); got != 3 {
		t.Fatalf("MAIN() = %d; want 3", got)
	}
}

func TestWhileLoopContinue(t *testing.T) {
	// Local0 counts iterations, Local1 skips the increment when Local0 is 2.
	local0, local1 := byte(opLocal0), byte(opLocal0+1)
	ifContinue := seq([]byte{opIf}, pkgLen(seq(
		[]byte{opLEqual, local0}, byteData(2),
		[]byte{opContinue},
	)))
	loop := seq([]byte{opWhile}, pkgLen(seq(
		[]byte{opLLess, local0}, byteData(5),
		[]byte{opIncrement, local0},
		ifContinue,
		[]byte{opIncrement, local1},
	)))
	body := seq(
		[]byte{opStore, opZero, local0},
		[]byte{opStore, opZero, local1},
		loop,
		[]byte{opReturn, local1},
	)

	if got := runForInteger(t, body); got != 4 {
		t.Fatalf("MAIN() = %d; want 4", got)
	}
}

func TestWhileZeroPredicateSkipsBody(t *testing.T) {
	local0 := byte(opLocal0)
	body := seq(
		[]byte{opStore}, byteData(5), []byte{local0},
		[]byte{opWhile}, pkgLen([]byte{opZero, opIncrement, local0}),
		[]byte{opReturn, local0},
	)

	if got := runForInteger(t, body); got != 5 {
		t.Fatalf("MAIN() = %d; want 5", got)
	}
}

func TestReturnUnwindsWhile(t *testing.T) {
	body := seq(
		[]byte{opWhile}, pkgLen(seq([]byte{opOne, opReturn}, byteData(7))),
	)
	if got := runForInteger(t, body); got != 7 {
		t.Fatalf("MAIN() = %d; want 7", got)
	}
}

func TestMethodInvocation(t *testing.T) {
	// Method(HLPR) { Return(42) }  Method(MAIN) { Return(Add(HLPR(), 1, Zero)) }
	block := seq(
		namedMethod("HLPR", 0, seq([]byte{opReturn}, byteData(42))),
		methodBlock(0, []byte{opReturn, opAdd, 'H', 'L', 'P', 'R', opOne, opZero}),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 43 {
		t.Fatalf("MAIN() = %d; want 43", result.Integer)
	}
}

func TestMethodInvocationWithArguments(t *testing.T) {
	// Method(DBLR, 1) { Return(Add(Arg0, Arg0, Zero)) }
	block := seq(
		namedMethod("DBLR", 1, []byte{opReturn, opAdd, opArg0, opArg0, opZero}),
		methodBlock(0, seq([]byte{opReturn, 'D', 'B', 'L', 'R'}, byteData(21))),
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

func TestEmptyMethodBody(t *testing.T) {
	// Method(EMTY) {}  Method(MAIN) { EMTY() Return(7) }
	block := seq(
		namedMethod("EMTY", 0, nil),
		methodBlock(0, seq([]byte{'E', 'M', 'T', 'Y', opReturn}, byteData(7))),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 7 {
		t.Fatalf("MAIN() = %d; want 7", result.Integer)
	}
}

func TestEmptyMethodInvocationYieldsZero(t *testing.T) {
	// Method(EMTY) {}  Method(MAIN) { Return(EMTY()) }
	block := seq(
		namedMethod("EMTY", 0, nil),
		methodBlock(0, []byte{opReturn, 'E', 'M', 'T', 'Y'}),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0 {
		t.Fatalf("MAIN() = %d; want 0", result.Integer)
	}
}

func TestMethodWithoutReturnInsideExpression(t *testing.T) {
	// Method(NOPM) { Noop }  Method(MAIN) { Return(Add(NOPM(), 5, Zero)) }
	// The pending Add must survive NOPM running off the end of its body.
	block := seq(
		namedMethod("NOPM", 0, []byte{opNoop}),
		methodBlock(0, seq(
			[]byte{opReturn, opAdd, 'N', 'O', 'P', 'M'}, byteData(5), []byte{opZero},
		)),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 5 {
		t.Fatalf("MAIN() = %d; want 5", result.Integer)
	}
}

func TestStoreToLocalRebindsSlot(t *testing.T) {
	// Storing through Local1 must not mutate the object Local1 was merely
	// sharing with Local0.
	local0, local1 := byte(opLocal0), byte(opLocal0+1)
	body := seq(
		[]byte{opStore}, byteData(5), []byte{local0},
		[]byte{opStore, local0, local1},
		[]byte{opStore}, byteData(7), []byte{local0},
		[]byte{opReturn, local1},
	)

	if got := runForInteger(t, body); got != 5 {
		t.Fatalf("MAIN() = %d; want 5", got)
	}
}

func TestStoreToConstantIsDiscarded(t *testing.T) {
	// A store to Zero is a bit bucket; Zero itself must stay zero.
	body := seq(
		[]byte{opStore}, byteData(9), []byte{opZero},
		[]byte{opReturn, opZero},
	)
	if got := runForInteger(t, body); got != 0 {
		t.Fatalf("MAIN() = %d; want 0", got)
	}
}

func TestMalformedStreamReported(t *testing.T) {
	ip := testInterpreter(t)
	_, err := ip.loadTable(table.NewDefinitionBlock(table.SignatureDSDT, 2, "BAD",
		[]byte{0x05})) // not an opcode
	if err == nil {
		t.Fatal("loading a malformed block succeeded")
	}
}

func TestIntegerWidthFollowsTableRevision(t *testing.T) {
	// Revision 1 blocks run with 32-bit integers: Not(0) stays within the
	// 32-bit mask.
	body := []byte{opReturn, opNot, opZero, opZero}

	ip := testInterpreter(t)
	if _, err := ip.loadTable(table.NewDefinitionBlock(table.SignatureDSDT, 1, "W32",
		methodBlock(0, body))); err != nil {
		t.Fatalf("load: %v", err)
	}

	result, err := ip.ExecuteMethod("\\MAIN", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 0xFFFFFFFF {
		t.Fatalf("Not(Zero) = %#x; want 0xffffffff", result.Integer)
	}
}
