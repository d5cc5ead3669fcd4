package aml

import (
	"bytes"
	"testing"

	"goacpi/table"
)

// testResolver serves tables out of a fixed slice.
type testResolver struct {
	tables []*table.Table
}

func (r *testResolver) FindTable(signature string, previous *table.Table) *table.Table {
	var sig [4]byte
	copy(sig[:], signature)

	matching := false
	if previous == nil {
		matching = true
	}
	for _, t := range r.tables {
		if t == previous {
			matching = true
			continue
		}
		if matching && t.Header.Signature == sig {
			return t
		}
	}
	return nil
}

func TestOsiMethod(t *testing.T) {
	ip := testInterpreter(t)

	result, err := ip.ExecuteMethod("\\_OSI", []*Object{strArg("Windows 2015")}, ObjectInteger)
	if err != nil {
		t.Fatalf("_OSI: %v", err)
	}
	if result.Integer != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("_OSI(Windows 2015) = %#x; want all ones", result.Integer)
	}

	result, err = ip.ExecuteMethod("\\_OSI", []*Object{strArg("Atari TOS")}, ObjectInteger)
	if err != nil {
		t.Fatalf("_OSI: %v", err)
	}
	if result.Integer != 0 {
		t.Errorf("_OSI(Atari TOS) = %#x; want 0", result.Integer)
	}
}

func TestOsiHonorsHostInterfaces(t *testing.T) {
	host := NewDefaultHost()
	host.OsiInterfaces = append(host.OsiInterfaces, "Atari TOS")
	ip := NewInterpreter(host, nil)
	if err := ip.initializeNamespace(); err != nil {
		t.Fatalf("initializeNamespace: %v", err)
	}

	result, err := ip.ExecuteMethod("\\_OSI", []*Object{strArg("Atari TOS")}, ObjectInteger)
	if err != nil {
		t.Fatalf("_OSI: %v", err)
	}
	if result.Integer == 0 {
		t.Error("_OSI ignored a host-provided interface string")
	}
}

func TestLoadAndUnloadDefinitionBlock(t *testing.T) {
	ip := testInterpreter(t)

	// Name(VAL0, 42)
	image := table.NewDefinitionBlock(table.SignatureSSDT, 2, "LOADTST",
		seq([]byte{opName, 'V', 'A', 'L', '0'}, byteData(42))).Encode()

	handle, err := ip.LoadDefinitionBlock(image)
	if err != nil {
		t.Fatalf("LoadDefinitionBlock: %v", err)
	}

	obj, err := ip.LookupObject("\\VAL0")
	if err != nil {
		t.Fatalf("LookupObject(\\VAL0): %v", err)
	}
	if resolveAlias(obj).Integer != 42 {
		t.Fatalf("VAL0 = %d; want 42", resolveAlias(obj).Integer)
	}

	ip.UnloadDefinitionBlock(handle)
	if _, err := ip.LookupObject("\\VAL0"); err == nil {
		t.Fatal("VAL0 still resolvable after unload")
	}
}

func TestLoadRejectsBadChecksum(t *testing.T) {
	ip := testInterpreter(t)

	image := table.NewDefinitionBlock(table.SignatureSSDT, 2, "BADSUM",
		[]byte{opNoop}).Encode()
	image[9] ^= 0xFF

	if _, err := ip.LoadDefinitionBlock(image); err != errChecksumMismatch {
		t.Fatalf("err = %v; want %v", err, errChecksumMismatch)
	}
}

func TestLoadDeduplicatesIdenticalBlocks(t *testing.T) {
	ip := testInterpreter(t)

	image := table.NewDefinitionBlock(table.SignatureSSDT, 2, "DUPTEST",
		seq([]byte{opName, 'D', 'U', 'P', '0'}, byteData(1))).Encode()

	first, err := ip.LoadDefinitionBlock(image)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := ip.LoadDefinitionBlock(image)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first != second {
		t.Error("identical block loaded under two handles")
	}
	if len(ip.loadedBlocks) != 1 {
		t.Errorf("loadedBlocks = %d; want 1", len(ip.loadedBlocks))
	}
}

// deviceBlock assembles Scope(\_SB_) { Device(DEV0) { Name(INID, Zero)
// Method(_STA) { Return(status) } Method(_INI) { Store(One, INID) } } }.
func deviceBlock(status byte) []byte {
	device := append([]byte{opExtendedPrefix, extOpDevice}, pkgLen(seq(
		[]byte{'D', 'E', 'V', '0'},
		[]byte{opName, 'I', 'N', 'I', 'D', opZero},
		namedMethod("_STA", 0, seq([]byte{opReturn}, byteData(status))),
		namedMethod("_INI", 0, []byte{opStore, opOne, 'I', 'N', 'I', 'D'}),
	))...)
	return append([]byte{opScope}, pkgLen(seq(
		[]byte{'\\', '_', 'S', 'B', '_'}, device,
	))...)
}

func TestInitializeRunsDeviceInit(t *testing.T) {
	resolver := &testResolver{tables: []*table.Table{
		table.NewDefinitionBlock(table.SignatureDSDT, 2, "INITEST", deviceBlock(0x0F)),
	}}

	ip := NewInterpreter(NewDefaultHost(), resolver)
	if err := ip.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	flag, err := ip.LookupObject("\\_SB_DEV0INID")
	if err != nil {
		t.Fatalf("LookupObject: %v", err)
	}
	if resolveAlias(flag).Integer != 1 {
		t.Fatalf("INID = %d; want 1 (device initialized)", resolveAlias(flag).Integer)
	}
}

func TestInitializeSkipsAbsentDevice(t *testing.T) {
	resolver := &testResolver{tables: []*table.Table{
		table.NewDefinitionBlock(table.SignatureDSDT, 2, "INITEST", deviceBlock(0x00)),
	}}

	ip := NewInterpreter(NewDefaultHost(), resolver)
	if err := ip.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	flag, err := ip.LookupObject("\\_SB_DEV0INID")
	if err != nil {
		t.Fatalf("LookupObject: %v", err)
	}
	if resolveAlias(flag).Integer != 0 {
		t.Fatalf("INID = %d; want 0 (device skipped)", resolveAlias(flag).Integer)
	}
}

func TestInitializeReportsInterruptModel(t *testing.T) {
	// Method(_PIC, 1) { Store(Arg0, MODL) }
	block := seq(
		seq([]byte{opName, 'M', 'O', 'D', 'L'}, byteData(0xFF)),
		namedMethod("_PIC", 1, []byte{opStore, opArg0, 'M', 'O', 'D', 'L'}),
	)
	resolver := &testResolver{tables: []*table.Table{
		table.NewDefinitionBlock(table.SignatureDSDT, 2, "PICTEST", block),
	}}

	ip := NewInterpreter(NewDefaultHost(), resolver)
	ip.SetInterruptModel(InterruptModelAPIC)
	if err := ip.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	model, err := ip.LookupObject("\\MODL")
	if err != nil {
		t.Fatalf("LookupObject: %v", err)
	}
	if resolveAlias(model).Integer != InterruptModelAPIC {
		t.Fatalf("MODL = %d; want %d", resolveAlias(model).Integer, InterruptModelAPIC)
	}
}

func TestNotifyReachesHost(t *testing.T) {
	host := NewDefaultHost()
	ip := NewInterpreter(host, nil)
	if err := ip.initializeNamespace(); err != nil {
		t.Fatalf("initializeNamespace: %v", err)
	}
	loadBlock(t, ip, methodBlock(0, seq(
		[]byte{opNotify, '\\', '_', 'S', 'B', '_'}, byteData(0x42),
	)))

	if _, err := ip.ExecuteMethod("\\MAIN", nil, ObjectUninitialized); err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}

	if len(host.Notifications) != 1 {
		t.Fatalf("Notifications = %d; want 1", len(host.Notifications))
	}
	sb, err := ip.LookupObject("\\_SB_")
	if err != nil {
		t.Fatalf("LookupObject(\\_SB_): %v", err)
	}
	if got := host.Notifications[0]; got.Object != sb || got.Value != 0x42 {
		t.Fatalf("notification = {%p, %#x}; want {%p, 0x42}", got.Object, got.Value, sb)
	}
}

func TestDebugStoreWritesToSink(t *testing.T) {
	var sink bytes.Buffer
	ip := testInterpreter(t)
	ip.SetDebugOutput(&sink)

	loadBlock(t, ip, methodBlock(0,
		seq([]byte{opStore}, byteData(0x2A), []byte{opExtendedPrefix, extOpDebug})))

	if _, err := ip.ExecuteMethod("\\MAIN", nil, ObjectUninitialized); err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if !bytes.Contains(sink.Bytes(), []byte("Debug: 0x2a")) {
		t.Fatalf("debug sink = %q; want it to contain %q", sink.String(), "Debug: 0x2a")
	}
}

func TestFatalReachesHost(t *testing.T) {
	host := NewDefaultHost()
	ip := NewInterpreter(host, nil)
	if err := ip.initializeNamespace(); err != nil {
		t.Fatalf("initializeNamespace: %v", err)
	}
	loadBlock(t, ip, methodBlock(0, seq(
		[]byte{opExtendedPrefix, extOpFatal, 0x01, 0xEF, 0xBE, 0xAD, 0xDE},
		byteData(42),
	)))

	if _, err := ip.ExecuteMethod("\\MAIN", nil, ObjectUninitialized); err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}

	if host.Fatal == nil {
		t.Fatal("Fatal opcode not delivered to the host")
	}
	want := HostFatal{Type: 1, Code: 0xDEADBEEF, Argument: 42}
	if *host.Fatal != want {
		t.Fatalf("Fatal = %+v; want %+v", *host.Fatal, want)
	}
}

func TestRelativeLookupSearchesAncestors(t *testing.T) {
	// GETG lives under \_SB_ but names GLOB, which only exists at the root.
	block := seq(
		seq([]byte{opName, 'G', 'L', 'O', 'B'}, byteData(5)),
		append([]byte{opScope}, pkgLen(seq(
			[]byte{'\\', '_', 'S', 'B', '_'},
			namedMethod("GETG", 0, []byte{opReturn, 'G', 'L', 'O', 'B'}),
		))...),
	)

	ip := testInterpreter(t)
	loadBlock(t, ip, block)

	result, err := ip.ExecuteMethod("\\_SB_GETG", nil, ObjectInteger)
	if err != nil {
		t.Fatalf("ExecuteMethod: %v", err)
	}
	if result.Integer != 5 {
		t.Fatalf("GETG() = %d; want 5", result.Integer)
	}
}

func TestPackNamePadsShortSegments(t *testing.T) {
	if packName("_SB") != packName("_SB_") {
		t.Error("short segment not padded with underscores")
	}
	if packName("DEV0") == packName("DEV1") {
		t.Error("distinct segments packed identically")
	}
}
