package aml

import (
	"bytes"
	"io"

	"goacpi/table"
)

// Device status bits returned by _STA.
const (
	deviceStatusPresent     = 0x1
	deviceStatusEnabled     = 0x2
	deviceStatusShown       = 0x4
	deviceStatusFunctioning = 0x8

	// deviceStatusDefault is assumed for devices without a _STA method.
	deviceStatusDefault = deviceStatusPresent | deviceStatusEnabled |
		deviceStatusShown | deviceStatusFunctioning
)

// defaultOsName is the \_OS identifier reported when the host does not
// provide one. Firmware in the wild only probes for Windows.
const defaultOsName = "Microsoft Windows NT"

// Interrupt models reported to the firmware through \_PIC.
const (
	InterruptModelPIC  uint64 = 0
	InterruptModelAPIC uint64 = 1
)

// loadedBlock tracks one installed definition block: its decoded table, the
// DDB handle Load produced for it, and every named object its execution
// created, torn down together on unload.
type loadedBlock struct {
	table   *table.Table
	handle  *Object
	objects objectList
}

// Interpreter owns the ACPI namespace and executes AML definition blocks and
// control methods against it. It is not safe for concurrent use; embedders
// serialize access themselves.
type Interpreter struct {
	host          Host
	tableResolver table.Resolver

	root          *Object
	systemBus     *Object
	processorRoot *Object
	globalLock    *Object

	loadedBlocks []*loadedBlock

	interruptModel uint64

	trace io.Writer
	debug io.Writer
}

// NewInterpreter creates an interpreter delegating OS services to host.
// The resolver supplies the DSDT and SSDT tables during Initialize and may be
// nil when definition blocks are fed in through LoadDefinitionBlock directly.
func NewInterpreter(host Host, resolver table.Resolver) *Interpreter {
	return &Interpreter{host: host, tableResolver: resolver}
}

// SetTrace directs a statement-level execution trace to w. A nil w disables
// tracing.
func (ip *Interpreter) SetTrace(w io.Writer) { ip.trace = w }

// SetDebugOutput directs stores to the Debug object to w. A nil w discards
// them.
func (ip *Interpreter) SetDebugOutput(w io.Writer) { ip.debug = w }

// SetInterruptModel selects the interrupt model Initialize reports to the
// firmware via \_PIC. The default is InterruptModelPIC.
func (ip *Interpreter) SetInterruptModel(model uint64) { ip.interruptModel = model }

// osName returns the string \_OS reports.
func (ip *Interpreter) osName() string {
	if h, ok := ip.host.(*DefaultHost); ok && h.OsName != "" {
		return h.OsName
	}
	return defaultOsName
}

// Initialize builds the default namespace, loads the DSDT and every SSDT the
// table resolver can supply, reports the interrupt model through \_PIC, and
// runs the device initialization methods.
func (ip *Interpreter) Initialize() error {
	if err := ip.initializeNamespace(); err != nil {
		return err
	}

	if ip.tableResolver != nil {
		if dsdt := ip.tableResolver.FindTable(table.SignatureDSDT, nil); dsdt != nil {
			if _, err := ip.loadTable(dsdt); err != nil {
				return err
			}
		}
		for ssdt := ip.tableResolver.FindTable(table.SignatureSSDT, nil); ssdt != nil; {
			if _, err := ip.loadTable(ssdt); err != nil {
				return err
			}
			ssdt = ip.tableResolver.FindTable(table.SignatureSSDT, ssdt)
		}
	}

	if err := ip.notifyInterruptModel(); err != nil {
		return err
	}

	return ip.RunInitializationMethods()
}

// notifyInterruptModel invokes \_PIC with the configured interrupt model.
// Firmware without a _PIC method is common; the miss is not an error.
func (ip *Interpreter) notifyInterruptModel() error {
	pic, err := ip.getNamespaceObject("\\_PIC", nil)
	if err != nil {
		return nil
	}

	arg := &Object{Type: ObjectInteger, refCount: 1, Integer: ip.interruptModel}
	result, err := ip.executeMethodObject(pic, []*Object{arg}, ObjectUninitialized)
	arg.release()
	if result != nil {
		result.release()
	}
	return err
}

// LoadDefinitionBlock decodes, validates and executes an encoded definition
// block, returning the DDB handle that identifies it to Unload. The block's
// named objects are owned by the block and disappear when it is unloaded.
func (ip *Interpreter) LoadDefinitionBlock(data []byte) (*Object, error) {
	t, err := table.Decode(data)
	if err != nil {
		return nil, errDataLengthMismatch
	}
	return ip.loadTable(t)
}

func (ip *Interpreter) loadTable(t *table.Table) (*Object, error) {
	if t.Header.Length != uint32(table.HeaderLen+len(t.Data)) {
		return nil, errDataLengthMismatch
	}
	if t.Checksum() != 0 {
		return nil, errChecksumMismatch
	}

	// Firmware sometimes lists the same SSDT more than once; a duplicate
	// load hands back the existing block's handle.
	for _, block := range ip.loadedBlocks {
		if block.table.Header.OEMTableID == t.Header.OEMTableID &&
			block.table.Header.Length == t.Header.Length &&
			bytes.Equal(block.table.Data, t.Data) {

			block.handle.addRef()
			return block.handle, nil
		}
	}

	block := &loadedBlock{
		table:  t,
		handle: &Object{Type: ObjectDdbHandle, refCount: 1},
	}
	ip.loadedBlocks = append(ip.loadedBlocks, block)

	ctx := &execContext{
		interp:            ip,
		executeStatements: true,
		currentScope:      ip.root,
		destructorList:    &block.objects,
	}

	width32 := t.Header.Revision < 2
	if err := ctx.pushMethodContext(nil, nil, width32, t.Data, nil); err != nil {
		ctx.destroy()
		ip.UnloadDefinitionBlock(block.handle)
		return nil, err
	}

	if err := ctx.run(); err != nil {
		ctx.destroy()
		ip.UnloadDefinitionBlock(block.handle)
		return nil, err
	}

	ctx.destroy()
	return block.handle, nil
}

// UnloadDefinitionBlock removes the block identified by handle, releasing the
// handle and every named object the block created. A nil handle unloads all
// blocks.
func (ip *Interpreter) UnloadDefinitionBlock(handle *Object) {
	kept := ip.loadedBlocks[:0]
	for _, block := range ip.loadedBlocks {
		if handle != nil && block.handle != handle {
			kept = append(kept, block)
			continue
		}

		// Each object leaves the list before it is released so a release
		// cascading into other members never follows stale links.
		for block.objects.head != nil {
			obj := block.objects.head
			block.objects.remove(obj)
			obj.release()
		}
		block.handle.release()
	}
	ip.loadedBlocks = kept
}

// LookupObject resolves an absolute or root-relative path against the
// namespace.
func (ip *Interpreter) LookupObject(pathName string) (*Object, error) {
	return ip.getNamespaceObject(pathName, nil)
}

// ExecuteMethod resolves pathName and invokes it with the given arguments.
// When the path names a non-method object, the object itself is returned. A
// returnType other than ObjectUninitialized converts the result to that type;
// the caller owns the returned reference.
func (ip *Interpreter) ExecuteMethod(pathName string, args []*Object, returnType ObjectType) (*Object, error) {
	method, err := ip.getNamespaceObject(pathName, nil)
	if err != nil {
		return nil, err
	}
	return ip.executeMethodObject(method, args, returnType)
}

func (ip *Interpreter) executeMethodObject(method *Object, args []*Object, returnType ObjectType) (*Object, error) {
	if method.Type != ObjectMethod {
		method.addRef()
		return method, nil
	}

	ctx := &execContext{
		interp:            ip,
		executeStatements: true,
		currentScope:      ip.root,
	}
	defer ctx.destroy()

	err := ctx.pushMethodContext(method, method.Method.OsMutex,
		method.Method.IntegerWidthIs32, method.Method.AML, args)
	if err != nil {
		return nil, err
	}

	if method.Method.Function == nil {
		if err := ctx.run(); err != nil {
			return nil, err
		}
	}

	result := ctx.returnValue
	if result == nil {
		// Running off the end of the body without a Return yields zero.
		zero, err := ctx.newInteger(0)
		if err != nil {
			return nil, err
		}
		ctx.returnValue = zero
		result = zero
	}
	result = resolveAlias(result)

	if returnType == ObjectUninitialized || result.Type == returnType {
		result.addRef()
		return result, nil
	}

	// Field results are read out before conversion.
	switch result.Type {
	case ObjectFieldUnit:
		read, err := ctx.readFromField(result)
		if err != nil {
			return nil, err
		}
		defer read.release()
		result = read
	case ObjectBufferField:
		read, err := ctx.readFromBufferField(result)
		if err != nil {
			return nil, err
		}
		defer read.release()
		result = read
	}

	if result.Type == returnType {
		result.addRef()
		return result, nil
	}
	return ctx.convertObjectType(result, returnType)
}

// RunInitializationMethods walks the device tree under \_SB_ and the
// processors under \_PR_, evaluating _STA to decide which devices are present
// and _INI on those that are. Subtrees whose devices are neither present nor
// functioning are skipped.
func (ip *Interpreter) RunInitializationMethods() error {
	if err := ip.initializeDevice(ip.systemBus); err != nil {
		return err
	}
	return ip.initializeDevice(ip.processorRoot)
}

func (ip *Interpreter) initializeDevice(obj *Object) error {
	if obj.Type == ObjectDevice || obj.Type == ObjectProcessor {
		status := uint64(deviceStatusDefault)

		if sta := ip.findNamedObject(obj, "_STA"); sta != nil {
			result, err := ip.executeMethodObject(sta, nil, ObjectInteger)
			if err != nil {
				return err
			}
			if result != nil {
				status = result.Integer
				result.release()
			}
		}

		if status&(deviceStatusPresent|deviceStatusFunctioning) == 0 {
			return nil
		}

		if status&deviceStatusPresent != 0 {
			if ini := ip.findNamedObject(obj, "_INI"); ini != nil && ini.Type == ObjectMethod {
				result, err := ip.executeMethodObject(ini, nil, ObjectUninitialized)
				if err != nil {
					return err
				}
				if result != nil {
					result.release()
				}
			}
		}
	}

	for child := obj.firstChild; child != nil; child = child.nextSibling {
		if err := ip.initializeDevice(child); err != nil {
			return err
		}
	}
	return nil
}

// osiDefaultInterfaces is the set of interface strings _OSI always claims,
// matching what contemporary firmware probes for.
var osiDefaultInterfaces = []string{
	"Windows 2000",
	"Windows 2001",
	"Windows 2001 SP1",
	"Windows 2001.1",
	"Windows 2001 SP2",
	"Windows 2001.1 SP1",
	"Windows 2006",
	"Windows 2006.1",
	"Windows 2006 SP1",
	"Windows 2006 SP2",
	"Windows 2009",
	"Windows 2012",
	"Windows 2013",
	"Windows 2015",
}

// osiMethod is the native implementation behind \_OSI.
func osiMethod(ctx *execContext, method *Object, args []*Object) error {
	if len(args) == 0 || args[0] == nil {
		return errArgumentExpected
	}

	query := resolveAlias(args[0])
	if query.Type != ObjectString {
		return errUnexpectedType
	}
	name := string(query.String)

	supported := false
	for _, iface := range osiDefaultInterfaces {
		if iface == name {
			supported = true
			break
		}
	}
	if !supported {
		supported = ctx.interp.host.CheckOsiSupport(name)
	}

	result := constZero
	if supported {
		result = ctx.ones()
	}

	if ctx.returnValue != nil {
		ctx.returnValue.release()
	}
	result.addRef()
	ctx.returnValue = result
	return nil
}
